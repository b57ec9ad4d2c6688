package flist

import (
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// SetAnyElem stores a copy of src over the first element of array fld, or
// as the only element of an empty array, and returns the element id used.
//
// The engine destroys the element being replaced. When a live child proxy
// sits at that element, its subtree is copied first, every live proxy below
// it is moved into the copy, and the child becomes a root owning the copy.
func (f *FList) SetAnyElem(fld types.FieldID, src *FList) (int32, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return 0, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}
	if err := f.source(src); err != nil {
		return 0, err
	}

	ref, elem, found, err := f.first(fld, true)
	if err != nil {
		return 0, err
	}
	if found {
		if n := f.cached(types.Coordinate{Field: fld, Elem: elem}); n != nil {
			cp := f.c.api.Copy(ref, &f.c.eb)
			if err := f.c.check("Error copying array element"); err != nil {
				return 0, err
			}
			if err := n.repoint(cp); err != nil {
				f.c.api.Destroy(cp, &f.c.eb)
				_ = f.c.check("Error destroying array element copy")
				return 0, err
			}
			n.disassociate(cp)
		}
	}

	id := f.c.api.ElemSet(f.ref, fld, types.ElemAny, f.srcRef(src), &f.c.eb)
	if err := f.c.check("Error setting first array element"); err != nil {
		return 0, err
	}
	return id, nil
}

// repoint moves every live descendant of n to the matching sub-flist of
// ref, a copy of n's container. Descendant refs are resolved before any of
// them changes, so a failure leaves the tree as it was.
func (n *FList) repoint(ref native.Ref) error {
	type move struct {
		node *FList
		ref  native.Ref
	}
	var moves []move
	var collect func(node *FList, ref native.Ref) error
	collect = func(node *FList, ref native.Ref) error {
		for _, child := range node.liveChildren() {
			var sub native.Ref
			if child.coord.Field.Kind() == types.KindSubstruct {
				sub = node.c.api.SubstrGet(ref, child.coord.Field, false, &node.c.eb)
			} else {
				sub = node.c.api.ElemGet(ref, child.coord.Field, child.coord.Elem, false, &node.c.eb)
			}
			if err := node.c.check("Error resolving copied sub-flist"); err != nil {
				return err
			}
			moves = append(moves, move{child, sub})
			if err := collect(child, sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(n, ref); err != nil {
		return err
	}
	for _, m := range moves {
		m.node.ref = m.ref
		logger.Debug("flist: child repointed", "coord", m.node.coord.String(), "client", n.c.id)
	}
	return nil
}
