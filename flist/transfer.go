package flist

import (
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// disassociate turns the live child n into a root owning ref, which the
// caller has just taken out of n's parent.
func (n *FList) disassociate(ref native.Ref) {
	p := n.parent
	n.orphan.Stop()
	p.forget(n.coord, n)
	n.parent = nil
	n.ref = ref
	logger.Debug("flist: child disassociated", "coord", n.coord.String(), "client", n.c.id)
	p.release()
}

// settle applies the drop rule to a container just taken out of coord: a
// live child there becomes its owner, otherwise it is destroyed.
func (f *FList) settle(coord types.Coordinate, taken native.Ref) error {
	if n := f.cached(coord); n != nil {
		n.disassociate(taken)
		return nil
	}
	if taken == 0 {
		return nil
	}
	f.c.api.Destroy(taken, &f.c.eb)
	return f.c.check("Error destroying taken flist")
}

// steal takes the container at coord out before a write when a live child
// aliases it, so the write cannot destroy memory the child still uses.
func (f *FList) steal(coord types.Coordinate) error {
	n := f.cached(coord)
	if n == nil {
		return nil
	}
	var taken native.Ref
	if coord.Field.Kind() == types.KindSubstruct {
		taken = f.c.api.SubstrTake(f.ref, coord.Field, false, &f.c.eb)
	} else {
		taken = f.c.api.ElemTake(f.ref, coord.Field, coord.Elem, false, &f.c.eb)
	}
	if err := f.c.check("Error taking flist before overwrite"); err != nil {
		return err
	}
	n.disassociate(taken)
	return nil
}

// SetSubstruct stores a copy of src at fld. A nil src stores a NULL
// substruct. A live child proxy at fld keeps the previous contents and
// becomes a root.
func (f *FList) SetSubstruct(fld types.FieldID, src *FList) error {
	if err := expectKind(fld, types.KindSubstruct); err != nil {
		return err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	if err := f.source(src); err != nil {
		return err
	}
	if err := f.steal(types.Coordinate{Field: fld}); err != nil {
		return err
	}
	f.c.api.SubstrSet(f.ref, fld, f.srcRef(src), &f.c.eb)
	return f.c.check("Error setting substruct")
}

// SetElem stores a copy of src as element elem of array fld and returns
// the element id used; types.ElemAssign picks the next free id. A nil src
// stores a NULL element. A live child proxy at the element keeps the
// previous contents and becomes a root.
func (f *FList) SetElem(fld types.FieldID, elem int32, src *FList) (int32, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return 0, err
	}
	if elem == types.ElemAny {
		return 0, types.ErrWildcard
	}
	if elem < types.ElemAssign {
		return 0, types.Errorf(types.ErrKindValidation, "invalid element id %d", elem)
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}
	if err := f.source(src); err != nil {
		return 0, err
	}
	if elem >= 0 {
		if err := f.steal(types.Coordinate{Field: fld, Elem: elem}); err != nil {
			return 0, err
		}
	}
	id := f.c.api.ElemSet(f.ref, fld, elem, f.srcRef(src), &f.c.eb)
	if err := f.c.check("Error setting array element"); err != nil {
		return 0, err
	}
	return id, nil
}

// AppendElem stores a copy of src under the next free element id.
func (f *FList) AppendElem(fld types.FieldID, src *FList) (int32, error) {
	return f.SetElem(fld, types.ElemAssign, src)
}

// Drop removes fld. A substruct is taken out and handed to its live child
// proxy, if any, or destroyed; an array is emptied as DropArray does.
// Dropping a missing field is not an error.
func (f *FList) Drop(fld types.FieldID) error {
	if fld.Kind() == types.KindArray {
		_, err := f.DropArray(fld)
		return err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	if fld.Kind() != types.KindSubstruct {
		f.c.api.FldDrop(f.ref, fld, &f.c.eb)
		return f.c.check("Error dropping field")
	}
	taken := f.c.api.SubstrTake(f.ref, fld, true, &f.c.eb)
	if err := f.c.check("Error dropping substruct"); err != nil {
		return err
	}
	return f.settle(types.Coordinate{Field: fld}, taken)
}

// DropElem removes element elem of array fld. The wildcard id removes the
// first element. Dropping a missing element is not an error.
func (f *FList) DropElem(fld types.FieldID, elem int32) error {
	if err := expectKind(fld, types.KindArray); err != nil {
		return err
	}
	if elem < types.ElemAny {
		return types.Errorf(types.ErrKindValidation, "invalid element id %d", elem)
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	if elem == types.ElemAny {
		_, id, found, err := f.first(fld, true)
		if err != nil || !found {
			return err
		}
		elem = id
	}
	return f.dropElem(fld, elem, true)
}

func (f *FList) dropElem(fld types.FieldID, elem int32, optional bool) error {
	taken := f.c.api.ElemTake(f.ref, fld, elem, optional, &f.c.eb)
	if err := f.c.check("Error dropping array element"); err != nil {
		return err
	}
	return f.settle(types.Coordinate{Field: fld, Elem: elem}, taken)
}

// DropArray removes every element of array fld and returns how many were
// removed.
func (f *FList) DropArray(fld types.FieldID) (int, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return 0, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}

	n := 0
	var cookie native.Cookie
	for {
		_, elem := f.c.api.ElemGetNext(f.ref, fld, true, &cookie, &f.c.eb)
		if err := f.c.check("Error walking array"); err != nil {
			return n, err
		}
		if cookie == 0 {
			return n, nil
		}
		if err := f.dropElem(fld, elem, false); err != nil {
			return n, err
		}
		// Removal shifts the remaining elements down.
		cookie = 0
		n++
	}
}

// TakeSubstruct removes the substruct at fld and returns it as a root. A
// live child proxy at fld is returned itself, now a root. ok is false when
// the field is missing or NULL.
func (f *FList) TakeSubstruct(fld types.FieldID) (n *FList, ok bool, err error) {
	if err := expectKind(fld, types.KindSubstruct); err != nil {
		return nil, false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, false, err
	}
	taken := f.c.api.SubstrTake(f.ref, fld, true, &f.c.eb)
	if err := f.c.check("Error taking substruct"); err != nil {
		return nil, false, err
	}
	n = f.adopt(types.Coordinate{Field: fld}, taken)
	return n, n != nil, nil
}

// TakeElem removes element elem of array fld and returns it as a root.
// The wildcard id takes the first element.
func (f *FList) TakeElem(fld types.FieldID, elem int32) (n *FList, ok bool, err error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return nil, false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, false, err
	}
	if elem == types.ElemAny {
		_, id, found, err := f.first(fld, true)
		if err != nil || !found {
			return nil, false, err
		}
		elem = id
	}
	taken := f.c.api.ElemTake(f.ref, fld, elem, true, &f.c.eb)
	if err := f.c.check("Error taking array element"); err != nil {
		return nil, false, err
	}
	n = f.adopt(types.Coordinate{Field: fld, Elem: elem}, taken)
	return n, n != nil, nil
}

// adopt wraps a taken container in a root proxy with one reference,
// reusing the live child at coord when there is one.
func (f *FList) adopt(coord types.Coordinate, taken native.Ref) *FList {
	if n := f.cached(coord); n != nil {
		n.disassociate(taken)
		n.refs++
		return n
	}
	if taken == 0 {
		return nil
	}
	return f.c.root(taken)
}
