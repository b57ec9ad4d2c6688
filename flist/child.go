package flist

import (
	"runtime"

	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// locate returns the child proxy for coord with one reference added. On a
// cache miss the child is created without a container, linked to f and
// registered; the caller must populate it or release it.
func (f *FList) locate(coord types.Coordinate) (n *FList, fresh bool) {
	if n := f.cached(coord); n != nil {
		n.refs++
		return n, false
	}
	n = &FList{c: f.c, parent: f, coord: coord, refs: 1}
	f.refs++
	f.register(coord, n)
	n.orphan = runtime.AddCleanup(n, orphaned, childLink{parent: f, coord: coord})
	return n, true
}

// childLink is what a child proxy holds on its parent, kept apart from the
// child so the cleanup does not keep the child reachable.
type childLink struct {
	parent *FList
	coord  types.Coordinate
}

// orphaned runs after a child proxy was collected without being released.
// The dead cache entry is pruned and the child's parent reference dropped.
func orphaned(l childLink) {
	p := l.parent
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	logger.Debug("flist: collected unreleased child", "coord", l.coord.String(), "client", p.c.id)
	p.forget(l.coord, nil)
	p.release()
}

// populate attaches ref to a located child, or releases the child and
// reports absence when ref is NULL.
func (n *FList) populate(fresh bool, ref native.Ref) *FList {
	if ref == 0 {
		n.release()
		return nil
	}
	if fresh {
		n.ref = ref
	}
	return n
}

// Substruct returns the substruct at fld. A missing field is a native
// error; a NULL substruct reports types.ErrNotFound.
func (f *FList) Substruct(fld types.FieldID) (*FList, error) {
	n, ok, err := f.lookupSubstruct(fld, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nullChild(types.Coordinate{Field: fld})
	}
	return n, nil
}

// LookupSubstruct returns the substruct at fld, or ok=false when it is
// missing or NULL.
func (f *FList) LookupSubstruct(fld types.FieldID) (n *FList, ok bool, err error) {
	return f.lookupSubstruct(fld, true)
}

func (f *FList) lookupSubstruct(fld types.FieldID, optional bool) (*FList, bool, error) {
	if err := expectKind(fld, types.KindSubstruct); err != nil {
		return nil, false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, false, err
	}

	n, fresh := f.locate(types.Coordinate{Field: fld})
	if !fresh {
		return n, true, nil
	}
	ref := f.c.api.SubstrGet(f.ref, fld, optional, &f.c.eb)
	if err := f.c.check("Error getting substruct"); err != nil {
		n.release()
		return nil, false, err
	}
	n = n.populate(true, ref)
	return n, n != nil, nil
}

// Elem returns array element elem of fld. The wildcard id is rejected; use
// AnyElem.
func (f *FList) Elem(fld types.FieldID, elem int32) (*FList, error) {
	n, ok, err := f.lookupElem(fld, elem, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nullChild(types.Coordinate{Field: fld, Elem: elem})
	}
	return n, nil
}

// LookupElem returns array element elem of fld, or ok=false when it is
// missing or NULL.
func (f *FList) LookupElem(fld types.FieldID, elem int32) (n *FList, ok bool, err error) {
	return f.lookupElem(fld, elem, true)
}

func (f *FList) lookupElem(fld types.FieldID, elem int32, optional bool) (*FList, bool, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return nil, false, err
	}
	if elem < 0 {
		return nil, false, types.ErrWildcard
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, false, err
	}

	n, fresh := f.locate(types.Coordinate{Field: fld, Elem: elem})
	if !fresh {
		return n, true, nil
	}
	ref := f.c.api.ElemGet(f.ref, fld, elem, optional, &f.c.eb)
	if err := f.c.check("Error getting array element"); err != nil {
		n.release()
		return nil, false, err
	}
	n = n.populate(true, ref)
	return n, n != nil, nil
}

// AnyElem returns the first element of array fld. The proxy is cached
// under the element's concrete id, so it is the same proxy Elem returns
// for that id.
func (f *FList) AnyElem(fld types.FieldID) (*FList, error) {
	n, ok, err := f.lookupAnyElem(fld, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nullChild(types.Coordinate{Field: fld, Elem: types.ElemAny})
	}
	return n, nil
}

// LookupAnyElem returns the first element of array fld, or ok=false when
// the array is missing, empty or its first element is NULL.
func (f *FList) LookupAnyElem(fld types.FieldID) (n *FList, ok bool, err error) {
	return f.lookupAnyElem(fld, true)
}

func (f *FList) lookupAnyElem(fld types.FieldID, optional bool) (*FList, bool, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return nil, false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, false, err
	}

	ref, elem, found, err := f.first(fld, optional)
	if err != nil || !found {
		return nil, false, err
	}
	n, fresh := f.locate(types.Coordinate{Field: fld, Elem: elem})
	n = n.populate(fresh, ref)
	return n, n != nil, nil
}

// first resolves the first element of fld and its concrete id.
func (f *FList) first(fld types.FieldID, optional bool) (ref native.Ref, elem int32, found bool, err error) {
	var cookie native.Cookie
	ref, elem = f.c.api.ElemGetNext(f.ref, fld, optional, &cookie, &f.c.eb)
	if err := f.c.check("Error getting first array element"); err != nil {
		return 0, 0, false, err
	}
	return ref, elem, cookie != 0, nil
}

func nullChild(coord types.Coordinate) error {
	return &types.Error{Kind: types.ErrKindNotFound, Msg: "NULL flist at " + coord.String(), Err: types.ErrNotFound}
}
