package flist

import (
	"runtime"
	"weak"

	"github.com/google/go-cmp/cmp"

	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// FList is a reference-counted proxy for an engine flist.
//
// A root proxy (no parent) owns its container. A child proxy aliases the
// sub-flist at coord inside its parent's container and keeps its parent
// alive until it is released.
type FList struct {
	c   *Client
	ref native.Ref

	parent *FList // strong; nil for a root
	coord  types.Coordinate
	// gives the parent reference back if the child is collected unreleased
	orphan runtime.Cleanup

	children map[types.Coordinate]weak.Pointer[FList]
	refs     int32
}

// Retain adds a reference and returns f.
func (f *FList) Retain() *FList {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if f.refs > 0 {
		f.refs++
	}
	return f
}

// Release drops a reference. When the last reference goes, a root destroys
// its container and a child lets go of its parent. Releasing more often
// than retained is ignored.
func (f *FList) Release() {
	if f == nil {
		return
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	f.release()
}

func (f *FList) release() {
	if f.refs <= 0 {
		logger.Warn("flist: release of a released flist", "client", f.c.id)
		return
	}
	f.refs--
	if f.refs > 0 {
		return
	}
	if p := f.parent; p != nil {
		f.orphan.Stop()
		p.forget(f.coord, f)
		f.parent = nil
		f.ref = 0
		p.release()
		return
	}
	if f.ref != 0 {
		f.c.api.Destroy(f.ref, &f.c.eb)
		_ = f.c.check("Error destroying flist")
		f.ref = 0
	}
	f.children = nil
}

// usable reports whether f can be read or written.
func (f *FList) usable() error {
	switch {
	case f == nil:
		return types.ErrNoContainer
	case f.refs <= 0:
		return types.ErrReleased
	case f.ref == 0:
		return types.ErrNoContainer
	}
	return nil
}

// source validates an flist passed as the value of a write. A nil src is
// the NULL flist.
func (f *FList) source(src *FList) error {
	if src == nil {
		return nil
	}
	if src.c != f.c {
		return types.ErrForeignFList
	}
	return src.usable()
}

func (f *FList) srcRef(src *FList) native.Ref {
	if src == nil {
		return 0
	}
	return src.ref
}

func expectKind(fld types.FieldID, kinds ...types.Kind) error {
	k := fld.Kind()
	for _, want := range kinds {
		if k == want {
			return nil
		}
	}
	return &types.Error{Kind: types.ErrKindValidation, Msg: "field " + fld.String() + " has kind " + k.String(), Err: types.ErrWrongKind}
}

// Client returns the client f belongs to.
func (f *FList) Client() *Client { return f.c }

// IsRoot reports whether f owns its container.
func (f *FList) IsRoot() bool {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.parent == nil
}

// Coordinate returns where a child sits in its parent. ok is false for a
// root.
func (f *FList) Coordinate() (coord types.Coordinate, ok bool) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if f.parent == nil {
		return types.Coordinate{}, false
	}
	return f.coord, true
}

// Refs returns the current reference count.
func (f *FList) Refs() int {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return int(f.refs)
}

// Ref returns the engine handle. With copy set the caller receives a copy
// it must destroy; otherwise the handle stays owned by the proxy tree and
// is valid only while f is.
func (f *FList) Ref(copy bool) (native.Ref, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}
	if !copy {
		return f.ref, nil
	}
	ref := f.c.api.Copy(f.ref, &f.c.eb)
	if err := f.c.check("Error copying flist"); err != nil {
		return 0, err
	}
	return ref, nil
}

// Copy returns a new root holding a deep copy of f.
func (f *FList) Copy() (*FList, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return nil, err
	}
	ref := f.c.api.Copy(f.ref, &f.c.eb)
	if err := f.c.check("Error copying flist"); err != nil {
		return nil, err
	}
	return f.c.root(ref), nil
}

// Concat appends copies of every field of src. Fields present in both are
// duplicated; readers see the first occurrence.
func (f *FList) Concat(src *FList) error {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	if src == nil {
		return types.ErrNoContainer
	}
	if err := f.source(src); err != nil {
		return err
	}
	f.c.api.Concat(f.ref, src.ref, &f.c.eb)
	return f.c.check("Error concatenating flists")
}

// Sort orders the elements of array fld by keys, compared in turn.
func (f *FList) Sort(fld types.FieldID, keys ...types.FieldID) error {
	return f.sort(fld, keys, false)
}

// SortReverse is Sort in descending order.
func (f *FList) SortReverse(fld types.FieldID, keys ...types.FieldID) error {
	return f.sort(fld, keys, true)
}

// sort builds the engine's sort flist: the array field with one element
// per key, each holding the key field with an empty value.
func (f *FList) sort(fld types.FieldID, keys []types.FieldID, descending bool) error {
	if err := expectKind(fld, types.KindArray); err != nil {
		return err
	}
	if len(keys) == 0 {
		return types.Errorf(types.ErrKindValidation, "sort needs at least one key")
	}
	spec := &format.Record{Fields: []format.Field{{ID: fld}}}
	for i, k := range keys {
		key := format.Field{ID: k, Value: format.ZeroScalar(k.Kind())}
		if k.Kind() == types.KindSubstruct {
			key.Sub = &format.Record{}
		}
		spec.Fields[0].Elems = append(spec.Fields[0].Elems, format.Elem{
			ID:  int32(i),
			Rec: &format.Record{Fields: []format.Field{key}},
		})
	}

	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	specRef, err := f.c.build(spec)
	if err != nil {
		return err
	}
	f.c.api.Sort(f.ref, specRef, descending, &f.c.eb)
	sortErr := f.c.check("Error sorting flist")
	f.c.api.Destroy(specRef, &f.c.eb)
	if err := f.c.check("Error destroying sort flist"); err != nil && sortErr == nil {
		sortErr = err
	}
	return sortErr
}

// Count returns the number of fields, one per array element. With
// recursive set, fields of nested flists are included.
func (f *FList) Count(recursive bool) (int, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}
	if !recursive {
		n := f.c.api.Count(f.ref, &f.c.eb)
		if err := f.c.check("Error counting flist"); err != nil {
			return 0, err
		}
		return n, nil
	}
	return f.c.countTree(f.ref)
}

// countTree walks ref and every sub-flist below it.
func (c *Client) countTree(ref native.Ref) (int, error) {
	n := 0
	var cookie native.Cookie
	for {
		prev := cookie
		fld, elem := c.api.AnyGetNext(ref, &cookie, &c.eb)
		if cookie == prev {
			if err := c.endOfWalk("Error counting flist"); err != nil {
				return 0, err
			}
			return n, nil
		}
		if err := c.check("Error counting flist"); err != nil {
			return 0, err
		}
		n++
		var sub native.Ref
		switch fld.Kind() {
		case types.KindSubstruct:
			sub = c.api.SubstrGet(ref, fld, true, &c.eb)
		case types.KindArray:
			sub = c.api.ElemGet(ref, fld, elem, true, &c.eb)
		default:
			continue
		}
		if err := c.check("Error counting flist"); err != nil {
			return 0, err
		}
		if sub == 0 {
			continue
		}
		m, err := c.countTree(sub)
		if err != nil {
			return 0, err
		}
		n += m
	}
}

// ArrayCount returns the number of elements of array fld.
func (f *FList) ArrayCount(fld types.FieldID) (int, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return 0, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return 0, err
	}
	n := f.c.api.ElemCount(f.ref, fld, &f.c.eb)
	if err := f.c.check("Error counting array"); err != nil {
		return 0, err
	}
	return n, nil
}

// Text renders the engine's detail text.
func (f *FList) Text() (string, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return "", err
	}
	s := f.c.api.ToString(f.ref, &f.c.eb)
	if err := f.c.check("Error converting flist to string"); err != nil {
		return "", err
	}
	return s, nil
}

// String implements fmt.Stringer. Errors render as empty text.
func (f *FList) String() string {
	s, err := f.Text()
	if err != nil {
		return ""
	}
	return s
}

// Compact renders the compact string form.
func (f *FList) Compact() (string, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return "", err
	}
	s := f.c.api.ToCompact(f.ref, &f.c.eb)
	if err := f.c.check("Error converting flist to compact string"); err != nil {
		return "", err
	}
	return s, nil
}

// XML renders f as XML. An empty root uses the engine's default element.
func (f *FList) XML(flags native.XMLFlags, root string) (string, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return "", err
	}
	s := f.c.api.ToXML(f.ref, flags, root, &f.c.eb)
	if err := f.c.check("Error converting flist to xml"); err != nil {
		return "", err
	}
	return s, nil
}

// Equal reports whether f and other hold the same fields and values.
func (f *FList) Equal(other *FList) (bool, error) {
	a, err := f.ToMap()
	if err != nil {
		return false, err
	}
	b, err := other.ToMap()
	if err != nil {
		return false, err
	}
	return cmp.Equal(a, b), nil
}
