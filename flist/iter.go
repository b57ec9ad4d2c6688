package flist

import (
	"errors"
	"io"

	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// endOfWalk consumes the error AnyGetNext leaves in the slot once a walk
// is exhausted. Any other error is returned.
func (c *Client) endOfWalk(msg string) error {
	if c.eb.Code == native.ErrNotFound || !c.eb.IsErr() {
		c.eb.Reset()
		return nil
	}
	return c.check(msg)
}

// FieldIter walks the distinct field ids of an flist in first-seen order.
// It reads the flist live: fields added or removed during the walk may or
// may not be reported.
type FieldIter struct {
	f      *FList
	cookie native.Cookie
	seen   map[types.FieldID]struct{}
	done   bool
}

// FieldIter returns an iterator positioned before the first field.
func (f *FList) FieldIter() *FieldIter {
	return &FieldIter{f: f, seen: make(map[types.FieldID]struct{})}
}

// Next returns the next field id or io.EOF.
func (it *FieldIter) Next() (types.FieldID, error) {
	c := it.f.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if it.done {
		return 0, io.EOF
	}
	if err := it.f.usable(); err != nil {
		it.done = true
		return 0, err
	}
	for {
		prev := it.cookie
		fld, _ := c.api.AnyGetNext(it.f.ref, &it.cookie, &c.eb)
		if it.cookie == prev {
			it.done = true
			if err := c.endOfWalk("Error iterating flist"); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		if err := c.check("Error iterating flist"); err != nil {
			it.done = true
			return 0, err
		}
		// Concatenation can leave the same field more than once.
		if _, dup := it.seen[fld]; dup {
			continue
		}
		it.seen[fld] = struct{}{}
		return fld, nil
	}
}

// ElemIter walks the element ids of an array field in engine order.
type ElemIter struct {
	f      *FList
	fld    types.FieldID
	cookie native.Cookie
	done   bool
}

// ElemIter returns an iterator over the element ids of array fld.
func (f *FList) ElemIter(fld types.FieldID) *ElemIter {
	return &ElemIter{f: f, fld: fld}
}

// Next returns the next element id or io.EOF.
func (it *ElemIter) Next() (int32, error) {
	if err := expectKind(it.fld, types.KindArray); err != nil {
		return 0, err
	}
	c := it.f.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if it.done {
		return 0, io.EOF
	}
	if err := it.f.usable(); err != nil {
		it.done = true
		return 0, err
	}
	prev := it.cookie
	_, elem := c.api.ElemGetNext(it.f.ref, it.fld, true, &it.cookie, &c.eb)
	if err := c.check("Error iterating array"); err != nil {
		it.done = true
		return 0, err
	}
	if it.cookie == prev {
		it.done = true
		return 0, io.EOF
	}
	return elem, nil
}

// Fields returns the distinct field ids of f in first-seen order.
func (f *FList) Fields() ([]types.FieldID, error) {
	var out []types.FieldID
	it := f.FieldIter()
	for {
		fld, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, fld)
	}
}

// ElemIDs returns the element ids of array fld.
func (f *FList) ElemIDs(fld types.FieldID) ([]int32, error) {
	var out []int32
	it := f.ElemIter(fld)
	for {
		id, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
}

// Exists reports whether fld is present. An array exists while it has
// elements.
func (f *FList) Exists(fld types.FieldID) (bool, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return false, err
	}
	switch fld.Kind() {
	case types.KindArray:
		var cookie native.Cookie
		f.c.api.ElemGetNext(f.ref, fld, false, &cookie, &f.c.eb)
	case types.KindSubstruct:
		f.c.api.SubstrGet(f.ref, fld, false, &f.c.eb)
	default:
		f.c.api.FldGet(f.ref, fld, false, &f.c.eb)
	}
	return f.probed(), nil
}

// ElemExists reports whether array fld has element elem.
func (f *FList) ElemExists(fld types.FieldID, elem int32) (bool, error) {
	if err := expectKind(fld, types.KindArray); err != nil {
		return false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return false, err
	}
	f.c.api.ElemGet(f.ref, fld, elem, false, &f.c.eb)
	return f.probed(), nil
}

// probed consumes the error of a non-optional read used as a presence
// test.
func (f *FList) probed() bool {
	if f.c.eb.IsErr() {
		f.c.eb.Reset()
		return false
	}
	return true
}
