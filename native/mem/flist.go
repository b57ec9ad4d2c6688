package mem

import (
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Create allocates an empty root flist (PIN_FLIST_CREATE).
func (e *Engine) Create(eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("Create", 0, eb) {
		return 0
	}
	return e.alloc(&object{kind: objFlist})
}

// Destroy frees a root flist and everything in it (PIN_FLIST_DESTROY_EX).
// A NULL ref is ignored.
func (e *Engine) Destroy(r native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return
	}
	e.destroy(r, objFlist, eb)
}

// Copy returns a new root holding a deep copy of r.
func (e *Engine) Copy(r native.Ref, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("Copy", 0, eb) || e.lookup(r, objFlist, eb) == nil {
		return 0
	}
	return e.copyTree(r, 0)
}

// Concat appends copies of every field of src to dst. Fields already in
// dst are duplicated.
func (e *Engine) Concat(dst, src native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("Concat", 0, eb) {
		return
	}
	d := e.lookup(dst, objFlist, eb)
	s := e.lookup(src, objFlist, eb)
	if d == nil || s == nil {
		return
	}
	// Snapshot first: dst and src may be the same flist.
	slots := append([]*slot(nil), s.slots...)
	for _, sl := range slots {
		d.slots = append(d.slots, e.copySlot(sl, dst))
	}
}

// Count counts top-level fields, one per array element (PIN_FLIST_COUNT).
func (e *Engine) Count(r native.Ref, eb *native.ErrBuf) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	n := 0
	for _, s := range o.slots {
		if s.id.Kind() == types.KindArray {
			n += len(s.elems)
			continue
		}
		n++
	}
	return n
}

// ElemCount counts the elements of an array field (PIN_FLIST_ELEM_COUNT).
func (e *Engine) ElemCount(r native.Ref, fld types.FieldID, eb *native.ErrBuf) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || !checkKind(fld, eb, types.KindArray) {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	n := 0
	for _, s := range o.slots {
		if s.id == fld {
			n += len(s.elems)
		}
	}
	return n
}

// SubstrGet returns an alias to a substruct; the caller must not destroy it.
func (e *Engine) SubstrGet(r native.Ref, fld types.FieldID, optional bool, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || !checkKind(fld, eb, types.KindSubstruct) {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	_, s := o.find(fld)
	if s == nil {
		if !optional {
			fail(eb, native.ErrNotFound, fld, "substruct not found")
		}
		return 0
	}
	return s.sub
}

// SubstrSet stores a copy of src; a NULL src stores a NULL substruct. The
// prior occupant is destroyed.
func (e *Engine) SubstrSet(r native.Ref, fld types.FieldID, src native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("SubstrSet", fld, eb) || !checkKind(fld, eb, types.KindSubstruct) {
		return
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return
	}
	var cp native.Ref
	if src != 0 {
		if e.lookup(src, objFlist, eb) == nil {
			return
		}
		cp = e.copyTree(src, r)
	}
	if _, s := o.find(fld); s != nil {
		if s.sub != 0 {
			e.free(s.sub)
		}
		s.sub = cp
		return
	}
	o.slots = append(o.slots, &slot{id: fld, sub: cp})
}

// SubstrTake removes a substruct field and hands its flist to the caller.
func (e *Engine) SubstrTake(r native.Ref, fld types.FieldID, optional bool, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("SubstrTake", fld, eb) || !checkKind(fld, eb, types.KindSubstruct) {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	i, s := o.find(fld)
	if s == nil {
		if !optional {
			fail(eb, native.ErrNotFound, fld, "substruct not found")
		}
		return 0
	}
	o.remove(i)
	if s.sub != 0 {
		e.objects[s.sub].owner = 0
	}
	return s.sub
}

// ElemGet returns an alias to an array element. types.ElemAny names the
// first element.
func (e *Engine) ElemGet(r native.Ref, fld types.FieldID, id int32, optional bool, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || !checkKind(fld, eb, types.KindArray) {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	if _, s := o.find(fld); s != nil {
		if i := s.elemIndex(id); i >= 0 {
			return s.elems[i].ref
		}
	}
	if !optional {
		fail(eb, native.ErrNotFound, fld, "element %d not found", id)
	}
	return 0
}

// ElemSet stores a copy of src at element id and returns the id used.
// types.ElemAssign allocates the next id; types.ElemAny replaces the first
// element, or on an empty array stores the element under id -1.
func (e *Engine) ElemSet(r native.Ref, fld types.FieldID, id int32, src native.Ref, eb *native.ErrBuf) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("ElemSet", fld, eb) || !checkKind(fld, eb, types.KindArray) {
		return 0
	}
	if id < types.ElemAssign {
		fail(eb, native.ErrBadArg, fld, "bad element id %d", id)
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	var cp native.Ref
	if src != 0 {
		if e.lookup(src, objFlist, eb) == nil {
			return 0
		}
		cp = e.copyTree(src, r)
	}
	_, s := o.find(fld)
	if s == nil {
		s = &slot{id: fld}
		o.slots = append(o.slots, s)
	}
	if id == types.ElemAssign {
		id = s.nextElemID()
	}
	if i := s.elemIndex(id); i >= 0 {
		if old := s.elems[i].ref; old != 0 {
			e.free(old)
		}
		s.elems[i].ref = cp
		return s.elems[i].id
	}
	s.elems = append(s.elems, elem{id: id, ref: cp})
	return id
}

// ElemTake removes an array element and hands its flist to the caller. An
// array left without elements is removed.
func (e *Engine) ElemTake(r native.Ref, fld types.FieldID, id int32, optional bool, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("ElemTake", fld, eb) || !checkKind(fld, eb, types.KindArray) {
		return 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0
	}
	si, s := o.find(fld)
	i := -1
	if s != nil {
		i = s.elemIndex(id)
	}
	if i < 0 {
		if !optional {
			fail(eb, native.ErrNotFound, fld, "element %d not found", id)
		}
		return 0
	}
	taken := s.elems[i].ref
	s.elems = append(s.elems[:i], s.elems[i+1:]...)
	if len(s.elems) == 0 {
		o.remove(si)
	}
	if taken != 0 {
		e.objects[taken].owner = 0
	}
	return taken
}

// ElemGetNext returns the element after cookie. The cookie is a position,
// so removing an element shifts the walk. At the end the cookie is
// returned unchanged.
func (e *Engine) ElemGetNext(r native.Ref, fld types.FieldID, optional bool, cookie *native.Cookie, eb *native.ErrBuf) (native.Ref, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || !checkKind(fld, eb, types.KindArray) {
		return 0, 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0, 0
	}
	_, s := o.find(fld)
	pos := int(*cookie)
	if s == nil || pos >= len(s.elems) {
		if !optional && pos == 0 {
			fail(eb, native.ErrNotFound, fld, "array not found")
		}
		return 0, 0
	}
	*cookie = native.Cookie(pos + 1)
	return s.elems[pos].ref, s.elems[pos].id
}

// AnyGetNext walks every field of r, one step per array element. The
// error slot is filled with PIN_ERR_NOT_FOUND when the walk is exhausted.
func (e *Engine) AnyGetNext(r native.Ref, cookie *native.Cookie, eb *native.ErrBuf) (types.FieldID, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return 0, 0
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return 0, 0
	}
	want := int(*cookie)
	pos := 0
	for _, s := range o.slots {
		if s.id.Kind() == types.KindArray {
			if want < pos+len(s.elems) {
				*cookie = native.Cookie(want + 1)
				return s.id, s.elems[want-pos].id
			}
			pos += len(s.elems)
			continue
		}
		if want == pos {
			*cookie = native.Cookie(want + 1)
			return s.id, 0
		}
		pos++
	}
	fail(eb, native.ErrNotFound, 0, "no more fields")
	return 0, 0
}
