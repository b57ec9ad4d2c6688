package mem

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/joshuapare/flistkit/internal/flisttext"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// FldGet reads a scalar. POID fields yield a types.Poid value, DECIMAL
// fields the Ref of the contained box. nil means absent or NULL.
func (e *Engine) FldGet(r native.Ref, fld types.FieldID, optional bool, eb *native.ErrBuf) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || !checkKind(fld, eb, scalarKinds...) {
		return nil
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return nil
	}
	_, s := o.find(fld)
	if s == nil {
		if !optional {
			fail(eb, native.ErrNotFound, fld, "field not found")
		}
		return nil
	}
	switch fld.Kind() {
	case types.KindPoid:
		if s.box == 0 {
			return nil
		}
		return e.objects[s.box].poid
	case types.KindDecimal:
		if s.box == 0 {
			return nil
		}
		return s.box
	}
	return cloneValue(s.value)
}

var scalarKinds = []types.Kind{
	types.KindInt, types.KindEnum, types.KindStr, types.KindBuf, types.KindPoid,
	types.KindTstamp, types.KindBinstr, types.KindDecimal,
}

// FldSet copies a scalar in, replacing the first occurrence of the field.
// POID takes a types.Poid and DECIMAL its text; nil stores NULL.
func (e *Engine) FldSet(r native.Ref, fld types.FieldID, v any, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("FldSet", fld, eb) || !checkKind(fld, eb, scalarKinds...) {
		return
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return
	}
	if err := format.CheckScalar(fld.Kind(), v); err != nil {
		fail(eb, native.ErrBadValue, fld, "%v", err)
		return
	}
	s := &slot{id: fld, value: cloneValue(v)}
	switch fld.Kind() {
	case types.KindPoid:
		s.value = nil
		if p, ok := v.(types.Poid); ok {
			if !validPoidType(p.Type) {
				fail(eb, native.ErrBadPoidType, fld, "bad poid type %q", p.Type)
				return
			}
			s.box = e.alloc(&object{kind: objPoid, owner: r, poid: p})
		}
	case types.KindDecimal:
		s.value = nil
		if text, ok := v.(string); ok {
			if !validDecimal(text) {
				fail(eb, native.ErrBadValue, fld, "bad decimal %q", text)
				return
			}
			s.box = e.alloc(&object{kind: objDecimal, owner: r, dec: strings.TrimSpace(text)})
		}
	}
	e.replace(o, s)
}

// replace stores s over the first occurrence of its field, freeing the
// old value, or appends it.
func (e *Engine) replace(o *object, s *slot) {
	if i, old := o.find(s.id); old != nil {
		e.freeSlot(old)
		o.slots[i] = s
		return
	}
	o.slots = append(o.slots, s)
}

// FldPut stores a caller-allocated poid or decimal box; a NULL box stores
// NULL. On success the flist owns the box. On failure a poid box is
// destroyed anyway, while a decimal box stays with the caller.
func (e *Engine) FldPut(r native.Ref, fld types.FieldID, box native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return
	}
	if !e.put(r, fld, box, eb) {
		if b, ok := e.objects[box]; ok && b.kind == objPoid && b.owner == 0 {
			e.free(box)
		}
	}
}

func (e *Engine) put(r native.Ref, fld types.FieldID, box native.Ref, eb *native.ErrBuf) bool {
	if e.fault("FldPut", fld, eb) || !checkKind(fld, eb, types.KindPoid, types.KindDecimal) {
		return false
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return false
	}
	if box != 0 {
		want := objPoid
		if fld.Kind() == types.KindDecimal {
			want = objDecimal
		}
		b := e.lookup(box, want, eb)
		if b == nil {
			return false
		}
		if b.owner != 0 {
			fail(eb, native.ErrBadArg, fld, "box %#x is already stored", uint64(box))
			return false
		}
		b.owner = r
	}
	e.replace(o, &slot{id: fld, box: box})
	return true
}

// FldDrop removes the first occurrence of a field and frees its value. A
// missing field is not an error.
func (e *Engine) FldDrop(r native.Ref, fld types.FieldID, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("FldDrop", fld, eb) {
		return
	}
	o := e.lookup(r, objFlist, eb)
	if o == nil {
		return
	}
	if i, s := o.find(fld); s != nil {
		o.remove(i)
		e.freeSlot(s)
	}
}

func validPoidType(t string) bool {
	return strings.HasPrefix(t, "/") && !strings.ContainsAny(t, " \t\n")
}

func validDecimal(text string) bool {
	text = strings.TrimSpace(text)
	if text == flisttext.DecimalNull {
		return true
	}
	_, ok := new(big.Rat).SetString(text)
	return ok
}

// PoidNew allocates a poid box owned by the caller.
func (e *Engine) PoidNew(p types.Poid, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("PoidNew", 0, eb) {
		return 0
	}
	if !validPoidType(p.Type) {
		eb.Set(native.LocPoid, native.ClassSystemDeterminate, native.ErrBadPoidType, 0, "bad poid type "+strconv.Quote(p.Type))
		return 0
	}
	return e.alloc(&object{kind: objPoid, poid: p})
}

// PoidValue reads a poid box.
func (e *Engine) PoidValue(box native.Ref, eb *native.ErrBuf) types.Poid {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return types.Poid{}
	}
	b := e.lookup(box, objPoid, eb)
	if b == nil {
		return types.Poid{}
	}
	return b.poid
}

// PoidDestroy frees a caller-owned poid box.
func (e *Engine) PoidDestroy(box native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return
	}
	e.destroy(box, objPoid, eb)
}

// DecimalNew parses text into a caller-owned decimal box. "NULL" yields a
// null-valued decimal.
func (e *Engine) DecimalNew(text string, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("DecimalNew", 0, eb) {
		return 0
	}
	if !validDecimal(text) {
		eb.Set(native.LocUtils, native.ClassSystemDeterminate, native.ErrBadValue, 0, "bad decimal "+strconv.Quote(text))
		return 0
	}
	return e.alloc(&object{kind: objDecimal, dec: strings.TrimSpace(text)})
}

// DecimalToFloat converts a decimal box. A null-valued decimal fills the
// error slot with PIN_ERR_IS_NULL.
func (e *Engine) DecimalToFloat(box native.Ref, eb *native.ErrBuf) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return 0
	}
	b := e.lookup(box, objDecimal, eb)
	if b == nil {
		return 0
	}
	if b.dec == flisttext.DecimalNull {
		eb.Set(native.LocUtils, native.ClassSystemDeterminate, native.ErrIsNull, 0, "decimal is NULL")
		return 0
	}
	r, _ := new(big.Rat).SetString(b.dec)
	f, _ := r.Float64()
	return f
}

// DecimalString returns the decimal's text.
func (e *Engine) DecimalString(box native.Ref, eb *native.ErrBuf) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return ""
	}
	b := e.lookup(box, objDecimal, eb)
	if b == nil {
		return ""
	}
	return b.dec
}

// DecimalDestroy frees a caller-owned decimal box.
func (e *Engine) DecimalDestroy(box native.Ref, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return
	}
	e.destroy(box, objDecimal, eb)
}
