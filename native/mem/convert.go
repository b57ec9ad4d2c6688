package mem

import (
	"bytes"
	"cmp"
	"math/big"
	"slices"
	"strings"

	"github.com/joshuapare/flistkit/internal/flisttext"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// record materializes the container r.
func (e *Engine) record(r native.Ref) *format.Record {
	if r == 0 {
		return nil
	}
	o := e.objects[r]
	rec := &format.Record{Fields: make([]format.Field, 0, len(o.slots))}
	for _, s := range o.slots {
		f := format.Field{ID: s.id}
		switch s.id.Kind() {
		case types.KindSubstruct:
			f.Sub = e.record(s.sub)
		case types.KindArray:
			f.Elems = make([]format.Elem, len(s.elems))
			for i, el := range s.elems {
				f.Elems[i] = format.Elem{ID: el.id, Rec: e.record(el.ref)}
			}
		case types.KindPoid:
			if s.box != 0 {
				f.Value = e.objects[s.box].poid
			}
		case types.KindDecimal:
			if s.box != 0 {
				f.Value = e.objects[s.box].dec
			}
		default:
			f.Value = cloneValue(s.value)
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec
}

// build allocates containers for rec under owner.
func (e *Engine) build(rec *format.Record, owner native.Ref) native.Ref {
	o := &object{kind: objFlist, owner: owner}
	r := e.alloc(o)
	if rec == nil {
		return r
	}
	for _, f := range rec.Fields {
		s := &slot{id: f.ID}
		switch f.ID.Kind() {
		case types.KindSubstruct:
			if f.Sub != nil {
				s.sub = e.build(f.Sub, r)
			}
		case types.KindArray:
			s.elems = make([]elem, len(f.Elems))
			for i, el := range f.Elems {
				s.elems[i] = elem{id: el.ID}
				if el.Rec != nil {
					s.elems[i].ref = e.build(el.Rec, r)
				}
			}
		case types.KindPoid:
			if p, ok := f.Value.(types.Poid); ok {
				s.box = e.alloc(&object{kind: objPoid, owner: r, poid: p})
			}
		case types.KindDecimal:
			if text, ok := f.Value.(string); ok {
				s.box = e.alloc(&object{kind: objDecimal, owner: r, dec: text})
			}
		default:
			s.value = cloneValue(f.Value)
		}
		o.slots = append(o.slots, s)
	}
	return r
}

// Record returns a detached copy of r, for inspection in tests and tools.
func (e *Engine) Record(r native.Ref, eb *native.ErrBuf) *format.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.lookup(r, objFlist, eb) == nil {
		return nil
	}
	return e.record(r)
}

// ToString renders r as detail text (PIN_FLIST_TO_STR).
func (e *Engine) ToString(r native.Ref, eb *native.ErrBuf) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.lookup(r, objFlist, eb) == nil {
		return ""
	}
	return flisttext.Render(e.record(r), e.names)
}

// ToCompact renders r as a compact string (PIN_FLIST_TO_STR_COMPACT_BINARY).
func (e *Engine) ToCompact(r native.Ref, eb *native.ErrBuf) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.lookup(r, objFlist, eb) == nil {
		return ""
	}
	return flisttext.RenderCompact(e.record(r))
}

// ToXML renders r as XML (PIN_FLIST_TO_XML).
func (e *Engine) ToXML(r native.Ref, flags native.XMLFlags, root string, eb *native.ErrBuf) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.lookup(r, objFlist, eb) == nil {
		return ""
	}
	opts := flisttext.XMLOptions{Root: root, NoHeader: flags&native.XMLNoHeader != 0}
	switch {
	case flags&native.XMLByType != 0:
		opts.Style = flisttext.XMLByType
	case flags&native.XMLByShortName != 0:
		opts.Style = flisttext.XMLByShortName
	}
	out, err := flisttext.RenderXML(e.record(r), e.names, opts)
	if err != nil {
		fail(eb, native.ErrBadValue, 0, "%v", err)
		return ""
	}
	return out
}

// FromString parses detail text into a new root (PIN_STR_TO_FLIST).
func (e *Engine) FromString(s string, db int64, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("FromString", 0, eb) {
		return 0
	}
	limits := e.limits
	rec, err := flisttext.ParseString(s, e.names, flisttext.ParseOptions{Database: db, Limits: &limits})
	if err != nil {
		fail(eb, native.ErrBadValue, 0, "%v", err)
		return 0
	}
	return e.build(rec, 0)
}

// FromCompact parses a compact string into a new root.
func (e *Engine) FromCompact(s string, eb *native.ErrBuf) native.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("FromCompact", 0, eb) {
		return 0
	}
	rec, err := flisttext.ParseCompact(s, e.limits)
	if err != nil {
		fail(eb, native.ErrBadValue, 0, "%v", err)
		return 0
	}
	return e.build(rec, 0)
}

// Sort orders the elements of one array of r (PIN_FLIST_SORT). spec holds
// that array field with one element per sort key; the first field of each
// element names the key. Elements lacking a key sort first.
func (e *Engine) Sort(r, spec native.Ref, descending bool, eb *native.ErrBuf) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || e.fault("Sort", 0, eb) {
		return
	}
	o := e.lookup(r, objFlist, eb)
	so := e.lookup(spec, objFlist, eb)
	if o == nil || so == nil {
		return
	}
	if len(so.slots) == 0 || so.slots[0].id.Kind() != types.KindArray {
		fail(eb, native.ErrBadArg, 0, "sort spec must name an array field")
		return
	}
	field := so.slots[0]
	var keys []types.FieldID
	for _, el := range field.elems {
		if el.ref == 0 {
			continue
		}
		if k := e.objects[el.ref]; len(k.slots) > 0 {
			keys = append(keys, k.slots[0].id)
		}
	}
	_, target := o.find(field.id)
	if target == nil || len(keys) == 0 {
		return
	}
	slices.SortStableFunc(target.elems, func(a, b elem) int {
		c := e.compareElems(a.ref, b.ref, keys)
		if descending {
			return -c
		}
		return c
	})
}

func (e *Engine) compareElems(a, b native.Ref, keys []types.FieldID) int {
	for _, k := range keys {
		if c := compareKey(e.sortValue(a, k), e.sortValue(b, k)); c != 0 {
			return c
		}
	}
	return 0
}

// sortValue returns a comparable form of field k of container r, or nil.
func (e *Engine) sortValue(r native.Ref, k types.FieldID) any {
	if r == 0 {
		return nil
	}
	_, s := e.objects[r].find(k)
	if s == nil {
		return nil
	}
	switch k.Kind() {
	case types.KindPoid:
		if s.box == 0 {
			return nil
		}
		return e.objects[s.box].poid
	case types.KindDecimal:
		if s.box == 0 {
			return nil
		}
		v, ok := new(big.Rat).SetString(e.objects[s.box].dec)
		if !ok {
			return nil
		}
		return v
	}
	return s.value
}

func compareKey(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int32:
		return cmp.Compare(x, b.(int32))
	case int64:
		return cmp.Compare(x, b.(int64))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		return bytes.Compare(x, b.([]byte))
	case *big.Rat:
		return x.Cmp(b.(*big.Rat))
	case types.Poid:
		y := b.(types.Poid)
		return cmp.Or(cmp.Compare(x.Database, y.Database), strings.Compare(x.Type, y.Type),
			cmp.Compare(x.ID, y.ID), cmp.Compare(x.Revision, y.Revision))
	}
	return 0
}
