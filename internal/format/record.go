package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/flistkit/pkg/types"
)

// Record is a detached, fully materialized flist. The engine stores its
// containers in this shape and the serializers read and write it.
//
// Field order is significant and duplicates are legal: concatenation keeps
// both copies and readers take the first.
type Record struct {
	Fields []Field
}

// Field is one entry of a Record. Exactly one of Value, Sub or Elems is
// meaningful, selected by ID.Kind().
//
// Scalar Go types by kind:
//
//	INT, ENUM   int32
//	TSTAMP      int64 (unix seconds, 0 behaves as null)
//	STR         string, nil for NULL
//	BUF, BINSTR []byte, nil for NULL
//	DECIMAL     string, nil for NULL
//	POID        types.Poid, nil for NULL
type Field struct {
	ID    types.FieldID
	Value any
	Sub   *Record // SUBSTRUCT; nil is a NULL substruct
	Elems []Elem  // ARRAY
}

// Elem is one array element. A nil Rec is a NULL element.
type Elem struct {
	ID  int32
	Rec *Record
}

// Clone returns a deep copy of r. A nil record clones to nil.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of f.
func (f Field) Clone() Field {
	out := Field{ID: f.ID, Value: f.Value}
	if b, ok := f.Value.([]byte); ok {
		out.Value = bytes.Clone(b)
	}
	out.Sub = f.Sub.Clone()
	if f.Elems != nil {
		out.Elems = make([]Elem, len(f.Elems))
		for i, e := range f.Elems {
			out.Elems[i] = Elem{ID: e.ID, Rec: e.Rec.Clone()}
		}
	}
	return out
}

// Find returns the index of the first field with the given id, or -1.
func (r *Record) Find(id types.FieldID) int {
	if r == nil {
		return -1
	}
	for i := range r.Fields {
		if r.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// Count returns the number of top-level fields, counting every array
// element as one field the way the engine does. With recursive set, fields
// of nested records are included.
func (r *Record) Count(recursive bool) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Fields {
		switch f.ID.Kind() {
		case types.KindArray:
			n += len(f.Elems)
			if recursive {
				for _, e := range f.Elems {
					n += e.Rec.Count(true)
				}
			}
		case types.KindSubstruct:
			n++
			if recursive {
				n += f.Sub.Count(true)
			}
		default:
			n++
		}
	}
	return n
}

// CheckScalar validates that v has the Go type expected for kind. A nil v
// is accepted for nullable kinds.
func CheckScalar(kind types.Kind, v any) error {
	switch kind {
	case types.KindInt, types.KindEnum:
		if _, ok := v.(int32); ok {
			return nil
		}
	case types.KindTstamp:
		if _, ok := v.(int64); ok {
			return nil
		}
	case types.KindStr, types.KindDecimal:
		if _, ok := v.(string); ok || v == nil {
			return nil
		}
	case types.KindBuf, types.KindBinstr:
		if _, ok := v.([]byte); ok || v == nil {
			return nil
		}
	case types.KindPoid:
		if _, ok := v.(types.Poid); ok || v == nil {
			return nil
		}
	default:
		return fmt.Errorf("%w: %s is not a scalar kind", ErrBadKind, kind)
	}
	return fmt.Errorf("format: %s value has Go type %T", kind, v)
}

// ZeroScalar returns the value a non-nullable kind holds when unset.
func ZeroScalar(kind types.Kind) any {
	switch kind {
	case types.KindInt, types.KindEnum:
		return int32(0)
	case types.KindTstamp:
		return int64(0)
	default:
		return nil
	}
}
