package format

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/joshuapare/flistkit/internal/buf"
	"github.com/joshuapare/flistkit/pkg/types"
)

// EncodeCompact serializes r into the compact binary layout. A nil record
// encodes as an empty one.
func EncodeCompact(r *Record) []byte {
	out := append([]byte(nil), CompactSignature...)
	return appendRecord(out, r)
}

func appendRecord(dst []byte, r *Record) []byte {
	if r == nil {
		return buf.AppendU32LE(dst, 0)
	}
	dst = buf.AppendU32LE(dst, uint32(len(r.Fields)))
	for _, f := range r.Fields {
		dst = appendField(dst, f)
	}
	return dst
}

func appendField(dst []byte, f Field) []byte {
	dst = buf.AppendU32LE(dst, uint32(f.ID))
	switch f.ID.Kind() {
	case types.KindInt, types.KindEnum:
		v, _ := f.Value.(int32)
		return buf.AppendI32LE(dst, v)
	case types.KindTstamp:
		v, _ := f.Value.(int64)
		return buf.AppendI64LE(dst, v)
	case types.KindStr, types.KindDecimal:
		s, ok := f.Value.(string)
		if !ok {
			return append(dst, FlagNull)
		}
		dst = append(dst, FlagPresent)
		return buf.AppendBytes(dst, []byte(s))
	case types.KindBuf, types.KindBinstr:
		b, ok := f.Value.([]byte)
		if !ok {
			return append(dst, FlagNull)
		}
		dst = append(dst, FlagPresent)
		return buf.AppendBytes(dst, b)
	case types.KindPoid:
		p, ok := f.Value.(types.Poid)
		if !ok {
			return append(dst, FlagNull)
		}
		dst = append(dst, FlagPresent)
		dst = buf.AppendI64LE(dst, p.Database)
		dst = buf.AppendBytes(dst, []byte(p.Type))
		dst = buf.AppendI64LE(dst, p.ID)
		return buf.AppendI32LE(dst, p.Revision)
	case types.KindSubstruct:
		if f.Sub == nil {
			return append(dst, FlagNull)
		}
		dst = append(dst, FlagPresent)
		return appendRecord(dst, f.Sub)
	case types.KindArray:
		dst = buf.AppendU32LE(dst, uint32(len(f.Elems)))
		for _, e := range f.Elems {
			dst = buf.AppendI32LE(dst, e.ID)
			if e.Rec == nil {
				dst = append(dst, FlagNull)
				continue
			}
			dst = append(dst, FlagPresent)
			dst = appendRecord(dst, e.Rec)
		}
		return dst
	}
	return dst
}

// DecodeCompact parses a compact binary flist with comprehensive bounds
// checking. Nesting, field count and payload sizes are bounded by limits.
func DecodeCompact(b []byte, limits types.Limits) (*Record, error) {
	if len(b) < SignatureSize {
		return nil, fmt.Errorf("compact: %w (have %d, need %d)", ErrTruncated, len(b), SignatureSize)
	}
	if !bytes.Equal(b[:SignatureSize], CompactSignature) {
		return nil, fmt.Errorf("compact: %w", ErrSignatureMismatch)
	}
	d := &decoder{r: buf.NewReader(b[SignatureSize:]), limits: limits}
	rec, err := d.record(0)
	if err != nil {
		return nil, err
	}
	if d.r.Remaining() != 0 {
		return nil, fmt.Errorf("compact: %w (%d bytes)", ErrTrailing, d.r.Remaining())
	}
	return rec, nil
}

type decoder struct {
	r      *buf.Reader
	limits types.Limits
	fields int
}

func (d *decoder) short() error {
	return fmt.Errorf("compact: %w at offset %d: %v", ErrTruncated, d.r.Offset()+SignatureSize, d.r.Err())
}

func (d *decoder) count(n int) error {
	d.fields += n
	return d.limits.CheckFields(d.fields)
}

func (d *decoder) record(depth int) (*Record, error) {
	if err := d.limits.CheckDepth(depth); err != nil {
		return nil, fmt.Errorf("compact: %w", err)
	}
	n := int(d.r.U32())
	if d.r.Err() != nil {
		return nil, d.short()
	}
	if err := d.count(n); err != nil {
		return nil, fmt.Errorf("compact: %w", err)
	}
	// Each field needs at least 5 bytes; bound the preallocation by what is left.
	capHint := min(n, d.r.Remaining()/5)
	rec := &Record{Fields: make([]Field, 0, capHint)}
	for range n {
		f, err := d.field(depth)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec, nil
}

func (d *decoder) flag() (bool, error) {
	v := d.r.U8()
	if d.r.Err() != nil {
		return false, d.short()
	}
	switch v {
	case FlagNull:
		return false, nil
	case FlagPresent:
		return true, nil
	default:
		return false, fmt.Errorf("compact: %w at offset %d", ErrBadFlag, d.r.Offset()+SignatureSize-1)
	}
}

func (d *decoder) payload() ([]byte, error) {
	p := d.r.Bytes(d.limits.MaxValueSize)
	if err := d.r.Err(); err != nil {
		if errors.Is(err, buf.ErrShort) {
			return nil, d.short()
		}
		return nil, fmt.Errorf("compact: %w", err)
	}
	return p, nil
}

func (d *decoder) field(depth int) (Field, error) {
	f := Field{ID: types.FieldID(d.r.U32())}
	if d.r.Err() != nil {
		return Field{}, d.short()
	}
	switch f.ID.Kind() {
	case types.KindInt, types.KindEnum:
		f.Value = d.r.I32()
	case types.KindTstamp:
		f.Value = d.r.I64()
	case types.KindStr, types.KindDecimal, types.KindBuf, types.KindBinstr:
		present, err := d.flag()
		if err != nil {
			return Field{}, err
		}
		if !present {
			break
		}
		p, err := d.payload()
		if err != nil {
			return Field{}, err
		}
		if f.ID.Kind() == types.KindBuf || f.ID.Kind() == types.KindBinstr {
			f.Value = bytes.Clone(p)
		} else {
			f.Value = string(p)
		}
	case types.KindPoid:
		present, err := d.flag()
		if err != nil {
			return Field{}, err
		}
		if !present {
			break
		}
		var p types.Poid
		p.Database = d.r.I64()
		typ, err := d.payload()
		if err != nil {
			return Field{}, err
		}
		p.Type = string(typ)
		p.ID = d.r.I64()
		p.Revision = d.r.I32()
		f.Value = p
	case types.KindSubstruct:
		present, err := d.flag()
		if err != nil {
			return Field{}, err
		}
		if present {
			if f.Sub, err = d.record(depth + 1); err != nil {
				return Field{}, err
			}
		}
	case types.KindArray:
		n := int(d.r.U32())
		if d.r.Err() != nil {
			return Field{}, d.short()
		}
		if err := d.count(n); err != nil {
			return Field{}, fmt.Errorf("compact: %w", err)
		}
		f.Elems = make([]Elem, 0, min(n, d.r.Remaining()/5))
		for range n {
			e := Elem{ID: d.r.I32()}
			present, err := d.flag()
			if err != nil {
				return Field{}, err
			}
			if present {
				if e.Rec, err = d.record(depth + 1); err != nil {
					return Field{}, err
				}
			}
			f.Elems = append(f.Elems, e)
		}
	default:
		return Field{}, fmt.Errorf("compact: %w %d in field %d", ErrBadKind, int(f.ID.Kind()), uint32(f.ID))
	}
	if d.r.Err() != nil {
		return Field{}, d.short()
	}
	return f, nil
}
