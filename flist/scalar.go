package flist

import (
	"time"

	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// boxKind describes a scalar kind the engine stores in a caller-allocated
// box written with PUT.
type boxKind struct {
	// consumed is true when the engine destroys the box even though the
	// PUT failed. Destroying it again would be a double free.
	consumed bool
	destroy  func(api native.API, box native.Ref, eb *native.ErrBuf)
}

var boxKinds = map[types.Kind]boxKind{
	types.KindPoid:    {consumed: true, destroy: native.API.PoidDestroy},
	types.KindDecimal: {consumed: false, destroy: native.API.DecimalDestroy},
}

// scalarKinds lists the kinds Get and Set accept.
var scalarKinds = []types.Kind{
	types.KindInt, types.KindEnum, types.KindStr, types.KindBuf, types.KindBinstr,
	types.KindTstamp, types.KindPoid, types.KindDecimal,
}

// read fetches a scalar. ok is false when the field is missing (optional
// reads only) or NULL. Values come back as int32, string, []byte,
// time.Time, types.Poid or float64.
func (f *FList) read(fld types.FieldID, optional bool) (v any, ok bool, err error) {
	if err := expectKind(fld, scalarKinds...); err != nil {
		return nil, false, err
	}
	if err := f.usable(); err != nil {
		return nil, false, err
	}
	raw := f.c.api.FldGet(f.ref, fld, optional, &f.c.eb)
	if err := f.c.check("Error getting field"); err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}

	switch fld.Kind() {
	case types.KindStr:
		return f.c.decodeStr(raw.(string)), true, nil
	case types.KindTstamp:
		sec := raw.(int64)
		if sec == 0 {
			return nil, false, nil
		}
		return time.Unix(sec, 0).UTC(), true, nil
	case types.KindDecimal:
		box := raw.(native.Ref)
		d := f.c.api.DecimalToFloat(box, &f.c.eb)
		if f.c.eb.Code == native.ErrIsNull {
			// A NULL-valued decimal box fails conversion instead of
			// reading as absent.
			f.c.eb.Reset()
			return nil, false, nil
		}
		if err := f.c.check("Error converting decimal"); err != nil {
			return nil, false, err
		}
		return d, true, nil
	}
	return raw, true, nil
}

// raw fetches a scalar of ref in the form the engine stores it, for
// copying between flists. DECIMAL comes back as its exact text.
func (c *Client) raw(ref native.Ref, fld types.FieldID) (any, error) {
	v := c.api.FldGet(ref, fld, true, &c.eb)
	if err := c.check("Error getting field"); err != nil {
		return nil, err
	}
	if box, ok := v.(native.Ref); ok && fld.Kind() == types.KindDecimal {
		s := c.api.DecimalString(box, &c.eb)
		if err := c.check("Error reading decimal"); err != nil {
			return nil, err
		}
		return s, nil
	}
	return v, nil
}

// write stores a value already converted by scalarValue.
func (f *FList) write(fld types.FieldID, v any) error {
	if err := f.usable(); err != nil {
		return err
	}
	return f.c.store(f.ref, fld, v)
}

// store sets fld of ref. POID and DECIMAL values go into a new box that is
// PUT; every other kind is copied in with SET.
func (c *Client) store(ref native.Ref, fld types.FieldID, v any) error {
	if _, boxed := boxKinds[fld.Kind()]; !boxed {
		c.api.FldSet(ref, fld, v, &c.eb)
		return c.check("Error setting field")
	}

	var box native.Ref
	switch val := v.(type) {
	case types.Poid:
		box = c.api.PoidNew(val, &c.eb)
	case string:
		box = c.api.DecimalNew(val, &c.eb)
	}
	if err := c.check("Error creating " + fld.Kind().String()); err != nil {
		return err
	}
	return c.put(ref, fld, box)
}

// put stores box at fld. On failure the box is destroyed here only when
// the engine did not already consume it.
func (c *Client) put(ref native.Ref, fld types.FieldID, box native.Ref) error {
	c.api.FldPut(ref, fld, box, &c.eb)
	if !c.eb.IsErr() {
		return nil
	}
	err := c.check("Error putting " + fld.Kind().String())
	if bk := boxKinds[fld.Kind()]; box != 0 && !bk.consumed {
		bk.destroy(c.api, box, &c.eb)
		_ = c.check("Error destroying " + fld.Kind().String())
	}
	return err
}

// Get returns the scalar at fld. A missing field is a native error; a NULL
// value returns nil.
func (f *FList) Get(fld types.FieldID) (any, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	v, _, err := f.read(fld, false)
	return v, err
}

// Lookup returns the scalar at fld, or ok=false when it is missing or NULL.
func (f *FList) Lookup(fld types.FieldID) (v any, ok bool, err error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.read(fld, true)
}

// Set stores v at scalar field fld, converting it to the field's kind. A
// substruct field accepts an *FList, a map as FromMap takes, or nil.
func (f *FList) Set(fld types.FieldID, v any) error {
	if fld.Kind() == types.KindSubstruct {
		switch src := v.(type) {
		case nil:
			return f.SetSubstruct(fld, nil)
		case *FList:
			return f.SetSubstruct(fld, src)
		case map[string]any:
			sub, err := f.c.FromMap(src)
			if err != nil {
				return err
			}
			defer sub.Release()
			return f.SetSubstruct(fld, sub)
		}
	}
	val, err := f.c.scalarValue(fld, v)
	if err != nil {
		return err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.write(fld, val)
}

// SetNull stores NULL at fld. INT and ENUM fields have no NULL; TSTAMP
// stores 0.
func (f *FList) SetNull(fld types.FieldID) error {
	switch fld.Kind() {
	case types.KindInt, types.KindEnum:
		return types.Errorf(types.ErrKindValidation, "%s fields cannot be NULL", fld.Kind())
	case types.KindArray:
		_, err := f.SetElem(fld, 0, nil)
		return err
	}
	return f.Set(fld, nil)
}

func typedGet[T any](f *FList, fld types.FieldID, kind types.Kind) (T, bool, error) {
	var zero T
	if err := expectKind(fld, kind); err != nil {
		return zero, false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	v, ok, err := f.read(fld, false)
	if err != nil || !ok {
		return zero, false, err
	}
	return v.(T), true, nil
}

// Int returns INT field fld.
func (f *FList) Int(fld types.FieldID) (int32, error) {
	v, _, err := typedGet[int32](f, fld, types.KindInt)
	return v, err
}

// Enum returns ENUM field fld.
func (f *FList) Enum(fld types.FieldID) (int32, error) {
	v, _, err := typedGet[int32](f, fld, types.KindEnum)
	return v, err
}

// Str returns STR field fld; ok is false when it is NULL.
func (f *FList) Str(fld types.FieldID) (s string, ok bool, err error) {
	return typedGet[string](f, fld, types.KindStr)
}

// Buf returns BUF field fld; ok is false when it is NULL.
func (f *FList) Buf(fld types.FieldID) (b []byte, ok bool, err error) {
	return typedGet[[]byte](f, fld, types.KindBuf)
}

// Binstr returns BINSTR field fld; ok is false when it is NULL.
func (f *FList) Binstr(fld types.FieldID) (b []byte, ok bool, err error) {
	return typedGet[[]byte](f, fld, types.KindBinstr)
}

// Tstamp returns TSTAMP field fld in UTC; ok is false when it is 0.
func (f *FList) Tstamp(fld types.FieldID) (t time.Time, ok bool, err error) {
	return typedGet[time.Time](f, fld, types.KindTstamp)
}

// Poid returns POID field fld; ok is false when it is NULL.
func (f *FList) Poid(fld types.FieldID) (p types.Poid, ok bool, err error) {
	return typedGet[types.Poid](f, fld, types.KindPoid)
}

// Decimal returns DECIMAL field fld as a float; ok is false when the field
// or its value is NULL.
func (f *FList) Decimal(fld types.FieldID) (d float64, ok bool, err error) {
	return typedGet[float64](f, fld, types.KindDecimal)
}

// DecimalText returns DECIMAL field fld exactly as the engine holds it.
func (f *FList) DecimalText(fld types.FieldID) (string, bool, error) {
	if err := expectKind(fld, types.KindDecimal); err != nil {
		return "", false, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return "", false, err
	}
	v, err := f.c.raw(f.ref, fld)
	if err != nil || v == nil {
		return "", false, err
	}
	return v.(string), true, nil
}

func (f *FList) setKind(fld types.FieldID, kind types.Kind, v any) error {
	if err := expectKind(fld, kind); err != nil {
		return err
	}
	return f.Set(fld, v)
}

// SetInt stores v at INT field fld.
func (f *FList) SetInt(fld types.FieldID, v int32) error {
	return f.setKind(fld, types.KindInt, v)
}

// SetEnum stores v at ENUM field fld.
func (f *FList) SetEnum(fld types.FieldID, v int32) error {
	return f.setKind(fld, types.KindEnum, v)
}

// SetStr stores s at STR field fld.
func (f *FList) SetStr(fld types.FieldID, s string) error {
	return f.setKind(fld, types.KindStr, s)
}

// SetBuf stores b at BUF field fld; nil stores NULL.
func (f *FList) SetBuf(fld types.FieldID, b []byte) error {
	return f.setKind(fld, types.KindBuf, b)
}

// SetBinstr stores b at BINSTR field fld; nil stores NULL.
func (f *FList) SetBinstr(fld types.FieldID, b []byte) error {
	return f.setKind(fld, types.KindBinstr, b)
}

// SetTstamp stores t at TSTAMP field fld with second precision. The zero
// time stores 0.
func (f *FList) SetTstamp(fld types.FieldID, t time.Time) error {
	return f.setKind(fld, types.KindTstamp, t)
}

// SetPoid stores p at POID field fld.
func (f *FList) SetPoid(fld types.FieldID, p types.Poid) error {
	return f.setKind(fld, types.KindPoid, p)
}

// SetDecimal stores the decimal text s at DECIMAL field fld. "NULL" stores
// a NULL-valued decimal.
func (f *FList) SetDecimal(fld types.FieldID, s string) error {
	return f.setKind(fld, types.KindDecimal, s)
}
