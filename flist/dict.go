package flist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/joshuapare/flistkit/internal/flisttext"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Maps are keyed by field name (or decimal field number). Values by kind:
//
//	INT, ENUM          int32
//	STR                string
//	BUF, BINSTR        []byte
//	TSTAMP             int64 unix seconds
//	POID               string in "0.0.0.1 /account 42 0" form
//	DECIMAL            float64
//	SUBSTRUCT          map[string]any
//	ARRAY              map[int32]any of element id to map[string]any
//
// NULL values are nil. FromMap additionally accepts any integer or float
// type for numbers, time.Time for timestamps, types.Poid for poids, decimal
// text, *FList for sub-flists, and arrays given as []any (indexes become
// element ids) or as maps keyed by element id, with "*" for the wildcard id.

// FromMap builds an flist from m.
func (c *Client) FromMap(m map[string]any) (*FList, error) {
	rec, err := c.mapRecord(m, false, 1)
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

// FromJSON builds an flist from a JSON object in the ToMap shape. BUF and
// BINSTR values are base64 strings, as MarshalJSON writes them.
func (c *Client) FromJSON(data []byte) (*FList, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid flist json", Err: err}
	}
	rec, err := c.mapRecord(m, true, 1)
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

func (c *Client) mapRecord(m map[string]any, fromJSON bool, depth int) (*format.Record, error) {
	if err := c.opts.Limits.CheckDepth(depth); err != nil {
		return nil, err
	}
	rec := &format.Record{}
	for _, key := range slices.Sorted(maps.Keys(m)) {
		fld, err := c.names.Field(key)
		if err != nil {
			return nil, err
		}
		field, err := c.mapField(fld, m[key], fromJSON, depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

func (c *Client) mapField(fld types.FieldID, v any, fromJSON bool, depth int) (format.Field, error) {
	field := format.Field{ID: fld}
	switch fld.Kind() {
	case types.KindSubstruct:
		sub, err := c.subRecord(v, fromJSON, depth+1)
		field.Sub = sub
		return field, err

	case types.KindArray:
		elems, err := c.elemRecords(v, fromJSON, depth+1)
		field.Elems = elems
		return field, err

	case types.KindBuf, types.KindBinstr:
		if s, ok := v.(string); ok && fromJSON {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return field, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid base64 buffer", Err: err}
			}
			v = b
		}
	}
	val, err := c.scalarValue(fld, v)
	field.Value = val
	return field, err
}

// subRecord converts a sub-flist value. nil is the NULL flist.
func (c *Client) subRecord(v any, fromJSON bool, depth int) (*format.Record, error) {
	switch sub := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return c.mapRecord(sub, fromJSON, depth)
	case *FList:
		return sub.record(c)
	}
	return nil, types.Errorf(types.ErrKindValidation, "cannot use %T as an flist", v)
}

func (c *Client) elemRecords(v any, fromJSON bool, depth int) ([]format.Elem, error) {
	byID := make(map[int32]any)
	switch arr := v.(type) {
	case nil:
		// A NULL array is element 0 holding the NULL flist.
		return []format.Elem{{ID: 0}}, nil
	case []any:
		for i, e := range arr {
			byID[int32(i)] = e
		}
	case []map[string]any:
		for i, e := range arr {
			byID[int32(i)] = e
		}
	case map[int32]any:
		maps.Copy(byID, arr)
	case map[int]any:
		for id, e := range arr {
			byID[int32(id)] = e
		}
	case map[string]any:
		for key, e := range arr {
			id, err := parseElemID(key)
			if err != nil {
				return nil, err
			}
			byID[id] = e
		}
	default:
		return nil, types.Errorf(types.ErrKindValidation, "cannot use %T as an array", v)
	}

	elems := make([]format.Elem, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		rec, err := c.subRecord(byID[id], fromJSON, depth)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", id, err)
		}
		elems = append(elems, format.Elem{ID: id, Rec: rec})
	}
	return elems, nil
}

func parseElemID(key string) (int32, error) {
	if key == "*" {
		return types.ElemAny, nil
	}
	n, err := strconv.ParseInt(key, 10, 32)
	if err != nil || n < int64(types.ElemAny) {
		return 0, types.Errorf(types.ErrKindValidation, "invalid element id %q", key)
	}
	return int32(n), nil
}

// record returns a detached snapshot of f for use by client c.
func (f *FList) record(c *Client) (*format.Record, error) {
	if f.c != c {
		return nil, types.ErrForeignFList
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.snapshot()
}

func (f *FList) snapshot() (*format.Record, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	s := f.c.api.ToCompact(f.ref, &f.c.eb)
	if err := f.c.check("Error converting flist to compact string"); err != nil {
		return nil, err
	}
	return flisttext.ParseCompact(s, types.Limits{})
}

// ToMap returns a detached copy of f as nested maps. When a field occurs
// more than once the first occurrence wins.
func (f *FList) ToMap() (map[string]any, error) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	rec, err := f.snapshot()
	if err != nil {
		return nil, err
	}
	return f.c.recordMap(rec), nil
}

func (c *Client) recordMap(rec *format.Record) map[string]any {
	m := make(map[string]any, len(rec.Fields))
	for _, field := range rec.Fields {
		name := c.names.DisplayName(field.ID)
		if _, dup := m[name]; dup {
			continue
		}
		switch field.ID.Kind() {
		case types.KindSubstruct:
			if field.Sub == nil {
				m[name] = nil
			} else {
				m[name] = c.recordMap(field.Sub)
			}
		case types.KindArray:
			arr := make(map[int32]any, len(field.Elems))
			for _, e := range field.Elems {
				if e.Rec == nil {
					arr[e.ID] = nil
				} else {
					arr[e.ID] = c.recordMap(e.Rec)
				}
			}
			m[name] = arr
		default:
			m[name] = c.mapValue(field.ID.Kind(), field.Value)
		}
	}
	return m
}

func (c *Client) mapValue(kind types.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case types.KindStr:
		return c.decodeStr(v.(string))
	case types.KindPoid:
		return v.(types.Poid).String()
	case types.KindDecimal:
		d, err := strconv.ParseFloat(v.(string), 64)
		if err != nil {
			// NULL-valued decimal
			return nil
		}
		return d
	}
	return v
}

// MarshalJSON implements json.Marshaler using the ToMap shape.
func (f *FList) MarshalJSON() ([]byte, error) {
	m, err := f.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// JSON renders f as indented JSON.
func (f *FList) JSON() (string, error) {
	m, err := f.ToMap()
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Update writes every field of other into f. Scalars overwrite, substructs
// and array elements present on both sides are updated recursively, and
// the rest are copied. A NULL sub-flist in other leaves an existing one in
// f alone. Unlike Concat, no field ends up duplicated.
func (f *FList) Update(other *FList) error {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if err := f.usable(); err != nil {
		return err
	}
	if other == nil {
		return nil
	}
	if err := f.source(other); err != nil {
		return err
	}
	if other == f {
		return nil
	}
	return f.c.merge(f.ref, other.ref)
}

// UpdateMap is Update with the fields of m.
func (f *FList) UpdateMap(m map[string]any) error {
	other, err := f.c.FromMap(m)
	if err != nil {
		return err
	}
	defer other.Release()
	return f.Update(other)
}

// merge writes src into dst in place. Sub-flists already in dst are
// modified, never replaced, so live proxies into dst stay valid.
func (c *Client) merge(dst, src native.Ref) error {
	type slot struct {
		fld  types.FieldID
		elem int32
	}
	seen := make(map[slot]struct{})
	var cookie native.Cookie
	for {
		prev := cookie
		fld, elem := c.api.AnyGetNext(src, &cookie, &c.eb)
		if cookie == prev {
			return c.endOfWalk("Error iterating flist")
		}
		if err := c.check("Error iterating flist"); err != nil {
			return err
		}
		if _, dup := seen[slot{fld, elem}]; dup {
			continue
		}
		seen[slot{fld, elem}] = struct{}{}
		if err := c.mergeField(dst, src, fld, elem); err != nil {
			return err
		}
	}
}

func (c *Client) mergeField(dst, src native.Ref, fld types.FieldID, elem int32) error {
	switch fld.Kind() {
	case types.KindSubstruct:
		from := c.api.SubstrGet(src, fld, false, &c.eb)
		to := c.api.SubstrGet(dst, fld, true, &c.eb)
		if err := c.check("Error getting substruct"); err != nil {
			return err
		}
		switch {
		case to != 0 && from != 0:
			return c.merge(to, from)
		case to != 0:
			return nil
		}
		c.api.SubstrSet(dst, fld, from, &c.eb)
		return c.check("Error setting substruct")

	case types.KindArray:
		from := c.api.ElemGet(src, fld, elem, false, &c.eb)
		to := c.api.ElemGet(dst, fld, elem, true, &c.eb)
		if err := c.check("Error getting array element"); err != nil {
			return err
		}
		switch {
		case to != 0 && from != 0:
			return c.merge(to, from)
		case to != 0:
			return nil
		}
		c.api.ElemSet(dst, fld, elem, from, &c.eb)
		return c.check("Error setting array element")
	}

	v, err := c.raw(src, fld)
	if err != nil {
		return err
	}
	return c.store(dst, fld, v)
}

// Clear drops every field of f, including the duplicate entries a Concat
// can leave behind.
func (f *FList) Clear() error {
	flds, err := f.Fields()
	if err != nil {
		return err
	}
	n, err := f.Count(false)
	if err != nil {
		return err
	}
	for _, fld := range flds {
		// each Drop removes one entry, so n bounds the passes
		for range n {
			ok, err := f.Exists(fld)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := f.Drop(fld); err != nil {
				return err
			}
		}
	}
	return nil
}
