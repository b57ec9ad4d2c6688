package flist

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/flistkit/pkg/types"
)

// scalarValue converts a Go value to the representation the engine stores
// for fld's kind (see format.Field). nil stores NULL on nullable kinds and
// zero on INT, ENUM and TSTAMP.
func (c *Client) scalarValue(fld types.FieldID, v any) (any, error) {
	kind := fld.Kind()
	bad := func() error {
		return &types.Error{
			Kind: types.ErrKindValidation,
			Msg:  fmt.Sprintf("cannot store %T in %s field %s", v, kind, c.names.DisplayName(fld)),
		}
	}

	switch kind {
	case types.KindInt, types.KindEnum:
		if v == nil {
			return int32(0), nil
		}
		n, ok := toInt64(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, bad()
		}
		return int32(n), nil

	case types.KindTstamp:
		switch t := v.(type) {
		case nil:
			return int64(0), nil
		case time.Time:
			if t.IsZero() {
				return int64(0), nil
			}
			return t.Unix(), nil
		}
		n, ok := toInt64(v)
		if !ok {
			return nil, bad()
		}
		return n, nil

	case types.KindStr:
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return c.encodeStr(s)
		case []byte:
			return c.encodeStr(string(s))
		}
		return nil, bad()

	case types.KindBuf, types.KindBinstr:
		switch b := v.(type) {
		case nil:
			return nil, nil
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, bad()

	case types.KindPoid:
		switch p := v.(type) {
		case nil:
			return nil, nil
		case types.Poid:
			return p, nil
		case *types.Poid:
			if p == nil {
				return nil, nil
			}
			return *p, nil
		case string:
			return types.ParsePoid(p, c.database)
		}
		return nil, bad()

	case types.KindDecimal:
		switch d := v.(type) {
		case nil:
			return nil, nil
		case string:
			return d, nil
		case json.Number:
			return d.String(), nil
		case float64:
			return strconv.FormatFloat(d, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(d), 'f', -1, 32), nil
		}
		if n, ok := toInt64(v); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return nil, bad()
	}
	return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "field " + fld.String() + " is not a scalar", Err: types.ErrWrongKind}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// encodeStr converts s to the engine's character set.
func (c *Client) encodeStr(s string) (string, error) {
	if !c.opts.Latin1 {
		return s, nil
	}
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return "", &types.Error{Kind: types.ErrKindValidation, Msg: "string not representable in ISO-8859-1", Err: err}
	}
	return out, nil
}

// decodeStr converts an engine string to UTF-8.
func (c *Client) decodeStr(s string) string {
	if !c.opts.Latin1 {
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
