package flisttext

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

// ParseOptions controls Parse.
type ParseOptions struct {
	// Database fills poids written as a bare type ("/account").
	Database int64
	// Limits bounds nesting, field count and payload sizes. The zero value
	// means types.DefaultLimits().
	Limits *types.Limits
	// Latin1 decodes the input from ISO-8859-1, as written by legacy engines.
	Latin1 bool
}

func (o ParseOptions) limits() types.Limits {
	if o.Limits == nil {
		return types.DefaultLimits()
	}
	return *o.Limits
}

// ParseString parses detail text held in a string.
func ParseString(s string, names Names, opts ParseOptions) (*format.Record, error) {
	return Parse(strings.NewReader(s), names, opts)
}

// Parse reads detail text (the format produced by Render) into a record.
// Lines starting with '#' and blank lines are ignored.
func Parse(r io.Reader, names Names, opts ParseOptions) (*format.Record, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	limits := opts.limits()

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, ScannerInitialBufferSize)
	scanner.Buffer(buf, ScannerMaxLineSize)

	root := &format.Record{}
	frames := []*format.Record{root}
	total := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, CommentPrefix) {
			continue
		}
		child, level, err := parseLine(trimmed, frames, names, opts.Database, limits)
		if err != nil {
			return nil, lineError(lineNo, err)
		}
		total++
		if err := limits.CheckFields(total); err != nil {
			return nil, lineError(lineNo, err)
		}
		frames = frames[:level+1]
		if child != nil {
			if err := limits.CheckDepth(level + 1); err != nil {
				return nil, lineError(lineNo, err)
			}
			frames = append(frames, child)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "error reading flist text", Err: err}
	}
	return root, nil
}

func lineError(n int, err error) error {
	return &types.Error{Kind: types.ErrKindValidation, Msg: fmt.Sprintf("invalid flist text at line %d", n), Err: err}
}

func cutToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// parseLine appends one field to the frame at its level and returns the
// record that subsequent deeper lines populate, if any.
func parseLine(s string, frames []*format.Record, names Names, db int64, limits types.Limits) (*format.Record, int, error) {
	levelTok, rest := cutToken(s)
	nameTok, rest := cutToken(rest)
	kindTok, rest := cutToken(rest)
	elemTok, rest := cutToken(rest)
	value := strings.TrimSpace(rest)

	level, err := strconv.Atoi(levelTok)
	if err != nil || level < 0 {
		return nil, 0, fmt.Errorf("bad level %q", levelTok)
	}
	if level >= len(frames) {
		return nil, 0, fmt.Errorf("level %d without a parent at level %d", level, level-1)
	}
	kind, ok := types.ParseKind(kindTok)
	if !ok {
		return nil, 0, fmt.Errorf("unknown type %q", kindTok)
	}
	if len(elemTok) < 3 || elemTok[0] != '[' || elemTok[len(elemTok)-1] != ']' {
		return nil, 0, fmt.Errorf("bad element id %q", elemTok)
	}
	elem, err := strconv.ParseInt(elemTok[1:len(elemTok)-1], 10, 32)
	if err != nil {
		return nil, 0, fmt.Errorf("bad element id %q", elemTok)
	}
	id, err := resolveField(nameTok, kind, names)
	if err != nil {
		return nil, 0, err
	}

	parent := frames[level]
	switch kind {
	case types.KindArray:
		var sub *format.Record
		if value != nullText[kind] {
			sub = &format.Record{}
		}
		if n := len(parent.Fields); n > 0 && parent.Fields[n-1].ID == id {
			parent.Fields[n-1].Elems = append(parent.Fields[n-1].Elems, format.Elem{ID: int32(elem), Rec: sub})
		} else {
			parent.Fields = append(parent.Fields, format.Field{ID: id, Elems: []format.Elem{{ID: int32(elem), Rec: sub}}})
		}
		return sub, level, nil
	case types.KindSubstruct:
		var sub *format.Record
		if value != nullText[kind] {
			sub = &format.Record{}
		}
		parent.Fields = append(parent.Fields, format.Field{ID: id, Sub: sub})
		return sub, level, nil
	}

	v, err := ParseScalar(kind, value, db)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", nameTok, err)
	}
	if size := payloadSize(v); size > 0 {
		if err := limits.CheckValueSize(size); err != nil {
			return nil, 0, err
		}
	}
	parent.Fields = append(parent.Fields, format.Field{ID: id, Value: v})
	return nil, level, nil
}

func payloadSize(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []byte:
		return len(x)
	}
	return 0
}

func resolveField(ident string, kind types.Kind, names Names) (types.FieldID, error) {
	if id, err := names.Field(ident); err == nil {
		if id.Kind() != kind {
			return 0, fmt.Errorf("field %s is %s, line says %s", ident, id.Kind(), kind)
		}
		return id, nil
	}
	num, err := strconv.ParseUint(ident, 10, 24)
	if err != nil {
		return 0, fmt.Errorf("unknown field %s", ident)
	}
	return types.MakeField(kind, uint32(num)), nil
}

// ParseScalar parses the text of one scalar as printed by ScalarText.
func ParseScalar(kind types.Kind, s string, db int64) (any, error) {
	if null, ok := nullText[kind]; ok && s == null {
		return nil, nil
	}
	switch kind {
	case types.KindInt, types.KindEnum:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad %s value %q", kind, s)
		}
		return int32(n), nil
	case types.KindTstamp:
		num := s
		if strings.HasPrefix(s, "(") {
			end := strings.IndexByte(s, ')')
			if end < 0 {
				return nil, fmt.Errorf("bad TSTAMP value %q", s)
			}
			num = s[1:end]
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad TSTAMP value %q", s)
		}
		return n, nil
	case types.KindStr:
		if strings.HasPrefix(s, `"`) {
			u, err := strconv.Unquote(s)
			if err != nil {
				return nil, fmt.Errorf("bad STR value %s", s)
			}
			return u, nil
		}
		return s, nil
	case types.KindDecimal:
		if s != DecimalNull {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("bad DECIMAL value %q", s)
			}
		}
		return s, nil
	case types.KindBuf, types.KindBinstr:
		sizeTok, data := cutToken(s)
		size, err := strconv.Atoi(sizeTok)
		if err != nil || !strings.HasPrefix(data, "0x") {
			return nil, fmt.Errorf("bad %s value %q", kind, s)
		}
		b, err := hex.DecodeString(data[2:])
		if err != nil || len(b) != size {
			return nil, fmt.Errorf("bad %s payload (size %d)", kind, size)
		}
		return b, nil
	case types.KindPoid:
		p, err := types.ParsePoid(s, db)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%s is not a scalar kind", kind)
}
