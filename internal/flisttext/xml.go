package flisttext

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

// XMLStyle selects how field elements are named.
type XMLStyle int

const (
	// XMLByName names each element after the field: <PIN_FLD_NAME>.
	XMLByName XMLStyle = iota
	// XMLByType names each element after the kind: <STR name="PIN_FLD_NAME">.
	XMLByType
	// XMLByShortName drops the PIN_FLD_ prefix: <NAME>.
	XMLByShortName
)

const (
	// DefaultXMLRoot is the root element name used when none is given.
	DefaultXMLRoot = "flist"

	fieldPrefix  = "PIN_FLD_"
	unknownField = "FIELD"
)

// XMLOptions controls RenderXML.
type XMLOptions struct {
	Style XMLStyle
	// Root is the root element name; DefaultXMLRoot when empty.
	Root string
	// NoHeader omits the <?xml?> declaration.
	NoHeader bool
}

// RenderXML prints rec as XML. Array elements carry an elem attribute.
// Fields missing from names are written as <FIELD name="num" type="KIND">
// in every style. NULL values are written as empty elements.
func RenderXML(rec *format.Record, names Names, opts XMLOptions) (string, error) {
	root := opts.Root
	if root == "" {
		root = DefaultXMLRoot
	}
	var b bytes.Buffer
	if !opts.NoHeader {
		b.WriteString(xml.Header)
	}
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	start := xml.StartElement{Name: xml.Name{Local: root}}
	if err := enc.EncodeToken(start); err != nil {
		return "", err
	}
	if err := encodeRecord(enc, rec, names, opts.Style); err != nil {
		return "", err
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	b.WriteByte('\n')
	return b.String(), nil
}

func encodeRecord(enc *xml.Encoder, rec *format.Record, names Names, style XMLStyle) error {
	if rec == nil {
		return nil
	}
	for _, f := range rec.Fields {
		switch f.ID.Kind() {
		case types.KindArray:
			for _, e := range f.Elems {
				start := fieldStart(f.ID, names, style)
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "elem"}, Value: strconv.Itoa(int(e.ID))})
				if err := encodeContainer(enc, start, e.Rec, names, style); err != nil {
					return err
				}
			}
		case types.KindSubstruct:
			if err := encodeContainer(enc, fieldStart(f.ID, names, style), f.Sub, names, style); err != nil {
				return err
			}
		default:
			start := fieldStart(f.ID, names, style)
			if err := enc.EncodeToken(start); err != nil {
				return err
			}
			if text, ok := xmlScalar(f.ID.Kind(), f.Value); ok {
				if err := enc.EncodeToken(xml.CharData(text)); err != nil {
					return err
				}
			}
			if err := enc.EncodeToken(start.End()); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeContainer(enc *xml.Encoder, start xml.StartElement, rec *format.Record, names Names, style XMLStyle) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeRecord(enc, rec, names, style); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func fieldStart(id types.FieldID, names Names, style XMLStyle) xml.StartElement {
	name := names.DisplayName(id)
	if _, err := strconv.ParseUint(name, 10, 32); err == nil {
		return xml.StartElement{
			Name: xml.Name{Local: unknownField},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "name"}, Value: name},
				{Name: xml.Name{Local: "type"}, Value: id.Kind().String()},
			},
		}
	}
	switch style {
	case XMLByType:
		return xml.StartElement{
			Name: xml.Name{Local: id.Kind().String()},
			Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: name}},
		}
	case XMLByShortName:
		return xml.StartElement{Name: xml.Name{Local: strings.TrimPrefix(name, fieldPrefix)}}
	default:
		return xml.StartElement{Name: xml.Name{Local: name}}
	}
}

// xmlScalar returns the element text for a scalar; false means NULL.
func xmlScalar(kind types.Kind, v any) (string, bool) {
	switch kind {
	case types.KindInt, types.KindEnum:
		n, _ := v.(int32)
		return strconv.FormatInt(int64(n), 10), true
	case types.KindTstamp:
		n, _ := v.(int64)
		return strconv.FormatInt(n, 10), true
	case types.KindStr, types.KindDecimal:
		s, ok := v.(string)
		return s, ok
	case types.KindBuf, types.KindBinstr:
		b, ok := v.([]byte)
		return strings.ToUpper(hex.EncodeToString(b)), ok
	case types.KindPoid:
		p, ok := v.(types.Poid)
		if !ok {
			return "", false
		}
		return p.String(), true
	}
	return "", false
}

// ParseXML reads XML in any of the RenderXML styles. A field is identified
// by its name attribute when present, otherwise by its tag, trying the tag
// both as given and with the PIN_FLD_ prefix. An empty element on a
// nullable scalar kind reads as NULL.
func ParseXML(r io.Reader, names Names, opts ParseOptions) (*format.Record, error) {
	dec := xml.NewDecoder(r)
	p := &xmlParser{dec: dec, names: names, db: opts.Database, limits: opts.limits()}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, types.Errorf(types.ErrKindValidation, "flist XML has no root element")
		}
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid flist XML", Err: err}
		}
		if _, ok := tok.(xml.StartElement); ok {
			rec, err := p.record(1)
			if err != nil {
				return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid flist XML", Err: err}
			}
			return rec, nil
		}
	}
}

type xmlParser struct {
	dec    *xml.Decoder
	names  Names
	db     int64
	limits types.Limits
	fields int
}

// record consumes child elements until the end of the enclosing element.
func (p *xmlParser) record(depth int) (*format.Record, error) {
	if err := p.limits.CheckDepth(depth); err != nil {
		return nil, err
	}
	rec := &format.Record{}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return rec, nil
		case xml.StartElement:
			if err := p.field(rec, t, depth); err != nil {
				return nil, err
			}
		}
	}
}

func (p *xmlParser) field(rec *format.Record, start xml.StartElement, depth int) error {
	p.fields++
	if err := p.limits.CheckFields(p.fields); err != nil {
		return err
	}
	id, err := p.resolve(start)
	if err != nil {
		return err
	}
	switch id.Kind() {
	case types.KindArray:
		elem, err := strconv.ParseInt(attr(start, "elem"), 10, 32)
		if err != nil {
			elem = 0
			if n := len(rec.Fields); n > 0 && rec.Fields[n-1].ID == id {
				elem = int64(rec.Fields[n-1].Elems[len(rec.Fields[n-1].Elems)-1].ID) + 1
			}
		}
		sub, err := p.record(depth + 1)
		if err != nil {
			return err
		}
		if n := len(rec.Fields); n > 0 && rec.Fields[n-1].ID == id {
			rec.Fields[n-1].Elems = append(rec.Fields[n-1].Elems, format.Elem{ID: int32(elem), Rec: sub})
			return nil
		}
		rec.Fields = append(rec.Fields, format.Field{ID: id, Elems: []format.Elem{{ID: int32(elem), Rec: sub}}})
		return nil
	case types.KindSubstruct:
		sub, err := p.record(depth + 1)
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, format.Field{ID: id, Sub: sub})
		return nil
	}

	var text string
	if err := p.dec.DecodeElement(&text, &start); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	v, err := p.scalar(id.Kind(), text)
	if err != nil {
		return fmt.Errorf("%s: %w", start.Name.Local, err)
	}
	if size := payloadSize(v); size > 0 {
		if err := p.limits.CheckValueSize(size); err != nil {
			return err
		}
	}
	rec.Fields = append(rec.Fields, format.Field{ID: id, Value: v})
	return nil
}

func (p *xmlParser) scalar(kind types.Kind, text string) (any, error) {
	switch kind {
	case types.KindInt, types.KindEnum, types.KindTstamp:
		return ParseScalar(kind, text, p.db)
	}
	if text == "" {
		return nil, nil
	}
	switch kind {
	case types.KindBuf, types.KindBinstr:
		b, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("bad %s payload", kind)
		}
		return b, nil
	case types.KindStr:
		return text, nil
	}
	return ParseScalar(kind, text, p.db)
}

func (p *xmlParser) resolve(start xml.StartElement) (types.FieldID, error) {
	if name := attr(start, "name"); name != "" {
		if typ := attr(start, "type"); typ != "" {
			if kind, ok := types.ParseKind(typ); ok {
				return resolveField(name, kind, p.names)
			}
		}
		if id, err := p.names.Field(name); err == nil {
			return id, nil
		}
		return 0, fmt.Errorf("unknown field %s", name)
	}
	tag := start.Name.Local
	for _, cand := range []string{tag, fieldPrefix + tag} {
		if id, err := p.names.Field(cand); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown field %s", tag)
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
