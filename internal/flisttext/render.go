package flisttext

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Render prints rec in the engine's detail text form:
//
//	# number of field entries allocated 2, used 2
//	0 PIN_FLD_POID                   POID [0] 0.0.0.1 /account 42 0
//	0 PIN_FLD_RESULTS               ARRAY [0] allocated 1, used 1
//	1     PIN_FLD_NAME                STR [0] "joe"
func Render(rec *format.Record, names Names) string {
	var sb strings.Builder
	n := 0
	if rec != nil {
		n = len(rec.Fields)
	}
	fmt.Fprintf(&sb, "%s allocated %d, used %d\n", HeaderPrefix, n, n)
	renderRecord(&sb, rec, names, 0)
	return sb.String()
}

func renderRecord(sb *strings.Builder, rec *format.Record, names Names, level int) {
	if rec == nil {
		return
	}
	for _, f := range rec.Fields {
		switch f.ID.Kind() {
		case types.KindArray:
			for _, e := range f.Elems {
				if e.Rec == nil {
					line(sb, level, names.DisplayName(f.ID), f.ID.Kind(), e.ID, nullText[types.KindArray])
					continue
				}
				n := len(e.Rec.Fields)
				line(sb, level, names.DisplayName(f.ID), f.ID.Kind(), e.ID, fmt.Sprintf("allocated %d, used %d", n, n))
				renderRecord(sb, e.Rec, names, level+1)
			}
		case types.KindSubstruct:
			if f.Sub == nil {
				line(sb, level, names.DisplayName(f.ID), f.ID.Kind(), 0, nullText[types.KindSubstruct])
				continue
			}
			n := len(f.Sub.Fields)
			line(sb, level, names.DisplayName(f.ID), f.ID.Kind(), 0, fmt.Sprintf("allocated %d, used %d", n, n))
			renderRecord(sb, f.Sub, names, level+1)
		default:
			line(sb, level, names.DisplayName(f.ID), f.ID.Kind(), 0, ScalarText(f.ID.Kind(), f.Value))
		}
	}
}

func line(sb *strings.Builder, level int, name string, kind types.Kind, elem int32, value string) {
	indent := strings.Repeat(" ", level*IndentWidth)
	fmt.Fprintf(sb, "%d %s%-*s %9s [%d] %s\n", level, indent, max(NameColumn-len(indent), 0), name, kind, elem, value)
}

// ScalarText renders one scalar value the way detail text prints it.
func ScalarText(kind types.Kind, v any) string {
	switch kind {
	case types.KindInt, types.KindEnum:
		n, _ := v.(int32)
		return strconv.FormatInt(int64(n), 10)
	case types.KindTstamp:
		n, _ := v.(int64)
		if n == 0 {
			return "(0) <null>"
		}
		return fmt.Sprintf("(%d) %s", n, time.Unix(n, 0).UTC().Format(TstampLayout))
	case types.KindStr:
		s, ok := v.(string)
		if !ok {
			return nullText[kind]
		}
		return strconv.Quote(s)
	case types.KindDecimal:
		s, ok := v.(string)
		if !ok {
			return nullText[kind]
		}
		return s
	case types.KindBuf, types.KindBinstr:
		b, ok := v.([]byte)
		if !ok {
			return nullText[kind]
		}
		return fmt.Sprintf("%d 0x%s", len(b), strings.ToUpper(hex.EncodeToString(b)))
	case types.KindPoid:
		p, ok := v.(types.Poid)
		if !ok {
			return nullText[kind]
		}
		return p.String()
	default:
		return fmt.Sprintf("<%v>", v)
	}
}
