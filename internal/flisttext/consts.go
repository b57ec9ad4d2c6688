// Package flisttext renders and parses the textual forms of an flist: the
// engine's detail text, the compact string and XML.
package flisttext

import "github.com/joshuapare/flistkit/pkg/types"

// Names resolves field names in both directions. *catalog.Catalog
// satisfies it.
type Names interface {
	// DisplayName returns the field name, or its decimal number when unknown.
	DisplayName(id types.FieldID) string
	// Field resolves a name or a decimal number.
	Field(ident string) (types.FieldID, error)
}

const (
	// HeaderPrefix starts the informational first line of detail text.
	HeaderPrefix = "# number of field entries"

	// CommentPrefix marks lines ignored by the parser.
	CommentPrefix = "#"

	// IndentWidth is the number of spaces per nesting level.
	IndentWidth = 4

	// NameColumn is the padded width of the field name column.
	NameColumn = 30

	// ScannerInitialBufferSize is the initial line buffer.
	ScannerInitialBufferSize = 64 * 1024

	// ScannerMaxLineSize bounds a single line (large BUF payloads).
	ScannerMaxLineSize = 128 * 1024 * 1024

	// TstampLayout renders the human part of a timestamp.
	TstampLayout = "Mon Jan _2 15:04:05 2006"

	// DecimalNull is the text of a null-valued decimal.
	DecimalNull = "NULL"
)

// Null markers per kind, as printed by the engine.
var nullText = map[types.Kind]string{
	types.KindStr:       "NULL str ptr",
	types.KindBuf:       "NULL buf ptr",
	types.KindBinstr:    "NULL binstr ptr",
	types.KindPoid:      "NULL poid ptr",
	types.KindDecimal:   "NULL pin_decimal_t ptr",
	types.KindSubstruct: "NULL flist ptr",
	types.KindArray:     "NULL array ptr",
}
