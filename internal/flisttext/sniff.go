package flisttext

import (
	"bytes"

	"github.com/joshuapare/flistkit/internal/format"
)

// Encoding names a serialized flist form.
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingCompact
	EncodingXML
	EncodingJSON
)

func (e Encoding) String() string {
	switch e {
	case EncodingCompact:
		return "compact"
	case EncodingXML:
		return "xml"
	case EncodingJSON:
		return "json"
	default:
		return "text"
	}
}

// Sniff guesses the encoding of data from its first non-blank bytes.
func Sniff(data []byte) Encoding {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return EncodingXML
	case bytes.HasPrefix(trimmed, []byte("{")):
		return EncodingJSON
	case bytes.HasPrefix(trimmed, []byte(CompactPrefix)):
		return EncodingCompact
	}
	return EncodingText
}

// Decode parses data in whichever of the text, compact or XML forms it is
// in. JSON is handled by the proxy layer, which owns the dict mapping.
func Decode(data []byte, names Names, opts ParseOptions) (*format.Record, error) {
	switch Sniff(data) {
	case EncodingXML:
		return ParseXML(bytes.NewReader(data), names, opts)
	case EncodingCompact:
		return ParseCompact(string(data), opts.limits())
	}
	return Parse(bytes.NewReader(data), names, opts)
}
