package flisttext

import (
	"encoding/base64"
	"strings"

	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

// CompactPrefix is how every compact string starts ("FLC1" in base64).
const CompactPrefix = "RkxDMQ"

// RenderCompact returns the single-line compact form of rec: the binary
// layout of format.EncodeCompact in standard base64.
func RenderCompact(rec *format.Record) string {
	return base64.StdEncoding.EncodeToString(format.EncodeCompact(rec))
}

// ParseCompact reverses RenderCompact.
func ParseCompact(s string, limits types.Limits) (*format.Record, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid compact flist", Err: err}
	}
	rec, err := format.DecodeCompact(raw, limits)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "invalid compact flist", Err: err}
	}
	return rec, nil
}
