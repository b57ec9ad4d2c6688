package format

import "errors"

var (
	// ErrSignatureMismatch indicates a compact buffer had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrTrailing indicates bytes were left after the top-level record.
	ErrTrailing = errors.New("format: trailing bytes after record")
	// ErrBadKind indicates a field id whose kind byte is not a known kind.
	ErrBadKind = errors.New("format: unknown field kind")
	// ErrBadFlag indicates a null flag other than FlagNull/FlagPresent.
	ErrBadFlag = errors.New("format: invalid null flag")
)
