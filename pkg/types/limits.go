package types

// ============================================================================
// Decoder Limits
// ============================================================================
// Serialized flists come from files and other processes. These bounds keep
// the text parser and the compact decoder from allocating without limit on
// malformed input.

const (
	// DefaultMaxDepth is the deepest substruct/array nesting accepted.
	DefaultMaxDepth = 64

	// DefaultMaxFields is the most fields (array elements included) a single
	// serialized flist may carry.
	DefaultMaxFields = 1 << 20

	// DefaultMaxValueSize bounds a single STR/BUF/BINSTR payload (1 MB).
	DefaultMaxValueSize = 1 << 20

	// RelaxedMaxValueSize allows large BUF payloads such as invoice documents.
	RelaxedMaxValueSize = 64 << 20
)

// Limits defines constraints applied while decoding serialized flists.
type Limits struct {
	// MaxDepth is the maximum nesting depth of sub-flists.
	MaxDepth int

	// MaxFields is the maximum total number of fields decoded.
	MaxFields int

	// MaxValueSize is the maximum size in bytes of one scalar payload.
	MaxValueSize int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:     DefaultMaxDepth,
		MaxFields:    DefaultMaxFields,
		MaxValueSize: DefaultMaxValueSize,
	}
}

// RelaxedLimits returns limits suited to flists carrying large buffers.
func RelaxedLimits() Limits {
	return Limits{
		MaxDepth:     DefaultMaxDepth * 4,
		MaxFields:    DefaultMaxFields * 8,
		MaxValueSize: RelaxedMaxValueSize,
	}
}

// CheckDepth reports an error when depth exceeds the configured maximum.
func (l Limits) CheckDepth(depth int) error {
	if l.MaxDepth > 0 && depth > l.MaxDepth {
		return Errorf(ErrKindValidation, "flist nesting depth %d exceeds limit %d", depth, l.MaxDepth)
	}
	return nil
}

// CheckFields reports an error when count exceeds the configured maximum.
func (l Limits) CheckFields(count int) error {
	if l.MaxFields > 0 && count > l.MaxFields {
		return Errorf(ErrKindValidation, "flist field count %d exceeds limit %d", count, l.MaxFields)
	}
	return nil
}

// CheckValueSize reports an error when size exceeds the configured maximum.
func (l Limits) CheckValueSize(size int) error {
	if l.MaxValueSize > 0 && size > l.MaxValueSize {
		return Errorf(ErrKindValidation, "value size %d exceeds limit %d", size, l.MaxValueSize)
	}
	return nil
}
