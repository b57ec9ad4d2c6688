package buf

import (
	"errors"
	"fmt"
	"math"
)

// ErrShort indicates a read past the end of the buffer.
var ErrShort = errors.New("buf: short buffer")

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Reader is a forward-only cursor over a byte slice. The first failed read
// latches an error; later reads return zero values.
type Reader struct {
	b   []byte
	off int
	err error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the unread byte count.
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	p, ok := Slice(r.b, r.off, n)
	if !ok {
		r.err = fmt.Errorf("%w: need %d at offset %d, have %d", ErrShort, n, r.off, len(r.b)-r.off)
		return nil
	}
	r.off += n
	return p
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 { return U32LE(r.take(4)) }

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 { return I32LE(r.take(4)) }

// I64 reads a little-endian int64.
func (r *Reader) I64() int64 { return I64LE(r.take(8)) }

// Bytes reads a u32 length prefix and returns that many bytes. The returned
// slice aliases the underlying buffer. Lengths above max fail when max > 0.
func (r *Reader) Bytes(max int) []byte {
	n := int(r.U32())
	if r.err != nil {
		return nil
	}
	if max > 0 && n > max {
		r.err = fmt.Errorf("buf: length %d exceeds limit %d", n, max)
		return nil
	}
	return r.take(n)
}
