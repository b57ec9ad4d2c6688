package buf

import "testing"

func TestEndianHelpers(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	if got := U16LE(data); got != 0x2301 {
		t.Fatalf("U16LE = 0x%x, want 0x2301", got)
	}
	if got := U32LE(data); got != 0x67452301 {
		t.Fatalf("U32LE = 0x%x, want 0x67452301", got)
	}
	if got := U64LE(data); got != 0xefcdab8967452301 {
		t.Fatalf("U64LE = 0x%x, want 0xefcdab8967452301", got)
	}
	if got := I32LE(data); got != 0x67452301 {
		t.Fatalf("I32LE = 0x%x, want 0x67452301", got)
	}

	short := []byte{0xAA}
	if U16LE(short) != 0 || U32LE(short) != 0 || U64LE(short) != 0 || I64LE(short) != 0 {
		t.Fatalf("short reads should return 0")
	}
}

func TestAppendHelpers(t *testing.T) {
	var b []byte
	b = AppendU32LE(b, 0x67452301)
	b = AppendI32LE(b, -2)
	b = AppendI64LE(b, -1)
	b = AppendBytes(b, []byte("abc"))

	if len(b) != 4+4+8+4+3 {
		t.Fatalf("unexpected length %d", len(b))
	}
	if U32LE(b) != 0x67452301 {
		t.Fatalf("AppendU32LE round trip failed")
	}
	if I32LE(b[4:]) != -2 {
		t.Fatalf("AppendI32LE round trip failed")
	}
	if I64LE(b[8:]) != -1 {
		t.Fatalf("AppendI64LE round trip failed")
	}
	if U32LE(b[16:]) != 3 || string(b[20:]) != "abc" {
		t.Fatalf("AppendBytes layout wrong: %v", b[16:])
	}
}
