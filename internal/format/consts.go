// Package format houses the in-memory record model shared by the engine and
// the serializers, plus the compact binary layout. The goal is to keep
// encoding focused and independent from the proxy layer so higher-level
// packages can orchestrate the data in a more ergonomic form.
package format

var (
	// CompactSignature is the four-byte signature at the start of every
	// compact binary flist.
	// Layout (little-endian):
	//   0x00  'F' 'L' 'C' '1'
	//   0x04  record (see below)
	CompactSignature = []byte{'F', 'L', 'C', '1'}
)

const (
	// SignatureSize is the size of CompactSignature.
	SignatureSize = 4

	// Record layout:
	//   u32 field count
	//   repeated fields:
	//     u32 field id (kind in the high byte)
	//     payload by kind
	//
	// Payloads:
	//   INT, ENUM   i32
	//   TSTAMP      i64 (unix seconds)
	//   STR         u8 null flag, then u32 len + bytes
	//   BUF, BINSTR u8 null flag, then u32 len + bytes
	//   DECIMAL     u8 null flag, then u32 len + text
	//   POID        u8 null flag, then i64 db, u32 len + type, i64 id, i32 rev
	//   SUBSTRUCT   u8 null flag, then record
	//   ARRAY       u32 element count, then per element:
	//                 i32 elem id, u8 null flag, record

	// FlagNull marks a null payload.
	FlagNull byte = 0x00
	// FlagPresent marks a present payload.
	FlagPresent byte = 0x01
)
