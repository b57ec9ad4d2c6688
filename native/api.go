package native

import "github.com/joshuapare/flistkit/pkg/types"

// Ref is an opaque handle to engine memory: an flist, a poid box or a
// decimal box. The zero Ref is the engine's NULL pointer.
type Ref uint64

// Cookie is the engine's iteration continuation token. The zero Cookie
// starts an iteration; a call that returns the cookie it was given has
// reached the end.
type Cookie uint64

// XMLFlags selects the XML rendering (PIN_XML_*).
type XMLFlags uint32

const (
	// XMLByType renders each field as <KIND name="PIN_FLD_X">.
	XMLByType XMLFlags = 0x01
	// XMLByName renders each field as <PIN_FLD_X>.
	XMLByName XMLFlags = 0x02
	// XMLByShortName renders each field as <X> without the PIN_FLD_ prefix.
	XMLByShortName XMLFlags = 0x04
	// XMLNoHeader omits the <?xml?> declaration.
	XMLNoHeader XMLFlags = 0x10
)

// API is the engine's flist library. Every method reports failure through
// eb and is a no-op (returning zero values) while eb already holds an error.
//
// Ownership follows the engine's rules:
//   - Get returns an alias into the container; the caller must not destroy it.
//   - Set copies the value in; the prior occupant is destroyed.
//   - Take removes the value and hands ownership to the caller.
//   - Put stores a caller-allocated box; on success the container owns it.
//     On failure a poid box is still consumed while a decimal box is not.
type API interface {
	Create(eb *ErrBuf) Ref
	Destroy(r Ref, eb *ErrBuf)
	Copy(r Ref, eb *ErrBuf) Ref
	// Concat appends copies of every field of src to dst. Fields already
	// present in dst are duplicated, not merged.
	Concat(dst, src Ref, eb *ErrBuf)
	// Sort orders the array elements of r using spec, an flist naming the
	// array field with one element per sort key.
	Sort(r, spec Ref, descending bool, eb *ErrBuf)
	// Count counts top-level fields, one per array element.
	Count(r Ref, eb *ErrBuf) int
	ElemCount(r Ref, fld types.FieldID, eb *ErrBuf) int

	ToString(r Ref, eb *ErrBuf) string
	ToCompact(r Ref, eb *ErrBuf) string
	ToXML(r Ref, flags XMLFlags, root string, eb *ErrBuf) string
	FromString(s string, db int64, eb *ErrBuf) Ref
	FromCompact(s string, eb *ErrBuf) Ref

	// FldGet returns a scalar. INT/ENUM yield int32, TSTAMP int64, STR
	// string, BUF/BINSTR []byte, POID types.Poid and DECIMAL the Ref of the
	// contained decimal box. nil means the field is absent or NULL.
	FldGet(r Ref, fld types.FieldID, optional bool, eb *ErrBuf) any
	// FldSet copies a scalar in. nil stores NULL.
	FldSet(r Ref, fld types.FieldID, v any, eb *ErrBuf)
	// FldPut stores a poid or decimal box. A zero box stores NULL.
	FldPut(r Ref, fld types.FieldID, box Ref, eb *ErrBuf)
	// FldDrop removes the first occurrence of a scalar or substruct field.
	FldDrop(r Ref, fld types.FieldID, eb *ErrBuf)

	SubstrGet(r Ref, fld types.FieldID, optional bool, eb *ErrBuf) Ref
	// SubstrSet copies src in. A zero src stores a NULL substruct.
	SubstrSet(r Ref, fld types.FieldID, src Ref, eb *ErrBuf)
	SubstrTake(r Ref, fld types.FieldID, optional bool, eb *ErrBuf) Ref

	ElemGet(r Ref, fld types.FieldID, elem int32, optional bool, eb *ErrBuf) Ref
	// ElemSet copies src in at elem and returns the element id it was stored
	// under (types.ElemAssign allocates one). A zero src stores a NULL element.
	ElemSet(r Ref, fld types.FieldID, elem int32, src Ref, eb *ErrBuf) int32
	ElemTake(r Ref, fld types.FieldID, elem int32, optional bool, eb *ErrBuf) Ref
	// ElemGetNext walks the elements of an array field.
	ElemGetNext(r Ref, fld types.FieldID, optional bool, cookie *Cookie, eb *ErrBuf) (Ref, int32)
	// AnyGetNext walks every field (and array element) of r.
	AnyGetNext(r Ref, cookie *Cookie, eb *ErrBuf) (types.FieldID, int32)

	PoidNew(p types.Poid, eb *ErrBuf) Ref
	PoidValue(box Ref, eb *ErrBuf) types.Poid
	PoidDestroy(box Ref, eb *ErrBuf)

	// DecimalNew parses text; "NULL" yields a null-valued decimal.
	DecimalNew(text string, eb *ErrBuf) Ref
	DecimalToFloat(box Ref, eb *ErrBuf) float64
	DecimalString(box Ref, eb *ErrBuf) string
	DecimalDestroy(box Ref, eb *ErrBuf)
}

// Session is one open engine context (pcm_context_t).
type Session interface {
	// Op dispatches opcode with in as input and returns a new flist owned by
	// the caller. With byRef set the engine may consume or mutate in
	// (PCM_OPREF); otherwise it works on a copy.
	Op(opcode int32, flags uint32, in Ref, byRef bool, eb *ErrBuf) Ref
	Close(eb *ErrBuf)
}

// Connector opens sessions (PCM_CONNECT).
type Connector interface {
	// Connect returns a session and the default database number.
	Connect(eb *ErrBuf) (Session, int64)
}
