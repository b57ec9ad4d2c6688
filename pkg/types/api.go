package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindValidation ErrKind = iota // malformed input (wrong proxy, wrong field kind, bad value)
	ErrKindNative                    // consumed engine error buffer
	ErrKindNotFound                  // missing field/element on a non-optional lookup
	ErrKindProtocol                  // proxy has no container attached, wildcard misuse
	ErrKindConnection                // connect/close failures, closed client
	ErrKindState                     // invalid operation for current state (e.g. nested transaction)
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindValidation:
		return "validation"
	case ErrKindNative:
		return "native"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindProtocol:
		return "protocol"
	case ErrKindConnection:
		return "connection"
	case ErrKindState:
		return "state"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// Errorf builds a typed error of the given kind.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels commonly returned by implementations.
var (
	// ErrClosed indicates the client connection is not open.
	ErrClosed = &Error{Kind: ErrKindConnection, Msg: "client is closed"}
	// ErrNoContainer indicates an operation on a proxy with no native container.
	ErrNoContainer = &Error{Kind: ErrKindProtocol, Msg: "flist has no native container attached"}
	// ErrReleased indicates an operation on a proxy whose last reference was released.
	ErrReleased = &Error{Kind: ErrKindProtocol, Msg: "flist was released"}
	// ErrWildcard indicates the wildcard element id was passed to a concrete-id API.
	ErrWildcard = &Error{Kind: ErrKindProtocol, Msg: "wildcard element id not allowed here; use the Any variant"}
	// ErrWrongKind indicates a field of the wrong kind for the accessor.
	ErrWrongKind = &Error{Kind: ErrKindValidation, Msg: "field has a different kind"}
	// ErrForeignFList indicates an flist from another client was supplied.
	ErrForeignFList = &Error{Kind: ErrKindValidation, Msg: "flist belongs to a different client"}
	// ErrNotFound indicates a missing field on a non-optional lookup.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrTxOpen indicates a second transaction was requested while one is open.
	ErrTxOpen = &Error{Kind: ErrKindState, Msg: "a transaction is already open"}
	// ErrNoTx indicates commit on a transaction that is no longer open.
	ErrNoTx = &Error{Kind: ErrKindState, Msg: "no transaction has started"}
)

// NativeError wraps a consumed engine error buffer.
type NativeError struct {
	Msg      string // what the proxy layer was doing
	Location string // engine subsystem (PIN_ERRLOC_*)
	Class    string // PIN_ERRCLASS_*
	Code     string // PIN_ERR_*
	Field    string // offending field name, "" when none
}

func (e *NativeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	b.WriteString(" (")
	b.WriteString(e.Location)
	b.WriteString(", ")
	b.WriteString(e.Class)
	b.WriteString(", ")
	b.WriteString(e.Code)
	if e.Field != "" {
		b.WriteString(", field ")
		b.WriteString(e.Field)
	}
	b.WriteString(")")
	return b.String()
}

// IsKind reports whether err carries the given kind anywhere in its chain.
// A *NativeError is ErrKindNative.
func IsKind(err error, kind ErrKind) bool {
	if err == nil {
		return false
	}
	var te *Error
	if errors.As(err, &te) && te.Kind == kind {
		return true
	}
	var ne *NativeError
	return kind == ErrKindNative && errors.As(err, &ne)
}

// -----------------------------------------------------------------------------
// Field identifiers & coordinates
// -----------------------------------------------------------------------------

// Kind enumerates the engine's field data types. The numbers match the
// engine's PIN_FLDT_* values and are stored in the high byte of a FieldID.
type Kind uint8

const (
	KindUnused    Kind = 0
	KindInt       Kind = 1
	KindEnum      Kind = 3
	KindStr       Kind = 5
	KindBuf       Kind = 6
	KindPoid      Kind = 7
	KindTstamp    Kind = 8
	KindArray     Kind = 9
	KindSubstruct Kind = 10
	KindBinstr    Kind = 12
	KindDecimal   Kind = 14
)

// String implements the Stringer interface for Kind
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindEnum:
		return "ENUM"
	case KindStr:
		return "STR"
	case KindBuf:
		return "BUF"
	case KindPoid:
		return "POID"
	case KindTstamp:
		return "TSTAMP"
	case KindArray:
		return "ARRAY"
	case KindSubstruct:
		return "SUBSTRUCT"
	case KindBinstr:
		return "BINSTR"
	case KindDecimal:
		return "DECIMAL"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", int(k))
	}
}

// IsContainer reports whether fields of this kind hold sub-flists.
func (k Kind) IsContainer() bool { return k == KindArray || k == KindSubstruct }

// ParseKind maps an engine type name (e.g. "STR") back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{KindInt, KindEnum, KindStr, KindBuf, KindPoid, KindTstamp,
		KindArray, KindSubstruct, KindBinstr, KindDecimal} {
		if strings.EqualFold(k.String(), s) {
			return k, true
		}
	}
	return KindUnused, false
}

// FieldID is a full engine field number: kind in the high byte, field number
// in the low 24 bits.
type FieldID uint32

const fieldNumMask = 0x00FFFFFF

// MakeField combines a kind and a bare field number.
func MakeField(kind Kind, num uint32) FieldID {
	return FieldID(uint32(kind)<<24 | num&fieldNumMask)
}

// Kind returns the kind encoded in the field number.
func (f FieldID) Kind() Kind { return Kind(uint32(f) >> 24) }

// Num returns the bare field number.
func (f FieldID) Num() uint32 { return uint32(f) & fieldNumMask }

func (f FieldID) String() string {
	return fmt.Sprintf("%s(%d)", f.Kind(), f.Num())
}

// Element id sentinels.
const (
	// ElemAny matches the first element of an array field.
	ElemAny int32 = -1
	// ElemAssign asks the engine to allocate the next free element id on SET.
	ElemAssign int32 = -2
)

// Coordinate locates a sub-flist: a substruct is (field, 0), an array
// element is (field, elem).
type Coordinate struct {
	Field FieldID
	Elem  int32
}

// IsWildcard reports whether the coordinate addresses "the first element".
func (c Coordinate) IsWildcard() bool { return c.Elem == ElemAny }

func (c Coordinate) String() string {
	if c.Elem == ElemAny {
		return fmt.Sprintf("%s[*]", c.Field)
	}
	return fmt.Sprintf("%s[%d]", c.Field, c.Elem)
}

// -----------------------------------------------------------------------------
// Poid
// -----------------------------------------------------------------------------

// Poid identifies an engine object: database, type, id and revision.
// An Id of -1 marks a type-only poid.
type Poid struct {
	Database int64
	Type     string
	ID       int64
	Revision int32
}

// IsTypeOnly reports whether the poid names a type without an object id.
func (p Poid) IsTypeOnly() bool { return p.ID == -1 }

// String renders the engine's textual poid form: "0.0.0.<db> <type> <id> <rev>".
func (p Poid) String() string {
	return fmt.Sprintf("0.0.0.%d %s %d %d", p.Database, p.Type, p.ID, p.Revision)
}

// ParsePoid parses the textual poid form. A bare type ("/account") yields a
// type-only poid in database db.
func ParsePoid(s string, db int64) (Poid, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return newTypeOnly(parts[0], db)
	case 2, 3, 4:
	default:
		return Poid{}, Errorf(ErrKindValidation, "invalid poid string %q", s)
	}
	if !strings.HasPrefix(parts[0], "0.0.0.") {
		// "type id [rev]" without a database prefix
		p, err := newTypeOnly(parts[0], db)
		if err != nil {
			return Poid{}, err
		}
		return fillPoid(p, parts[1:], s)
	}
	dbNum, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "0.0.0."), 10, 64)
	if err != nil {
		return Poid{}, Errorf(ErrKindValidation, "invalid poid database in %q", s)
	}
	p, err := newTypeOnly(parts[1], dbNum)
	if err != nil {
		return Poid{}, err
	}
	return fillPoid(p, parts[2:], s)
}

func newTypeOnly(typ string, db int64) (Poid, error) {
	if typ == "" || (typ[0] >= '0' && typ[0] <= '9') {
		return Poid{}, Errorf(ErrKindValidation, "poid type cannot start with a digit: %q", typ)
	}
	return Poid{Database: db, Type: typ, ID: -1}, nil
}

func fillPoid(p Poid, rest []string, raw string) (Poid, error) {
	if len(rest) > 0 {
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return Poid{}, Errorf(ErrKindValidation, "invalid poid id in %q", raw)
		}
		p.ID = id
	}
	if len(rest) > 1 {
		rev, err := strconv.ParseInt(rest[1], 10, 32)
		if err != nil {
			return Poid{}, Errorf(ErrKindValidation, "invalid poid revision in %q", raw)
		}
		p.Revision = int32(rev)
	}
	return p, nil
}
