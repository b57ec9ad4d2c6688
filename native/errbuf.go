package native

import (
	"fmt"

	"github.com/joshuapare/flistkit/pkg/types"
)

// Location names the engine subsystem that raised an error (PIN_ERRLOC_*).
type Location int32

// Engine error locations.
const (
	LocNone  Location = 0
	LocPCM   Location = 1
	LocCM    Location = 3
	LocDM    Location = 4
	LocFM    Location = 5
	LocFlist Location = 12
	LocPoid  Location = 13
	LocUtils Location = 15
	LocApp   Location = 17
)

func (l Location) String() string {
	switch l {
	case LocNone:
		return "PIN_ERRLOC_NONE"
	case LocPCM:
		return "PIN_ERRLOC_PCM"
	case LocCM:
		return "PIN_ERRLOC_CM"
	case LocDM:
		return "PIN_ERRLOC_DM"
	case LocFM:
		return "PIN_ERRLOC_FM"
	case LocFlist:
		return "PIN_ERRLOC_FLIST"
	case LocPoid:
		return "PIN_ERRLOC_POID"
	case LocUtils:
		return "PIN_ERRLOC_UTILS"
	case LocApp:
		return "PIN_ERRLOC_APP"
	default:
		return fmt.Sprintf("PIN_ERRLOC_%d", int32(l))
	}
}

// Class is the engine's error class (PIN_ERRCLASS_*).
type Class int32

// Engine error classes.
const (
	ClassNone                Class = 0
	ClassSystemDeterminate   Class = 1
	ClassSystemIndeterminate Class = 2
	ClassSystemRetryable     Class = 3
	ClassApplication         Class = 4
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "PIN_ERRCLASS_NONE"
	case ClassSystemDeterminate:
		return "PIN_ERRCLASS_SYSTEM_DETERMINATE"
	case ClassSystemIndeterminate:
		return "PIN_ERRCLASS_SYSTEM_INDETERMINATE"
	case ClassSystemRetryable:
		return "PIN_ERRCLASS_SYSTEM_RETRYABLE"
	case ClassApplication:
		return "PIN_ERRCLASS_APPLICATION"
	default:
		return fmt.Sprintf("PIN_ERRCLASS_%d", int32(c))
	}
}

// Code is the engine's error code (PIN_ERR_*).
type Code int32

// Engine error codes used by the toolkit.
const (
	ErrNone              Code = 0
	ErrNoMem             Code = 1
	ErrNotFound          Code = 3
	ErrBadArg            Code = 4
	ErrBadType           Code = 9
	ErrDuplicate         Code = 10
	ErrBadOpcode         Code = 20
	ErrNotSupported      Code = 26
	ErrBadValue          Code = 46
	ErrTransAlreadyOpen  Code = 48
	ErrTransNotOpen      Code = 49
	ErrBadPoidType       Code = 53
	ErrIsNull            Code = 74
	ErrConnectionLost    Code = 78
	ErrBadFree           Code = 90
	ErrStaleConnection   Code = 91
	ErrUnknownPoid       Code = 92
	ErrInvalidObjectType Code = 93
)

var codeNames = map[Code]string{
	ErrNone:              "PIN_ERR_NONE",
	ErrNoMem:             "PIN_ERR_NO_MEM",
	ErrNotFound:          "PIN_ERR_NOT_FOUND",
	ErrBadArg:            "PIN_ERR_BAD_ARG",
	ErrBadType:           "PIN_ERR_BAD_TYPE",
	ErrDuplicate:         "PIN_ERR_DUPLICATE",
	ErrBadOpcode:         "PIN_ERR_BAD_OPCODE",
	ErrNotSupported:      "PIN_ERR_NOT_SUPPORTED",
	ErrBadValue:          "PIN_ERR_BAD_VALUE",
	ErrTransAlreadyOpen:  "PIN_ERR_TRANS_ALREADY_OPEN",
	ErrTransNotOpen:      "PIN_ERR_TRANS_NOT_OPEN",
	ErrBadPoidType:       "PIN_ERR_BAD_POID_TYPE",
	ErrIsNull:            "PIN_ERR_IS_NULL",
	ErrConnectionLost:    "PIN_ERR_CONNECTION_LOST",
	ErrBadFree:           "PIN_ERR_BAD_FREE",
	ErrStaleConnection:   "PIN_ERR_STALE_CONF",
	ErrUnknownPoid:       "PIN_ERR_UNKNOWN_POID",
	ErrInvalidObjectType: "PIN_ERR_INVALID_OBJECT_TYPE",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("PIN_ERR_%d", int32(c))
}

// ErrBuf is the engine's error-state slot. Every API call reports failure
// by filling it, and every API call is a no-op while it holds an error, so
// callers must Reset it as soon as the error is consumed.
type ErrBuf struct {
	Location Location
	Class    Class
	Code     Code
	Field    types.FieldID
	// Detail is a free-form description from the engine. It is logged but
	// not part of the error identity.
	Detail string
}

// IsErr reports whether the slot holds an error (PIN_ERR_IS_ERR).
func (e *ErrBuf) IsErr() bool { return e.Code != ErrNone }

// Reset clears the slot (PIN_ERRBUF_RESET).
func (e *ErrBuf) Reset() { *e = ErrBuf{} }

// Set fills the slot unless it already holds an error; the first error wins.
func (e *ErrBuf) Set(loc Location, class Class, code Code, fld types.FieldID, detail string) {
	if e.IsErr() {
		return
	}
	*e = ErrBuf{Location: loc, Class: class, Code: code, Field: fld, Detail: detail}
}

func (e *ErrBuf) String() string {
	if !e.IsErr() {
		return "<no error>"
	}
	s := fmt.Sprintf("%s/%s/%s", e.Location, e.Class, e.Code)
	if e.Field != 0 {
		s += " field " + e.Field.String()
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}
