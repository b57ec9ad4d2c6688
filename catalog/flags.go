package catalog

// Frequently used opcode and search flags.
const (
	PCM_OPFLG_COUNT_ONLY     uint32 = 0x0010
	PCM_OPFLG_CALC_ONLY      uint32 = 0x0080
	PCM_OPFLG_READ_RESULT    uint32 = 0x0100
	PCM_OPFLG_NO_RESULTS     uint32 = 0x0200
	PCM_OPFLG_USE_POID_GIVEN uint32 = 0x0040
	PCM_OPFLG_LOCK_OBJ       uint32 = 0x20000
	PCM_OPFLG_LOCK_NONE      uint32 = 0x200000
	PCM_OPFLG_LOCK_DEFAULT   uint32 = 0x400000

	PCM_TRANS_OPEN_READONLY     uint32 = 0x00
	PCM_TRANS_OPEN_READWRITE    uint32 = 0x01
	PCM_TRANS_OPEN_GLOBALTRANS  uint32 = 0x02
	PCM_TRANS_OPEN_LOCK_OBJ     uint32 = PCM_OPFLG_LOCK_OBJ
	PCM_TRANS_OPEN_LOCK_DEFAULT uint32 = PCM_OPFLG_LOCK_DEFAULT

	SRCH_DISTINCT     uint32 = 256
	SRCH_EXACT        uint32 = 512
	SRCH_WITHOUT_POID uint32 = 1024
)

var builtinFlags = map[string]uint32{
	"PCM_BUF_FLAG_XBUF":           0x0001,
	"PCM_FLDFLG_TYPE_ONLY":        0x0002,
	"PCM_FLDFLG_NO_QUOTE":         0x0004,
	"PCM_FLDFLG_CMPREV":           0x0010,
	"PCM_OPFLG_NO_DESCEND":        0x0002,
	"PCM_OPFLG_CM_LOOPBACK":       0x0002,
	"PCM_OPFLG_META_ONLY":         0x0004,
	"PCM_OPFLG_REV_CHECK":         0x0008,
	"PCM_OPFLG_COUNT_ONLY":        PCM_OPFLG_COUNT_ONLY,
	"PCM_OPFLG_ADD_ENTRY":         0x0020,
	"PCM_OPFLG_USE_POID_GIVEN":    PCM_OPFLG_USE_POID_GIVEN,
	"PCM_OPFLG_CALC_ONLY":         PCM_OPFLG_CALC_ONLY,
	"PCM_OPFLG_READ_RESULT":       PCM_OPFLG_READ_RESULT,
	"PCM_OPFLG_NO_RESULTS":        PCM_OPFLG_NO_RESULTS,
	"PCM_OPFLG_CACHEABLE":         0x0400,
	"PCM_OPFLG_READ_UNCOMMITTED":  0x0800,
	"PCM_OPFLG_NO_LOCK":           0x8000000,
	"PCM_OPFLG_LOCK_OBJ":          PCM_OPFLG_LOCK_OBJ,
	"PCM_OPFLG_LOCK_NONE":         PCM_OPFLG_LOCK_NONE,
	"PCM_OPFLG_LOCK_DEFAULT":      PCM_OPFLG_LOCK_DEFAULT,
	"PCM_OPFLG_SEARCH_DB":         0x800000,
	"PCM_TRANS_OPEN_READONLY":     PCM_TRANS_OPEN_READONLY,
	"PCM_TRANS_OPEN_READWRITE":    PCM_TRANS_OPEN_READWRITE,
	"PCM_TRANS_OPEN_GLOBALTRANS":  PCM_TRANS_OPEN_GLOBALTRANS,
	"PCM_TRANS_OPEN_LOCK_OBJ":     PCM_TRANS_OPEN_LOCK_OBJ,
	"PCM_TRANS_OPEN_LOCK_DEFAULT": PCM_TRANS_OPEN_LOCK_DEFAULT,
	"SRCH_CALC_ONLY":              0xFF,
	"SRCH_DISTINCT":               SRCH_DISTINCT,
	"SRCH_EXACT":                  SRCH_EXACT,
	"SRCH_WITHOUT_POID":           SRCH_WITHOUT_POID,
	"SRCH_UNION_TT":               2048,
	"SRCH_ACCURATE":               4096,
	"PIN_BOOLEAN_FALSE":           0,
	"PIN_BOOLEAN_TRUE":            1,
	"PIN_RESULT_FAIL":             0,
	"PIN_RESULT_PASS":             1,
}
