package catalog

// Built-in opcodes.
const (
	PCM_OP_CREATE_OBJ    int32 = 1
	PCM_OP_DELETE_OBJ    int32 = 2
	PCM_OP_READ_OBJ      int32 = 3
	PCM_OP_READ_FLDS     int32 = 4
	PCM_OP_WRITE_FLDS    int32 = 5
	PCM_OP_SEARCH        int32 = 7
	PCM_OP_TRANS_OPEN    int32 = 11
	PCM_OP_TRANS_ABORT   int32 = 12
	PCM_OP_TRANS_COMMIT  int32 = 13
	PCM_OP_TEST_LOOPBACK int32 = 25
)

var builtinOpcodes = []struct {
	name string
	code int32
}{
	{"PCM_OP_CREATE_OBJ", PCM_OP_CREATE_OBJ},
	{"PCM_OP_DELETE_OBJ", PCM_OP_DELETE_OBJ},
	{"PCM_OP_READ_OBJ", PCM_OP_READ_OBJ},
	{"PCM_OP_READ_FLDS", PCM_OP_READ_FLDS},
	{"PCM_OP_WRITE_FLDS", PCM_OP_WRITE_FLDS},
	{"PCM_OP_SEARCH", PCM_OP_SEARCH},
	{"PCM_OP_TRANS_OPEN", PCM_OP_TRANS_OPEN},
	{"PCM_OP_TRANS_ABORT", PCM_OP_TRANS_ABORT},
	{"PCM_OP_TRANS_COMMIT", PCM_OP_TRANS_COMMIT},
	{"PCM_OP_TEST_LOOPBACK", PCM_OP_TEST_LOOPBACK},
}
