package catalog

import "github.com/joshuapare/flistkit/pkg/types"

// Kind prefixes for building field constants.
const (
	tInt       = uint32(types.KindInt) << 24
	tEnum      = uint32(types.KindEnum) << 24
	tStr       = uint32(types.KindStr) << 24
	tBuf       = uint32(types.KindBuf) << 24
	tPoid      = uint32(types.KindPoid) << 24
	tTstamp    = uint32(types.KindTstamp) << 24
	tArray     = uint32(types.KindArray) << 24
	tSubstruct = uint32(types.KindSubstruct) << 24
	tBinstr    = uint32(types.KindBinstr) << 24
	tDecimal   = uint32(types.KindDecimal) << 24
)

// Built-in fields. The kind lives in the high byte, so PIN_FLD_POID (field
// 16) is 117440528.
const (
	PIN_FLD_POID             = types.FieldID(tPoid | 16)
	PIN_FLD_NAME             = types.FieldID(tStr | 17)
	PIN_FLD_CREATED_T        = types.FieldID(tTstamp | 19)
	PIN_FLD_MOD_T            = types.FieldID(tTstamp | 20)
	PIN_FLD_DESCR            = types.FieldID(tStr | 54)
	PIN_FLD_AMOUNT           = types.FieldID(tDecimal | 57)
	PIN_FLD_ACCOUNT_OBJ      = types.FieldID(tPoid | 40)
	PIN_FLD_SERVICE_OBJ      = types.FieldID(tPoid | 41)
	PIN_FLD_ACCOUNT_NO       = types.FieldID(tStr | 106)
	PIN_FLD_STATUS           = types.FieldID(tEnum | 145)
	PIN_FLD_STATUS_FLAGS     = types.FieldID(tInt | 146)
	PIN_FLD_FLAGS            = types.FieldID(tInt | 147)
	PIN_FLD_TYPE             = types.FieldID(tEnum | 148)
	PIN_FLD_TEMPLATE         = types.FieldID(tStr | 149)
	PIN_FLD_RESULTS          = types.FieldID(tArray | 150)
	PIN_FLD_ARGS             = types.FieldID(tArray | 151)
	PIN_FLD_COUNT            = types.FieldID(tInt | 152)
	PIN_FLD_INDEX            = types.FieldID(tInt | 153)
	PIN_FLD_PROGRAM_NAME     = types.FieldID(tStr | 154)
	PIN_FLD_BALANCES         = types.FieldID(tArray | 155)
	PIN_FLD_CURRENT_BAL      = types.FieldID(tDecimal | 156)
	PIN_FLD_CREDIT_LIMIT     = types.FieldID(tDecimal | 157)
	PIN_FLD_NAMEINFO         = types.FieldID(tArray | 158)
	PIN_FLD_FIRST_NAME       = types.FieldID(tStr | 159)
	PIN_FLD_LAST_NAME        = types.FieldID(tStr | 160)
	PIN_FLD_EMAIL_ADDR       = types.FieldID(tStr | 161)
	PIN_FLD_INHERITED_INFO   = types.FieldID(tSubstruct | 162)
	PIN_FLD_EVENT_TYPE       = types.FieldID(tStr | 163)
	PIN_FLD_USAGE_TYPE       = types.FieldID(tStr | 164)
	PIN_FLD_SERVICE_TYPE     = types.FieldID(tStr | 165)
	PIN_FLD_START_T          = types.FieldID(tTstamp | 166)
	PIN_FLD_END_T            = types.FieldID(tTstamp | 167)
	PIN_FLD_FIELDS           = types.FieldID(tArray | 168)
	PIN_FLD_BUFFER           = types.FieldID(tBuf | 169)
	PIN_FLD_SIGNATURE        = types.FieldID(tBinstr | 170)
	PIN_FLD_LOGIN            = types.FieldID(tStr | 171)
	PIN_FLD_PASSWD           = types.FieldID(tStr | 172)
	PIN_FLD_RESOURCE_ID      = types.FieldID(tInt | 173)
	PIN_FLD_QUANTITY         = types.FieldID(tDecimal | 174)
	PIN_FLD_EXTENDED_INFO    = types.FieldID(tSubstruct | 175)
	PIN_FLD_BAL_IMPACTS      = types.FieldID(tArray | 176)
	PIN_FLD_ERROR_CODE       = types.FieldID(tStr | 177)
	PIN_FLD_ERROR_DESCR      = types.FieldID(tStr | 178)
	PIN_FLD_RESULT           = types.FieldID(tEnum | 179)
	PIN_FLD_TRANS_ID         = types.FieldID(tStr | 180)
	PIN_FLD_PRIORITY         = types.FieldID(tInt | 181)
	PIN_FLD_DELETED_FLAG     = types.FieldID(tInt | 182)
	PIN_FLD_DEAL_OBJ         = types.FieldID(tPoid | 183)
	PIN_FLD_PRODUCTS         = types.FieldID(tArray | 184)
	PIN_FLD_PRODUCT_OBJ      = types.FieldID(tPoid | 185)
	PIN_FLD_PURCHASE_START_T = types.FieldID(tTstamp | 186)
)

// builtinFields lists the dictionary shipped with the toolkit, in the order
// the catalog registers them.
var builtinFields = []struct {
	name string
	id   types.FieldID
}{
	{"PIN_FLD_POID", PIN_FLD_POID},
	{"PIN_FLD_NAME", PIN_FLD_NAME},
	{"PIN_FLD_CREATED_T", PIN_FLD_CREATED_T},
	{"PIN_FLD_MOD_T", PIN_FLD_MOD_T},
	{"PIN_FLD_DESCR", PIN_FLD_DESCR},
	{"PIN_FLD_AMOUNT", PIN_FLD_AMOUNT},
	{"PIN_FLD_ACCOUNT_OBJ", PIN_FLD_ACCOUNT_OBJ},
	{"PIN_FLD_SERVICE_OBJ", PIN_FLD_SERVICE_OBJ},
	{"PIN_FLD_ACCOUNT_NO", PIN_FLD_ACCOUNT_NO},
	{"PIN_FLD_STATUS", PIN_FLD_STATUS},
	{"PIN_FLD_STATUS_FLAGS", PIN_FLD_STATUS_FLAGS},
	{"PIN_FLD_FLAGS", PIN_FLD_FLAGS},
	{"PIN_FLD_TYPE", PIN_FLD_TYPE},
	{"PIN_FLD_TEMPLATE", PIN_FLD_TEMPLATE},
	{"PIN_FLD_RESULTS", PIN_FLD_RESULTS},
	{"PIN_FLD_ARGS", PIN_FLD_ARGS},
	{"PIN_FLD_COUNT", PIN_FLD_COUNT},
	{"PIN_FLD_INDEX", PIN_FLD_INDEX},
	{"PIN_FLD_PROGRAM_NAME", PIN_FLD_PROGRAM_NAME},
	{"PIN_FLD_BALANCES", PIN_FLD_BALANCES},
	{"PIN_FLD_CURRENT_BAL", PIN_FLD_CURRENT_BAL},
	{"PIN_FLD_CREDIT_LIMIT", PIN_FLD_CREDIT_LIMIT},
	{"PIN_FLD_NAMEINFO", PIN_FLD_NAMEINFO},
	{"PIN_FLD_FIRST_NAME", PIN_FLD_FIRST_NAME},
	{"PIN_FLD_LAST_NAME", PIN_FLD_LAST_NAME},
	{"PIN_FLD_EMAIL_ADDR", PIN_FLD_EMAIL_ADDR},
	{"PIN_FLD_INHERITED_INFO", PIN_FLD_INHERITED_INFO},
	{"PIN_FLD_EVENT_TYPE", PIN_FLD_EVENT_TYPE},
	{"PIN_FLD_USAGE_TYPE", PIN_FLD_USAGE_TYPE},
	{"PIN_FLD_SERVICE_TYPE", PIN_FLD_SERVICE_TYPE},
	{"PIN_FLD_START_T", PIN_FLD_START_T},
	{"PIN_FLD_END_T", PIN_FLD_END_T},
	{"PIN_FLD_FIELDS", PIN_FLD_FIELDS},
	{"PIN_FLD_BUFFER", PIN_FLD_BUFFER},
	{"PIN_FLD_SIGNATURE", PIN_FLD_SIGNATURE},
	{"PIN_FLD_LOGIN", PIN_FLD_LOGIN},
	{"PIN_FLD_PASSWD", PIN_FLD_PASSWD},
	{"PIN_FLD_RESOURCE_ID", PIN_FLD_RESOURCE_ID},
	{"PIN_FLD_QUANTITY", PIN_FLD_QUANTITY},
	{"PIN_FLD_EXTENDED_INFO", PIN_FLD_EXTENDED_INFO},
	{"PIN_FLD_BAL_IMPACTS", PIN_FLD_BAL_IMPACTS},
	{"PIN_FLD_ERROR_CODE", PIN_FLD_ERROR_CODE},
	{"PIN_FLD_ERROR_DESCR", PIN_FLD_ERROR_DESCR},
	{"PIN_FLD_RESULT", PIN_FLD_RESULT},
	{"PIN_FLD_TRANS_ID", PIN_FLD_TRANS_ID},
	{"PIN_FLD_PRIORITY", PIN_FLD_PRIORITY},
	{"PIN_FLD_DELETED_FLAG", PIN_FLD_DELETED_FLAG},
	{"PIN_FLD_DEAL_OBJ", PIN_FLD_DEAL_OBJ},
	{"PIN_FLD_PRODUCTS", PIN_FLD_PRODUCTS},
	{"PIN_FLD_PRODUCT_OBJ", PIN_FLD_PRODUCT_OBJ},
	{"PIN_FLD_PURCHASE_START_T", PIN_FLD_PURCHASE_START_T},
}
