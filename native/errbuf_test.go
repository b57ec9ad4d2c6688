package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joshuapare/flistkit/pkg/types"
)

func TestErrBuf_FirstErrorWins(t *testing.T) {
	var eb ErrBuf
	assert.False(t, eb.IsErr())
	assert.Equal(t, "<no error>", eb.String())

	fld := types.MakeField(types.KindStr, 17)
	eb.Set(LocFlist, ClassSystemDeterminate, ErrNotFound, fld, "missing")
	eb.Set(LocPCM, ClassApplication, ErrBadArg, 0, "ignored")

	assert.True(t, eb.IsErr())
	assert.Equal(t, ErrNotFound, eb.Code)
	assert.Equal(t, LocFlist, eb.Location)
	assert.Equal(t, "PIN_ERRLOC_FLIST/PIN_ERRCLASS_SYSTEM_DETERMINATE/PIN_ERR_NOT_FOUND field STR(17): missing", eb.String())

	eb.Reset()
	assert.False(t, eb.IsErr())
	assert.Equal(t, ErrBuf{}, eb)
}

func TestCodeNames(t *testing.T) {
	assert.Equal(t, "PIN_ERR_IS_NULL", ErrIsNull.String())
	assert.Equal(t, "PIN_ERR_12345", Code(12345).String())
	assert.Equal(t, "PIN_ERRCLASS_APPLICATION", ClassApplication.String())
	assert.Equal(t, "PIN_ERRLOC_99", Location(99).String())
}
