package flist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/native/mem"
	"github.com/joshuapare/flistkit/pkg/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.NotNil(t, o.Catalog)
	assert.Equal(t, types.DefaultLimits(), o.Limits)
	assert.Equal(t, DefaultProgram, o.Program)
	assert.Equal(t, 1, o.LogLevel)
	assert.Equal(t, 1, o.Burst)
	assert.Zero(t, o.OpsPerSecond)

	n, err := (*Options)(nil).normalize()
	require.NoError(t, err)
	assert.Equal(t, o.Program, n.Program)

	partial, err := (&Options{Latin1: true}).normalize()
	require.NoError(t, err)
	assert.True(t, partial.Latin1)
	assert.NotNil(t, partial.Catalog)
	assert.Equal(t, types.DefaultLimits(), partial.Limits)
}

func TestLoadOptions(t *testing.T) {
	ext := writeTemp(t, "fields.yaml", `
fields:
  - name: C_FLD_REGION
    type: STR
    num: 10001
opcodes:
  - name: C_OP_REPRICE
    code: 10100
`)
	path := writeTemp(t, "flistkit.yaml", `
program: rerate
database: 3
log_level: 0
ops_per_second: 50
burst: 5
latin1: true
catalog: `+ext+`
limits:
  max_depth: 8
`)

	o, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "rerate", o.Program)
	assert.Equal(t, int64(3), o.Database)
	assert.Zero(t, o.LogLevel, "an explicit zero overrides the default")
	assert.Equal(t, 50.0, o.OpsPerSecond)
	assert.Equal(t, 5, o.Burst)
	assert.True(t, o.Latin1)
	assert.Equal(t, 8, o.Limits.MaxDepth)
	assert.Equal(t, types.DefaultLimits().MaxFields, o.Limits.MaxFields)

	fld, err := o.Catalog.Field("C_FLD_REGION")
	require.NoError(t, err)
	assert.Equal(t, types.KindStr, fld.Kind())
	code, ok := o.Catalog.Opcode("C_OP_REPRICE")
	require.True(t, ok)
	assert.Equal(t, int32(10100), code)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = LoadOptions(writeTemp(t, "bad.yaml", "burst: [1, 2"))
	assert.True(t, types.IsKind(err, types.ErrKindValidation))
}

func TestOptions_PinConf(t *testing.T) {
	conf := writeTemp(t, "pin.conf", `
- - userid 0.0.0.7 /service/pcm_client 1
- - loglevel 2
- rerate loglevel 3
`)
	e := mem.New(nil)
	c, err := Open(&mem.Connector{Engine: e, Database: 1}, e, &Options{PinConf: conf, Program: "rerate"})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int64(7), c.Database(), "pin.conf userid beats the connector")
	assert.Equal(t, 3, c.LogLevel(), "program entries beat wildcard entries")

	c2, err := New(nil, e, &Options{PinConf: conf, Database: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), c2.Database())
	assert.Equal(t, 2, c2.LogLevel())

	_, err = New(nil, e, &Options{PinConf: filepath.Join(t.TempDir(), "pin.conf")})
	assert.True(t, types.IsKind(err, types.ErrKindConnection))
}
