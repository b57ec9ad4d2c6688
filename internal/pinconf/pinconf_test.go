package pinconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
# connection
- nap cm_ptr ip localhost 11960
- - userid 0.0.0.1 /service/pcm_client 1
- - loglevel 2
- flistctl loglevel 3
- - abc def
#- - abc commented
- - abc shadowed
- - logfile /var/log/app.pinlog
`

func TestParse_Lookups(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, cfg.Entries, 7)

	v, ok := cfg.Get(AnyProgram, "abc")
	require.True(t, ok)
	assert.Equal(t, "def", v)

	vals, ok := cfg.Values("nap", "cm_ptr")
	require.True(t, ok)
	assert.Equal(t, []string{"ip", "localhost", "11960"}, vals)

	_, ok = cfg.Get("other", "cm_ptr")
	assert.False(t, ok, "program-specific entries do not leak")

	db, ok := cfg.Database("anything")
	require.True(t, ok)
	assert.Equal(t, int64(1), db)

	lvl, ok := cfg.LogLevel("flistctl")
	require.True(t, ok)
	assert.Equal(t, 3, lvl)
	lvl, ok = cfg.LogLevel("other")
	require.True(t, ok)
	assert.Equal(t, 2, lvl)

	_, ok = cfg.Get("pybrm", "missing_value")
	assert.False(t, ok)
	_, ok = cfg.Int(AnyProgram, "logfile")
	assert.False(t, ok)
}

func TestParse_ShortLine(t *testing.T) {
	_, err := Parse(strings.NewReader("- onlyprogram\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Entries)

	_, err = Load(filepath.Join(t.TempDir(), "missing.conf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	var nilCfg *Config
	_, ok := nilCfg.Get("-", "abc")
	assert.False(t, ok)
}
