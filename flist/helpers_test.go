package flist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/native/mem"
)

// newClient opens a client on a fresh in-process engine. Cleanup closes it
// and fails the test on any free misuse the engine counted.
func newClient(t *testing.T, opts *Options) (*Client, *mem.Engine) {
	t.Helper()
	e := mem.New(nil)
	c, err := Open(&mem.Connector{Engine: e, Database: 1}, e, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
		s := e.Stats()
		assert.Zero(t, s.DoubleFree, "double frees")
		assert.Zero(t, s.InvalidFree, "frees of contained flists")
		assert.Zero(t, s.UseAfterFree, "uses after free")
	})
	return c, e
}

// requireNoLeaks asserts every container and box was freed.
func requireNoLeaks(t *testing.T, e *mem.Engine) {
	t.Helper()
	s := e.Stats()
	require.Zero(t, s.Live, "live flists")
	require.Zero(t, s.BoxesLive, "live boxes")
	require.Equal(t, s.Created, s.Destroyed)
}

func mustMap(t *testing.T, c *Client, m map[string]any) *FList {
	t.Helper()
	f, err := c.FromMap(m)
	require.NoError(t, err)
	return f
}

func mustRef(t *testing.T, f *FList) native.Ref {
	t.Helper()
	ref, err := f.Ref(false)
	require.NoError(t, err)
	return ref
}

// assertMap compares f's dict form with m.
func assertMap(t *testing.T, f *FList, m map[string]any) {
	t.Helper()
	got, err := f.ToMap()
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
