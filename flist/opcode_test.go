package flist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/native/mem"
	"github.com/joshuapare/flistkit/pkg/types"
)

func createAccount(t *testing.T, c *Client, name string, status int32) types.Poid {
	t.Helper()
	in := mustMap(t, c, map[string]any{
		"PIN_FLD_POID":   "/account",
		"PIN_FLD_NAME":   name,
		"PIN_FLD_STATUS": status,
	})
	defer in.Release()
	out, err := in.Opcode(context.Background(), catalog.PCM_OP_CREATE_OBJ, 0)
	require.NoError(t, err)
	defer out.Release()
	p, ok, err := out.Poid(catalog.PIN_FLD_POID)
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func TestOpcode_Loopback(t *testing.T) {
	c, e := newClient(t, nil)
	in := accountFixture(t, c)

	out, err := in.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.IsRoot())
	eq, err := in.Equal(out)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.Equal(t, 1, in.Refs(), "the input hold is returned")

	byName, err := in.OpcodeByName(context.Background(), "PCM_OP_TEST_LOOPBACK", 0)
	require.NoError(t, err)
	_, err = in.OpcodeByName(context.Background(), "PCM_OP_NOPE", 0)
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))

	for _, n := range []*FList{byName, out, in} {
		n.Release()
	}
	requireNoLeaks(t, e)
	assert.Equal(t, 2, e.Stats().Ops)
}

func TestOpcode_CreateReadByRef(t *testing.T) {
	c, e := newClient(t, nil)
	p := createAccount(t, c, "first", 1)
	assert.Equal(t, "/account", p.Type)
	assert.Positive(t, p.ID)

	// By reference, the engine writes the assigned poid into the input.
	in := mustMap(t, c, map[string]any{"PIN_FLD_POID": "/account", "PIN_FLD_NAME": "second"})
	out, err := in.OpcodeByRef(context.Background(), catalog.PCM_OP_CREATE_OBJ, 0)
	require.NoError(t, err)
	assigned, _, err := in.Poid(catalog.PIN_FLD_POID)
	require.NoError(t, err)
	got, _, err := out.Poid(catalog.PIN_FLD_POID)
	require.NoError(t, err)
	assert.Equal(t, got, assigned)
	out.Release()
	in.Release()

	read := mustMap(t, c, map[string]any{"PIN_FLD_POID": p})
	obj, err := read.Opcode(context.Background(), catalog.PCM_OP_READ_OBJ, 0)
	require.NoError(t, err)
	name, _, err := obj.Str(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	assert.Equal(t, "first", name)
	obj.Release()
	read.Release()

	missing := mustMap(t, c, map[string]any{"PIN_FLD_POID": "0.0.0.1 /account 999 0"})
	_, err = missing.Opcode(context.Background(), catalog.PCM_OP_READ_OBJ, 0)
	var ne *types.NativeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "PIN_ERR_NOT_FOUND", ne.Code)
	assert.Contains(t, ne.Error(), "PCM_OP_READ_OBJ")
	missing.Release()

	requireNoLeaks(t, e)
}

func TestOpcode_NeedsConnection(t *testing.T) {
	e := mem.New(nil)
	c, err := New(&mem.Connector{Engine: e}, e, nil)
	require.NoError(t, err)
	f, err := c.New()
	require.NoError(t, err)
	defer f.Release()

	_, err = f.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
	assert.ErrorIs(t, err, types.ErrClosed)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect(), "connecting twice is a no-op")
	assert.True(t, c.IsOpen())
	out, err := f.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
	require.NoError(t, err)
	out.Release()

	require.NoError(t, c.Close())
	assert.False(t, c.IsOpen())
	_, err = f.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.Zero(t, e.Stats().Sessions)
}

// gatedConnector hands out sessions whose Op announces itself on entered
// and then waits for release to be closed.
type gatedConnector struct {
	native.Connector
	entered chan struct{}
	release chan struct{}
}

func (g *gatedConnector) Connect(eb *native.ErrBuf) (native.Session, int64) {
	s, db := g.Connector.Connect(eb)
	if s == nil {
		return nil, db
	}
	return &gatedSession{Session: s, g: g}, db
}

type gatedSession struct {
	native.Session
	g *gatedConnector
}

func (s *gatedSession) Op(opcode int32, flags uint32, in native.Ref, byRef bool, eb *native.ErrBuf) native.Ref {
	close(s.g.entered)
	<-s.g.release
	return s.Session.Op(opcode, flags, in, byRef, eb)
}

func TestOpcode_ClientUsableWhileDispatching(t *testing.T) {
	e := mem.New(nil)
	g := &gatedConnector{
		Connector: &mem.Connector{Engine: e, Database: 1},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	c, err := Open(g, e, nil)
	require.NoError(t, err)
	unblock := sync.OnceFunc(func() { close(g.release) })
	defer unblock()

	in := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "in flight"})
	dispatched := make(chan error, 1)
	go func() {
		out, err := in.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
		if err == nil {
			out.Release()
		}
		dispatched <- err
	}()

	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("opcode never reached the session")
	}

	created := make(chan error, 1)
	go func() {
		f, err := c.New()
		if err == nil {
			f.Release()
		}
		created <- err
	}()
	select {
	case err := <-created:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("New blocked behind an in-flight opcode")
	}

	unblock()
	require.NoError(t, <-dispatched)
	in.Release()
	require.NoError(t, c.Close())
	requireNoLeaks(t, e)
}

func TestOpen_ConnectFailure(t *testing.T) {
	e := mem.New(nil)
	e.InjectFault("Connect", native.ErrConnectionLost)
	_, err := Open(&mem.Connector{Engine: e}, e, nil)
	assert.True(t, types.IsKind(err, types.ErrKindConnection))

	_, err = Open(nil, e, nil)
	assert.True(t, types.IsKind(err, types.ErrKindConnection))
	_, err = New(nil, nil, nil)
	assert.Error(t, err)
}

func TestOpcode_RateLimitHonoursContext(t *testing.T) {
	c, e := newClient(t, &Options{OpsPerSecond: 0.001, Burst: 1})
	f, err := c.New()
	require.NoError(t, err)
	defer f.Release()

	out, err := f.Opcode(context.Background(), catalog.PCM_OP_TEST_LOOPBACK, 0)
	require.NoError(t, err)
	out.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Opcode(ctx, catalog.PCM_OP_TEST_LOOPBACK, 0)
	assert.True(t, types.IsKind(err, types.ErrKindState))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, e.Stats().Ops, "the throttled call never reached the engine")
	assert.Equal(t, 1, f.Refs())
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	c, e := newClient(t, nil)
	ctx := context.Background()
	acct := types.Poid{Database: 1, Type: "/account", ID: 1}

	tx, err := c.Begin(ctx, acct)
	require.NoError(t, err)
	assert.True(t, tx.IsOpen())
	_, err = c.Begin(ctx, acct)
	assert.ErrorIs(t, err, types.ErrTxOpen)

	createAccount(t, c, "kept", 1)
	require.NoError(t, tx.Commit(ctx))
	assert.False(t, tx.IsOpen())
	assert.ErrorIs(t, tx.Commit(ctx), types.ErrNoTx)
	require.NoError(t, tx.Rollback(ctx), "rolling back a finished transaction is a no-op")

	tx, err = c.Begin(ctx, acct, catalog.PCM_TRANS_OPEN_READWRITE, catalog.PCM_TRANS_OPEN_LOCK_OBJ)
	require.NoError(t, err)
	createAccount(t, c, "discarded", 1)
	require.NoError(t, tx.Rollback(ctx))

	n, err := c.SearchCount(ctx, SearchSpec{
		Template: "select X from /account where F1 = V1",
		Args:     []SearchArg{{Field: "PIN_FLD_STATUS", Value: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	requireNoLeaks(t, e)
}

func TestTransaction_CloseRollsBack(t *testing.T) {
	e := mem.New(nil)
	conn := &mem.Connector{Engine: e, Database: 1}
	c, err := Open(conn, e, nil)
	require.NoError(t, err)

	_, err = c.Begin(context.Background(), types.Poid{Database: 1, Type: "/account", ID: 1})
	require.NoError(t, err)
	createAccount(t, c, "lost", 1)
	require.NoError(t, c.Close())

	c2, err := Open(conn, e, nil)
	require.NoError(t, err)
	defer c2.Close()
	n, err := c2.SearchCount(context.Background(), SearchSpec{
		Template: "select X from /account where F1 = V1",
		Args:     []SearchArg{{Field: "PIN_FLD_POID", Value: "/account"}},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildSearch_Shape(t *testing.T) {
	c, e := newClient(t, nil)
	s, err := c.BuildSearch(SearchSpec{
		Template: "select X from /event where F1 = V1 and F2 = V2",
		Flags:    256,
		Args: []SearchArg{
			{Field: "PIN_FLD_USAGE_TYPE", Value: "FOO"},
			{Field: "PIN_FLD_BAL_IMPACTS", Value: map[string]any{"PIN_FLD_AMOUNT": "1"}},
		},
		Results: []ResultField{
			{Field: "PIN_FLD_POID"},
			{Field: "PIN_FLD_INHERITED_INFO", Fields: []ResultField{{Field: "PIN_FLD_NAME"}}},
			{Field: "PIN_FLD_BAL_IMPACTS"},
		},
	})
	require.NoError(t, err)

	p, _, err := s.Poid(catalog.PIN_FLD_POID)
	require.NoError(t, err)
	assert.Equal(t, types.Poid{Database: 1, Type: "/search", ID: -1}, p)

	assertMap(t, s, map[string]any{
		"PIN_FLD_POID":     "0.0.0.1 /search -1 0",
		"PIN_FLD_FLAGS":    int32(256),
		"PIN_FLD_TEMPLATE": "select X from /event where F1 = V1 and F2 = V2",
		"PIN_FLD_ARGS": map[int32]any{
			1: map[string]any{"PIN_FLD_USAGE_TYPE": "FOO"},
			2: map[string]any{"PIN_FLD_BAL_IMPACTS": map[int32]any{
				0: map[string]any{"PIN_FLD_AMOUNT": 1.0},
			}},
		},
		"PIN_FLD_RESULTS": map[int32]any{
			types.ElemAny: map[string]any{
				"PIN_FLD_POID":           nil,
				"PIN_FLD_INHERITED_INFO": map[string]any{"PIN_FLD_NAME": nil},
				"PIN_FLD_BAL_IMPACTS":    map[int32]any{types.ElemAny: map[string]any{}},
			},
		},
	})
	s.Release()

	all, err := c.BuildSearch(SearchSpec{Template: "select X from /account"})
	require.NoError(t, err)
	sub, err := all.AnyElem(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	n, err := sub.Count(false)
	require.NoError(t, err)
	assert.Zero(t, n, "no result list asks for every field")
	sub.Release()
	all.Release()

	counting, err := c.BuildSearch(SearchSpec{Template: "select X from /account", CountOnly: true})
	require.NoError(t, err)
	_, ok, err := counting.LookupElem(catalog.PIN_FLD_RESULTS, 0)
	require.NoError(t, err)
	assert.False(t, ok, "count-only sends a NULL result element")
	counting.Release()

	_, err = c.BuildSearch(SearchSpec{})
	assert.True(t, types.IsKind(err, types.ErrKindValidation))
	_, err = c.BuildSearch(SearchSpec{Template: "x", Results: []ResultField{{Field: "PIN_FLD_NAME", Fields: []ResultField{{Field: "PIN_FLD_DESCR"}}}}})
	assert.True(t, types.IsKind(err, types.ErrKindValidation))

	requireNoLeaks(t, e)
}

func TestSearch_ResultsAndCount(t *testing.T) {
	c, e := newClient(t, nil)
	ctx := context.Background()
	createAccount(t, c, "a", 1)
	createAccount(t, c, "b", 2)
	createAccount(t, c, "c", 1)

	spec := SearchSpec{
		Template: "select X from /account where F1 = V1",
		Args:     []SearchArg{{Field: "PIN_FLD_STATUS", Value: 1}},
		Results:  []ResultField{{Field: "PIN_FLD_NAME"}},
	}
	out, err := c.Search(ctx, spec)
	require.NoError(t, err)
	ids, err := out.ElemIDs(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	var names []string
	for _, id := range ids {
		r, err := out.Elem(catalog.PIN_FLD_RESULTS, id)
		require.NoError(t, err)
		name, _, err := r.Str(catalog.PIN_FLD_NAME)
		require.NoError(t, err)
		names = append(names, name)
		ok, err := r.Exists(catalog.PIN_FLD_STATUS)
		require.NoError(t, err)
		assert.False(t, ok, "only the requested fields come back")
		r.Release()
	}
	assert.ElementsMatch(t, []string{"a", "c"}, names)
	out.Release()

	n, err := c.SearchCount(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	requireNoLeaks(t, e)
}
