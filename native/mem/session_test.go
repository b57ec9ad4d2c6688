package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

func connect(t *testing.T) (*Engine, native.Session, *native.ErrBuf) {
	t.Helper()
	e := New(nil)
	eb := &native.ErrBuf{}
	s, db := (&Connector{Engine: e, Database: 1}).Connect(eb)
	require.False(t, eb.IsErr(), eb.String())
	require.Equal(t, int64(1), db)
	t.Cleanup(func() {
		s.Close(&native.ErrBuf{})
		assert.Zero(t, e.Stats().Sessions)
	})
	return e, s, eb
}

// op runs opcode on rec and returns the detached result.
func op(t *testing.T, e *Engine, s native.Session, code int32, flags uint32, rec *format.Record, eb *native.ErrBuf) *format.Record {
	t.Helper()
	e.mu.Lock()
	in := e.build(rec, 0)
	e.mu.Unlock()
	out := s.Op(code, flags, in, false, eb)
	e.Destroy(in, &native.ErrBuf{})
	if out == 0 {
		return nil
	}
	got := e.Record(out, eb)
	e.Destroy(out, eb)
	return got
}

func withPoid(p types.Poid, fields ...format.Field) *format.Record {
	return &format.Record{Fields: append([]format.Field{{ID: catalog.PIN_FLD_POID, Value: p}}, fields...)}
}

func TestSession_LoopbackAndBadOpcode(t *testing.T) {
	e, s, eb := connect(t)
	in := withPoid(types.Poid{Database: 1, Type: "/account", ID: 1}, format.Field{ID: catalog.PIN_FLD_NAME, Value: "x"})
	assert.Equal(t, in, op(t, e, s, catalog.PCM_OP_TEST_LOOPBACK, 0, in, eb))
	require.False(t, eb.IsErr())

	assert.Nil(t, op(t, e, s, 999, 0, in, eb))
	assert.Equal(t, native.ErrBadOpcode, eb.Code)
	assert.Equal(t, native.LocCM, eb.Location)
	eb.Reset()

	assert.Zero(t, e.Stats().Live)
	assert.Equal(t, 2, e.Stats().Ops)
}

func TestSession_ObjectLifecycle(t *testing.T) {
	e, s, eb := connect(t)
	acct := types.Poid{Database: 1, Type: "/account", ID: -1}

	created := op(t, e, s, catalog.PCM_OP_CREATE_OBJ, 0, withPoid(acct,
		format.Field{ID: catalog.PIN_FLD_ACCOUNT_NO, Value: "A-1"},
		format.Field{ID: catalog.PIN_FLD_STATUS, Value: int32(10100)}), eb)
	require.False(t, eb.IsErr(), eb.String())
	p, ok := poidOf(created)
	require.True(t, ok)
	assert.Equal(t, int64(1), p.ID)

	read := op(t, e, s, catalog.PCM_OP_READ_OBJ, 0, withPoid(p), eb)
	require.Len(t, read.Fields, 3)

	flds := op(t, e, s, catalog.PCM_OP_READ_FLDS, 0, withPoid(p, format.Field{ID: catalog.PIN_FLD_STATUS, Value: int32(0)}), eb)
	require.Len(t, flds.Fields, 2)
	assert.Equal(t, int32(10100), flds.Fields[1].Value)

	written := op(t, e, s, catalog.PCM_OP_WRITE_FLDS, 0, withPoid(p, format.Field{ID: catalog.PIN_FLD_STATUS, Value: int32(10102)}), eb)
	wp, _ := poidOf(written)
	assert.Equal(t, int32(1), wp.Revision)

	op(t, e, s, catalog.PCM_OP_DELETE_OBJ, 0, withPoid(p), eb)
	require.False(t, eb.IsErr())
	op(t, e, s, catalog.PCM_OP_READ_OBJ, 0, withPoid(p), eb)
	assert.Equal(t, native.ErrNotFound, eb.Code)
	assert.Equal(t, native.LocDM, eb.Location)
	eb.Reset()

	op(t, e, s, catalog.PCM_OP_READ_OBJ, 0, &format.Record{}, eb)
	assert.Equal(t, native.ErrBadArg, eb.Code)
	eb.Reset()
	assert.Zero(t, e.Stats().Live)
}

func TestSession_CreateByRefWritesPoid(t *testing.T) {
	e, s, eb := connect(t)
	e.mu.Lock()
	in := e.build(withPoid(types.Poid{Database: 1, Type: "/event", ID: -1}), 0)
	e.mu.Unlock()

	out := s.Op(catalog.PCM_OP_CREATE_OBJ, 0, in, true, eb)
	require.False(t, eb.IsErr(), eb.String())
	assert.Equal(t, int64(1), e.FldGet(in, catalog.PIN_FLD_POID, false, eb).(types.Poid).ID)
	e.Destroy(out, eb)
	e.Destroy(in, eb)
	assert.Zero(t, e.Stats().BoxesLive)
}

func TestSession_Transactions(t *testing.T) {
	e, s, eb := connect(t)
	acct := withPoid(types.Poid{Database: 1, Type: "/account", ID: -1})

	op(t, e, s, catalog.PCM_OP_TRANS_OPEN, catalog.PCM_TRANS_OPEN_READWRITE, acct, eb)
	require.False(t, eb.IsErr())
	op(t, e, s, catalog.PCM_OP_TRANS_OPEN, 0, acct, eb)
	assert.Equal(t, native.ErrTransAlreadyOpen, eb.Code)
	eb.Reset()

	op(t, e, s, catalog.PCM_OP_CREATE_OBJ, 0, acct, eb)
	op(t, e, s, catalog.PCM_OP_TRANS_ABORT, 0, acct, eb)
	require.False(t, eb.IsErr())
	assert.Empty(t, e.store.objects, "abort restores the snapshot")

	op(t, e, s, catalog.PCM_OP_TRANS_COMMIT, 0, acct, eb)
	assert.Equal(t, native.ErrTransNotOpen, eb.Code)
	eb.Reset()

	op(t, e, s, catalog.PCM_OP_TRANS_OPEN, 0, acct, eb)
	op(t, e, s, catalog.PCM_OP_CREATE_OBJ, 0, acct, eb)
	op(t, e, s, catalog.PCM_OP_TRANS_COMMIT, 0, acct, eb)
	require.False(t, eb.IsErr())
	assert.Len(t, e.store.objects, 1)

	// Closing with an open transaction rolls it back.
	op(t, e, s, catalog.PCM_OP_TRANS_OPEN, 0, acct, eb)
	op(t, e, s, catalog.PCM_OP_CREATE_OBJ, 0, acct, eb)
	assert.True(t, s.(*Session).InTransaction())
	s.Close(eb)
	assert.Len(t, e.store.objects, 1)

	op(t, e, s, catalog.PCM_OP_TEST_LOOPBACK, 0, acct, eb)
	assert.Equal(t, native.ErrConnectionLost, eb.Code)
}

func TestSession_Search(t *testing.T) {
	e, s, eb := connect(t)
	for _, name := range []string{"ann", "bob", "ann"} {
		op(t, e, s, catalog.PCM_OP_CREATE_OBJ, 0, withPoid(types.Poid{Database: 1, Type: "/account", ID: -1},
			format.Field{ID: catalog.PIN_FLD_NAME, Value: name},
			format.Field{ID: catalog.PIN_FLD_ACCOUNT_NO, Value: "no-" + name}), eb)
	}
	require.False(t, eb.IsErr())

	search := func(flags uint32, results *format.Record) *format.Record {
		return op(t, e, s, catalog.PCM_OP_SEARCH, flags, withPoid(types.Poid{Database: 1, Type: "/search", ID: -1},
			format.Field{ID: catalog.PIN_FLD_TEMPLATE, Value: "select X from /account where F1 = V1"},
			format.Field{ID: catalog.PIN_FLD_ARGS, Elems: []format.Elem{{ID: 1, Rec: &format.Record{Fields: []format.Field{
				{ID: catalog.PIN_FLD_NAME, Value: "ann"}}}}}},
			format.Field{ID: catalog.PIN_FLD_RESULTS, Elems: []format.Elem{{ID: 0, Rec: results}}}), eb)
	}

	all := search(0, &format.Record{})
	require.False(t, eb.IsErr(), eb.String())
	i := all.Find(catalog.PIN_FLD_RESULTS)
	require.GreaterOrEqual(t, i, 0)
	require.Len(t, all.Fields[i].Elems, 2)
	assert.Len(t, all.Fields[i].Elems[0].Rec.Fields, 3)

	some := search(0, &format.Record{Fields: []format.Field{{ID: catalog.PIN_FLD_ACCOUNT_NO}}})
	i = some.Find(catalog.PIN_FLD_RESULTS)
	assert.Len(t, some.Fields[i].Elems[1].Rec.Fields, 2, "poid plus the requested field")

	count := search(catalog.PCM_OPFLG_COUNT_ONLY, nil)
	i = count.Find(catalog.PIN_FLD_RESULTS)
	assert.Equal(t, int32(2), count.Fields[i].Elems[0].ID)
}

func TestConnector_Fault(t *testing.T) {
	e := New(nil)
	e.InjectFault("Connect", native.ErrConnectionLost)
	eb := &native.ErrBuf{}
	s, _ := (&Connector{Engine: e}).Connect(eb)
	assert.Nil(t, s)
	assert.Equal(t, native.LocPCM, eb.Location)
	assert.Equal(t, native.ErrConnectionLost, eb.Code)
}
