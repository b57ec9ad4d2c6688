package mem

import (
	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Connector opens sessions against an Engine.
type Connector struct {
	Engine *Engine
	// Database is the default database number handed to clients.
	Database int64
}

var _ native.Connector = (*Connector)(nil)

// Connect opens a session (PCM_CONNECT).
func (c *Connector) Connect(eb *native.ErrBuf) (native.Session, int64) {
	e := c.Engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return nil, 0
	}
	if code, ok := e.faults["Connect"]; ok {
		delete(e.faults, "Connect")
		eb.Set(native.LocPCM, native.ClassSystemDeterminate, code, 0, "connect failed")
		return nil, 0
	}
	e.sessions++
	return &Session{e: e, db: c.Database}, c.Database
}

// Session is one open context. Transactions are per session and are
// rolled back when the session closes.
type Session struct {
	e      *Engine
	db     int64
	closed bool
	tx     *store // snapshot taken at TRANS_OPEN
}

var _ native.Session = (*Session)(nil)

// Close ends the session (PCM_CONTEXT_CLOSE).
func (s *Session) Close(eb *native.ErrBuf) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() || s.closed {
		return
	}
	s.closed = true
	if s.tx != nil {
		e.store = s.tx
		s.tx = nil
	}
	e.sessions--
}

// InTransaction reports whether the session has an open transaction.
func (s *Session) InTransaction() bool {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.tx != nil
}

// Op dispatches an opcode (PCM_OP). Supported: TEST_LOOPBACK, CREATE_OBJ,
// READ_OBJ, READ_FLDS, WRITE_FLDS, DELETE_OBJ, SEARCH, TRANS_OPEN,
// TRANS_COMMIT and TRANS_ABORT. With byRef, CREATE_OBJ writes the assigned
// poid back into in.
func (s *Session) Op(opcode int32, flags uint32, in native.Ref, byRef bool, eb *native.ErrBuf) native.Ref {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if eb.IsErr() {
		return 0
	}
	if s.closed {
		eb.Set(native.LocPCM, native.ClassSystemIndeterminate, native.ErrConnectionLost, 0, "session is closed")
		return 0
	}
	if code, ok := e.faults["Op"]; ok {
		delete(e.faults, "Op")
		eb.Set(native.LocCM, native.ClassSystemDeterminate, code, 0, "injected fault in Op")
		return 0
	}
	if e.lookup(in, objFlist, eb) == nil {
		return 0
	}
	e.stats.Ops++
	rec := e.record(in)

	out, failed := s.dispatch(opcode, flags, rec, eb)
	if failed {
		return 0
	}
	if byRef && opcode == catalog.PCM_OP_CREATE_OBJ {
		if p, ok := poidOf(out); ok {
			e.replace(e.objects[in], &slot{id: catalog.PIN_FLD_POID, box: e.alloc(&object{kind: objPoid, owner: in, poid: p})})
		}
	}
	return e.build(out, 0)
}

// dispatch runs one opcode against the store. The bool result reports
// failure, already recorded in eb.
func (s *Session) dispatch(opcode int32, flags uint32, in *format.Record, eb *native.ErrBuf) (*format.Record, bool) {
	e := s.e
	dmFail := func(code native.Code, detail string) (*format.Record, bool) {
		eb.Set(native.LocDM, native.ClassSystemDeterminate, code, catalog.PIN_FLD_POID, detail)
		return nil, true
	}
	poidOnly := func(p types.Poid) *format.Record {
		return &format.Record{Fields: []format.Field{{ID: catalog.PIN_FLD_POID, Value: p}}}
	}

	switch opcode {
	case catalog.PCM_OP_TEST_LOOPBACK:
		return in, false

	case catalog.PCM_OP_TRANS_OPEN:
		if s.tx != nil {
			eb.Set(native.LocCM, native.ClassApplication, native.ErrTransAlreadyOpen, 0, "transaction already open")
			return nil, true
		}
		s.tx = e.store.snapshot()
		return in, false

	case catalog.PCM_OP_TRANS_COMMIT, catalog.PCM_OP_TRANS_ABORT:
		if s.tx == nil {
			eb.Set(native.LocCM, native.ClassApplication, native.ErrTransNotOpen, 0, "no transaction open")
			return nil, true
		}
		if opcode == catalog.PCM_OP_TRANS_ABORT {
			e.store = s.tx
		}
		s.tx = nil
		return in, false
	}

	p, ok := poidOf(in)
	if !ok {
		return dmFail(native.ErrBadArg, "input has no PIN_FLD_POID")
	}

	switch opcode {
	case catalog.PCM_OP_CREATE_OBJ:
		if flags&catalog.PCM_OPFLG_USE_POID_GIVEN == 0 || p.ID <= 0 {
			p.ID = e.store.allocID(p.Type)
		}
		p.Revision = 0
		if _, exists := e.store.objects[keyOf(p)]; exists {
			return dmFail(native.ErrDuplicate, "object already exists")
		}
		obj := in.Clone()
		setField(obj, format.Field{ID: catalog.PIN_FLD_POID, Value: p})
		e.store.objects[keyOf(p)] = obj
		return poidOnly(p), false

	case catalog.PCM_OP_SEARCH:
		return s.search(flags, in), false
	}

	obj, ok := e.store.objects[keyOf(p)]
	if !ok {
		return dmFail(native.ErrNotFound, "object "+p.String()+" not found")
	}
	switch opcode {
	case catalog.PCM_OP_READ_OBJ:
		return obj.Clone(), false
	case catalog.PCM_OP_READ_FLDS:
		return project(obj, in), false
	case catalog.PCM_OP_WRITE_FLDS:
		stored, _ := poidOf(obj)
		stored.Revision++
		for _, f := range in.Fields {
			if f.ID != catalog.PIN_FLD_POID {
				setField(obj, f.Clone())
			}
		}
		setField(obj, format.Field{ID: catalog.PIN_FLD_POID, Value: stored})
		return poidOnly(stored), false
	case catalog.PCM_OP_DELETE_OBJ:
		delete(e.store.objects, keyOf(p))
		return poidOnly(p), false
	}
	eb.Set(native.LocCM, native.ClassSystemDeterminate, native.ErrBadOpcode, 0, "unsupported opcode")
	return nil, true
}

// search evaluates a PCM_OP_SEARCH input. Each PIN_FLD_ARGS element holds
// one field that stored objects must equal; the first element of
// PIN_FLD_RESULTS lists the fields to return (all when empty). With
// PCM_OPFLG_COUNT_ONLY the single result element's id is the match count.
func (s *Session) search(flags uint32, in *format.Record) *format.Record {
	var args []format.Field
	if i := in.Find(catalog.PIN_FLD_ARGS); i >= 0 {
		for _, el := range in.Fields[i].Elems {
			if el.Rec != nil && len(el.Rec.Fields) > 0 {
				args = append(args, el.Rec.Fields[0])
			}
		}
	}
	var want *format.Record
	if i := in.Find(catalog.PIN_FLD_RESULTS); i >= 0 && len(in.Fields[i].Elems) > 0 {
		want = in.Fields[i].Elems[0].Rec
	}

	var results []format.Elem
	for _, k := range s.e.store.sortedKeys() {
		obj := s.e.store.objects[k]
		if k.db != s.db || !matches(obj, args) {
			continue
		}
		results = append(results, format.Elem{ID: int32(len(results)), Rec: project(obj, want)})
	}

	p, _ := poidOf(in)
	out := &format.Record{Fields: []format.Field{{ID: catalog.PIN_FLD_POID, Value: p}}}
	if flags&catalog.PCM_OPFLG_COUNT_ONLY != 0 {
		out.Fields = append(out.Fields, format.Field{ID: catalog.PIN_FLD_RESULTS,
			Elems: []format.Elem{{ID: int32(len(results)), Rec: &format.Record{}}}})
		return out
	}
	if len(results) > 0 {
		out.Fields = append(out.Fields, format.Field{ID: catalog.PIN_FLD_RESULTS, Elems: results})
	}
	return out
}
