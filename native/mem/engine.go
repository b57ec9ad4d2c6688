// Package mem is an in-process engine implementing native.API and
// native.Connector. Every container and boxed scalar lives in a handle
// table, so allocation mistakes (leaks, double frees, frees of aliased
// sub-containers, use after free) are counted in Stats instead of
// corrupting memory.
package mem

import (
	"fmt"
	"sync"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/flisttext"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Options configures an Engine. A nil *Options uses defaults.
type Options struct {
	// Names renders and parses field names. Default: catalog.Default().
	Names flisttext.Names
	// Limits bound FromString and FromCompact. Default: types.DefaultLimits().
	Limits *types.Limits
}

// Stats reports allocation accounting.
type Stats struct {
	Created   int // containers allocated
	Destroyed int // containers freed
	Live      int // containers allocated and not freed
	Roots     int // live containers not held by another container

	BoxesCreated int // poid and decimal boxes allocated
	BoxesLive    int

	DoubleFree   int // Destroy of an already freed handle
	InvalidFree  int // Destroy of a container still held by another container
	UseAfterFree int // any other call naming a freed handle

	Ops      int // opcodes dispatched
	Sessions int // open sessions
}

type objKind uint8

const (
	objFlist objKind = iota + 1
	objPoid
	objDecimal
)

// object is one handle table entry.
type object struct {
	kind  objKind
	owner native.Ref // containing flist, 0 for a root

	slots []*slot // objFlist

	poid types.Poid // objPoid
	dec  string     // objDecimal, DecimalNull for a null-valued decimal
}

// slot is one field of a container. Arrays keep their elements in order.
type slot struct {
	id    types.FieldID
	value any        // INT/ENUM int32, TSTAMP int64, STR string, BUF/BINSTR []byte
	box   native.Ref // POID, DECIMAL; 0 is NULL
	sub   native.Ref // SUBSTRUCT; 0 is NULL
	elems []elem     // ARRAY
}

type elem struct {
	id  int32
	ref native.Ref // 0 is a NULL element
}

// Engine is the in-process engine. It is safe for concurrent use; it has
// its own lock, independent of any caller's.
type Engine struct {
	mu       sync.Mutex
	objects  map[native.Ref]*object
	freed    map[native.Ref]struct{}
	next     native.Ref
	stats    Stats
	faults   map[string]native.Code
	names    flisttext.Names
	limits   types.Limits
	store    *store
	sessions int
}

var _ native.API = (*Engine)(nil)

// New returns an empty engine.
func New(opts *Options) *Engine {
	e := &Engine{
		objects: make(map[native.Ref]*object),
		freed:   make(map[native.Ref]struct{}),
		next:    0x1000,
		faults:  make(map[string]native.Code),
		names:   catalog.Default(),
		limits:  types.DefaultLimits(),
		store:   newStore(),
	}
	if opts != nil {
		if opts.Names != nil {
			e.names = opts.Names
		}
		if opts.Limits != nil {
			e.limits = *opts.Limits
		}
	}
	return e
}

// Stats returns a snapshot of the allocation counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Live, s.Roots, s.BoxesLive = 0, 0, 0
	s.Sessions = e.sessions
	for _, o := range e.objects {
		switch o.kind {
		case objFlist:
			s.Live++
			if o.owner == 0 {
				s.Roots++
			}
		default:
			s.BoxesLive++
		}
	}
	return s
}

// InjectFault makes the next call of the named API method (for example
// "FldPut", "ElemSet", "Connect" or "Op") fail with code.
func (e *Engine) InjectFault(method string, code native.Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faults[method] = code
}

// fault consumes an injected fault for method.
func (e *Engine) fault(method string, fld types.FieldID, eb *native.ErrBuf) bool {
	code, ok := e.faults[method]
	if !ok {
		return false
	}
	delete(e.faults, method)
	eb.Set(native.LocFlist, native.ClassSystemDeterminate, code, fld, "injected fault in "+method)
	return true
}

func fail(eb *native.ErrBuf, code native.Code, fld types.FieldID, format string, args ...any) {
	eb.Set(native.LocFlist, native.ClassSystemDeterminate, code, fld, fmt.Sprintf(format, args...))
}

func (e *Engine) alloc(o *object) native.Ref {
	r := e.next
	e.next++
	e.objects[r] = o
	if o.kind == objFlist {
		e.stats.Created++
	} else {
		e.stats.BoxesCreated++
	}
	return r
}

// lookup resolves r to a live object of the wanted kind.
func (e *Engine) lookup(r native.Ref, kind objKind, eb *native.ErrBuf) *object {
	if r == 0 {
		fail(eb, native.ErrBadArg, 0, "NULL handle")
		return nil
	}
	o, ok := e.objects[r]
	if !ok {
		if _, wasFreed := e.freed[r]; wasFreed {
			e.stats.UseAfterFree++
			fail(eb, native.ErrBadArg, 0, "handle %#x used after free", uint64(r))
			return nil
		}
		fail(eb, native.ErrBadArg, 0, "unknown handle %#x", uint64(r))
		return nil
	}
	if o.kind != kind {
		fail(eb, native.ErrBadType, 0, "handle %#x has the wrong type", uint64(r))
		return nil
	}
	return o
}

// free releases r and everything it contains.
func (e *Engine) free(r native.Ref) {
	o, ok := e.objects[r]
	if !ok {
		return
	}
	delete(e.objects, r)
	e.freed[r] = struct{}{}
	if o.kind != objFlist {
		return
	}
	e.stats.Destroyed++
	for _, s := range o.slots {
		e.freeSlot(s)
	}
}

func (e *Engine) freeSlot(s *slot) {
	if s.box != 0 {
		e.free(s.box)
	}
	if s.sub != 0 {
		e.free(s.sub)
	}
	for _, el := range s.elems {
		if el.ref != 0 {
			e.free(el.ref)
		}
	}
}

// destroy frees a root handle, accounting for misuse.
func (e *Engine) destroy(r native.Ref, kind objKind, eb *native.ErrBuf) {
	if r == 0 {
		return
	}
	o, ok := e.objects[r]
	if !ok {
		if _, wasFreed := e.freed[r]; wasFreed {
			e.stats.DoubleFree++
			fail(eb, native.ErrBadFree, 0, "handle %#x freed twice", uint64(r))
			return
		}
		fail(eb, native.ErrBadFree, 0, "unknown handle %#x", uint64(r))
		return
	}
	if o.kind != kind {
		fail(eb, native.ErrBadType, 0, "handle %#x has the wrong type", uint64(r))
		return
	}
	if o.owner != 0 {
		e.stats.InvalidFree++
		fail(eb, native.ErrBadFree, 0, "handle %#x is held by %#x", uint64(r), uint64(o.owner))
		return
	}
	e.free(r)
}

// copyTree deep-copies the container r under owner.
func (e *Engine) copyTree(r native.Ref, owner native.Ref) native.Ref {
	src := e.objects[r]
	dst := &object{kind: objFlist, owner: owner}
	out := e.alloc(dst)
	dst.slots = make([]*slot, 0, len(src.slots))
	for _, s := range src.slots {
		dst.slots = append(dst.slots, e.copySlot(s, out))
	}
	return out
}

func (e *Engine) copySlot(s *slot, owner native.Ref) *slot {
	c := &slot{id: s.id, value: cloneValue(s.value)}
	if s.box != 0 {
		c.box = e.copyBox(s.box, owner)
	}
	if s.sub != 0 {
		c.sub = e.copyTree(s.sub, owner)
	}
	if s.elems != nil {
		c.elems = make([]elem, len(s.elems))
		for i, el := range s.elems {
			c.elems[i] = elem{id: el.id}
			if el.ref != 0 {
				c.elems[i].ref = e.copyTree(el.ref, owner)
			}
		}
	}
	return c
}

func (e *Engine) copyBox(r native.Ref, owner native.Ref) native.Ref {
	src := e.objects[r]
	return e.alloc(&object{kind: src.kind, owner: owner, poid: src.poid, dec: src.dec})
}

func cloneValue(v any) any {
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}

// find returns the first slot with id.
func (o *object) find(id types.FieldID) (int, *slot) {
	for i, s := range o.slots {
		if s.id == id {
			return i, s
		}
	}
	return -1, nil
}

func (o *object) remove(i int) {
	o.slots = append(o.slots[:i], o.slots[i+1:]...)
}

func (s *slot) elemIndex(id int32) int {
	if id == types.ElemAny {
		if len(s.elems) == 0 {
			return -1
		}
		return 0
	}
	for i, el := range s.elems {
		if el.id == id {
			return i
		}
	}
	return -1
}

func (s *slot) nextElemID() int32 {
	var next int32
	for _, el := range s.elems {
		if el.id >= next {
			next = el.id + 1
		}
	}
	return next
}

// checkKind reports a field whose kind the calling method cannot handle.
func checkKind(fld types.FieldID, eb *native.ErrBuf, kinds ...types.Kind) bool {
	k := fld.Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	fail(eb, native.ErrBadType, fld, "field %s has the wrong type", fld)
	return false
}

func isScalar(k types.Kind) bool {
	switch k {
	case types.KindInt, types.KindEnum, types.KindStr, types.KindBuf, types.KindPoid,
		types.KindTstamp, types.KindBinstr, types.KindDecimal:
		return true
	}
	return false
}
