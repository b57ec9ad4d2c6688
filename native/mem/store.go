package mem

import (
	"bytes"
	"maps"
	"math/big"
	"slices"
	"strings"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

type objKey struct {
	db  int64
	typ string
	id  int64
}

func keyOf(p types.Poid) objKey { return objKey{db: p.Database, typ: p.Type, id: p.ID} }

// store holds the stored objects the session opcodes work on.
type store struct {
	objects map[objKey]*format.Record
	nextID  map[string]int64
}

func newStore() *store {
	return &store{objects: make(map[objKey]*format.Record), nextID: make(map[string]int64)}
}

func (s *store) snapshot() *store {
	cp := &store{objects: make(map[objKey]*format.Record, len(s.objects)), nextID: maps.Clone(s.nextID)}
	for k, v := range s.objects {
		cp.objects[k] = v.Clone()
	}
	return cp
}

func (s *store) allocID(typ string) int64 {
	s.nextID[typ]++
	return s.nextID[typ]
}

// sortedKeys returns the stored keys ordered by type then id.
func (s *store) sortedKeys() []objKey {
	keys := slices.Collect(maps.Keys(s.objects))
	slices.SortFunc(keys, func(a, b objKey) int {
		if c := strings.Compare(a.typ, b.typ); c != 0 {
			return c
		}
		if a.id < b.id {
			return -1
		}
		if a.id > b.id {
			return 1
		}
		return 0
	})
	return keys
}

func poidOf(rec *format.Record) (types.Poid, bool) {
	i := rec.Find(catalog.PIN_FLD_POID)
	if i < 0 {
		return types.Poid{}, false
	}
	p, ok := rec.Fields[i].Value.(types.Poid)
	return p, ok
}

func setField(rec *format.Record, f format.Field) {
	if i := rec.Find(f.ID); i >= 0 {
		rec.Fields[i] = f
		return
	}
	rec.Fields = append(rec.Fields, f)
}

// matches reports whether obj satisfies every search argument. A
// type-only poid argument matches every object of that type.
func matches(obj *format.Record, args []format.Field) bool {
	for _, arg := range args {
		i := obj.Find(arg.ID)
		if i < 0 {
			return false
		}
		have := obj.Fields[i].Value
		if want, ok := arg.Value.(types.Poid); ok && want.IsTypeOnly() {
			p, ok := have.(types.Poid)
			if !ok || p.Database != want.Database || !strings.HasPrefix(p.Type, want.Type) {
				return false
			}
			continue
		}
		if !scalarEqual(arg.ID.Kind(), have, arg.Value) {
			return false
		}
	}
	return true
}

func scalarEqual(kind types.Kind, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch kind {
	case types.KindBuf, types.KindBinstr:
		return bytes.Equal(a.([]byte), b.([]byte))
	case types.KindDecimal:
		x, okx := new(big.Rat).SetString(a.(string))
		y, oky := new(big.Rat).SetString(b.(string))
		if !okx || !oky {
			return a == b
		}
		return x.Cmp(y) == 0
	}
	return a == b
}

// project keeps the poid plus the fields named in want. An empty want
// keeps everything.
func project(obj *format.Record, want *format.Record) *format.Record {
	if want == nil || len(want.Fields) == 0 {
		return obj.Clone()
	}
	out := &format.Record{}
	if i := obj.Find(catalog.PIN_FLD_POID); i >= 0 {
		out.Fields = append(out.Fields, obj.Fields[i].Clone())
	}
	for _, f := range want.Fields {
		if f.ID == catalog.PIN_FLD_POID {
			continue
		}
		if i := obj.Find(f.ID); i >= 0 {
			out.Fields = append(out.Fields, obj.Fields[i].Clone())
		}
	}
	return out
}
