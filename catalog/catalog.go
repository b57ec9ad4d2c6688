// Package catalog maps field names, numbers and kinds, opcode names and
// flag names. It stands in for the engine's data dictionary: a built-in set
// covers the common fields and custom fields are added from YAML files.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/joshuapare/flistkit/pkg/types"
)

// Catalog is a name/number dictionary. Lookups are safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	byName   map[string]types.FieldID
	byNum    map[uint32]string // bare field number -> name
	opByName map[string]int32
	opByCode map[int32]string
	flags    map[string]uint32
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		byName:   make(map[string]types.FieldID),
		byNum:    make(map[uint32]string),
		opByName: make(map[string]int32),
		opByCode: make(map[int32]string),
		flags:    make(map[string]uint32),
	}
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the shared catalog preloaded with the built-in fields,
// opcodes and flags.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat = Builtin()
	})
	return defaultCat
}

// Builtin returns a new catalog preloaded with the built-in dictionary.
func Builtin() *Catalog {
	c := New()
	for _, f := range builtinFields {
		c.byName[f.name] = f.id
		c.byNum[f.id.Num()] = f.name
	}
	for _, op := range builtinOpcodes {
		c.opByName[op.name] = op.code
		c.opByCode[op.code] = op.name
	}
	for name, v := range builtinFlags {
		c.flags[name] = v
	}
	return c
}

// AddField registers a field. Re-registering the same name with the same
// id is a no-op; conflicting registrations fail.
func (c *Catalog) AddField(name string, kind types.Kind, num uint32) (types.FieldID, error) {
	if name == "" {
		return 0, types.Errorf(types.ErrKindValidation, "field name is empty")
	}
	if kind == types.KindUnused {
		return 0, types.Errorf(types.ErrKindValidation, "field %s has no kind", name)
	}
	id := types.MakeField(kind, num)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.byName[name]; ok && prev != id {
		return 0, types.Errorf(types.ErrKindValidation, "field %s already registered as %s", name, prev)
	}
	if prev, ok := c.byNum[num]; ok && prev != name {
		return 0, types.Errorf(types.ErrKindValidation, "field number %d already registered as %s", num, prev)
	}
	c.byName[name] = id
	c.byNum[num] = name
	return id, nil
}

// AddOpcode registers an opcode name.
func (c *Catalog) AddOpcode(name string, code int32) error {
	if name == "" || code <= 0 {
		return types.Errorf(types.ErrKindValidation, "invalid opcode %q = %d", name, code)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.opByName[name]; ok && prev != code {
		return types.Errorf(types.ErrKindValidation, "opcode %s already registered as %d", name, prev)
	}
	c.opByName[name] = code
	c.opByCode[code] = name
	return nil
}

// AddFlag registers a flag name.
func (c *Catalog) AddFlag(name string, value uint32) {
	c.mu.Lock()
	c.flags[name] = value
	c.mu.Unlock()
}

// FieldByName returns the full field number for name (PIN_FIELD_OF_NAME).
func (c *Catalog) FieldByName(name string) (types.FieldID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	return id, ok
}

// FieldName returns the name of a field (PIN_FIELD_GET_NAME). Only the bare
// number is consulted, so a number without its kind byte still resolves.
func (c *Catalog) FieldName(id types.FieldID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byNum[id.Num()]
	return name, ok
}

// Resolve returns the full field number for id. A bare number (no kind
// byte), as handed out by some engine calls, is upgraded to the registered
// field; ids that already carry a kind are returned unchanged.
func (c *Catalog) Resolve(id types.FieldID) (types.FieldID, bool) {
	if id.Kind() != types.KindUnused {
		return id, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byNum[id.Num()]
	if !ok {
		return 0, false
	}
	return c.byName[name], true
}

// Field resolves an identifier that is either a field name or a number
// rendered in decimal.
func (c *Catalog) Field(ident string) (types.FieldID, error) {
	if id, ok := c.FieldByName(ident); ok {
		return id, nil
	}
	if num, err := strconv.ParseUint(ident, 10, 32); err == nil {
		if id, ok := c.Resolve(types.FieldID(num)); ok {
			return id, nil
		}
	}
	return 0, types.Errorf(types.ErrKindNotFound, "unknown field %s", ident)
}

// DisplayName returns the field's name, or its number when unregistered.
func (c *Catalog) DisplayName(id types.FieldID) string {
	if name, ok := c.FieldName(id); ok {
		return name
	}
	return fmt.Sprint(id.Num())
}

// Opcode returns the opcode number for name (pcm_opname_to_opcode).
func (c *Catalog) Opcode(name string) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	code, ok := c.opByName[name]
	return code, ok
}

// OpcodeName returns the registered name of an opcode.
func (c *Catalog) OpcodeName(code int32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.opByCode[code]
	return name, ok
}

// Flag returns the value of a named flag.
func (c *Catalog) Flag(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.flags[name]
	return v, ok
}

// Flags ORs together named flags. Names may also be given as a single
// "A|B" string.
func (c *Catalog) Flags(names ...string) (uint32, error) {
	var out uint32
	for _, n := range names {
		for _, part := range strings.Split(n, "|") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, ok := c.Flag(part)
			if !ok {
				return 0, types.Errorf(types.ErrKindNotFound, "no flag found for %s", part)
			}
			out |= v
		}
	}
	return out, nil
}
