package flist

import (
	"context"
	"fmt"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/pkg/types"
)

// SearchArg is one PIN_FLD_ARGS entry. Value takes anything FromMap
// accepts for the field; a map given for an array field becomes its
// element 0.
type SearchArg struct {
	Field string
	Value any
}

// ResultField names a field to return. For a substruct or array field,
// Fields narrows the returned sub-fields; nil returns them all.
type ResultField struct {
	Field  string
	Fields []ResultField
}

// SearchSpec describes a PCM_OP_SEARCH call.
type SearchSpec struct {
	// Template is the engine's search template, e.g.
	// "select X from /account where F1 = V1".
	Template string

	// Args are numbered from 1 in order. Repeat a field for templates that
	// compare one field against several values.
	Args []SearchArg

	// Results lists the fields to return. nil returns every field.
	Results []ResultField

	// NullResults sends a NULL PIN_FLD_RESULTS array.
	NullResults bool

	// Flags is stored in PIN_FLD_FLAGS of the input.
	Flags uint32

	// OpFlags are the opcode flags.
	OpFlags uint32

	// CountOnly asks for the number of matches only. It forces NULL
	// results and adds PCM_OPFLG_COUNT_ONLY.
	CountOnly bool
}

// BuildSearch builds the input flist for spec without sending it.
func (c *Client) BuildSearch(spec SearchSpec) (*FList, error) {
	rec, err := c.searchRecord(spec)
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

func (c *Client) searchRecord(spec SearchSpec) (*format.Record, error) {
	if spec.Template == "" {
		return nil, types.Errorf(types.ErrKindValidation, "search template is empty")
	}
	flags, err := c.scalarValue(catalog.PIN_FLD_FLAGS, spec.Flags)
	if err != nil {
		return nil, err
	}
	template, err := c.encodeStr(spec.Template)
	if err != nil {
		return nil, err
	}
	rec := &format.Record{Fields: []format.Field{
		{ID: catalog.PIN_FLD_POID, Value: types.Poid{Database: c.database, Type: "/search", ID: -1}},
		{ID: catalog.PIN_FLD_FLAGS, Value: flags},
		{ID: catalog.PIN_FLD_TEMPLATE, Value: template},
	}}

	args := format.Field{ID: catalog.PIN_FLD_ARGS}
	for i, arg := range spec.Args {
		fld, err := c.names.Field(arg.Field)
		if err != nil {
			return nil, err
		}
		v := arg.Value
		if m, ok := v.(map[string]any); ok && fld.Kind() == types.KindArray {
			v = []any{m}
		}
		field, err := c.mapField(fld, v, false, 2)
		if err != nil {
			return nil, fmt.Errorf("search arg %d (%s): %w", i+1, arg.Field, err)
		}
		args.Elems = append(args.Elems, format.Elem{ID: int32(i + 1), Rec: &format.Record{Fields: []format.Field{field}}})
	}
	if len(args.Elems) > 0 {
		rec.Fields = append(rec.Fields, args)
	}

	results := format.Field{ID: catalog.PIN_FLD_RESULTS}
	switch {
	case spec.CountOnly || spec.NullResults:
		results.Elems = []format.Elem{{ID: 0}}
	default:
		want, err := c.resultRecord(spec.Results, 2)
		if err != nil {
			return nil, err
		}
		results.Elems = []format.Elem{{ID: types.ElemAny, Rec: want}}
	}
	rec.Fields = append(rec.Fields, results)
	return rec, nil
}

// resultRecord renders a result field list. Array fields become a
// wildcard element, substructs a nested record and scalars their zero.
func (c *Client) resultRecord(fields []ResultField, depth int) (*format.Record, error) {
	if err := c.opts.Limits.CheckDepth(depth); err != nil {
		return nil, err
	}
	rec := &format.Record{}
	for _, rf := range fields {
		fld, err := c.names.Field(rf.Field)
		if err != nil {
			return nil, err
		}
		field := format.Field{ID: fld}
		switch fld.Kind() {
		case types.KindArray:
			sub, err := c.resultRecord(rf.Fields, depth+1)
			if err != nil {
				return nil, err
			}
			field.Elems = []format.Elem{{ID: types.ElemAny, Rec: sub}}
		case types.KindSubstruct:
			if field.Sub, err = c.resultRecord(rf.Fields, depth+1); err != nil {
				return nil, err
			}
		default:
			if len(rf.Fields) > 0 {
				return nil, types.Errorf(types.ErrKindValidation, "%s is not a container field", rf.Field)
			}
			field.Value = format.ZeroScalar(fld.Kind())
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

// Search builds and runs a PCM_OP_SEARCH. The caller releases the result.
func (c *Client) Search(ctx context.Context, spec SearchSpec) (*FList, error) {
	in, err := c.BuildSearch(spec)
	if err != nil {
		return nil, err
	}
	defer in.Release()
	flags := spec.OpFlags
	if spec.CountOnly {
		flags |= catalog.PCM_OPFLG_COUNT_ONLY
	}
	return in.Opcode(ctx, catalog.PCM_OP_SEARCH, flags)
}

// SearchCount runs spec in count-only mode and returns the match count,
// which the engine reports as the id of the single result element.
func (c *Client) SearchCount(ctx context.Context, spec SearchSpec) (int, error) {
	spec.CountOnly = true
	out, err := c.Search(ctx, spec)
	if err != nil {
		return 0, err
	}
	if out == nil {
		return 0, types.Errorf(types.ErrKindProtocol, "search returned no output")
	}
	defer out.Release()
	ids, err := out.ElemIDs(catalog.PIN_FLD_RESULTS)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, types.Errorf(types.ErrKindProtocol, "search returned no count")
	}
	return int(ids[0]), nil
}
