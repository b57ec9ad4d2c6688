package flist

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

func accountFixture(t *testing.T, c *Client) *FList {
	t.Helper()
	return mustMap(t, c, map[string]any{
		"PIN_FLD_POID": "0.0.0.1 /account 42 0",
		"PIN_FLD_INHERITED_INFO": map[string]any{
			"PIN_FLD_NAME": "inherited",
		},
		"PIN_FLD_RESULTS": map[int32]any{
			3: map[string]any{"PIN_FLD_NAME": "three"},
			7: map[string]any{"PIN_FLD_NAME": "seven"},
		},
	})
}

func TestRelease_DestroysSubtreeOnce(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	sub, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	elem, err := root.Elem(catalog.PIN_FLD_RESULTS, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, root.Refs(), "caller plus two children")

	// Children keep the root's container alive.
	root.Release()
	assert.Positive(t, e.Stats().Live)
	name, ok, err := elem.Str(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "seven", name)

	sub.Release()
	assert.Positive(t, e.Stats().Live)
	elem.Release()
	requireNoLeaks(t, e)

	// Over-release is ignored.
	root.Release()
	elem.Release()
	assert.Zero(t, e.Stats().DoubleFree)
	_, err = root.Count(false)
	assert.ErrorIs(t, err, types.ErrReleased)
}

// abandonSubstruct locates the substruct at fld and drops the proxy
// without releasing it.
func abandonSubstruct(t *testing.T, f *FList, fld types.FieldID) {
	t.Helper()
	sub, err := f.Substruct(fld)
	require.NoError(t, err)
	require.Equal(t, 2, f.Refs())
	has, err := sub.Exists(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	require.True(t, has)
}

func TestRelease_CollectedChildReturnsParentRef(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	abandonSubstruct(t, root, catalog.PIN_FLD_INHERITED_INFO)
	require.Eventually(t, func() bool {
		runtime.GC()
		return root.Refs() == 1
	}, 5*time.Second, 10*time.Millisecond, "collected child still holds its parent")

	again, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	assert.Equal(t, 2, root.Refs())
	assertMap(t, again, map[string]any{"PIN_FLD_NAME": "inherited"})

	// a released child gives its parent reference back exactly once
	again.Release()
	for range 3 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, root.Refs())

	root.Release()
	requireNoLeaks(t, e)
}

func TestRelease_RetainDefersDestroy(t *testing.T) {
	c, e := newClient(t, nil)
	root, err := c.New()
	require.NoError(t, err)
	require.Same(t, root, root.Retain())

	root.Release()
	assert.Equal(t, 1, e.Stats().Live)
	root.Release()
	requireNoLeaks(t, e)
}

func TestLocate_SameProxyForSameCoordinate(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	a, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	b, ok, err := root.LookupSubstruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.Refs())

	e1, err := root.Elem(catalog.PIN_FLD_RESULTS, 3)
	require.NoError(t, err)
	e2, err := root.Elem(catalog.PIN_FLD_RESULTS, 3)
	require.NoError(t, err)
	assert.Same(t, e1, e2)

	// The wildcard resolves to the first element and shares its proxy.
	any1, err := root.AnyElem(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Same(t, e1, any1)
	coord, ok := any1.Coordinate()
	require.True(t, ok)
	assert.Equal(t, types.Coordinate{Field: catalog.PIN_FLD_RESULTS, Elem: 3}, coord)

	other, err := root.Elem(catalog.PIN_FLD_RESULTS, 7)
	require.NoError(t, err)
	assert.NotSame(t, e1, other)

	for _, n := range []*FList{a, b, e1, e2, any1, other, root} {
		n.Release()
	}
	requireNoLeaks(t, e)
}

func TestLocate_MissingAndNull(t *testing.T) {
	c, e := newClient(t, nil)
	root := mustMap(t, c, map[string]any{
		"PIN_FLD_EXTENDED_INFO": nil,
		"PIN_FLD_RESULTS":       map[int32]any{0: nil},
	})
	defer func() {
		root.Release()
		requireNoLeaks(t, e)
	}()

	_, ok, err := root.LookupSubstruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	var ne *types.NativeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "PIN_ERR_NOT_FOUND", ne.Code)

	_, err = root.Substruct(catalog.PIN_FLD_EXTENDED_INFO)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))

	_, ok, err = root.LookupElem(catalog.PIN_FLD_RESULTS, 0)
	require.NoError(t, err)
	assert.False(t, ok, "NULL element")

	_, ok, err = root.LookupAnyElem(catalog.PIN_FLD_BALANCES)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = root.Elem(catalog.PIN_FLD_RESULTS, types.ElemAny)
	assert.ErrorIs(t, err, types.ErrWildcard)
	_, err = root.Substruct(catalog.PIN_FLD_RESULTS)
	assert.ErrorIs(t, err, types.ErrWrongKind)

	// Failed lookups leave no children behind.
	assert.Equal(t, 1, root.Refs())
	assert.Empty(t, root.liveChildren())
}

func TestSetSubstruct_StealsLiveChild(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	child, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	before := mustRef(t, child)

	src := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "replacement"})
	require.NoError(t, root.SetSubstruct(catalog.PIN_FLD_INHERITED_INFO, src))
	src.Release()

	assert.True(t, child.IsRoot())
	assert.Equal(t, before, mustRef(t, child), "child owns the container it had")
	assertMap(t, child, map[string]any{"PIN_FLD_NAME": "inherited"})
	assert.Equal(t, 1, root.Refs(), "parent reference dropped")

	fresh, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	assert.NotSame(t, child, fresh)
	name, _, err := fresh.Str(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	assert.Equal(t, "replacement", name)

	fresh.Release()
	root.Release()
	assert.Equal(t, 1, e.Stats().Roots, "only the stolen container is left")
	child.Release()
	requireNoLeaks(t, e)
}

func TestSetElem_StealsLiveChild(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	child, err := root.Elem(catalog.PIN_FLD_RESULTS, 7)
	require.NoError(t, err)
	src := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "new seven"})
	id, err := root.SetElem(catalog.PIN_FLD_RESULTS, 7, src)
	require.NoError(t, err)
	assert.Equal(t, int32(7), id)

	assert.True(t, child.IsRoot())
	assertMap(t, child, map[string]any{"PIN_FLD_NAME": "seven"})

	id, err = root.AppendElem(catalog.PIN_FLD_RESULTS, src)
	require.NoError(t, err)
	assert.Equal(t, int32(8), id)
	ids, err := root.ElemIDs(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 7, 8}, ids)

	_, err = root.SetElem(catalog.PIN_FLD_RESULTS, types.ElemAny, src)
	assert.ErrorIs(t, err, types.ErrWildcard)

	src.Release()
	child.Release()
	root.Release()
	requireNoLeaks(t, e)
}

func TestSetAnyElem_RepointsDescendants(t *testing.T) {
	c, e := newClient(t, nil)
	root := mustMap(t, c, map[string]any{
		"PIN_FLD_RESULTS": map[int32]any{
			4: map[string]any{
				"PIN_FLD_NAME": "first",
				"PIN_FLD_INHERITED_INFO": map[string]any{
					"PIN_FLD_NAME": "level one",
					"PIN_FLD_BALANCES": map[int32]any{
						840: map[string]any{"PIN_FLD_CURRENT_BAL": "12.50"},
					},
				},
			},
			9: map[string]any{"PIN_FLD_NAME": "second"},
		},
	})

	a, err := root.AnyElem(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	b, err := a.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	d, err := b.Elem(catalog.PIN_FLD_BALANCES, 840)
	require.NoError(t, err)
	oldB, oldD := mustRef(t, b), mustRef(t, d)

	src := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "replacement"})
	id, err := root.SetAnyElem(catalog.PIN_FLD_RESULTS, src)
	require.NoError(t, err)
	src.Release()
	assert.Equal(t, int32(4), id)

	assert.True(t, a.IsRoot())
	assert.False(t, b.IsRoot())
	assert.NotEqual(t, oldB, mustRef(t, b))
	assert.NotEqual(t, oldD, mustRef(t, d))

	// Each descendant now aliases the matching sub-flist of a's copy.
	var eb native.ErrBuf
	aRef := mustRef(t, a)
	bRef := e.SubstrGet(aRef, catalog.PIN_FLD_INHERITED_INFO, false, &eb)
	dRef := e.ElemGet(bRef, catalog.PIN_FLD_BALANCES, 840, false, &eb)
	require.False(t, eb.IsErr(), eb.String())
	assert.Equal(t, bRef, mustRef(t, b))
	assert.Equal(t, dRef, mustRef(t, d))

	name, _, err := b.Str(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	assert.Equal(t, "level one", name)
	bal, _, err := d.DecimalText(catalog.PIN_FLD_CURRENT_BAL)
	require.NoError(t, err)
	assert.Equal(t, "12.50", bal)

	first, err := root.Elem(catalog.PIN_FLD_RESULTS, 4)
	require.NoError(t, err)
	assertMap(t, first, map[string]any{"PIN_FLD_NAME": "replacement"})

	for _, n := range []*FList{first, root, d, b, a} {
		n.Release()
	}
	requireNoLeaks(t, e)
}

func TestSetAnyElem_EmptyArray(t *testing.T) {
	c, e := newClient(t, nil)
	root, err := c.New()
	require.NoError(t, err)
	src := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "only"})

	_, err = root.SetAnyElem(catalog.PIN_FLD_RESULTS, src)
	require.NoError(t, err)
	n, err := root.ArrayCount(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	src.Release()
	root.Release()
	requireNoLeaks(t, e)
}

func TestDropArray_CountsEveryElement(t *testing.T) {
	c, e := newClient(t, nil)
	elems := map[int32]any{}
	for i := range int32(5) {
		elems[i*2] = map[string]any{"PIN_FLD_INDEX": i}
	}
	root := mustMap(t, c, map[string]any{"PIN_FLD_RESULTS": elems})

	live, err := root.Elem(catalog.PIN_FLD_RESULTS, 4)
	require.NoError(t, err)

	n, err := root.DropArray(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ok, err := root.Exists(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, live.IsRoot())
	idx, err := live.Int(catalog.PIN_FLD_INDEX)
	require.NoError(t, err)
	assert.Equal(t, int32(2), idx)

	n, err = root.DropArray(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Zero(t, n)

	live.Release()
	root.Release()
	requireNoLeaks(t, e)
}

func TestDrop_ScalarElemAndMissing(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	require.NoError(t, root.Drop(catalog.PIN_FLD_POID))
	require.NoError(t, root.Drop(catalog.PIN_FLD_POID), "dropping a missing field")
	require.NoError(t, root.DropElem(catalog.PIN_FLD_RESULTS, 99))

	require.NoError(t, root.DropElem(catalog.PIN_FLD_RESULTS, types.ElemAny))
	ids, err := root.ElemIDs(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, ids)

	flds, err := root.Fields()
	require.NoError(t, err)
	assert.Equal(t, []types.FieldID{catalog.PIN_FLD_INHERITED_INFO, catalog.PIN_FLD_RESULTS}, flds)

	root.Release()
	requireNoLeaks(t, e)
}

func TestTake_ReturnsRoots(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	live, err := root.Elem(catalog.PIN_FLD_RESULTS, 3)
	require.NoError(t, err)
	taken, ok, err := root.TakeElem(catalog.PIN_FLD_RESULTS, types.ElemAny)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, live, taken, "the live child is handed back")
	assert.True(t, taken.IsRoot())
	assert.Equal(t, 2, taken.Refs())

	sub, ok, err := root.TakeSubstruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	require.True(t, ok)
	assertMap(t, sub, map[string]any{"PIN_FLD_NAME": "inherited"})

	_, ok, err = root.TakeSubstruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, n := range []*FList{live, taken, sub, root} {
		n.Release()
	}
	requireNoLeaks(t, e)
}

// A wildcard-located element whose array is then overwritten keeps the
// contents it had, and the parent receives the new contents.
func TestScenario_WildcardChildSurvivesArraySet(t *testing.T) {
	c, e := newClient(t, nil)
	root := mustMap(t, c, map[string]any{
		"PIN_FLD_RESULTS": map[int32]any{
			0: map[string]any{"PIN_FLD_NAME": "before", "PIN_FLD_INDEX": 1},
		},
	})
	a, err := root.AnyElem(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assert.False(t, a.IsRoot())

	src := mustMap(t, c, map[string]any{"PIN_FLD_NAME": "after"})
	want, err := src.ToMap()
	require.NoError(t, err)

	_, err = root.SetAnyElem(catalog.PIN_FLD_RESULTS, src)
	require.NoError(t, err)

	assert.True(t, a.IsRoot())
	assertMap(t, a, map[string]any{"PIN_FLD_NAME": "before", "PIN_FLD_INDEX": int32(1)})

	got, err := root.AnyElem(catalog.PIN_FLD_RESULTS)
	require.NoError(t, err)
	assertMap(t, got, want)

	for _, n := range []*FList{got, src, a, root} {
		n.Release()
	}
	requireNoLeaks(t, e)
}

// Dropping a substruct that a live child aliases hands the container to
// the child.
func TestScenario_DropSubstructWithLiveChild(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)
	b, err := root.Substruct(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	shared := mustRef(t, b)

	require.NoError(t, root.Drop(catalog.PIN_FLD_INHERITED_INFO))

	assert.True(t, b.IsRoot())
	assert.Equal(t, shared, mustRef(t, b))
	assertMap(t, b, map[string]any{"PIN_FLD_NAME": "inherited"})
	ok, err := root.Exists(catalog.PIN_FLD_INHERITED_INFO)
	require.NoError(t, err)
	assert.False(t, ok)

	root.Release()
	assert.Equal(t, 1, e.Stats().Live)
	b.Release()
	requireNoLeaks(t, e)
}

func TestWrite_ForeignFListRejected(t *testing.T) {
	c1, _ := newClient(t, nil)
	c2, _ := newClient(t, nil)
	dst, err := c1.New()
	require.NoError(t, err)
	defer dst.Release()
	src, err := c2.New()
	require.NoError(t, err)
	defer src.Release()

	err = dst.SetSubstruct(catalog.PIN_FLD_INHERITED_INFO, src)
	assert.ErrorIs(t, err, types.ErrForeignFList)
	err = dst.Concat(src)
	assert.ErrorIs(t, err, types.ErrForeignFList)
}

func TestCopy_IsIndependentRoot(t *testing.T) {
	c, e := newClient(t, nil)
	root := accountFixture(t, c)

	dup, err := root.Copy()
	require.NoError(t, err)
	assert.True(t, dup.IsRoot())
	same, err := dup.Equal(root)
	require.NoError(t, err)
	assert.True(t, same)

	require.NoError(t, dup.SetStr(catalog.PIN_FLD_NAME, "copy"))
	same, err = dup.Equal(root)
	require.NoError(t, err)
	assert.False(t, same)
	has, err := root.Exists(catalog.PIN_FLD_NAME)
	require.NoError(t, err)
	assert.False(t, has)

	root.Release()
	dup.Release()
	requireNoLeaks(t, e)
}
