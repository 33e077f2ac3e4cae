package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ink-lang/ink/internal/config"
	"github.com/ink-lang/ink/internal/gc"
	"github.com/ink-lang/ink/internal/object"
)

func newHeap() *gc.Heap {
	cfg := config.Default()
	cfg.GCMinHeap = 0
	return gc.New(cfg, nil, false, false)
}

func TestCollectAccountsOnlyReachableBytes(t *testing.T) {
	h := newHeap()

	reachable := h.Register(object.NewNumber(1, true)).(*object.Number)
	_ = h.Register(object.NewNumber(2, true)) // unreachable: no root references it

	h.Collect(gc.Roots{Stack: []object.Header{reachable}})

	withOne := h.Allocated()
	require.Greater(t, withOne, uint64(0))

	h.Collect(gc.Roots{Stack: []object.Header{reachable}})
	require.Equal(t, withOne, h.Allocated(), "the unreachable sibling stays collected on a second cycle")
}

func TestCollectClearsMarkBitOnSurvivors(t *testing.T) {
	h := newHeap()
	reachable := h.Register(object.NewNumber(1, true)).(*object.Number)

	h.Collect(gc.Roots{Stack: []object.Header{reachable}})

	require.False(t, reachable.Header().Marked, "sweep clears the mark bit so the next cycle can re-mark from scratch")
}

func TestOwnedObjectSurvivesWithoutBeingOnStack(t *testing.T) {
	h := newHeap()
	owned := h.Register(object.NewNumber(42, true))
	h.Own(owned)

	h.Collect(gc.Roots{})
	before := h.Allocated()
	require.Greater(t, before, uint64(0))

	h.Collect(gc.Roots{})
	require.Equal(t, before, h.Allocated(), "an owned object keeps contributing its bytes across cycles")
}

func TestDisownAllowsCollection(t *testing.T) {
	h := newHeap()
	obj := h.Register(object.NewNumber(7, true))
	h.Own(obj)
	h.Collect(gc.Roots{})
	require.Greater(t, h.Allocated(), uint64(0))

	h.Disown(obj)
	h.Collect(gc.Roots{})
	require.Equal(t, uint64(0), h.Allocated())
}

func TestCollectMarksTableEntries(t *testing.T) {
	h := newHeap()

	tbl := h.Register(object.NewTable()).(*object.Table)
	key := h.Register(object.NewString([]byte("k"))).(*object.String)
	val := h.Register(object.NewNumber(9, true))
	tbl.Insert(key, val)

	h.Collect(gc.Roots{Stack: []object.Header{tbl}})

	v, ok := tbl.Lookup(key)
	require.True(t, ok, "table and its entries survive when the table itself is reachable")
	require.Equal(t, val, v)
}

func TestShouldCollectRespectsStressMode(t *testing.T) {
	cfg := config.Default()
	h := gc.New(cfg, nil, false, true)
	require.True(t, h.ShouldCollect())
}

func TestShouldCollectThresholdGrowsAfterCycle(t *testing.T) {
	h := newHeap()
	obj := h.Register(object.NewNumber(1, true))
	h.Own(obj)
	h.Collect(gc.Roots{})
	require.False(t, h.ShouldCollect(), "threshold grows past the freshly measured live size")
}
