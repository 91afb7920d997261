package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mempool/internal/format"
)

// A hot class settles into its bucket: after the first refill, a hundred
// thousand allocate/free pairs never reach the central tier again.
func TestScenarioHotSmallClass(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Close()

	for i := 0; i < 100_000; i++ {
		buf, err := l.Allocate(24)
		require.NoError(t, err)
		l.Deallocate(buf)
	}

	require.Equal(t, 1, l.misses, "central tier sees one interaction")
	require.Equal(t, 1, p.ClassStats(format.Align(24)).Refills)
}

// Growth then reclaim: ten thousand 64-byte blocks out, then back in
// reverse order. Everything drains to the page tier and coalesces into a
// single free run covering the one OS mapping.
func TestScenarioGrowthThenReclaim(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()

	blocks := make([][]byte, 10_000)
	for i := range blocks {
		buf, err := l.Allocate(64)
		require.NoError(t, err)
		blocks[i] = buf
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		l.Deallocate(blocks[i])
	}
	l.Close()

	cs := p.ClassStats(64)
	require.Zero(t, cs.Spans, "no span survives full drain")
	require.Zero(t, cs.FreeBlocks)

	ps := p.PageStats()
	require.Equal(t, 1, ps.MapCalls, "one 8 MiB mapping covers the whole run")
	require.Equal(t, 1, ps.FreeRuns, "freed runs coalesce back into the mapping")
	require.Equal(t, format.BatchPages, ps.FreePages)
}

// Large requests bypass the tiers: no page-pool traffic, no class state.
func TestScenarioLargeBypass(t *testing.T) {
	p := newTestPool(t)

	before := p.PageStats()
	buf, err := p.Allocate(20 * 1024)
	require.NoError(t, err)
	require.Len(t, buf, 20*1024)

	mid := p.PageStats()
	require.Equal(t, before.MapCalls, mid.MapCalls)
	require.Equal(t, before.FreePages, mid.FreePages)
	require.Equal(t, 1, mid.Units)

	p.Deallocate(buf)
	after := p.PageStats()
	require.Zero(t, after.Units)
	require.Equal(t, before.MapCalls, after.MapCalls)
}

// Blocks freed by one worker resurface in another worker's allocations via
// the central tier, and never while still live.
func TestScenarioCrossWorkerHandover(t *testing.T) {
	p := newTestPool(t)

	a := p.NewLocal()
	seen := map[uintptr]bool{}
	blocks := make([][]byte, 1000)
	for i := range blocks {
		buf, err := a.Allocate(32)
		require.NoError(t, err)
		seen[baseOf(buf)] = true
		blocks[i] = buf
	}
	for _, buf := range blocks {
		a.Deallocate(buf)
	}
	a.Close()

	b := p.NewLocal()
	defer b.Close()
	reused := 0
	for i := 0; i < 1000; i++ {
		buf, err := b.Allocate(32)
		require.NoError(t, err)
		if seen[baseOf(buf)] {
			reused++
		}
	}
	require.Positive(t, reused, "central batching recycles the first worker's blocks")
}

// Geometric batch growth keeps central interactions logarithmic-ish: ten
// thousand same-class allocations with no frees stay under a handful of
// misses plus the watermark-capped tail.
func TestScenarioBatchGrowthBoundsMisses(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()

	const n = 10_000
	blocks := make([][]byte, n)
	for i := range blocks {
		buf, err := l.Allocate(64)
		require.NoError(t, err)
		blocks[i] = buf
	}

	// Doubling from 4 to the 2048 cap takes ~10 misses; the remainder
	// arrives in full 2048-block batches.
	require.LessOrEqual(t, l.misses, 14)

	for _, buf := range blocks {
		l.Deallocate(buf)
	}
	l.Close()
}
