package pagecache

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
)

// Stats is a snapshot of the page tier's bookkeeping.
type Stats struct {
	FreeRuns    int   // free page-runs currently filed
	FreePages   int   // total pages across those runs
	Regions     int   // OS mappings obtained so far
	Units       int   // live bypass units
	MappedBytes int64 // total bytes obtained from the OS
	MapCalls    int   // OS map calls
	Coalesces   int   // neighbor merges performed
}

// String renders the snapshot for debug dumps.
func (s Stats) String() string {
	return fmt.Sprintf(
		"pagecache: %d free runs (%d pages, %s), %d regions (%s mapped in %d calls), %d units, %d coalesces",
		s.FreeRuns,
		s.FreePages,
		humanize.IBytes(uint64(s.FreePages)*uint64(format.PageSize)),
		s.Regions,
		humanize.IBytes(uint64(s.MappedBytes)),
		s.MapCalls,
		s.Units,
		s.Coalesces,
	)
}

// Stats returns a consistent snapshot of the cache.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Regions = c.regions.Size()
	s.Units = len(c.units)
	it := c.byAddr.Iterator()
	for it.Next() {
		s.FreeRuns++
		s.FreePages += it.Value().(memspan.Span).Len() / format.PageSize
	}
	return s
}

// freeRuns returns the free pool in address order. Test hook.
func (c *Cache) freeRuns() []memspan.Span {
	c.mu.Lock()
	defer c.mu.Unlock()

	var runs []memspan.Span
	it := c.byAddr.Iterator()
	for it.Next() {
		runs = append(runs, it.Value().(memspan.Span))
	}
	return runs
}
