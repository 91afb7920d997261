package central

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/mempool/internal/format"
)

// ClassStats is a snapshot of one size class.
type ClassStats struct {
	BlockSize  int
	FreeBlocks int // blocks parked on the class free list
	Spans      int // page-runs currently owned by the class
	Refills    int // page-tier pulls
	Reclaims   int // empty spans returned to the page tier
}

// String renders the snapshot for debug dumps.
func (s ClassStats) String() string {
	return fmt.Sprintf(
		"central[%s]: %d free blocks, %d spans, %d refills, %d reclaims",
		humanize.IBytes(uint64(s.BlockSize)),
		s.FreeBlocks,
		s.Spans,
		s.Refills,
		s.Reclaims,
	)
}

// ClassStats snapshots the class serving blockSize. blockSize must be a
// word multiple within the small range.
func (c *Cache) ClassStats(blockSize int) ClassStats {
	idx := format.Index(blockSize)
	cs := &c.classes[idx]
	cs.lock.Lock()
	defer cs.lock.Unlock()

	s := ClassStats{
		BlockSize:  blockSize,
		FreeBlocks: cs.count,
		Refills:    cs.refills,
		Reclaims:   cs.reclaims,
	}
	if cs.spans != nil {
		s.Spans = cs.spans.Size()
	}
	return s
}
