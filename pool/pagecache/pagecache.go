package pagecache

import (
	"fmt"
	"os"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
	"github.com/joshuapare/mempool/internal/osmem"
)

// Runtime trace flag for page-tier operations - controlled by
// MEMPOOL_LOG_ALLOC env var.
var logPages = os.Getenv("MEMPOOL_LOG_ALLOC") != ""

// Cache is the page tier. One instance serves the whole process; see New.
type Cache struct {
	mu sync.Mutex

	// bySize: page count -> ordered set of free runs of exactly that length
	// (treemap keyed by base address). Buckets are removed when they empty,
	// so a Ceiling hit always has at least one run.
	bySize *treemap.Map

	// byAddr: run base -> free run, for neighbor lookup during coalescing.
	byAddr *treemap.Map

	// regions: every mapping ever obtained from the OS, keyed by base.
	// Values are the original []byte so Close can hand them back to the
	// mapper. Also consulted to keep coalescing within one mapping.
	regions *treemap.Map

	// units: pinned Go-heap buffers serving the large-block bypass.
	units map[uintptr][]byte

	mapper osmem.Mapper
	closed bool
	stats  Stats
}

func uintptrComparator(a, b interface{}) int {
	x, y := a.(uintptr), b.(uintptr)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// New returns a page cache backed by the platform mapper.
func New() *Cache {
	return NewWithMapper(osmem.Default())
}

// NewWithMapper returns a page cache backed by m. Tests use this to observe
// or fail mapping calls.
func NewWithMapper(m osmem.Mapper) *Cache {
	return &Cache{
		bySize:  treemap.NewWith(utils.IntComparator),
		byAddr:  treemap.NewWith(uintptrComparator),
		regions: treemap.NewWith(uintptrComparator),
		units:   map[uintptr][]byte{},
		mapper:  m,
	}
}

// AllocatePages hands out a run of exactly count pages. The smallest free
// run that fits is split; on a miss, max(count, BatchPages) pages are mapped
// in one OS call and the unused suffix is filed as free.
func (c *Cache) AllocatePages(count int) (memspan.Span, error) {
	if count <= 0 {
		return memspan.Span{}, ErrZeroPages
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return memspan.Span{}, ErrClosed
	}

	if _, bucketVal := c.bySize.Ceiling(count); bucketVal != nil {
		bucket := bucketVal.(*treemap.Map)
		_, runVal := bucket.Min()
		run := runVal.(memspan.Span)
		c.detachFree(run)

		use, rest := run.Cut(count * format.PageSize)
		if rest.Len() > 0 {
			c.attachFree(rest)
		}
		return use, nil
	}

	toMap := count
	if toMap < format.BatchPages {
		toMap = format.BatchPages
	}
	region, err := c.mapper.Map(toMap * format.PageSize)
	if err != nil {
		return memspan.Span{}, fmt.Errorf("pagecache: allocate %d pages: %w", count, err)
	}
	if logPages {
		fmt.Fprintf(os.Stderr, "[pagecache] mapped %d pages for a %d-page request\n", toMap, count)
	}
	run := memspan.FromBytes(region)
	c.regions.Put(run.Base(), region)
	c.stats.MapCalls++
	c.stats.MappedBytes += int64(run.Len())

	use, rest := run.Cut(count * format.PageSize)
	if rest.Len() > 0 {
		c.attachFree(rest)
	}
	return use, nil
}

// DeallocatePages takes back a run of whole pages and eagerly merges it with
// free neighbors. Only runs from the same OS mapping merge, so a free run
// never straddles a mapping boundary. One probe per side suffices: eager
// coalescing guarantees no two free runs are already adjacent.
func (c *Cache) DeallocatePages(run memspan.Span) error {
	if run.Len() == 0 ||
		run.Len()%format.PageSize != 0 ||
		run.Base()%uintptr(format.PageSize) != 0 {
		return ErrBadRun
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, found := c.byAddr.Get(run.Base()); found {
		return ErrFreedRun
	}

	if _, leftVal := c.byAddr.Floor(run.Base() - 1); leftVal != nil {
		left := leftVal.(memspan.Span)
		if left.End() == run.Base() && c.sameRegion(left.Base(), run.Base()) {
			c.detachFree(left)
			run = memspan.New(left.Base(), left.Len()+run.Len())
			c.stats.Coalesces++
		}
	}

	if rightVal, found := c.byAddr.Get(run.End()); found {
		right := rightVal.(memspan.Span)
		if c.sameRegion(run.Base(), right.Base()) {
			c.detachFree(right)
			run = memspan.New(run.Base(), run.Len()+right.Len())
			c.stats.Coalesces++
		}
	}

	c.attachFree(run)
	return nil
}

// AllocateUnit serves the large-block bypass from the Go heap. The buffer is
// pinned in the unit registry so the address stays live until
// DeallocateUnit.
func (c *Cache) AllocateUnit(size int) (memspan.Span, error) {
	if size <= 0 {
		return memspan.Span{}, ErrInvalidSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return memspan.Span{}, ErrClosed
	}

	buf := make([]byte, size)
	s := memspan.FromBytes(buf)
	c.units[s.Base()] = buf
	return s, nil
}

// DeallocateUnit releases a bypass unit, unpinning its buffer.
func (c *Cache) DeallocateUnit(u memspan.Span) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.units[u.Base()]; !ok {
		return ErrUnknownUnit
	}
	delete(c.units, u.Base())
	return nil
}

// Close unmaps every region ever obtained from the OS. Idempotent; blocks
// handed out from those regions are invalid afterwards.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	it := c.regions.Iterator()
	for it.Next() {
		region := it.Value().([]byte)
		if logPages {
			fmt.Fprintf(os.Stderr, "[pagecache] unmapping %d-byte region\n", len(region))
		}
		if err := c.mapper.Unmap(region); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.regions.Clear()
	c.bySize.Clear()
	c.byAddr.Clear()
	c.units = map[uintptr][]byte{}
	return firstErr
}

// attachFree files run into both free indexes. Caller holds c.mu.
func (c *Cache) attachFree(run memspan.Span) {
	pages := run.Len() / format.PageSize
	var bucket *treemap.Map
	if bucketVal, found := c.bySize.Get(pages); found {
		bucket = bucketVal.(*treemap.Map)
	} else {
		bucket = treemap.NewWith(uintptrComparator)
		c.bySize.Put(pages, bucket)
	}
	bucket.Put(run.Base(), run)
	c.byAddr.Put(run.Base(), run)
}

// detachFree removes run from both free indexes, dropping its size bucket
// if it empties. Caller holds c.mu.
func (c *Cache) detachFree(run memspan.Span) {
	pages := run.Len() / format.PageSize
	if bucketVal, found := c.bySize.Get(pages); found {
		bucket := bucketVal.(*treemap.Map)
		bucket.Remove(run.Base())
		if bucket.Empty() {
			c.bySize.Remove(pages)
		}
	}
	c.byAddr.Remove(run.Base())
}

// sameRegion reports whether both addresses fall inside the same OS
// mapping. Caller holds c.mu.
func (c *Cache) sameRegion(a, b uintptr) bool {
	ra, foundA := c.regionOf(a)
	rb, foundB := c.regionOf(b)
	return foundA && foundB && ra == rb
}

func (c *Cache) regionOf(addr uintptr) (uintptr, bool) {
	baseVal, regionVal := c.regions.Floor(addr)
	if baseVal == nil {
		return 0, false
	}
	base := baseVal.(uintptr)
	if addr >= base+uintptr(len(regionVal.([]byte))) {
		return 0, false
	}
	return base, true
}
