package central

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
	"github.com/joshuapare/mempool/pool/pagecache"
)

// Runtime trace flag for refill/reclaim traffic - controlled by
// MEMPOOL_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMPOOL_LOG_ALLOC") != ""

// classState is everything one size class owns. Classes are fully disjoint:
// a thread holding one class's lock may take the page cache mutex, never
// another class's lock.
type classState struct {
	lock spinLock

	// head/count: the class free list, next pointers embedded in the
	// blocks themselves.
	head  uintptr
	count int

	// spans: page-run base -> *pageSpan for every run this class owns.
	// Created on first refill.
	spans *treemap.Map

	// groups is the lean refill policy's adaptive counter: how many
	// 256 KiB groups the next refill requests. Grows by one per miss,
	// halves per reclaim.
	groups int

	refills  int
	reclaims int
}

// Cache is the shared middle tier. One instance serves the whole process;
// see New.
type Cache struct {
	pages   *pagecache.Cache
	strict  bool
	closed  atomic.Bool
	classes [format.NumClasses]classState
}

// Option configures a Cache.
type Option func(*Cache)

// WithStrictAccounting selects the debug-grade span accounting: per-block
// bitmaps that report double allocation, double free, and foreign pointers
// as errors. Caps any single batch at format.BitmapCapacity blocks and
// fixes refill sizing to exactly that capacity per span.
func WithStrictAccounting() Option {
	return func(c *Cache) { c.strict = true }
}

// New returns a central cache on top of pages.
func New(pages *pagecache.Cache, opts ...Option) *Cache {
	c := &Cache{pages: pages}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close marks the cache unusable. Every later Allocate or Deallocate
// returns ErrClosed without touching block memory; callers shutting down a
// pool close this tier before unmapping the page tier so a straggling
// cache flush cannot walk freed spans.
func (c *Cache) Close() error {
	c.closed.Store(true)
	return nil
}

// MaxBatch returns the largest count a single Allocate call accepts for
// small classes. Unbounded in lean mode.
func (c *Cache) MaxBatch() int {
	if c.strict {
		return format.BitmapCapacity
	}
	return math.MaxInt
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

// Allocate returns a null-terminated chain of count blocks of exactly size
// bytes, linked through their first words. size must be word-aligned.
// Sizes above format.MaxSmall bypass the class machinery: count must be 1
// and the single block comes from the page tier's unit path.
func (c *Cache) Allocate(size, count int) (uintptr, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if size <= 0 || size%format.WordSize != 0 {
		return 0, ErrInvalidSize
	}
	if count <= 0 {
		return 0, ErrInvalidCount
	}

	if size > format.MaxSmall {
		if count != 1 {
			return 0, ErrInvalidCount
		}
		unit, err := c.pages.AllocateUnit(size)
		if err != nil {
			return 0, err
		}
		memspan.SetNext(unit.Base(), 0)
		return unit.Base(), nil
	}

	if c.strict && count > format.BitmapCapacity {
		return 0, ErrBatchTooLarge
	}

	idx := format.Index(size)
	cs := &c.classes[idx]
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if cs.count >= count {
		return c.detachChain(cs, size, count)
	}
	return c.refill(cs, idx, size, count)
}

// detachChain pops count blocks off the class free list, registering each
// with its owning span. Caller holds the class lock.
func (c *Cache) detachChain(cs *classState, size, count int) (uintptr, error) {
	var head uintptr
	for i := 0; i < count; i++ {
		node := cs.head
		cs.head = memspan.Next(node)
		cs.count--
		if err := c.registerAllocated(cs, node, size); err != nil {
			return 0, err
		}
		memspan.SetNext(node, head)
		head = node
	}
	return head, nil
}

// refill pulls a fresh page-run, carves the outgoing chain off its front
// and parks the rest on the class free list. Residue already on the list is
// left alone; the chain comes entirely from the new run. Caller holds the
// class lock.
func (c *Cache) refill(cs *classState, idx, size, count int) (uintptr, error) {
	pages := c.pageAllocateCount(cs, size, count)
	run, err := c.pages.AllocatePages(pages)
	if err != nil {
		return 0, fmt.Errorf("central: refill class %d: %w", idx, err)
	}
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[central] class %d refill: %d pages for %d blocks of %d\n",
			idx, pages, count, size)
	}

	span := newPageSpan(run, size, c.strict)
	total := run.Len() / size
	if c.strict && total > format.BitmapCapacity {
		total = format.BitmapCapacity
	}

	var head uintptr
	cursor := run
	for i := 0; i < count; i++ {
		block, rest := cursor.Cut(size)
		cursor = rest
		if err := span.allocate(block.Base()); err != nil {
			return 0, err
		}
		memspan.SetNext(block.Base(), head)
		head = block.Base()
	}
	// Trailing blocks go straight to the free list without touching the
	// span accounting: empty means "nothing handed out".
	for i := count; i < total; i++ {
		block, rest := cursor.Cut(size)
		cursor = rest
		memspan.SetNext(block.Base(), cs.head)
		cs.head = block.Base()
		cs.count++
	}

	if cs.spans == nil {
		cs.spans = treemap.NewWith(uintptrComparator)
	}
	cs.spans.Put(run.Base(), span)
	cs.refills++
	return head, nil
}

// Deallocate takes back a chain of blocks of one class. Each block lands on
// the class free list before its span is updated, so a span that empties is
// reclaimed with the freshly returned block swept off in the same pass.
func (c *Cache) Deallocate(head uintptr, size int) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if head == 0 {
		return nil
	}
	if size <= 0 || size%format.WordSize != 0 {
		return ErrInvalidSize
	}

	if size > format.MaxSmall {
		return c.pages.DeallocateUnit(memspan.New(head, size))
	}

	idx := format.Index(size)
	cs := &c.classes[idx]
	cs.lock.Lock()
	defer cs.lock.Unlock()

	cur := head
	for cur != 0 {
		next := memspan.Next(cur)

		memspan.SetNext(cur, cs.head)
		cs.head = cur
		cs.count++

		span, err := c.spanOf(cs, cur, size)
		if err != nil {
			return err
		}
		if err := span.deallocate(cur); err != nil {
			return err
		}
		if span.isEmpty() {
			if err := c.reclaim(cs, idx, span); err != nil {
				return err
			}
		}
		cur = next
	}
	return nil
}

// reclaim returns an empty span's page-run to the page tier, first sweeping
// every block inside its extent off the class free list. Caller holds the
// class lock; taking the page cache mutex under it is the documented lock
// order.
func (c *Cache) reclaim(cs *classState, idx int, span *pageSpan) error {
	var prev uintptr
	cur := cs.head
	for cur != 0 {
		next := memspan.Next(cur)
		if span.run.Contains(cur, span.unitSize) {
			if prev == 0 {
				cs.head = next
			} else {
				memspan.SetNext(prev, next)
			}
			cs.count--
		} else {
			prev = cur
		}
		cur = next
	}

	cs.spans.Remove(span.run.Base())
	if !c.strict {
		cs.groups /= 2
	}
	cs.reclaims++
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[central] class %d reclaim: %d pages back to page tier\n",
			idx, span.run.Len()/format.PageSize)
	}
	return c.pages.DeallocatePages(span.run)
}

// registerAllocated routes a block popped off the free list to its owning
// span. Caller holds the class lock.
func (c *Cache) registerAllocated(cs *classState, addr uintptr, size int) error {
	span, err := c.spanOf(cs, addr, size)
	if err != nil {
		return err
	}
	return span.allocate(addr)
}

// spanOf finds the span owning addr: the greatest span base at or below it,
// extent-checked. Caller holds the class lock.
func (c *Cache) spanOf(cs *classState, addr uintptr, size int) (*pageSpan, error) {
	if cs.spans == nil {
		return nil, ErrForeignBlock
	}
	_, spanVal := cs.spans.Floor(addr)
	if spanVal == nil {
		return nil, ErrForeignBlock
	}
	span := spanVal.(*pageSpan)
	if !span.owns(addr) || span.unitSize != size {
		return nil, ErrForeignBlock
	}
	return span, nil
}

// pageAllocateCount decides a refill's page count. Strict mode sizes spans
// to the bitmap exactly. Lean mode requests a growing number of 256 KiB
// groups per miss, floored so the requested chain always fits. Caller
// holds the class lock.
func (c *Cache) pageAllocateCount(cs *classState, size, count int) int {
	if c.strict {
		return format.PagesFor(size * format.BitmapCapacity)
	}
	groups := cs.groups
	if groups < 1 {
		groups = 1
	}
	cs.groups = groups + 1

	pages := format.PagesFor(groups * format.BucketWatermark)
	if need := format.PagesFor(count * size); pages < need {
		pages = need
	}
	return pages
}
