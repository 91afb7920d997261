package pool

import (
	"fmt"
	"os"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
	"github.com/joshuapare/mempool/pool/central"
)

// Runtime trace flag for swallowed deallocation errors - controlled by
// MEMPOOL_LOG_ALLOC env var.
var logPool = os.Getenv("MEMPOOL_LOG_ALLOC") != ""

// minBatch is the refill floor: a cold bucket still pulls four blocks so
// the very next misses are free.
const minBatch = 4

type bucket struct {
	head  uintptr
	count int
	batch int // refill hint: blocks to request on the next miss
}

// Local is one goroutine's front cache: a free list per size class with no
// synchronization whatsoever. Misses pull batches from the shared central
// tier; buckets that outgrow the watermark flush half their blocks back.
//
// A Local must not be shared between goroutines. Close flushes everything
// it still holds.
type Local struct {
	central *central.Cache
	buckets [format.NumClasses]bucket
	misses  int // bucket misses, i.e. central-tier pulls
	flushes int // watermark flushes
}

func newLocal(c *central.Cache) *Local {
	return &Local{central: c}
}

// Allocate returns a block of at least size bytes, rounded up to the word
// size. The returned slice's length is the rounded size.
func (l *Local) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	size = format.Align(size)

	if size > format.MaxSmall {
		head, err := l.central.Allocate(size, 1)
		if err != nil {
			return nil, err
		}
		return memspan.New(head, size).Bytes(), nil
	}

	b := &l.buckets[format.Index(size)]
	if b.head != 0 {
		node := b.head
		b.head = memspan.Next(node)
		b.count--
		return memspan.New(node, size).Bytes(), nil
	}
	return l.refill(b, size)
}

// refill pulls a batch from the central tier, keeps the chain head for the
// caller and splices the remainder onto the bucket.
func (l *Local) refill(b *bucket, size int) ([]byte, error) {
	batch := l.computeBatch(b, size)
	l.misses++
	head, err := l.central.Allocate(size, batch)
	if err != nil {
		return nil, err
	}

	// Walk to the chain's tail so the remainder can be linked in front of
	// whatever the bucket already holds. The walk also counts the chain;
	// if the central tier delivered short, the count wins over the request
	// so the bucket counter stays truthful.
	tail := head
	n := 1
	for memspan.Next(tail) != 0 {
		tail = memspan.Next(tail)
		n++
	}
	if n != batch && logPool {
		fmt.Fprintf(os.Stderr, "[pool] refill chain length %d, requested %d\n", n, batch)
	}
	memspan.SetNext(tail, b.head)
	b.head = memspan.Next(head)
	b.count += n - 1
	return memspan.New(head, size).Bytes(), nil
}

// Deallocate returns a block to its bucket. p must be exactly a slice some
// Allocate on the same pool returned. Nil or empty p is a no-op. Errors on
// the flush path cannot be surfaced to a caller of free; they are traced
// when MEMPOOL_LOG_ALLOC is set.
func (l *Local) Deallocate(p []byte) {
	if len(p) == 0 {
		return
	}
	size := format.Align(len(p))
	addr := memspan.FromBytes(p).Base()

	if size > format.MaxSmall {
		if err := l.central.Deallocate(addr, size); err != nil && logPool {
			fmt.Fprintf(os.Stderr, "[pool] unit deallocate: %v\n", err)
		}
		return
	}

	b := &l.buckets[format.Index(size)]
	memspan.SetNext(addr, b.head)
	b.head = addr
	b.count++

	if b.count*size > format.BucketWatermark {
		l.flush(b, size)
	}
}

// flush hands the front half of an overgrown bucket back to the central
// tier and halves the refill hint: the class is cooling.
func (l *Local) flush(b *bucket, size int) {
	n := b.count / 2
	if n == 0 {
		return
	}

	flushHead := b.head
	tail := flushHead
	for i := 0; i < n-1; i++ {
		next := memspan.Next(tail)
		if next == 0 {
			// The counter and the list disagree. Abort the flush; the
			// count stays wrong but no memory is corrupted.
			if logPool {
				fmt.Fprintf(os.Stderr, "[pool] flush aborted: bucket list shorter than count %d\n", b.count)
			}
			return
		}
		tail = next
	}
	b.head = memspan.Next(tail)
	memspan.SetNext(tail, 0)
	b.count -= n
	b.batch /= 2
	l.flushes++

	if err := l.central.Deallocate(flushHead, size); err != nil && logPool {
		fmt.Fprintf(os.Stderr, "[pool] flush: %v\n", err)
	}
}

// computeBatch returns the batch to request now and doubles the stored
// hint, clamped so one refill can neither exceed the central tier's batch
// cap nor immediately trip the watermark.
func (l *Local) computeBatch(b *bucket, size int) int {
	batch := b.batch
	if batch < minBatch {
		batch = minBatch
	}

	next := batch * 2
	if ceiling := l.central.MaxBatch(); next > ceiling {
		next = ceiling
	}
	if limit := format.BucketWatermark / size / 2; next > limit {
		next = limit
	}
	b.batch = next
	return batch
}

// Close flushes every bucket back to the central tier. The Local is
// reusable afterwards but empty. Called by the façade's finalizer when a
// pooled cache is dropped, and by workers on the way out.
func (l *Local) Close() {
	for i := range l.buckets {
		b := &l.buckets[i]
		if b.head == 0 {
			continue
		}
		head := b.head
		b.head = 0
		b.count = 0
		if err := l.central.Deallocate(head, format.BlockSize(i)); err != nil && logPool {
			fmt.Fprintf(os.Stderr, "[pool] close flush class %d: %v\n", i, err)
		}
	}
}
