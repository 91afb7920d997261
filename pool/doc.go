// Package pool is a three-tier memory pool: per-goroutine caches over a
// shared central cache over a process-wide page cache, in the manner of
// thread-caching allocators.
//
// # Overview
//
// Allocate and Deallocate trade in []byte blocks whose length is the
// request rounded up to the word size. The hot path touches only the
// calling goroutine's cache - segregated free lists with no
// synchronization. Misses pull batches from the central tier, overflowing
// buckets flush half their blocks back, and spans that empty at the
// central tier return their pages to the page cache, which coalesces them
// toward whole OS mappings.
//
// Requests above 16 KiB bypass the tiers entirely and are served as
// pinned heap buffers through the page tier's unit path.
//
// # Usage
//
//	p := pool.New()
//	defer p.Close()
//
//	buf, err := p.Allocate(240)
//	if err != nil {
//	    return err
//	}
//	// ... use buf ...
//	p.Deallocate(buf)
//
// Deallocate must receive exactly the slice Allocate returned. The
// package-level Allocate and Deallocate forward to a process-wide default
// pool.
//
// # Local caches
//
// The façade multiplexes an internal set of caches so independent
// goroutines rarely contend. A worker with a hot allocation loop can skip
// that indirection entirely:
//
//	local := p.NewLocal()
//	defer local.Close() // flushes the buckets back to the shared tier
//
// A Local is not safe for concurrent use; it is the Go spelling of a
// thread-local cache, and Close is its thread-exit hook.
//
// # Adaptive batching
//
// Each bucket doubles its refill batch on every miss and halves it when a
// watermark flush shows the class has cooled; at the central tier, a span
// reclaim halves that class's refill group counter. Hot classes converge
// to O(log n) central-tier interactions per n allocations.
package pool
