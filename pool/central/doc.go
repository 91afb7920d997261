// Package central implements the pool's shared middle tier.
//
// # Overview
//
// The central cache keeps one free list per size class and batches blocks
// between thread-tier buckets and the page tier. A refill pulls a whole
// page-run from the page cache, carves it into blocks, hands the requested
// chain to the caller and parks the rest on the class free list. A
// deallocation pushes returned blocks back onto that list and routes each
// one to the span record that owns it; the moment a span reports no block
// outstanding, its page-run is swept off the free list and returned to the
// page tier.
//
// # Span accounting
//
// Every page-run in service has a span record tracking how many of its
// blocks are handed out. Two grades exist:
//
//   - lean (default): a bare counter. No per-block state, no batch cap.
//   - strict (WithStrictAccounting): a per-block bitmap that detects
//     double allocation, double free, and foreign or misaligned pointers.
//     Capacity is one page worth of words (512 blocks), which also caps a
//     single batch.
//
// Blocks parked on the free list during a refill are deliberately never
// registered with the span: "empty" means nothing handed out, not
// everything returned.
//
// # Refill sizing
//
// In lean mode each class starts at one 256 KiB group per refill and grows
// by a group on every miss; a reclaim halves the counter. Strict mode
// always sizes a refill to exactly the bitmap capacity. Together with the
// thread tier's doubling hint this is the pool's one adaptive control loop.
//
// # Concurrency
//
// Each class has its own test-and-set spinlock and threads touching
// different classes never contend. The page cache mutex nests strictly
// inside a class lock; the page tier never calls back up.
package central
