// Package pagecache implements the pool's page tier: the single process-wide
// owner of every OS-mapped region.
//
// # Overview
//
// The cache hands out runs of whole 4 KiB pages to the central tier and
// takes them back when spans empty. Internally it keeps two ordered views of
// the free pool:
//
//   - a size index (page count -> runs of exactly that length) answering
//     smallest-fit queries
//   - an address index answering neighbor queries for coalescing
//
// Freed runs coalesce eagerly with adjacent free runs of the same mapping,
// so the free pool converges back toward whole regions and later large
// requests are satisfiable without mapping more memory.
//
// # OS batching
//
// A miss maps max(requested, 2048) pages in one call — 8 MiB — and files the
// unused suffix as a free run, amortizing syscall cost over many refills.
//
// # Unit bypass
//
// Blocks above the small-allocation ceiling never touch the page pool.
// AllocateUnit takes them straight from the Go heap and pins the buffer in a
// registry so its address stays valid until DeallocateUnit releases it.
//
// # Concurrency
//
// One mutex guards all state. The page tier sits at the bottom of the lock
// order (central cache class lock, then this mutex) and never calls back
// into a higher tier.
package pagecache
