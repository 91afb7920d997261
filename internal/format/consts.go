// Package format houses the compile-time geometry of the pool: page and
// block sizing, size-class math, and alignment helpers. The goal is to keep
// the arithmetic in one allocation-free place so the tier packages can stay
// focused on list and lock management.
package format

import "unsafe"

const (
	// WordSize is the pointer width of the target, in bytes. It is both the
	// minimum block size and the alignment of every block the pool hands
	// out: a free block stores its list link in its first word, so nothing
	// smaller is representable.
	WordSize = int(unsafe.Sizeof(uintptr(0)))

	// PageSize is the unit of the page tier. Runs handed between the page
	// cache and the central cache are always whole pages and page-aligned.
	PageSize = 4096

	// MaxSmall is the largest block served by the tiered caches. Requests
	// above this bypass the buckets entirely and go straight to the unit
	// path at the page tier.
	MaxSmall = 16 * 1024

	// NumClasses is the number of size classes. Class i serves blocks of
	// exactly (i+1)*WordSize bytes, so the classes cover every multiple of
	// the word size up to and including MaxSmall.
	NumClasses = MaxSmall / WordSize

	// BucketWatermark is the per-bucket byte ceiling at the thread tier.
	// Once count*blockSize exceeds it, half the bucket flushes to the
	// central cache. It is also the "group" unit of the lean refill policy.
	BucketWatermark = 256 * 1024

	// BatchPages is the minimum page count requested from the OS in one
	// mapping (8 MiB). Amortizes syscall cost over many refills.
	BatchPages = 2048

	// BitmapCapacity is the per-span block capacity of the strict
	// accounting variant: one bit per word in a page. It caps both the
	// usable blocks per strict span and the batch size of a single central
	// cache allocation in strict mode.
	BitmapCapacity = PageSize / WordSize

	alignMask = WordSize - 1
	pageMask  = PageSize - 1
)

// Align returns n rounded up to the next multiple of the word size.
// Align(0) is 0; sizes must be checked for zero before classing.
//
// Example:
//
//	Align(1)  = 8
//	Align(8)  = 8
//	Align(9)  = 16
func Align(n int) int {
	return (n + alignMask) & ^alignMask
}

// AlignPages returns n rounded up to the next multiple of the page size.
//
// Example:
//
//	AlignPages(1)    = 4096
//	AlignPages(4096) = 4096
//	AlignPages(4097) = 8192
func AlignPages(n int) int {
	return (n + pageMask) & ^pageMask
}

// PagesFor returns the number of whole pages needed to hold n bytes.
func PagesFor(n int) int {
	return AlignPages(n) / PageSize
}

// Index maps an already word-aligned size to its size class.
// Index(8) = 0, Index(16) = 1, ..., Index(MaxSmall) = NumClasses-1.
func Index(size int) int {
	return size/WordSize - 1
}

// BlockSize is the inverse of Index: the exact byte size served by class i.
func BlockSize(index int) int {
	return (index + 1) * WordSize
}
