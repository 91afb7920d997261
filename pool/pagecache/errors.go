package pagecache

import "errors"

var (
	// ErrZeroPages indicates a page request for zero (or negative) pages.
	ErrZeroPages = errors.New("pagecache: page count must be positive")

	// ErrBadRun indicates a returned run whose base or length is not
	// page-aligned, or that is empty.
	ErrBadRun = errors.New("pagecache: run is not whole aligned pages")

	// ErrFreedRun indicates a returned run whose base is already tracked
	// as free.
	ErrFreedRun = errors.New("pagecache: run is already free")

	// ErrUnknownUnit indicates a unit release for an address that was never
	// handed out by AllocateUnit (or was already released).
	ErrUnknownUnit = errors.New("pagecache: unknown unit")

	// ErrInvalidSize indicates a unit request for zero or negative bytes.
	ErrInvalidSize = errors.New("pagecache: unit size must be positive")

	// ErrClosed indicates use after Close.
	ErrClosed = errors.New("pagecache: cache is closed")
)
