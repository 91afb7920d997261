package central

import "errors"

var (
	// ErrInvalidSize indicates a block size that is zero, negative, or not
	// word-aligned.
	ErrInvalidSize = errors.New("central: block size must be a positive word multiple")

	// ErrInvalidCount indicates a zero or negative block count, or a count
	// other than one on the large-block bypass.
	ErrInvalidCount = errors.New("central: invalid block count")

	// ErrBatchTooLarge indicates a strict-mode batch above the span bitmap
	// capacity.
	ErrBatchTooLarge = errors.New("central: batch exceeds span capacity")

	// ErrForeignBlock indicates a block that no span of its class owns, or
	// that is misaligned within its span.
	ErrForeignBlock = errors.New("central: block does not belong to any span of this class")

	// ErrDoubleAlloc indicates strict accounting caught a block handed out
	// twice.
	ErrDoubleAlloc = errors.New("central: block already allocated")

	// ErrDoubleFree indicates a block returned while not handed out.
	ErrDoubleFree = errors.New("central: block already free")

	// ErrClosed indicates use after the owning pool shut down. Returned
	// before any block memory is touched, so late flushes from retired
	// caches cannot walk unmapped spans.
	ErrClosed = errors.New("central: cache is closed")
)
