package central

import (
	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
)

const bitmapWords = format.BitmapCapacity / 64

// pageSpan is the accounting record for one page-run in service: which of
// its fixed-size blocks are currently handed out. The lean grade keeps only
// a counter; the strict grade adds a per-block bitmap that turns double
// hand-outs and double returns into errors instead of corruption.
type pageSpan struct {
	run      memspan.Span
	unitSize int

	// allocated is the number of blocks currently handed out. The empty
	// predicate is allocated == 0: blocks parked on the class free list
	// are never registered here.
	allocated int

	// bitmap, when non-nil, holds one bit per block slot. Strict grade only.
	bitmap *[bitmapWords]uint64
}

func newPageSpan(run memspan.Span, unitSize int, strict bool) *pageSpan {
	s := &pageSpan{run: run, unitSize: unitSize}
	if strict {
		s.bitmap = new([bitmapWords]uint64)
	}
	return s
}

// isEmpty reports whether no block of this span is handed out.
func (s *pageSpan) isEmpty() bool {
	return s.allocated == 0
}

// owns reports whether addr starts a correctly aligned block slot fully
// inside the span.
func (s *pageSpan) owns(addr uintptr) bool {
	return s.run.Contains(addr, s.unitSize) &&
		(addr-s.run.Base())%uintptr(s.unitSize) == 0
}

// slot maps a block base to its bitmap index. Caller has checked owns.
func (s *pageSpan) slot(addr uintptr) int {
	return int((addr - s.run.Base()) / uintptr(s.unitSize))
}

// allocate records addr as handed out.
func (s *pageSpan) allocate(addr uintptr) error {
	if s.bitmap != nil {
		if !s.owns(addr) {
			return ErrForeignBlock
		}
		i := s.slot(addr)
		if i >= format.BitmapCapacity {
			return ErrForeignBlock
		}
		w, b := i/64, uint(i%64)
		if s.bitmap[w]>>b&1 == 1 {
			return ErrDoubleAlloc
		}
		s.bitmap[w] |= 1 << b
	}
	s.allocated++
	return nil
}

// deallocate records addr as returned.
func (s *pageSpan) deallocate(addr uintptr) error {
	if s.bitmap != nil {
		if !s.owns(addr) {
			return ErrForeignBlock
		}
		i := s.slot(addr)
		if i >= format.BitmapCapacity {
			return ErrForeignBlock
		}
		w, b := i/64, uint(i%64)
		if s.bitmap[w]>>b&1 == 0 {
			return ErrDoubleFree
		}
		s.bitmap[w] &^= 1 << b
	} else if s.allocated == 0 {
		return ErrDoubleFree
	}
	s.allocated--
	return nil
}
