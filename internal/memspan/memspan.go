// Package memspan provides the raw-memory currency the tiers trade in: a
// Span is a base address plus a length, and a free block inside a span is a
// list node whose link field occupies the block's first word.
//
// Spans never own the memory they describe. The page cache owns mapped
// regions, the central cache owns spans in service, and a Span value is just
// a view that can be cut, compared, and turned back into a byte slice.
package memspan

import "unsafe"

// Span is a contiguous region of memory identified by base address and
// length. The zero Span is empty and has base 0.
type Span struct {
	base uintptr
	size int
}

// New builds a Span from a raw base address and length.
func New(base uintptr, size int) Span {
	return Span{base: base, size: size}
}

// FromBytes builds a Span covering exactly b. An empty slice yields the
// zero Span.
func FromBytes(b []byte) Span {
	if len(b) == 0 {
		return Span{}
	}
	return Span{base: uintptr(unsafe.Pointer(&b[0])), size: len(b)}
}

// Base returns the span's starting address.
func (s Span) Base() uintptr { return s.base }

// Len returns the span's length in bytes.
func (s Span) Len() int { return s.size }

// End returns the address one past the span's last byte.
func (s Span) End() uintptr { return s.base + uintptr(s.size) }

// IsZero reports whether s is the zero Span.
func (s Span) IsZero() bool { return s.base == 0 && s.size == 0 }

// Contains reports whether the region [base, base+size) lies entirely
// within s.
func (s Span) Contains(base uintptr, size int) bool {
	return base >= s.base && base+uintptr(size) <= s.End()
}

// Cut splits s at off bytes, returning the prefix [0, off) and the suffix
// [off, Len). off must be within the span.
func (s Span) Cut(off int) (prefix, suffix Span) {
	if off < 0 || off > s.size {
		panic("memspan: cut out of range")
	}
	return Span{base: s.base, size: off}, Span{base: s.base + uintptr(off), size: s.size - off}
}

// Bytes reinterprets the span as a byte slice. The caller must guarantee
// the underlying memory is still live.
func (s Span) Bytes() []byte {
	if s.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(s.base)), s.size)
}
