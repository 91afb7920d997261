package memspan

import "unsafe"

// A free block doubles as a singly-linked list node: its first word holds
// the address of the next free block of the same class, or 0 at the tail.
// The moment a block is handed to a caller it stops being a node and the
// link word becomes ordinary payload.
//
// These helpers only ever touch memory the pool owns (mapped regions or
// pinned unit buffers), so the uintptr round-trips stay valid.

// SetNext stores next into the link word of the block at addr.
func SetNext(addr, next uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = next
}

// Next loads the link word of the block at addr.
func Next(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// ChainLen walks a chain from head to its nil terminator and returns the
// node count. Used by consistency checks when handing chains between tiers.
func ChainLen(head uintptr) int {
	n := 0
	for cur := head; cur != 0; cur = Next(cur) {
		n++
	}
	return n
}
