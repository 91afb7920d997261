package central

import (
	"runtime"
	"sync/atomic"
)

// spinLock is a test-and-set lock that yields the processor between failed
// attempts. Critical sections here are short (list splices and an ordered
// map probe), so spinning beats parking; the yield keeps a preempted holder
// from starving its waiters.
type spinLock struct {
	state atomic.Bool
}

func (l *spinLock) Lock() {
	for !l.state.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) Unlock() {
	l.state.Store(false)
}
