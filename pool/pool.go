package pool

import (
	"runtime"
	"sync"

	"github.com/joshuapare/mempool/pool/central"
	"github.com/joshuapare/mempool/pool/pagecache"
)

// Pool wires the three tiers together: a set of Local front caches
// multiplexed over one central cache over one page cache.
type Pool struct {
	pages   *pagecache.Cache
	central *central.Cache
	locals  sync.Pool
}

type options struct {
	centralOpts []central.Option
}

// Option configures a Pool.
type Option func(*options)

// WithStrictAccounting selects debug-grade span accounting at the central
// tier; see central.WithStrictAccounting.
func WithStrictAccounting() Option {
	return func(o *options) {
		o.centralOpts = append(o.centralOpts, central.WithStrictAccounting())
	}
}

// New builds a pool with its own page and central tiers.
func New(opts ...Option) *Pool {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pages := pagecache.New()
	p := &Pool{
		pages:   pages,
		central: central.New(pages, o.centralOpts...),
	}
	p.locals.New = func() any {
		l := newLocal(p.central)
		// A cache dropped by the runtime must not take its blocks with
		// it: flush them back to the shared tier.
		runtime.SetFinalizer(l, (*Local).Close)
		return l
	}
	return p
}

// Allocate returns a block of at least size bytes from the calling
// goroutine's front cache.
func (p *Pool) Allocate(size int) ([]byte, error) {
	l := p.locals.Get().(*Local)
	buf, err := l.Allocate(size)
	p.locals.Put(l)
	return buf, err
}

// Deallocate returns a block obtained from Allocate on this pool. Nil or
// empty slices are a no-op.
func (p *Pool) Deallocate(buf []byte) {
	l := p.locals.Get().(*Local)
	l.Deallocate(buf)
	p.locals.Put(l)
}

// NewLocal hands out a dedicated front cache for a worker goroutine's hot
// loop, skipping the façade's multiplexing. The caller must Close it when
// the worker exits.
func (p *Pool) NewLocal() *Local {
	l := newLocal(p.central)
	runtime.SetFinalizer(l, (*Local).Close)
	return l
}

// PageStats snapshots the page tier.
func (p *Pool) PageStats() pagecache.Stats {
	return p.pages.Stats()
}

// ClassStats snapshots the central tier's class serving blockSize.
func (p *Pool) ClassStats(blockSize int) central.ClassStats {
	return p.central.ClassStats(blockSize)
}

// Close shuts the central tier, then releases every OS mapping the pool
// ever obtained. Idempotent. All blocks from this pool are invalid
// afterwards; retired Locals flushing late get ErrClosed instead of
// touching unmapped memory.
func (p *Pool) Close() error {
	_ = p.central.Close()
	return p.pages.Close()
}

// defaultPool serves the package-level façade for the life of the process.
var defaultPool = New()

// Default returns the process-wide pool behind the package-level façade.
func Default() *Pool {
	return defaultPool
}

// Allocate returns a block of at least size bytes from the default pool.
func Allocate(size int) ([]byte, error) {
	return defaultPool.Allocate(size)
}

// Deallocate returns a block to the default pool.
func Deallocate(buf []byte) {
	defaultPool.Deallocate(buf)
}
