package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/memspan"
)

func baseOf(b []byte) uintptr {
	return memspan.FromBytes(b).Base()
}

func TestPoolAllocateDeallocateRoundTrip(t *testing.T) {
	p := newTestPool(t)

	buf, err := p.Allocate(100)
	require.NoError(t, err)
	require.Len(t, buf, format.Align(100))

	// The block is caller memory until deallocated.
	for i := range buf {
		buf[i] = byte(i)
	}
	p.Deallocate(buf)
}

func TestPoolZeroSize(t *testing.T) {
	p := newTestPool(t)

	_, err := p.Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)
	p.Deallocate(nil) // no-op
}

func TestPoolNoSimultaneousAliasing(t *testing.T) {
	p := newTestPool(t, WithStrictAccounting())
	l := p.NewLocal()
	defer l.Close()

	live := map[uintptr][]byte{}
	var order []uintptr
	for i := 0; i < 2000; i++ {
		buf, err := l.Allocate(72)
		require.NoError(t, err)
		base := baseOf(buf)
		_, clash := live[base]
		require.False(t, clash, "block at %#x handed out twice", base)
		live[base] = buf
		order = append(order, base)
	}
	for _, base := range order {
		l.Deallocate(live[base])
	}
}

func TestPoolConcurrentFacade(t *testing.T) {
	p := newTestPool(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			sizes := []int{16, 72, 256, 1024, 8192}
			held := make([][]byte, 0, 64)
			for i := 0; i < 2000; i++ {
				size := sizes[(i+seed)%len(sizes)]
				buf, err := p.Allocate(size)
				if err != nil {
					errs <- err
					return
				}
				held = append(held, buf)
				if len(held) == 64 {
					for _, b := range held {
						p.Deallocate(b)
					}
					held = held[:0]
				}
			}
			for _, b := range held {
				p.Deallocate(b)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestPoolCloseIdempotent(t *testing.T) {
	p := New()

	buf, err := p.Allocate(64)
	require.NoError(t, err)
	p.Deallocate(buf)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestDefaultPoolFacade(t *testing.T) {
	buf, err := Allocate(200)
	require.NoError(t, err)
	require.Len(t, buf, format.Align(200))
	Deallocate(buf)

	require.Same(t, defaultPool, Default())
}
