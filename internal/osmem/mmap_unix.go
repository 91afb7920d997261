//go:build linux || darwin

package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// platformMapper maps anonymous private pages. The kernel guarantees the
// returned pages are zeroed and page-aligned.
type platformMapper struct{}

func (platformMapper) Map(size int) ([]byte, error) {
	data, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, fmt.Errorf("osmem: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

func (platformMapper) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("osmem: munmap: %w", err)
	}
	return nil
}
