//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package archive

import (
	"os"

	"golang.org/x/sys/unix"
)

// region is a shared read-write mapping of a whole file. Stores into data
// reach the file through the page cache.
type region struct {
	data []byte
}

func mapRegion(f *os.File, size int) (*region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &region{data: data}, nil
}

func (r *region) flush() error {
	return unix.Msync(r.data, unix.MS_SYNC)
}

func (r *region) unmap() error {
	data := r.data
	r.data = nil
	return unix.Munmap(data)
}
