//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package archive

import (
	"io"
	"os"
)

// region holds the file contents in memory and writes them back on flush.
type region struct {
	f    *os.File
	data []byte
}

func mapRegion(f *os.File, size int) (*region, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, int64(size)), data); err != nil {
		return nil, err
	}
	return &region{f: f, data: data}, nil
}

func (r *region) flush() error {
	if _, err := r.f.WriteAt(r.data, 0); err != nil {
		return err
	}
	return r.f.Sync()
}

func (r *region) unmap() error {
	r.data = nil
	return nil
}
