// Exclusive mapped handles.
//
// Map opens a file read-write, takes an exclusive lock on it without
// waiting, maps it, and validates the archive that follows an optional
// header. The handle is the only writer for as long as it is open.
// Mutation changes scalar contents in place and never moves or resizes
// anything, so the region stays valid without revalidation.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	flatbuffers "github.com/google/flatbuffers/go"
)

// ErrClosed reports use of a closed exclusive handle.
var ErrClosed = errors.New("archive: handle is closed")

// MapOptions describes what precedes the archive in the file.
type MapOptions struct {
	// Offset is the number of header bytes before the archive.
	Offset int
	// Check, when set, is called with the header bytes before the archive
	// is validated. An error aborts Map.
	Check func(header []byte) error
}

// Exclusive is a locked, memory mapped archive file.
type Exclusive[T, V any] struct {
	mu     sync.RWMutex // readers share; Mutate, Flush and Close are exclusive
	file   *os.File
	lock   *fileLock
	region *region
	body   []byte
	root   flatbuffers.UOffsetT
	layout *Layout[T, V]
	closed bool
}

// Map opens path as an exclusive handle. It fails with ErrLocked when
// another handle holds the file.
func Map[T, V any](path string, l *Layout[T, V], opts MapOptions) (*Exclusive[T, V], error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return MapFile(f, l, opts)
}

// MapFile is Map for a file the caller has already opened read-write. The
// handle takes ownership of f; it is closed when MapFile fails or when the
// handle is closed.
func MapFile[T, V any](f *os.File, l *Layout[T, V], opts MapOptions) (*Exclusive[T, V], error) {
	lock := &fileLock{f: f}
	if err := lock.TryLock(); err != nil {
		f.Close()
		return nil, err
	}

	x := &Exclusive[T, V]{file: f, lock: lock, layout: l}
	if err := x.attach(opts); err != nil {
		x.release()
		return nil, err
	}
	return x, nil
}

func (x *Exclusive[T, V]) attach(opts MapOptions) error {
	info, err := x.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if opts.Offset < 0 || size <= int64(opts.Offset) {
		return fmt.Errorf("%w: file of %d bytes has no archive after offset %d", ErrInvalid, size, opts.Offset)
	}
	if int64(int(size)) != size {
		return fmt.Errorf("%w: file of %d bytes too large to map", ErrInvalid, size)
	}
	r, err := mapRegion(x.file, int(size))
	if err != nil {
		return err
	}
	x.region = r

	if opts.Check != nil {
		if err := opts.Check(r.data[:opts.Offset]); err != nil {
			return err
		}
	}
	x.body = r.data[opts.Offset:]
	x.root, err = Validate(x.body, x.layout.Schema)
	return err
}

// Archive returns a read-only view of the mapped archive. The view and
// any strings or bytes read from it point into the mapping and must not be
// used after Close; use Read when Close may run concurrently. After Close
// Archive returns a view with no fields.
func (x *Exclusive[T, V]) Archive() V {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return x.layout.View(Table{})
	}
	return x.layout.View(newTable(x.body, x.root, false))
}

// Read calls fn with a read-only view and holds off Close until fn
// returns. Values fn copies out stay valid.
func (x *Exclusive[T, V]) Read(fn func(V) error) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return ErrClosed
	}
	return fn(x.layout.View(newTable(x.body, x.root, false)))
}

// Mutate calls fn with a writable view. Calls are serialised. Changes are
// visible to the file immediately and durable after Flush or Close.
func (x *Exclusive[T, V]) Mutate(fn func(V) error) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	return fn(x.layout.View(newTable(x.body, x.root, true)))
}

// Deserialize returns an owned copy of the current contents.
func (x *Exclusive[T, V]) Deserialize() (T, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		var zero T
		return zero, ErrClosed
	}
	return x.layout.Own(x.layout.View(newTable(bytes.Clone(x.body), x.root, false))), nil
}

// Flush writes mutations through to the file.
func (x *Exclusive[T, V]) Flush() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	return x.region.flush()
}

// Close flushes, unmaps, unlocks and closes the file. Closing twice is a
// no-op.
func (x *Exclusive[T, V]) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	err := x.region.flush()
	return errors.Join(err, x.release())
}

func (x *Exclusive[T, V]) release() error {
	var errs []error
	if x.region != nil {
		errs = append(errs, x.region.unmap())
		x.region = nil
	}
	x.body = nil
	errs = append(errs, x.lock.Release())
	return errors.Join(errs...)
}
