// Versioned archive types.
//
// Archived is the zero-copy counterpart of Type. Records are framed with
// the two byte header and their body is validated and viewed in place.
// A record from a prior variant is opened with that variant's layout,
// converted, and re-encoded under the current tag, so callers always get a
// handle of the current layout.
package varia

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jpl-au/varia/archive"
)

// ArchiveEdge migrates one prior archive variant into T.
type ArchiveEdge[T any] struct {
	from   Tag
	decode func(body []byte) (T, error)
}

// ArchiveFrom returns the edge that opens records of prior and converts
// their owned value with convert.
func ArchiveFrom[P, PV, T any](prior *Archived[P, PV], convert func(P) T) ArchiveEdge[T] {
	return ArchiveEdge[T]{
		from: prior.tag,
		decode: func(body []byte) (T, error) {
			h, err := archive.Open(body, prior.layout)
			if err != nil {
				var zero T
				return zero, fmt.Errorf("%w: %w", ErrParsingFailed, err)
			}
			return convert(h.Deserialize()), nil
		},
	}
}

// ArchiveResolved is an opened archive together with how it was obtained.
// After a migration Record holds the re-encoded record to persist.
type ArchiveResolved[T, V any] struct {
	Handle *archive.Handle[T, V]
	Tag    Tag
	Via    Resolution
	Record []byte
}

// Archived is the current variant of a versioned archive type.
type Archived[T, V any] struct {
	tag    Tag
	layout *archive.Layout[T, V]
	edges  map[Tag]ArchiveEdge[T]
	order  []Tag
}

// RegisterArchive declares layout as the variant tagged tag, readable from
// each edge's prior variant. Duplicate tags are ErrDuplicateTag.
func RegisterArchive[T, V any](tag Tag, layout *archive.Layout[T, V], edges ...ArchiveEdge[T]) (*Archived[T, V], error) {
	a := &Archived[T, V]{tag: tag, layout: layout, edges: make(map[Tag]ArchiveEdge[T], len(edges))}
	for _, e := range edges {
		if e.from == tag {
			return nil, fmt.Errorf("%w: edge from %d is the current tag", ErrDuplicateTag, e.from)
		}
		if _, ok := a.edges[e.from]; ok {
			return nil, fmt.Errorf("%w: two edges from %d", ErrDuplicateTag, e.from)
		}
		a.edges[e.from] = e
		a.order = append(a.order, e.from)
	}
	return a, nil
}

// MustRegisterArchive is like RegisterArchive but panics on error.
func MustRegisterArchive[T, V any](tag Tag, layout *archive.Layout[T, V], edges ...ArchiveEdge[T]) *Archived[T, V] {
	a, err := RegisterArchive(tag, layout, edges...)
	if err != nil {
		panic(err)
	}
	return a
}

// Tag returns the current variant's tag.
func (a *Archived[T, V]) Tag() Tag { return a.tag }

// Variants returns the current tag followed by the edges in registration
// order.
func (a *Archived[T, V]) Variants() []Tag {
	return append([]Tag{a.tag}, a.order...)
}

// Layout returns the current variant's layout.
func (a *Archived[T, V]) Layout() *archive.Layout[T, V] { return a.layout }

// Encode returns v as an archive record under the current tag.
func (a *Archived[T, V]) Encode(v T) ([]byte, error) {
	body, err := archive.Encode(a.layout, &v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return frame(a.tag, body), nil
}

// Decode opens data as the current variant, migrating it if it was written
// by a registered prior variant. The handle takes ownership of data.
func (a *Archived[T, V]) Decode(data []byte) (*archive.Handle[T, V], error) {
	r, err := a.Resolve(data)
	return r.Handle, err
}

// Resolve opens data like Decode and reports the tag found and whether a
// migration took place.
func (a *Archived[T, V]) Resolve(data []byte) (ArchiveResolved[T, V], error) {
	var r ArchiveResolved[T, V]
	tag, body, err := unframe(data)
	if err != nil {
		return r, err
	}
	r.Tag = tag

	if tag == a.tag {
		h, err := archive.Open(body, a.layout)
		if err != nil {
			return r, fmt.Errorf("%w: %w", ErrParsingFailed, err)
		}
		r.Handle, r.Via = h, DirectMatch
		return r, nil
	}

	e, ok := a.edges[tag]
	if !ok {
		return r, fmt.Errorf("%w: %d (current %d)", ErrVariantNotFound, tag, a.tag)
	}
	v, err := e.decode(body)
	if err != nil {
		return r, err
	}
	record, err := a.Encode(v)
	if err != nil {
		return r, err
	}
	h, err := archive.Open(record[HeaderSize:], a.layout)
	if err != nil {
		return r, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	r.Handle, r.Via, r.Record = h, MigrateFromEdge, record
	return r, nil
}

// Map opens the archive record file at path for in-place mutation. The
// record must already be of the current variant; migrate it first
// otherwise.
func (a *Archived[T, V]) Map(path string) (*archive.Exclusive[T, V], error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return a.MapFile(f)
}

// MapFile is Map for a record file already open read-write. The handle
// owns f from then on, including when MapFile fails.
func (a *Archived[T, V]) MapFile(f *os.File) (*archive.Exclusive[T, V], error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.Size() <= HeaderSize {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %d bytes", ErrFormatInvalid, f.Name(), info.Size())
	}

	x, err := archive.MapFile(f, a.layout, archive.MapOptions{
		Offset: HeaderSize,
		Check: func(header []byte) error {
			if tag := Tag(binary.LittleEndian.Uint16(header)); tag != a.tag {
				return fmt.Errorf("%w: %d (current %d); migrate before mapping", ErrVariantNotFound, tag, a.tag)
			}
			return nil
		},
	})
	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, archive.ErrInvalid):
		return nil, fmt.Errorf("%w: %s: %w", ErrParsingFailed, f.Name(), err)
	case errors.Is(err, ErrVariantNotFound), errors.Is(err, archive.ErrLocked):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
}
