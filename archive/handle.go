package archive

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	flatbuffers "github.com/google/flatbuffers/go"
)

// ErrBuild reports a Layout whose Build function failed or produced a
// table that does not match its schema.
var ErrBuild = errors.New("archive: build failed")

// Layout binds the owned type T to its archived view V.
type Layout[T, V any] struct {
	Schema *Schema
	// Build writes v as a table and returns its offset. It must not call
	// Finish.
	Build func(b *flatbuffers.Builder, v *T) flatbuffers.UOffsetT
	// View wraps a validated table.
	View func(t Table) V
	// Own copies everything it needs out of the view.
	Own func(v V) T
}

// Encode serializes v. Build must write every scalar slot the schema
// declares, using the Put functions, so every slot of the result can be
// mutated in place. A table with a scalar slot missing fails with ErrBuild.
func Encode[T, V any](l *Layout[T, V], v *T) (out []byte, err error) {
	defer func() {
		// The builder panics on misuse such as nesting objects.
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrBuild, r)
		}
	}()
	b := flatbuffers.NewBuilder(256)
	b.Finish(l.Build(b, v))
	out = b.FinishedBytes()
	if _, err := validate(out, l.Schema, true); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	return out, nil
}

// Handle owns a validated buffer. The view is computed on first use and
// cached for the handle's lifetime.
type Handle[T, V any] struct {
	buf    []byte
	root   flatbuffers.UOffsetT
	layout *Layout[T, V]

	once sync.Once
	view V
}

// Open validates buf and takes ownership of it. The caller must not modify
// buf afterwards.
func Open[T, V any](buf []byte, l *Layout[T, V]) (*Handle[T, V], error) {
	root, err := Validate(buf, l.Schema)
	if err != nil {
		return nil, err
	}
	return &Handle[T, V]{buf: buf, root: root, layout: l}, nil
}

// Archive returns the read-only view.
func (h *Handle[T, V]) Archive() V {
	h.once.Do(func() {
		h.view = h.layout.View(newTable(h.buf, h.root, false))
	})
	return h.view
}

// Deserialize returns an owned copy that shares no memory with the handle.
func (h *Handle[T, V]) Deserialize() T {
	return h.layout.Own(h.layout.View(newTable(bytes.Clone(h.buf), h.root, false)))
}

// Bytes returns the archive bytes.
func (h *Handle[T, V]) Bytes() []byte { return h.buf }
