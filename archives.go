// File operations for archive records.
//
// Same semantics as the codec record operations. A migrated record is
// already re-encoded by Resolve, so LoadAndMigrate writes those bytes and
// the returned handle views exactly what was persisted.
package varia

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jpl-au/varia/archive"
)

func loadArchive[T, V any](ctx context.Context, r *Runner, p port, a *Archived[T, V], op, path string) (h *archive.Handle[T, V], err error) {
	ctx, end, err := r.begin(ctx, op, path)
	if err != nil {
		return nil, err
	}
	defer end(&err)

	data, err := r.get(ctx, p, path)
	if err != nil {
		return nil, err
	}
	res, err := a.Resolve(data)
	if err != nil {
		return nil, err
	}
	if res.Via != MigrateFromEdge {
		r.log.Debug("archive loaded", zap.String("path", path), zap.Uint16("tag", uint16(res.Tag)))
		return res.Handle, nil
	}
	if op == opLoad {
		r.log.Debug("archive migrated in memory", zap.String("path", path),
			zap.Uint16("from", uint16(res.Tag)), zap.Uint16("tag", uint16(a.tag)))
		return res.Handle, nil
	}

	if err := r.put(ctx, p, path, res.Record); err != nil {
		return nil, err
	}
	r.metrics.migrated(res.Tag)
	r.log.Info("archive migrated", zap.String("path", path),
		zap.Uint16("from", uint16(res.Tag)), zap.Uint16("tag", uint16(a.tag)))
	return res.Handle, nil
}

func saveArchive[T, V any](ctx context.Context, r *Runner, p port, a *Archived[T, V], path string, v T) (err error) {
	ctx, end, err := r.begin(ctx, opSave, path)
	if err != nil {
		return err
	}
	defer end(&err)

	rec, err := a.Encode(v)
	if err != nil {
		return err
	}
	if err := r.put(ctx, p, path, rec); err != nil {
		return err
	}
	r.log.Debug("archive saved", zap.String("path", path), zap.Uint16("tag", uint16(a.tag)))
	return nil
}

// Archives performs blocking file operations for archive records.
type Archives[T, V any] struct {
	r *Runner
	a *Archived[T, V]
}

// Files binds a to r for blocking file operations.
func (a *Archived[T, V]) Files(r *Runner) *Archives[T, V] {
	return &Archives[T, V]{r: r, a: a}
}

// Load reads and opens the archive record at path.
func (f *Archives[T, V]) Load(path string) (*archive.Handle[T, V], error) {
	return loadArchive(context.Background(), f.r, f.r.direct, f.a, opLoad, path)
}

// Save writes v to path under the current tag.
func (f *Archives[T, V]) Save(path string, v T) error {
	return saveArchive(context.Background(), f.r, f.r.direct, f.a, path, v)
}

// LoadAndMigrate opens the record at path and rewrites it if it was
// migrated.
func (f *Archives[T, V]) LoadAndMigrate(path string) (*archive.Handle[T, V], error) {
	return loadArchive(context.Background(), f.r, f.r.direct, f.a, opLoadAndMigrate, path)
}

// Migrate rewrites the record at path under the current tag if it was
// written by a prior variant.
func (f *Archives[T, V]) Migrate(path string) error {
	_, err := loadArchive(context.Background(), f.r, f.r.direct, f.a, opMigrate, path)
	return err
}

// Map opens the record at path for in-place mutation. Only stores backed
// by plain files, such as the fs backend, support it.
func (f *Archives[T, V]) Map(path string) (*archive.Exclusive[T, V], error) {
	if f.r.closed.Load() {
		return nil, ErrClosed
	}
	fs, ok := f.r.store.(interface{ OpenFile(string) (*os.File, error) })
	if !ok {
		return nil, fmt.Errorf("varia: %T cannot map records: %w", f.r.store, errors.ErrUnsupported)
	}
	file, err := fs.OpenFile(path)
	if err != nil {
		return nil, f.r.storeErr(context.Background(), path, err)
	}
	return f.a.MapFile(file)
}

// AsyncArchives performs archive file operations on the runner's worker
// pool.
type AsyncArchives[T, V any] struct {
	r *Runner
	a *Archived[T, V]
}

// Async binds a to r for async file operations.
func (a *Archived[T, V]) Async(r *Runner) *AsyncArchives[T, V] {
	return &AsyncArchives[T, V]{r: r, a: a}
}

func (f *AsyncArchives[T, V]) Load(ctx context.Context, path string) *Pending[*archive.Handle[T, V]] {
	return spawn(func() (*archive.Handle[T, V], error) {
		return loadArchive(ctx, f.r, f.r.pooled, f.a, opLoad, path)
	})
}

func (f *AsyncArchives[T, V]) Save(ctx context.Context, path string, v T) *Pending[struct{}] {
	return spawn(func() (struct{}, error) {
		return struct{}{}, saveArchive(ctx, f.r, f.r.pooled, f.a, path, v)
	})
}

func (f *AsyncArchives[T, V]) LoadAndMigrate(ctx context.Context, path string) *Pending[*archive.Handle[T, V]] {
	return spawn(func() (*archive.Handle[T, V], error) {
		return loadArchive(ctx, f.r, f.r.pooled, f.a, opLoadAndMigrate, path)
	})
}

func (f *AsyncArchives[T, V]) Migrate(ctx context.Context, path string) *Pending[struct{}] {
	return spawn(func() (struct{}, error) {
		_, err := loadArchive(ctx, f.r, f.r.pooled, f.a, opMigrate, path)
		return struct{}{}, err
	})
}
