// File operations for codec records.
//
// Load decodes, migrating in memory when needed. LoadAndMigrate does the
// same and writes a migrated value back under the current tag, so the next
// read is a direct match; a record that already matches is not rewritten.
// Migrate is LoadAndMigrate without the value.
package varia

import (
	"context"

	"go.uber.org/zap"
)

func loadRecord[T any](ctx context.Context, r *Runner, p port, t *Type[T], op, path string) (v T, err error) {
	ctx, end, err := r.begin(ctx, op, path)
	if err != nil {
		return v, err
	}
	defer end(&err)

	data, err := r.get(ctx, p, path)
	if err != nil {
		return v, err
	}
	res, err := t.Resolve(r.codec, data)
	if err != nil {
		return v, err
	}
	if res.Via != MigrateFromEdge {
		r.log.Debug("record loaded", zap.String("path", path), zap.Uint16("tag", uint16(res.Tag)))
		return res.Value, nil
	}
	if op == opLoad {
		r.log.Debug("record migrated in memory", zap.String("path", path),
			zap.Uint16("from", uint16(res.Tag)), zap.Uint16("tag", uint16(t.tag)))
		return res.Value, nil
	}

	rec, err := t.Encode(r.codec, res.Value)
	if err != nil {
		return v, err
	}
	if err := r.put(ctx, p, path, rec); err != nil {
		return v, err
	}
	r.metrics.migrated(res.Tag)
	r.log.Info("record migrated", zap.String("path", path),
		zap.Uint16("from", uint16(res.Tag)), zap.Uint16("tag", uint16(t.tag)))
	return res.Value, nil
}

func saveRecord[T any](ctx context.Context, r *Runner, p port, t *Type[T], path string, v T) (err error) {
	ctx, end, err := r.begin(ctx, opSave, path)
	if err != nil {
		return err
	}
	defer end(&err)

	rec, err := t.Encode(r.codec, v)
	if err != nil {
		return err
	}
	if err := r.put(ctx, p, path, rec); err != nil {
		return err
	}
	r.log.Debug("record saved", zap.String("path", path), zap.Uint16("tag", uint16(t.tag)))
	return nil
}

// Files performs blocking file operations for T.
type Files[T any] struct {
	r *Runner
	t *Type[T]
}

// Files binds t to r for blocking file operations.
func (t *Type[T]) Files(r *Runner) *Files[T] {
	return &Files[T]{r: r, t: t}
}

// Load reads and decodes the record at path.
func (f *Files[T]) Load(path string) (T, error) {
	return loadRecord(context.Background(), f.r, f.r.direct, f.t, opLoad, path)
}

// Save writes v to path under the current tag.
func (f *Files[T]) Save(path string, v T) error {
	return saveRecord(context.Background(), f.r, f.r.direct, f.t, path, v)
}

// LoadAndMigrate reads the record at path and rewrites it if it was
// migrated.
func (f *Files[T]) LoadAndMigrate(path string) (T, error) {
	return loadRecord(context.Background(), f.r, f.r.direct, f.t, opLoadAndMigrate, path)
}

// Migrate rewrites the record at path under the current tag if it was
// written by a prior variant.
func (f *Files[T]) Migrate(path string) error {
	_, err := loadRecord(context.Background(), f.r, f.r.direct, f.t, opMigrate, path)
	return err
}

// AsyncFiles performs file operations for T on the runner's worker pool.
type AsyncFiles[T any] struct {
	r *Runner
	t *Type[T]
}

// Async binds t to r for async file operations.
func (t *Type[T]) Async(r *Runner) *AsyncFiles[T] {
	return &AsyncFiles[T]{r: r, t: t}
}

func (f *AsyncFiles[T]) Load(ctx context.Context, path string) *Pending[T] {
	return spawn(func() (T, error) {
		return loadRecord(ctx, f.r, f.r.pooled, f.t, opLoad, path)
	})
}

func (f *AsyncFiles[T]) Save(ctx context.Context, path string, v T) *Pending[struct{}] {
	return spawn(func() (struct{}, error) {
		return struct{}{}, saveRecord(ctx, f.r, f.r.pooled, f.t, path, v)
	})
}

func (f *AsyncFiles[T]) LoadAndMigrate(ctx context.Context, path string) *Pending[T] {
	return spawn(func() (T, error) {
		return loadRecord(ctx, f.r, f.r.pooled, f.t, opLoadAndMigrate, path)
	})
}

func (f *AsyncFiles[T]) Migrate(ctx context.Context, path string) *Pending[struct{}] {
	return spawn(func() (struct{}, error) {
		_, err := loadRecord(ctx, f.r, f.r.pooled, f.t, opMigrate, path)
		return struct{}{}, err
	})
}
