// Directory-backed store.
//
// Each key is a file path relative to the store directory. All access goes
// through os.Root so a key can never resolve outside the directory, even
// via symlinks or "..". Parent directories are created on first write.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// FSOptions configures a directory store.
type FSOptions struct {
	Perm       os.FileMode // File mode for new records (default 0644)
	SyncWrites bool        // Call fsync after every write
}

// FS stores each record as a file under a directory.
type FS struct {
	root   *os.Root // Sandboxed filesystem access
	opts   FSOptions
	closed atomic.Bool
}

// OpenFS opens dir as a store, creating it if needed.
func OpenFS(dir string, opts FSOptions) (*FS, error) {
	if opts.Perm == 0 {
		opts.Perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, err
	}
	return &FS{root: root, opts: opts}, nil
}

// OpenFile opens the record file for key read-write, for callers that need
// the file itself such as memory mapping. The file is resolved inside the
// root like every other access. A missing file is ErrNotFound.
func (s *FS) OpenFile(key string) (*os.File, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	name, err := s.name(key)
	if err != nil {
		return nil, err
	}
	f, err := s.root.OpenFile(name, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

func (s *FS) Read(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	name, err := s.name(key)
	if err != nil {
		return nil, err
	}
	f, err := s.root.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *FS) Write(ctx context.Context, key string, data []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	name, err := s.name(key)
	if err != nil {
		return err
	}
	if err := s.parents(name); err != nil {
		return err
	}
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.opts.Perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if s.opts.SyncWrites {
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func (s *FS) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.root.Close()
}

func (s *FS) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *FS) name(key string) (string, error) {
	name := filepath.FromSlash(key)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Clean(name), nil
}

// parents creates each missing directory above name inside the root.
func (s *FS) parents(name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}
	var path string
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		path = filepath.Join(path, part)
		if err := s.root.Mkdir(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}
