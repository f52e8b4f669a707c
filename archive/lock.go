// OS-level file locking for exclusive mapped handles.
//
// fileLock wraps flock(2) / LockFileEx with a mutex that guards the file
// handle's lifetime. The mutex is held for the entire duration of the lock
// syscall so that Fd() cannot race with Close() on the same *os.File.
//
// Locks are exclusive and taken without waiting: a second Map of the same
// file, from this process or another, fails with ErrLocked instead of
// blocking.
package archive

import (
	"errors"
	"os"
	"sync"
)

// ErrLocked reports a file already held by another exclusive handle.
var ErrLocked = errors.New("archive: file is locked")

type fileLock struct {
	mu sync.Mutex
	f  *os.File
}

// TryLock acquires an exclusive lock, returning ErrLocked if another
// handle holds one.
func (l *fileLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	return l.lock()
}

// Release unlocks and closes the file. Releasing twice is a no-op.
func (l *fileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.unlock()
	err = errors.Join(err, l.f.Close())
	l.f = nil
	return err
}
