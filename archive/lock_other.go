//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package archive

// No advisory locking on this platform; exclusivity holds within the
// process only through the caller.
func (l *fileLock) lock() error { return nil }

func (l *fileLock) unlock() error { return nil }

const advisoryLocks = false
