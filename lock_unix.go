//go:build !windows

package meshes

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// fileLock implements Locker using flock() advisory locking on Unix systems.
type fileLock struct {
	file    *os.File
	timeout time.Duration
	locked  bool
}

// newFileLock opens (creating if needed) the lock file at path.
func newFileLock(path string, timeout time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &fileLock{file: file, timeout: timeout}, nil
}

// Lock acquires an exclusive advisory lock using non-blocking flock() polls.
func (l *fileLock) Lock() error {
	if l.locked {
		return nil
	}
	if l.file == nil {
		return fmt.Errorf("lock file already released")
	}

	err := pollLock(l.timeout, func() error {
		return syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	})
	if err != nil {
		return err
	}
	l.locked = true
	return nil
}

// Unlock releases the advisory lock and closes the file handle.
func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	var unlockErr error
	if l.locked {
		unlockErr = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		l.locked = false
	}
	l.file.Close()
	l.file = nil

	return unlockErr
}
