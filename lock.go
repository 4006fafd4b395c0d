package meshes

import (
	"fmt"
	"time"
)

// Locker provides mutual exclusion for snapshot files across processes.
type Locker interface {
	// Lock acquires an exclusive lock on the file.
	// Blocks until lock is acquired or timeout expires.
	Lock() error

	// Unlock releases the lock and closes the lock file.
	// Safe to call multiple times.
	Unlock() error
}

// Ensure fileLock implements Locker.
var _ Locker = (*fileLock)(nil)

// pollLock calls try until it succeeds or timeout expires, backing off
// from 10ms up to 100ms between attempts.
func pollLock(timeout time.Duration, try func() error) error {
	deadline := time.Now().Add(timeout)
	sleepDuration := 10 * time.Millisecond

	for {
		if err := try(); err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("lock timeout after %v", timeout)
		}

		time.Sleep(sleepDuration)
		if sleepDuration < 100*time.Millisecond {
			sleepDuration *= 2
		}
	}
}
