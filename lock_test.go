package meshes

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first, err := newFileLock(path, time.Second)
	if err != nil {
		t.Fatalf("newFileLock() error = %v", err)
	}
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock() while held error = %v", err)
	}

	second, err := newFileLock(path, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("newFileLock() error = %v", err)
	}
	if err := second.Lock(); err == nil {
		t.Fatal("second Lock() should time out while the first is held")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("second Unlock() error = %v", err)
	}
	if err := first.Lock(); err == nil {
		t.Error("Lock() after Unlock should fail")
	}

	if err := second.Lock(); err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	second.Unlock()
}

func TestPollLock(t *testing.T) {
	attempts := 0
	err := pollLock(time.Second, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("pollLock() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	start := time.Now()
	err = pollLock(20*time.Millisecond, func() error { return errors.New("busy") })
	if err == nil {
		t.Fatal("pollLock() should time out")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("pollLock() gave up after %v", elapsed)
	}
}
