package meshes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultLockTimeout is the default timeout for acquiring file locks.
const DefaultLockTimeout = 30 * time.Second

// snapshotExt is the file extension of stored snapshots.
const snapshotExt = ".json"

// storageInterface defines operations for local snapshot storage.
// Implemented by *storage for production and by in-memory fakes in tests.
type storageInterface interface {
	// snapshotPath returns the absolute path of a named snapshot.
	snapshotPath(name string) string

	// saveSnapshot atomically writes a snapshot under a cross-process lock.
	saveSnapshot(name string, data []byte) error

	// loadSnapshot reads a snapshot. Returns ErrSnapshotNotFound if absent.
	loadSnapshot(name string) ([]byte, error)

	// listSnapshots returns all stored snapshots sorted by name.
	listSnapshots() ([]SnapshotInfo, error)

	// removeSnapshot deletes a snapshot. Returns ErrSnapshotNotFound if absent.
	removeSnapshot(name string) error
}

// storage handles all local filesystem operations.
// Implements storageInterface.
type storage struct {
	// baseDir is the base directory for all storage operations.
	baseDir string

	// lockTimeout is the maximum duration to wait for file lock acquisition.
	lockTimeout time.Duration

	// mu protects concurrent in-process access to snapshot files.
	mu sync.RWMutex
}

// Ensure storage implements storageInterface.
var _ storageInterface = (*storage)(nil)

// envVarName constructs an environment variable name from the app name.
// Converts appName to uppercase and appends "_MESHES_DIR".
// Example: envVarName("xprim") returns "XPRIM_MESHES_DIR".
func envVarName(appName string) string {
	return strings.ToUpper(appName) + "_MESHES_DIR"
}

// newStorage creates a new storage instance for the given configuration.
func newStorage(cfg Config) (*storage, error) {
	var baseDir string

	// Priority: env var > Config.DataDir > platform default
	if envDir := os.Getenv(envVarName(cfg.AppName)); envDir != "" {
		baseDir = envDir
	} else if cfg.DataDir != "" {
		baseDir = cfg.DataDir
	} else {
		defaultDir, err := defaultSnapshotDir(cfg.AppName)
		if err != nil {
			return nil, fmt.Errorf("failed to get default data dir: %w", err)
		}
		baseDir = defaultDir
	}

	s := &storage{baseDir: baseDir, lockTimeout: DefaultLockTimeout}

	if err := s.ensureDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return s, nil
}

// snapshotDir returns the directory holding snapshots.
func (s *storage) snapshotDir() string {
	return filepath.Join(s.baseDir, "snapshots")
}

// snapshotPath returns the absolute path of a named snapshot.
func (s *storage) snapshotPath(name string) string {
	return filepath.Join(s.snapshotDir(), name+snapshotExt)
}

// saveSnapshot atomically writes a snapshot.
// Uses cross-process file locking to prevent concurrent writes from multiple processes.
func (s *storage) saveSnapshot(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(s.snapshotDir()); err != nil {
		return err
	}

	path := s.snapshotPath(name)
	lock, err := newFileLock(path+".lock", s.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: failed to create lock: %v", ErrStorageError, err)
	}
	if err := lock.Lock(); err != nil {
		lock.Unlock()
		return fmt.Errorf("%w: failed to acquire lock: %v", ErrStorageError, err)
	}
	defer lock.Unlock()

	return s.atomicWrite(path, data)
}

// loadSnapshot reads a snapshot.
func (s *storage) loadSnapshot(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.snapshotPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %q: %w", name, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}
	return data, nil
}

// listSnapshots returns all stored snapshots sorted by name.
func (s *storage) listSnapshots() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.snapshotDir())
	if errors.Is(err, os.ErrNotExist) {
		return []SnapshotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageError, err)
	}

	snapshots := []SnapshotInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != snapshotExt {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		snapshots = append(snapshots, SnapshotInfo{
			Name:       strings.TrimSuffix(entry.Name(), snapshotExt),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Path:       filepath.Join(s.snapshotDir(), entry.Name()),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots, nil
}

// removeSnapshot deletes a snapshot and its lock file.
func (s *storage) removeSnapshot(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.snapshotPath(name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("snapshot %q: %w", name, ErrSnapshotNotFound)
		}
		return fmt.Errorf("%w: failed to remove snapshot: %v", ErrStorageError, err)
	}
	os.Remove(path + ".lock")
	return nil
}

// atomicWrite writes data to a file using write-then-rename for atomicity.
func (s *storage) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrStorageError, err)
	}

	// Write to temp file first
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write temp file: %v", ErrStorageError, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrStorageError, err)
	}

	return nil
}

// ensureDir creates a directory and all parent directories if they don't exist.
func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorageError, path, err)
	}
	return nil
}
