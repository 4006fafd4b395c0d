//go:build linux

package meshes

import (
	"path/filepath"
	"testing"
)

func TestDefaultSnapshotDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	dir, err := defaultSnapshotDir("game")
	if err != nil {
		t.Fatalf("defaultSnapshotDir() error = %v", err)
	}
	if want := filepath.Join("/data", "game", "meshes"); dir != want {
		t.Errorf("defaultSnapshotDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/player")
	dir, err = defaultSnapshotDir("game")
	if err != nil {
		t.Fatalf("defaultSnapshotDir() error = %v", err)
	}
	if want := filepath.Join("/home/player", ".local", "share", "game", "meshes"); dir != want {
		t.Errorf("defaultSnapshotDir() = %q, want %q", dir, want)
	}
}
