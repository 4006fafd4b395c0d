//go:build linux

package meshes

import (
	"os"
	"path/filepath"
)

// defaultSnapshotDir returns where snapshots live on Linux:
// $XDG_DATA_HOME/<appName>/meshes, or ~/.local/share/<appName>/meshes.
func defaultSnapshotDir(appName string) (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName, "meshes"), nil
}
