//go:build darwin

package meshes

import (
	"os"
	"path/filepath"
)

// defaultSnapshotDir returns where snapshots live on macOS, under
// Application Support.
func defaultSnapshotDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support", appName, "meshes"), nil
}
