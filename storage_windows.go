//go:build windows

package meshes

import (
	"os"
	"path/filepath"
)

// defaultSnapshotDir returns where snapshots live on Windows:
// %APPDATA%\<appName>\meshes, falling back to the roaming profile.
func defaultSnapshotDir(appName string) (string, error) {
	base := os.Getenv("APPDATA")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "AppData", "Roaming")
	}
	return filepath.Join(base, appName, "meshes"), nil
}
