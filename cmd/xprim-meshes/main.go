// Command xprim-meshes is a test CLI harness for the meshes package.
// It demonstrates the CLI integration and provides a working example.
//
// Configuration is loaded from environment variables:
//   - XPRIM_MESHES_CONFIG: Path to a YAML config file (optional)
//   - XPRIM_CONTENT_URL: Content root that meshes are fetched from (optional)
//   - XPRIM_MESHES_DIR: Override for data directory (optional)
//   - XPRIM_LOG_LEVEL: Log level, e.g. "debug" (optional, default "warning")
package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	meshes "github.com/prethora/xprim-meshes"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid command line arguments or config.
	ExitInvalidArgs = 2

	// ExitMeshNotFound indicates a mesh or snapshot was not found.
	ExitMeshNotFound = 3

	// ExitNetworkError indicates a network or connection failure.
	ExitNetworkError = 5

	// ExitInvalidData indicates mesh or snapshot data failed validation.
	ExitInvalidData = 6

	// ExitStorageError indicates a filesystem operation failed.
	ExitStorageError = 7
)

func main() {
	fc := meshes.FileConfig{AppName: "xprim"}
	if path := os.Getenv("XPRIM_MESHES_CONFIG"); path != "" {
		loaded, err := meshes.LoadConfigFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitInvalidArgs)
		}
		if loaded.AppName == "" {
			loaded.AppName = fc.AppName
		}
		fc = loaded
	}
	if url := os.Getenv("XPRIM_CONTENT_URL"); url != "" {
		fc.ContentURL = url
	}
	if level := os.Getenv("XPRIM_LOG_LEVEL"); level != "" {
		fc.LogLevel = level
	}

	logger, err := newLogger(fc.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitInvalidArgs)
	}

	opts, err := fc.Options()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitInvalidArgs)
	}
	opts = append(opts, meshes.WithLogger(meshes.NewLogrusLogger(logger)))

	// DataDir can be set via XPRIM_MESHES_DIR env var (handled by storage layer)
	cmd := meshes.NewCommand(fc.Config(), opts...)
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// newLogger creates a logrus logger writing prefixed text to stderr.
func newLogger(level string) (*log.Logger, error) {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})

	if level == "" {
		level = "warning"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	return l, nil
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, meshes.ErrMeshNotFound):
		return ExitMeshNotFound
	case errors.Is(err, meshes.ErrSnapshotNotFound):
		return ExitMeshNotFound
	case errors.Is(err, meshes.ErrNetworkError):
		return ExitNetworkError
	case errors.Is(err, meshes.ErrInvalidMesh):
		return ExitInvalidData
	case errors.Is(err, meshes.ErrInvalidSnapshot):
		return ExitInvalidData
	case errors.Is(err, meshes.ErrStorageError):
		return ExitStorageError
	case errors.Is(err, meshes.ErrInvalidName):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
