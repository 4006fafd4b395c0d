package meshes

import "errors"

// Sentinel errors for mesh management operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrMeshNotFound indicates the content root has no file for the mesh.
	ErrMeshNotFound = errors.New("meshes: mesh not found")

	// ErrFetchFailed indicates the content server answered with a
	// non-success status.
	ErrFetchFailed = errors.New("meshes: fetch failed")

	// ErrNetworkError indicates a network or connection failure.
	ErrNetworkError = errors.New("meshes: network error")

	// ErrInvalidMesh indicates fetched mesh data does not match the mesh
	// file schema. Returned errors are usually a *SchemaError.
	ErrInvalidMesh = errors.New("meshes: invalid mesh data")

	// ErrInvalidSnapshot indicates a snapshot could not be imported.
	// Nothing from the snapshot is merged when this is returned.
	ErrInvalidSnapshot = errors.New("meshes: invalid snapshot")

	// ErrInvalidName indicates an empty or malformed mesh or snapshot name.
	ErrInvalidName = errors.New("meshes: invalid name")

	// ErrUnknownContext indicates no renderer is attached for a context id.
	ErrUnknownContext = errors.New("meshes: unknown render context")

	// ErrSnapshotNotFound indicates the named snapshot is not stored locally.
	ErrSnapshotNotFound = errors.New("meshes: snapshot not found")

	// ErrStorageError indicates a filesystem operation failed.
	ErrStorageError = errors.New("meshes: storage error")

	// ErrClosed indicates the manager has been closed.
	ErrClosed = errors.New("meshes: manager closed")
)

// SchemaError reports where mesh or snapshot data departs from the
// expected shape.
type SchemaError struct {
	// Field is the JSON path of the offending value, e.g. "root.data.coords".
	Field string

	// Reason describes the mismatch.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return ErrInvalidMesh.Error() + ": " + e.Reason
	}
	return ErrInvalidMesh.Error() + ": " + e.Field + ": " + e.Reason
}

// Unwrap makes errors.Is(err, ErrInvalidMesh) hold for schema errors.
func (e *SchemaError) Unwrap() error {
	return ErrInvalidMesh
}
