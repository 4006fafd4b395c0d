package meshes

import (
	"strings"
	"time"
)

// DefaultContentURL is the content root used when Config.ContentURL is empty.
const DefaultContentURL = "assets_web/mesh/"

// meshFileSuffix is appended to a mesh name to form its fetch address.
const meshFileSuffix = "_mesh.json"

// Config configures the meshes module.
type Config struct {
	// AppName determines the storage directory name.
	// Example: "xprim" → ~/.local/share/xprim/meshes/ on Linux
	AppName string

	// ContentURL is the content root that mesh files are fetched from.
	// HTTP(S) roots are fetched over the network, anything else is read
	// from the local filesystem.
	// Example: "https://cdn.example.com/assets_web/mesh/"
	ContentURL string

	// DataDir overrides the default data directory.
	// If empty, uses platform-appropriate default.
	// Can also be set via environment variable: <APPNAME>_MESHES_DIR
	DataDir string
}

// ContextID identifies a render context.
type ContextID int

// PrimitiveHandle identifies a primitive created by a Renderer.
// The zero value means no primitive.
type PrimitiveHandle uint64

// MeshStump describes a mesh before it is loaded: its name and the render
// context it should be uploaded to.
type MeshStump struct {
	// Name is the mesh name, e.g. "teapot". It also names the file
	// "<ContentURL>teapot_mesh.json".
	Name string

	// ContextID is the render context the primitive will be created in.
	ContextID ContextID

	// Camera is an optional camera carried over to the loaded model.
	Camera *Camera
}

// Camera is a camera reference attached to a model.
type Camera struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	Up       [3]float32 `json:"up"`
	FOV      float32    `json:"fov"`
}

// MeshData holds flat geometry streams.
// Coords and Normals have 3 floats per vertex, UVs 2 floats per vertex,
// and Indices 3 entries per triangle.
type MeshData struct {
	Coords  []float32 `json:"coords"`
	Normals []float32 `json:"normals"`
	UVs     []float32 `json:"uvs"`
	Indices []uint32  `json:"indices"`
}

// VertexCount returns the number of vertices.
func (d MeshData) VertexCount() int {
	return len(d.Coords) / 3
}

// TriangleCount returns the number of triangles.
func (d MeshData) TriangleCount() int {
	return len(d.Indices) / 3
}

// Primitive tracks the GPU side of a mesh.
type Primitive struct {
	// Built reports whether a renderer has created the primitive.
	Built bool

	// Handle is the renderer handle. Valid only while Built is true.
	Handle PrimitiveHandle

	// ContextID is the render context whose renderer owns Handle.
	ContextID ContextID

	// Description is what the primitive was created from.
	Description *PrimitiveDescription
}

// Mesh is a mesh payload: geometry, GPU primitive and bounding box.
type Mesh struct {
	Name      string
	Data      MeshData
	Primitive Primitive
	BBox      BoundingBox
}

// Model is a named handle to a mesh. While the mesh is still loading, Mesh
// points at the placeholder.
type Model struct {
	Name   string
	Mesh   *Mesh
	Camera *Camera

	// pending is true while Mesh is the placeholder awaiting upload.
	pending bool

	// requestID identifies the fetch a pending model waits for. Payloads
	// carrying another request id are stale.
	requestID string

	// contextID is the render context a pending model will be uploaded to.
	contextID ContextID
}

// accepts reports whether a payload tagged requestID may finish the model.
// Untagged payloads, delivered by custom fetch mechanisms, match any
// pending request.
func (m *Model) accepts(requestID string) bool {
	return m.pending && (requestID == "" || requestID == m.requestID)
}

// Pending reports whether the model still holds its placeholder mesh.
func (m *Model) Pending() bool {
	return m.pending
}

// Payload is a downloaded mesh waiting on the ready queue.
type Payload struct {
	// Name is the mesh name the payload was requested under.
	Name string

	// ContextID is the render context the payload must be uploaded to.
	ContextID ContextID

	// Ready marks the payload as eligible for ProcessReady.
	Ready bool

	// RequestID identifies the fetch that produced the payload. Only the
	// latest request for a name can finish it. Empty matches any request.
	RequestID string

	// Data is the decoded geometry.
	Data MeshData
}

// Listener is notified after a mesh has been uploaded.
type Listener interface {
	OnMeshLoaded(name string)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(name string)

// OnMeshLoaded calls f(name).
func (f ListenerFunc) OnMeshLoaded(name string) {
	f(name)
}

// Stats is a point-in-time view of the manager's counters.
type Stats struct {
	// Models is the number of names in the model mapping.
	Models int

	// InFlight is the number of names still bound to a placeholder.
	InFlight int

	// Queued is the number of payloads waiting for ProcessReady.
	Queued int
}

// SnapshotInfo describes a snapshot in local storage.
type SnapshotInfo struct {
	// Name is the snapshot name.
	Name string `json:"name"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModifiedAt is when the snapshot was last written.
	ModifiedAt time.Time `json:"modified_at"`

	// Path is the absolute path to the snapshot file.
	Path string `json:"path"`
}

// validateName rejects names that cannot form a fetch address or a
// snapshot file name.
func validateName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
