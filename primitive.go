package meshes

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// Vertex stream indices of a mesh primitive.
const (
	streamPosition = 0
	streamNormal   = 1
	streamUV       = 2
)

// Byte strides of the vertex streams.
const (
	positionStride = 12 // float32x3
	normalStride   = 12 // float32x3
	uvStride       = 8  // float32x2
)

// Renderer creates and deletes GPU primitives for one render context.
type Renderer interface {
	// CreatePrimitive uploads the buffers described by desc and returns a
	// handle to the new primitive.
	CreatePrimitive(desc *PrimitiveDescription) (PrimitiveHandle, error)

	// DeletePrimitive releases a primitive. Unknown handles are ignored.
	DeletePrimitive(h PrimitiveHandle) error
}

// VertexElement maps a shader attribute name to a vertex stream.
type VertexElement struct {
	Name   string
	Stream int
	Format gputypes.VertexFormat
}

// PrimitiveDescription is everything a renderer needs to create a mesh
// primitive: vertex streams and their layouts, the index buffer, and usage
// hints.
type PrimitiveDescription struct {
	// Elements lists the attribute names shaders may bind, several names
	// per stream.
	Elements []VertexElement

	// Layouts holds one layout per stream, in stream order.
	Layouts []gputypes.VertexBufferLayout

	// Streams holds positions, normals and uvs, in that order.
	// Normal and uv streams may be empty.
	Streams [][]float32

	// StreamUsage holds the buffer usage for each stream.
	StreamUsage []gputypes.BufferUsage

	Indices     []uint32
	IndexFormat gputypes.IndexFormat
	IndexUsage  gputypes.BufferUsage
	Topology    gputypes.PrimitiveTopology
}

// vertexElements are the attribute names meshes expose to shaders.
var vertexElements = []VertexElement{
	{Name: "vert", Stream: streamPosition, Format: gputypes.VertexFormatFloat32x3},
	{Name: "a_pos", Stream: streamPosition, Format: gputypes.VertexFormatFloat32x3},
	{Name: "normal", Stream: streamNormal, Format: gputypes.VertexFormatFloat32x3},
	{Name: "a_norm", Stream: streamNormal, Format: gputypes.VertexFormatFloat32x3},
	{Name: "a_normal", Stream: streamNormal, Format: gputypes.VertexFormatFloat32x3},
	{Name: "texcoord", Stream: streamUV, Format: gputypes.VertexFormatFloat32x2},
	{Name: "a_texcoord", Stream: streamUV, Format: gputypes.VertexFormatFloat32x2},
	{Name: "a_texcoords", Stream: streamUV, Format: gputypes.VertexFormatFloat32x2},
	{Name: "a_uv", Stream: streamUV, Format: gputypes.VertexFormatFloat32x2},
}

// newPrimitiveDescription describes the primitive for d. The streams alias
// d's slices; mesh data is not mutated after upload.
func newPrimitiveDescription(d MeshData) *PrimitiveDescription {
	static := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst

	elements := make([]VertexElement, len(vertexElements))
	copy(elements, vertexElements)

	return &PrimitiveDescription{
		Elements: elements,
		Layouts: []gputypes.VertexBufferLayout{
			streamLayout(positionStride, gputypes.VertexFormatFloat32x3, streamPosition),
			streamLayout(normalStride, gputypes.VertexFormatFloat32x3, streamNormal),
			streamLayout(uvStride, gputypes.VertexFormatFloat32x2, streamUV),
		},
		Streams:     [][]float32{d.Coords, d.Normals, d.UVs},
		StreamUsage: []gputypes.BufferUsage{static, static, static},
		Indices:     d.Indices,
		IndexFormat: gputypes.IndexFormatUint32,
		IndexUsage:  gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		Topology:    gputypes.PrimitiveTopologyTriangleList,
	}
}

// streamLayout returns a single-attribute, per-vertex buffer layout.
func streamLayout(stride uint64, format gputypes.VertexFormat, location uint32) gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: format, Offset: 0, ShaderLocation: location},
		},
	}
}

// MemoryRenderer is a headless Renderer that keeps primitive descriptions
// in memory. It backs the CLI and is handy in tests.
type MemoryRenderer struct {
	mu         sync.Mutex
	next       PrimitiveHandle
	primitives map[PrimitiveHandle]*PrimitiveDescription
	created    int
	deleted    int
}

// Ensure MemoryRenderer implements Renderer.
var _ Renderer = (*MemoryRenderer)(nil)

// NewMemoryRenderer creates an empty MemoryRenderer.
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		primitives: make(map[PrimitiveHandle]*PrimitiveDescription),
	}
}

// CreatePrimitive stores desc under a new handle.
func (r *MemoryRenderer) CreatePrimitive(desc *PrimitiveDescription) (PrimitiveHandle, error) {
	if desc == nil {
		return 0, fmt.Errorf("creating primitive: nil description")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.primitives[r.next] = desc
	r.created++
	return r.next, nil
}

// DeletePrimitive forgets the primitive stored under h.
func (r *MemoryRenderer) DeletePrimitive(h PrimitiveHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.primitives[h]; ok {
		delete(r.primitives, h)
		r.deleted++
	}
	return nil
}

// Primitive returns the description stored under h.
func (r *MemoryRenderer) Primitive(h PrimitiveHandle) (*PrimitiveDescription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.primitives[h]
	return desc, ok
}

// Len returns the number of live primitives.
func (r *MemoryRenderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.primitives)
}

// Created returns how many primitives have been created.
func (r *MemoryRenderer) Created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

// Deleted returns how many primitives have been deleted.
func (r *MemoryRenderer) Deleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted
}
