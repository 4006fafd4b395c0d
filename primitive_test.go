package meshes

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNewPrimitiveDescription(t *testing.T) {
	d := triangleMesh()
	desc := newPrimitiveDescription(d)

	if len(desc.Streams) != 3 {
		t.Fatalf("Streams = %d, want 3", len(desc.Streams))
	}
	if len(desc.Streams[streamPosition]) != 9 || len(desc.Streams[streamNormal]) != 9 || len(desc.Streams[streamUV]) != 6 {
		t.Errorf("stream lengths = %d, %d, %d, want 9, 9, 6",
			len(desc.Streams[0]), len(desc.Streams[1]), len(desc.Streams[2]))
	}
	if len(desc.Indices) != 3 {
		t.Errorf("Indices = %d, want 3", len(desc.Indices))
	}
	if desc.IndexFormat != gputypes.IndexFormatUint32 {
		t.Errorf("IndexFormat = %v, want Uint32", desc.IndexFormat)
	}
	if desc.Topology != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("Topology = %v, want TriangleList", desc.Topology)
	}
	if desc.IndexUsage&gputypes.BufferUsageIndex == 0 {
		t.Error("IndexUsage should include Index")
	}
	for i, usage := range desc.StreamUsage {
		if usage&gputypes.BufferUsageVertex == 0 {
			t.Errorf("StreamUsage[%d] should include Vertex", i)
		}
	}

	wantStrides := []uint64{12, 12, 8}
	for i, layout := range desc.Layouts {
		if layout.ArrayStride != wantStrides[i] {
			t.Errorf("Layouts[%d].ArrayStride = %d, want %d", i, layout.ArrayStride, wantStrides[i])
		}
		if len(layout.Attributes) != 1 || layout.Attributes[0].ShaderLocation != uint32(i) {
			t.Errorf("Layouts[%d] attributes = %+v", i, layout.Attributes)
		}
	}
}

func TestVertexElementAliases(t *testing.T) {
	desc := newPrimitiveDescription(triangleMesh())

	want := map[string]int{
		"vert":        streamPosition,
		"a_pos":       streamPosition,
		"normal":      streamNormal,
		"a_norm":      streamNormal,
		"a_normal":    streamNormal,
		"texcoord":    streamUV,
		"a_texcoord":  streamUV,
		"a_texcoords": streamUV,
		"a_uv":        streamUV,
	}

	got := make(map[string]int)
	for _, e := range desc.Elements {
		got[e.Name] = e.Stream
	}
	for name, stream := range want {
		if s, ok := got[name]; !ok || s != stream {
			t.Errorf("element %q stream = %d (present %v), want %d", name, s, ok, stream)
		}
	}

	// Descriptions own their element slice.
	desc.Elements[0].Name = "changed"
	if vertexElements[0].Name != "vert" {
		t.Error("modifying a description changed the shared element table")
	}
}

func TestMemoryRenderer(t *testing.T) {
	r := NewMemoryRenderer()

	if _, err := r.CreatePrimitive(nil); err == nil {
		t.Error("CreatePrimitive(nil) should fail")
	}

	desc := newPrimitiveDescription(triangleMesh())
	h1, err := r.CreatePrimitive(desc)
	if err != nil {
		t.Fatalf("CreatePrimitive() error = %v", err)
	}
	h2, _ := r.CreatePrimitive(desc)
	if h1 == 0 || h1 == h2 {
		t.Errorf("handles = %d, %d, want distinct non-zero", h1, h2)
	}

	if got, ok := r.Primitive(h1); !ok || got != desc {
		t.Error("Primitive() should return the stored description")
	}

	if err := r.DeletePrimitive(h1); err != nil {
		t.Fatalf("DeletePrimitive() error = %v", err)
	}
	if err := r.DeletePrimitive(h1); err != nil {
		t.Fatalf("DeletePrimitive() of a released handle error = %v", err)
	}
	if err := r.DeletePrimitive(999); err != nil {
		t.Fatalf("DeletePrimitive() of an unknown handle error = %v", err)
	}

	if r.Len() != 1 || r.Created() != 2 || r.Deleted() != 1 {
		t.Errorf("Len/Created/Deleted = %d/%d/%d, want 1/2/1", r.Len(), r.Created(), r.Deleted())
	}
}
