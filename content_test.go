package meshes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const teapotFile = `{
  "root": {
    "attribs": {"name": "teapot", "author": "ignored"},
    "data": {
      "coords": [0, 0, 0, 1, 0, 0, 0, 1, 0],
      "normals": [0, 0, 1, 0, 0, 1, 0, 0, 1],
      "uvs": [0, 0, 1, 0, 0, 1],
      "indices": [0, 1, 2]
    }
  }
}`

func TestMeshAddress(t *testing.T) {
	tests := []struct {
		root string
		name string
		want string
	}{
		{"assets_web/mesh/", "teapot", "assets_web/mesh/teapot_mesh.json"},
		{"assets_web/mesh", "teapot", "assets_web/mesh/teapot_mesh.json"},
		{"", "teapot", "teapot_mesh.json"},
		{"https://cdn.example.com/mesh/", "tea pot", "https://cdn.example.com/mesh/tea%20pot_mesh.json"},
		{"http://localhost:8080", "cube", "http://localhost:8080/cube_mesh.json"},
		{"file:///srv/mesh/", "cube", "file:///srv/mesh/cube_mesh.json"},
	}

	for _, tt := range tests {
		t.Run(tt.root+tt.name, func(t *testing.T) {
			if got := meshAddress(tt.root, tt.name); got != tt.want {
				t.Errorf("meshAddress(%q, %q) = %q, want %q", tt.root, tt.name, got, tt.want)
			}
		})
	}
}

func TestDecodeMeshFile(t *testing.T) {
	d, err := decodeMeshFile(strings.NewReader(teapotFile))
	if err != nil {
		t.Fatalf("decodeMeshFile() error = %v", err)
	}

	if d.VertexCount() != 3 {
		t.Errorf("VertexCount() = %d, want 3", d.VertexCount())
	}
	if d.TriangleCount() != 1 {
		t.Errorf("TriangleCount() = %d, want 1", d.TriangleCount())
	}
	if len(d.Normals) != 9 || len(d.UVs) != 6 {
		t.Errorf("normals = %d, uvs = %d, want 9, 6", len(d.Normals), len(d.UVs))
	}
}

func TestDecodeMeshFileInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{name: "empty", input: ""},
		{name: "not json", input: "<html>"},
		{name: "missing root", input: `{"other": {}}`, field: "root"},
		{name: "missing data", input: `{"root": {"attribs": {}}}`, field: "root.data"},
		{name: "wrong type", input: `{"root": {"data": {"coords": [0, "x", 0]}}}`},
		{name: "empty coords", input: `{"root": {"data": {"coords": []}}}`, field: "root.data.coords"},
		{name: "partial vertex", input: `{"root": {"data": {"coords": [0, 0, 0, 1]}}}`, field: "root.data.coords"},
		{name: "short normals", input: `{"root": {"data": {"coords": [0, 0, 0], "normals": [0, 1]}}}`, field: "root.data.normals"},
		{name: "long uvs", input: `{"root": {"data": {"coords": [0, 0, 0], "uvs": [0, 0, 0]}}}`, field: "root.data.uvs"},
		{name: "partial triangle", input: `{"root": {"data": {"coords": [0, 0, 0], "indices": [0, 0]}}}`, field: "root.data.indices"},
		{name: "index out of range", input: `{"root": {"data": {"coords": [0, 0, 0], "indices": [0, 0, 1]}}}`, field: "root.data.indices[2]"},
		{name: "trailing data", input: teapotFile + ` {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMeshFile(strings.NewReader(tt.input))
			if !errors.Is(err, ErrInvalidMesh) {
				t.Fatalf("decodeMeshFile() error = %v, want ErrInvalidMesh", err)
			}

			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("error %T is not a *SchemaError", err)
			}
			if tt.field != "" && schemaErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", schemaErr.Field, tt.field)
			}
		})
	}
}

func TestValidateMeshData(t *testing.T) {
	tests := []struct {
		name    string
		data    MeshData
		wantErr bool
	}{
		{name: "triangle", data: triangleMesh()},
		{name: "positions only", data: MeshData{Coords: []float32{1, 2, 3}}},
		{name: "point cloud", data: MeshData{Coords: []float32{0, 0, 0, 1, 1, 1}}},
		{name: "no coords", data: MeshData{}, wantErr: true},
		{name: "normals mismatch", data: MeshData{Coords: []float32{0, 0, 0}, Normals: []float32{0, 0, 1, 0, 0, 1}}, wantErr: true},
		{name: "uvs mismatch", data: MeshData{Coords: []float32{0, 0, 0}, UVs: []float32{0}}, wantErr: true},
		{name: "index out of range", data: MeshData{Coords: []float32{0, 0, 0}, Indices: []uint32{0, 0, 7}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMeshData("data", tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMeshData() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContentClientHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teapot_mesh.json":
			w.Write([]byte(teapotFile))
		case "/broken_mesh.json":
			w.Write([]byte(`{"root": {}}`))
		case "/busy_mesh.json":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newContentClient(server.Client(), nil)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		d, err := c.Fetch(ctx, meshAddress(server.URL, "teapot"))
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if d.TriangleCount() != 1 {
			t.Errorf("TriangleCount() = %d, want 1", d.TriangleCount())
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.Fetch(ctx, meshAddress(server.URL, "nothing"))
		if !errors.Is(err, ErrMeshNotFound) {
			t.Errorf("Fetch() error = %v, want ErrMeshNotFound", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		_, err := c.Fetch(ctx, meshAddress(server.URL, "busy"))
		if !errors.Is(err, ErrFetchFailed) {
			t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		_, err := c.Fetch(ctx, meshAddress(server.URL, "broken"))
		if !errors.Is(err, ErrInvalidMesh) {
			t.Errorf("Fetch() error = %v, want ErrInvalidMesh", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Fetch(cctx, meshAddress(server.URL, "teapot"))
		if !errors.Is(err, ErrNetworkError) {
			t.Errorf("Fetch() error = %v, want ErrNetworkError", err)
		}
	})
}

func TestContentClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	address := meshAddress(server.URL, "teapot")
	server.Close()

	c := newContentClient(http.DefaultClient, nil)
	_, err := c.Fetch(context.Background(), address)
	if !errors.Is(err, ErrNetworkError) {
		t.Errorf("Fetch() error = %v, want ErrNetworkError", err)
	}
}

func TestContentClientFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "teapot_mesh.json"), []byte(teapotFile), 0644); err != nil {
		t.Fatal(err)
	}

	c := newContentClient(http.DefaultClient, nil)
	ctx := context.Background()

	for _, root := range []string{dir, "file://" + dir} {
		d, err := c.Fetch(ctx, meshAddress(root, "teapot"))
		if err != nil {
			t.Fatalf("Fetch(%s) error = %v", root, err)
		}
		if d.VertexCount() != 3 {
			t.Errorf("VertexCount() = %d, want 3", d.VertexCount())
		}
	}

	_, err := c.Fetch(ctx, meshAddress(dir, "missing"))
	if !errors.Is(err, ErrMeshNotFound) {
		t.Errorf("Fetch() error = %v, want ErrMeshNotFound", err)
	}
}
