package meshes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Fetcher retrieves and decodes the mesh file at an address.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (MeshData, error)
}

// meshFile is the on-the-wire layout of a "<name>_mesh.json" file.
// Fields not listed here are ignored.
type meshFile struct {
	Root *meshRoot `json:"root"`
}

// meshRoot is the "root" object of a mesh file.
type meshRoot struct {
	Attribs meshAttribs `json:"attribs"`
	Data    *MeshData   `json:"data"`
}

// meshAttribs carries descriptive attributes of a mesh file.
type meshAttribs struct {
	Name string `json:"name"`
}

// meshAddress builds the fetch address for name under root.
func meshAddress(root, name string) string {
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	if isHTTPAddress(root) {
		name = url.PathEscape(name)
	}
	return root + name + meshFileSuffix
}

// isHTTPAddress reports whether address is fetched over HTTP.
func isHTTPAddress(address string) bool {
	return strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://")
}

// contentClient fetches mesh files from an HTTP content server or from the
// local filesystem.
type contentClient struct {
	// httpClient is used for HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// newContentClient creates a new content client.
func newContentClient(client HTTPClient, logger Logger) *contentClient {
	return &contentClient{
		httpClient: client,
		logger:     logger,
	}
}

// Fetch retrieves and decodes the mesh file at address.
func (c *contentClient) Fetch(ctx context.Context, address string) (MeshData, error) {
	if isHTTPAddress(address) {
		return c.fetchHTTP(ctx, address)
	}
	return c.fetchFile(address)
}

// fetchHTTP fetches a mesh file with a GET request.
func (c *contentClient) fetchHTTP(ctx context.Context, address string) (MeshData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return MeshData{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return MeshData{}, fmt.Errorf("fetching %s: %w: %v", address, ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return MeshData{}, fmt.Errorf("%s: %w", address, ErrMeshNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return MeshData{}, fmt.Errorf("fetching %s: status %d: %w", address, resp.StatusCode, ErrFetchFailed)
	}

	data, err := decodeMeshFile(resp.Body)
	if err != nil {
		return MeshData{}, fmt.Errorf("parsing %s: %w", address, err)
	}

	if c.logger != nil {
		c.logger.Debug("mesh fetched", "address", address, "vertices", data.VertexCount())
	}

	return data, nil
}

// fetchFile reads a mesh file from the local filesystem.
func (c *contentClient) fetchFile(address string) (MeshData, error) {
	path := strings.TrimPrefix(address, "file://")

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return MeshData{}, fmt.Errorf("%s: %w", address, ErrMeshNotFound)
		}
		return MeshData{}, fmt.Errorf("reading %s: %w: %v", address, ErrFetchFailed, err)
	}
	defer f.Close()

	data, err := decodeMeshFile(f)
	if err != nil {
		return MeshData{}, fmt.Errorf("parsing %s: %w", address, err)
	}

	if c.logger != nil {
		c.logger.Debug("mesh read", "path", path, "vertices", data.VertexCount())
	}

	return data, nil
}

// decodeMeshFile decodes and validates a mesh file. The input must hold
// exactly one JSON object.
func decodeMeshFile(r io.Reader) (MeshData, error) {
	dec := json.NewDecoder(r)

	var f meshFile
	if err := dec.Decode(&f); err != nil {
		return MeshData{}, schemaErrorFrom(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return MeshData{}, &SchemaError{Reason: "trailing data after mesh object"}
	}

	if f.Root == nil {
		return MeshData{}, &SchemaError{Field: "root", Reason: "missing"}
	}
	if f.Root.Data == nil {
		return MeshData{}, &SchemaError{Field: "root.data", Reason: "missing"}
	}

	if err := validateMeshData("root.data", *f.Root.Data); err != nil {
		return MeshData{}, err
	}

	return *f.Root.Data, nil
}

// validateMeshData checks that the streams of d agree with each other.
// prefix is the JSON path of d, used in error fields.
func validateMeshData(prefix string, d MeshData) error {
	if len(d.Coords) == 0 {
		return &SchemaError{Field: prefix + ".coords", Reason: "empty"}
	}
	if len(d.Coords)%3 != 0 {
		return &SchemaError{Field: prefix + ".coords", Reason: fmt.Sprintf("length %d is not a multiple of 3", len(d.Coords))}
	}

	vertices := len(d.Coords) / 3

	if len(d.Normals) != 0 && len(d.Normals) != len(d.Coords) {
		return &SchemaError{Field: prefix + ".normals", Reason: fmt.Sprintf("length %d, want %d", len(d.Normals), len(d.Coords))}
	}
	if len(d.UVs) != 0 && len(d.UVs) != vertices*2 {
		return &SchemaError{Field: prefix + ".uvs", Reason: fmt.Sprintf("length %d, want %d", len(d.UVs), vertices*2)}
	}
	if len(d.Indices)%3 != 0 {
		return &SchemaError{Field: prefix + ".indices", Reason: fmt.Sprintf("length %d is not a multiple of 3", len(d.Indices))}
	}
	for i, idx := range d.Indices {
		if int(idx) >= vertices {
			return &SchemaError{Field: fmt.Sprintf("%s.indices[%d]", prefix, i), Reason: fmt.Sprintf("index %d out of range for %d vertices", idx, vertices)}
		}
	}

	return nil
}

// schemaErrorFrom converts a JSON decoding error into a *SchemaError.
func schemaErrorFrom(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &SchemaError{
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("cannot use %s as %s", typeErr.Value, typeErr.Type),
		}
	}
	if errors.Is(err, io.EOF) {
		return &SchemaError{Reason: "empty document"}
	}
	return &SchemaError{Reason: err.Error()}
}
