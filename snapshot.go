package meshes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// snapshotRecord is the serialized form of one model. A pending record
// carries its placeholder geometry and the context it was requested for.
type snapshotRecord struct {
	Name      string            `json:"name"`
	Primitive snapshotPrimitive `json:"primitive"`
	Data      MeshData          `json:"data"`
	BBox      *BoundingBox      `json:"bbox,omitempty"`
	Camera    *Camera           `json:"camera,omitempty"`
	Pending   bool              `json:"pending,omitempty"`
	Context   ContextID         `json:"context,omitempty"`
}

// snapshotPrimitive is the portable part of a Primitive. Handles are never
// serialized.
type snapshotPrimitive struct {
	Built bool `json:"built"`
}

// bboxTolerance is how far a stored bounding box may drift from the one
// computed from its coordinates.
const bboxTolerance = 1e-4

// ExportSnapshot serializes the whole model mapping as a JSON object keyed
// by mesh name. Each record has primitive.built set to false because GPU
// handles do not survive the trip. Names still waiting for a fetch are
// exported with their placeholder geometry and marked pending. Live models
// are not modified.
func (m *Manager) ExportSnapshot() ([]byte, error) {
	m.mu.Lock()
	records := make(map[string]snapshotRecord, len(m.models))
	for name, model := range m.models {
		src := snapshotRecord{
			Name:    name,
			Data:    model.Mesh.Data,
			Camera:  model.Camera,
			Pending: model.pending,
		}
		if model.pending {
			src.Context = model.contextID
		}
		if !model.Mesh.BBox.IsEmpty() {
			box := model.Mesh.BBox
			src.BBox = &box
		}

		var rec snapshotRecord
		if err := copier.CopyWithOption(&rec, &src, copier.Option{DeepCopy: true}); err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("copying mesh %q: %w", name, err)
		}
		records[name] = rec
	}
	m.mu.Unlock()

	// Encoding runs unlocked on the copies.
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// ImportSnapshot merges the models of a snapshot produced by ExportSnapshot
// and returns how many were added. Names already present are kept
// (first writer wins). The whole snapshot is validated before anything is
// merged, so an error wrapping ErrInvalidSnapshot leaves the manager
// unchanged. Imported primitives are not built; see BuildImported.
//
// Pending records are bound to their placeholder geometry and fetched
// again, as if requested with RequestLoad.
func (m *Manager) ImportSnapshot(data []byte) (int, error) {
	records, err := decodeSnapshot(data)
	if err != nil {
		m.logError("error importing meshes", "error", err)
		return 0, err
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	m.mu.Lock()
	if m.closed {
		for _, name := range names {
			if _, ok := m.models[name]; !ok && records[name].Pending {
				m.mu.Unlock()
				return 0, ErrClosed
			}
		}
	}

	var (
		added int
		jobs  []fetchJob
	)
	for _, name := range names {
		if _, ok := m.models[name]; ok {
			continue
		}
		rec := records[name]
		mesh := &Mesh{
			Name: name,
			Data: rec.Data,
			BBox: boundsOf(rec.Data.Coords),
		}

		if !rec.Pending {
			m.models[name] = &Model{Name: name, Mesh: mesh, Camera: rec.Camera}
			added++
			continue
		}

		job := fetchJob{
			stump:     MeshStump{Name: name, ContextID: rec.Context, Camera: rec.Camera},
			address:   m.Address(name),
			requestID: uuid.NewString(),
		}
		if err := m.fetches.push(job); err != nil {
			m.logWarn("refetching imported mesh", "name", name, "error", err)
			continue
		}
		m.models[name] = &Model{
			Name:      name,
			Mesh:      mesh,
			Camera:    rec.Camera,
			pending:   true,
			requestID: job.requestID,
			contextID: rec.Context,
		}
		m.inFlight++
		jobs = append(jobs, job)
		added++
	}
	m.mu.Unlock()

	if m.logger != nil {
		for _, job := range jobs {
			m.logger.Debug("mesh requested", "name", job.stump.Name, "context", int(job.stump.ContextID), "address", job.address, "request", job.requestID)
		}
		m.logger.Info("meshes imported", "added", added, "skipped", len(names)-added, "pending", len(jobs))
	}
	return added, nil
}

// decodeSnapshot strictly decodes and validates a snapshot.
func decodeSnapshot(data []byte) (map[string]snapshotRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var records map[string]snapshotRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, schemaErrorFrom(err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, &SchemaError{Reason: "trailing data after snapshot"})
	}
	if records == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, &SchemaError{Reason: "snapshot is not an object"})
	}

	for name, rec := range records {
		if err := validateName(name); err != nil {
			return nil, fmt.Errorf("%w: mesh %q: %w", ErrInvalidSnapshot, name, err)
		}
		if rec.Name != "" && rec.Name != name {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, &SchemaError{Field: name + ".name", Reason: fmt.Sprintf("%q does not match key", rec.Name)})
		}
		if err := validateMeshData(name+".data", rec.Data); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if err := checkBBox(name+".bbox", rec.BBox, rec.Data.Coords); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}

	return records, nil
}

// checkBBox verifies that a stored bounding box agrees with coords.
// A missing box is accepted; the box is always recomputed on import.
func checkBBox(field string, box *BoundingBox, coords []float32) error {
	if box == nil {
		return nil
	}

	want := boundsOf(coords)
	for i := 0; i < 3; i++ {
		if math32.Abs(box.Min[i]-want.Min[i]) > bboxTolerance || math32.Abs(box.Max[i]-want.Max[i]) > bboxTolerance {
			return &SchemaError{Field: field, Reason: fmt.Sprintf("%v..%v does not match coords %v..%v", box.Min, box.Max, want.Min, want.Max)}
		}
	}
	return nil
}

// BuildImported creates primitives in render context id for every finished
// model whose primitive is not built, such as imported models, and returns
// how many were built. Listeners are notified as for fetched meshes.
func (m *Manager) BuildImported(id ContextID) (int, error) {
	m.mu.Lock()
	r, ok := m.renderers[id]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("context %d: %w", id, ErrUnknownContext)
	}

	var unbuilt []*Model
	for _, model := range m.models {
		if !model.pending && !model.Mesh.Primitive.Built {
			unbuilt = append(unbuilt, model)
		}
	}
	m.mu.Unlock()

	sort.Slice(unbuilt, func(i, j int) bool {
		return unbuilt[i].Name < unbuilt[j].Name
	})

	var (
		errs  []error
		built []string
	)
	for _, model := range unbuilt {
		desc := newPrimitiveDescription(model.Mesh.Data)
		h, err := r.CreatePrimitive(desc)
		if err != nil {
			errs = append(errs, fmt.Errorf("creating primitive for %q: %w", model.Name, err))
			continue
		}

		mesh := &Mesh{
			Name: model.Name,
			Data: model.Mesh.Data,
			Primitive: Primitive{
				Built:       true,
				Handle:      h,
				ContextID:   id,
				Description: desc,
			},
			BBox: model.Mesh.BBox,
		}

		m.mu.Lock()
		current, ok := m.models[model.Name]
		if ok && current == model {
			m.models[model.Name] = &Model{Name: model.Name, Mesh: mesh, Camera: model.Camera}
		}
		m.mu.Unlock()

		if !ok || current != model {
			if err := r.DeletePrimitive(h); err != nil {
				m.logWarn("deleting orphaned primitive", "name", model.Name, "error", err)
			}
			continue
		}
		built = append(built, model.Name)
	}

	m.notify(built)
	return len(built), errors.Join(errs...)
}

// SaveSnapshot exports the manager and stores the result under name in
// local storage, replacing any snapshot with that name.
func (m *Manager) SaveSnapshot(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}

	data, err := m.ExportSnapshot()
	if err != nil {
		return err
	}
	if err := m.storage.saveSnapshot(name, data); err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}

	m.logDebug("snapshot saved", "snapshot", name, "bytes", len(data))
	return nil
}

// LoadSnapshot imports the snapshot stored under name and returns how many
// models were added. Returns ErrSnapshotNotFound if there is no such
// snapshot.
func (m *Manager) LoadSnapshot(name string) (int, error) {
	if err := validateName(name); err != nil {
		return 0, fmt.Errorf("snapshot %q: %w", name, err)
	}

	data, err := m.storage.loadSnapshot(name)
	if err != nil {
		return 0, err
	}
	return m.ImportSnapshot(data)
}

// ListSnapshots returns the snapshots in local storage, sorted by name.
func (m *Manager) ListSnapshots() ([]SnapshotInfo, error) {
	return m.storage.listSnapshots()
}

// RemoveSnapshot deletes a stored snapshot.
// Returns ErrSnapshotNotFound if there is no such snapshot.
func (m *Manager) RemoveSnapshot(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}
	return m.storage.removeSnapshot(name)
}

// SnapshotPath returns where the named snapshot is stored.
func (m *Manager) SnapshotPath(name string) string {
	return m.storage.snapshotPath(name)
}
