package meshes

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Manager tracks named meshes, fetches them in the background and uploads
// finished meshes to render contexts. All methods are safe for concurrent
// use. For CLI integration, use NewCommand instead.
type Manager struct {
	// cfg holds the module configuration.
	cfg Config

	// contentURL is the normalized content root.
	contentURL string

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// storage handles local snapshot files.
	storage storageInterface

	// fetches runs mesh fetches in the background.
	fetches *fetchQueue

	// onFetchError is called when a fetch fails. May be nil.
	onFetchError func(name string, err error)

	// mu protects everything below.
	mu sync.Mutex

	// models maps each mesh name to its placeholder or finished model.
	models map[string]*Model

	// ready holds downloaded payloads awaiting ProcessReady.
	ready []*Payload

	// inFlight counts names bound to a placeholder.
	inFlight int

	listeners []Listener

	// renderers holds the active render contexts.
	renderers map[ContextID]Renderer

	// placeholder is the shared stand-in mesh, built on first use.
	placeholder *Mesh

	// loadErrors holds the last failure for names that are still pending.
	loadErrors map[string]error

	closed bool
}

// NewManager creates a new Manager with the given configuration and starts
// its fetch workers. Returns an error if the configuration is invalid
// (empty AppName). Call Close to stop the workers.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	if cfg.AppName == "" {
		return nil, errors.New("meshes: AppName is required")
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = DefaultContentURL
	}

	mcfg := newManagerConfig()
	for _, opt := range opts {
		opt(mcfg)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := mcfg.fetcher
	if fetcher == nil {
		fetcher = newContentClient(mcfg.httpClient, mcfg.logger)
	}

	m := &Manager{
		cfg:          cfg,
		contentURL:   cfg.ContentURL,
		logger:       mcfg.logger,
		storage:      storage,
		onFetchError: mcfg.onFetchError,
		models:       make(map[string]*Model),
		renderers:    make(map[ContextID]Renderer),
		placeholder:  mcfg.placeholder,
		loadErrors:   make(map[string]error),
	}
	m.fetches = newFetchQueue(fetcher, mcfg.logger, mcfg.requestTimeout, m.OnFetchComplete, m.onFetchFailed)
	m.fetches.start(mcfg.concurrency)

	return m, nil
}

// Address returns the address the named mesh is fetched from.
func (m *Manager) Address(name string) string {
	return meshAddress(m.contentURL, name)
}

// AttachRenderer makes r the renderer of render context id, replacing any
// previous one.
func (m *Manager) AttachRenderer(id ContextID, r Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderers[id] = r
}

// DetachRenderer removes the renderer of render context id. Payloads for
// the context stay queued until a renderer is attached again.
func (m *Manager) DetachRenderer(id ContextID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.renderers, id)
}

// Placeholder returns the default placeholder mesh, building it if needed.
func (m *Manager) Placeholder() *Mesh {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.placeholderLocked()
}

func (m *Manager) placeholderLocked() *Mesh {
	if m.placeholder == nil {
		m.placeholder = newPlaceholderMesh()
	}
	return m.placeholder
}

// RequestLoad asks for the mesh described by stump.
//
// If the name is already known, its model (placeholder or finished) is
// returned and nothing is fetched. Otherwise the name is bound to
// placeholder (or the default placeholder when nil), a fetch is queued, and
// RequestLoad returns a nil model; the caller learns about completion
// through a Listener or by polling GetModelByName.
func (m *Manager) RequestLoad(stump MeshStump, placeholder *Mesh) (*Model, error) {
	if err := validateName(stump.Name); err != nil {
		return nil, fmt.Errorf("mesh %q: %w", stump.Name, err)
	}

	m.mu.Lock()
	if model, ok := m.models[stump.Name]; ok {
		m.mu.Unlock()
		return model, nil
	}
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	if placeholder == nil {
		placeholder = m.placeholderLocked()
	}

	job := fetchJob{
		stump:     stump,
		address:   m.Address(stump.Name),
		requestID: uuid.NewString(),
	}
	if err := m.fetches.push(job); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.models[stump.Name] = &Model{
		Name:      stump.Name,
		Mesh:      placeholder,
		Camera:    stump.Camera,
		pending:   true,
		requestID: job.requestID,
		contextID: stump.ContextID,
	}
	m.inFlight++
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("mesh requested", "name", stump.Name, "context", int(stump.ContextID), "address", job.address, "request", job.requestID)
	}

	return nil, nil
}

// OnFetchComplete marks p ready and appends it to the ready queue. Fetch
// workers call it for every successful fetch; custom fetch mechanisms may
// call it directly, leaving p.RequestID empty.
func (m *Manager) OnFetchComplete(p Payload) {
	p.Ready = true

	m.mu.Lock()
	m.ready = append(m.ready, &p)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("mesh payload ready", "name", p.Name, "context", int(p.ContextID), "request", p.RequestID)
	}
}

// onFetchFailed records a failed fetch. The name keeps its placeholder and
// stays counted as in flight; there is no retry.
func (m *Manager) onFetchFailed(job fetchJob, err error) {
	m.mu.Lock()
	if model, ok := m.models[job.stump.Name]; ok && model.accepts(job.requestID) {
		m.loadErrors[job.stump.Name] = err
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Error("mesh fetch failed", "name", job.stump.Name, "address", job.address, "request", job.requestID, "error", err)
	}
	if m.onFetchError != nil {
		m.onFetchError(job.stump.Name, err)
	}
}

// ProcessReady uploads every ready payload that belongs to render context
// id and returns how many models were finished. Payloads of other contexts
// are left queued. Intended to run once per frame on the render goroutine.
//
// Primitive creation failures do not stop the pass; they are joined into
// the returned error and the affected names keep their placeholders.
func (m *Manager) ProcessReady(id ContextID) (int, error) {
	m.mu.Lock()
	r, ok := m.renderers[id]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("context %d: %w", id, ErrUnknownContext)
	}

	// Stage: split the queue before touching the renderer.
	var take []*Payload
	keep := make([]*Payload, 0, len(m.ready))
	seen := make(map[string]bool)
	for _, p := range m.ready {
		if !p.Ready || p.ContextID != id {
			keep = append(keep, p)
			continue
		}
		model, ok := m.models[p.Name]
		if !ok || !model.accepts(p.RequestID) || seen[p.Name] {
			m.logDebug("dropping stale mesh payload", "name", p.Name, "request", p.RequestID)
			continue
		}
		seen[p.Name] = true
		take = append(take, p)
	}
	m.ready = keep
	m.mu.Unlock()

	var (
		errs   []error
		loaded []string
	)
	for _, p := range take {
		desc := newPrimitiveDescription(p.Data)
		h, err := r.CreatePrimitive(desc)
		if err != nil {
			err = fmt.Errorf("creating primitive for %q: %w", p.Name, err)
			errs = append(errs, err)
			m.recordLoadError(p.Name, p.RequestID, err)
			continue
		}

		mesh := &Mesh{
			Name: p.Name,
			Data: p.Data,
			Primitive: Primitive{
				Built:       true,
				Handle:      h,
				ContextID:   id,
				Description: desc,
			},
			BBox: boundsOf(p.Data.Coords),
		}
		if !m.install(mesh, p.RequestID) {
			// Deleted or re-requested while the primitive was being created.
			if err := r.DeletePrimitive(h); err != nil {
				m.logWarn("deleting orphaned primitive", "name", p.Name, "error", err)
			}
			continue
		}
		loaded = append(loaded, p.Name)
	}

	m.notify(loaded)
	return len(loaded), errors.Join(errs...)
}

// install replaces the placeholder of mesh.Name with mesh. Returns false if
// the name is no longer waiting for requestID.
func (m *Manager) install(mesh *Mesh, requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	model, ok := m.models[mesh.Name]
	if !ok || !model.accepts(requestID) {
		return false
	}

	m.models[mesh.Name] = &Model{
		Name:   mesh.Name,
		Mesh:   mesh,
		Camera: model.Camera,
	}
	m.inFlight--
	delete(m.loadErrors, mesh.Name)
	return true
}

// recordLoadError keeps err for a name still waiting for requestID.
func (m *Manager) recordLoadError(name, requestID string, err error) {
	m.mu.Lock()
	if model, ok := m.models[name]; ok && model.accepts(requestID) {
		m.loadErrors[name] = err
	}
	m.mu.Unlock()

	m.logError("mesh upload failed", "name", name, "error", err)
}

// notify tells every listener about each loaded name, in order.
func (m *Manager) notify(names []string) {
	if len(names) == 0 {
		return
	}

	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, name := range names {
		if m.logger != nil {
			m.logger.Info("mesh loaded", "name", name)
		}
		for _, l := range listeners {
			l.OnMeshLoaded(name)
		}
	}
}

// IsReady reports whether the ready queue is empty. It says nothing about
// names whose fetch is still running.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ready) == 0
}

// DeleteMesh removes the named mesh and releases its primitive in the
// render context that created it. If that context has been detached, the
// primitive is not released. Deleting an unknown name is a no-op.
// Deleting a pending name stops counting it as in flight; its payload is
// dropped when it arrives.
func (m *Manager) DeleteMesh(name string) {
	m.mu.Lock()
	model, ok := m.models[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.models, name)
	delete(m.loadErrors, name)

	if model.pending {
		m.inFlight--
		m.mu.Unlock()
		m.logDebug("pending mesh deleted", "name", name)
		return
	}

	prim := model.Mesh.Primitive
	r, attached := m.renderers[prim.ContextID]
	m.mu.Unlock()

	if prim.Built && attached {
		if err := r.DeletePrimitive(prim.Handle); err != nil {
			m.logWarn("deleting primitive", "name", name, "context", int(prim.ContextID), "error", err)
		}
	}
	m.logDebug("mesh deleted", "name", name)
}

// GetModelByName returns the model bound to name, or nil.
func (m *Manager) GetModelByName(name string) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.models[name]
}

// GetModelNames returns every name in the model mapping, sorted.
func (m *Manager) GetModelNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddOnLoadedCallback registers l to be told about every upload.
// Listeners are never removed.
func (m *Manager) AddOnLoadedCallback(l Listener) {
	if l == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// InFlight returns the number of names bound to a placeholder.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Stats returns the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Models:   len(m.models),
		InFlight: m.inFlight,
		Queued:   len(m.ready),
	}
}

// LoadError returns the last fetch or upload error of a pending name, or
// nil.
func (m *Manager) LoadError(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErrors[name]
}

// Close stops the fetch workers. Fetches in progress are abandoned and
// their names stay pending. Later requests for new names fail with
// ErrClosed; everything else keeps working.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.fetches.close()
	return nil
}

func (m *Manager) logDebug(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, keysAndValues...)
	}
}

func (m *Manager) logWarn(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}

func (m *Manager) logError(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Error(msg, keysAndValues...)
	}
}
