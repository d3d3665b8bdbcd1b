package state

import (
	"context"
	"sync"
)

// MemorySource is a DataSource fed by the host over the control socket.
type MemorySource struct {
	mu    sync.Mutex
	world World
}

// NewMemorySource returns an empty pool.
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

func (m *MemorySource) ListResources(context.Context) ([]Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Resource(nil), m.world.Resources...), nil
}

func (m *MemorySource) ActiveResourceID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.ActiveResourceID, nil
}

// Open records a resource reported by the host.
func (m *MemorySource) Open(res Resource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.UpsertResource(res)
}

// Close forgets a resource.
func (m *MemorySource) Close(id string) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.RemoveResource(id)
}

// Activate marks id as the displayed resource and returns it. The second
// result is false when id is unknown.
func (m *MemorySource) Activate(id string) (Resource, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.world.FindResource(id)
	if res == nil {
		return Resource{}, false
	}
	m.world.SetActiveResource(id)
	return *res, true
}

// Snapshot returns a copy of the pool that later host updates do not touch.
func (m *MemorySource) Snapshot() *World {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CloneWorld(&m.world)
}

// Lookup returns the resource with id.
func (m *MemorySource) Lookup(id string) (Resource, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.world.FindResource(id)
	if res == nil {
		return Resource{}, false
	}
	return *res, true
}

// Variables holds the host's current values of process-wide named bindings.
type Variables struct {
	mu     sync.Mutex
	values map[string]any
}

// NewVariables returns an empty store.
func NewVariables() *Variables {
	return &Variables{values: make(map[string]any)}
}

func (v *Variables) Get(name string) any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[name]
}

func (v *Variables) Set(name string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.values == nil {
		v.values = make(map[string]any)
	}
	v.values[name] = value
}

// Snapshot returns a copy of every stored value.
func (v *Variables) Snapshot() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]any, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}
