package state

import (
	"context"
	"errors"
)

// Resource describes one item of the host's resource pool, typically an
// editor buffer.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
}

// DataSource abstracts queries required to build the world snapshot.
type DataSource interface {
	ListResources(ctx context.Context) ([]Resource, error)
	ActiveResourceID(ctx context.Context) (string, error)
}

// World represents the current snapshot of the resource pool.
type World struct {
	Resources        []Resource
	ActiveResourceID string
}

// NewWorld creates a world snapshot using the provided data source.
func NewWorld(ctx context.Context, src DataSource) (*World, error) {
	resources, err := src.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	active, err := src.ActiveResourceID(ctx)
	if err != nil {
		return nil, err
	}
	return &World{
		Resources:        resources,
		ActiveResourceID: active,
	}, nil
}

// FindResource returns the resource with id, or nil.
func (w *World) FindResource(id string) *Resource {
	if w == nil {
		return nil
	}
	for i := range w.Resources {
		if w.Resources[i].ID == id {
			return &w.Resources[i]
		}
	}
	return nil
}

// ActiveResource returns the active resource if present.
func (w *World) ActiveResource() *Resource {
	if w == nil || w.ActiveResourceID == "" {
		return nil
	}
	return w.FindResource(w.ActiveResourceID)
}

// UpsertResource inserts res or replaces the entry with the same ID. It
// reports whether the world changed.
func (w *World) UpsertResource(res Resource) (bool, error) {
	if res.ID == "" {
		return false, errors.New("resource id cannot be empty")
	}
	if existing := w.FindResource(res.ID); existing != nil {
		if *existing == res {
			return false, nil
		}
		*existing = res
		return true, nil
	}
	w.Resources = append(w.Resources, res)
	return true, nil
}

// RemoveResource drops the resource with id, clearing the active pointer when
// it referenced the removed entry.
func (w *World) RemoveResource(id string) (Resource, error) {
	for i := range w.Resources {
		if w.Resources[i].ID != id {
			continue
		}
		removed := w.Resources[i]
		w.Resources = append(w.Resources[:i], w.Resources[i+1:]...)
		if w.ActiveResourceID == id {
			w.ActiveResourceID = ""
		}
		return removed, nil
	}
	return Resource{}, errors.New("resource not found")
}

// SetActiveResource updates the active pointer and reports whether it changed.
func (w *World) SetActiveResource(id string) bool {
	if w.ActiveResourceID == id {
		return false
	}
	w.ActiveResourceID = id
	return true
}

// CloneWorld returns a deep copy of the provided world snapshot.
func CloneWorld(src *World) *World {
	if src == nil {
		return nil
	}
	copyWorld := *src
	if len(src.Resources) > 0 {
		copyWorld.Resources = append([]Resource(nil), src.Resources...)
	}
	return &copyWorld
}
