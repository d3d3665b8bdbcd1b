package engine

import (
	"math"

	"github.com/hyprpal/vview/internal/rules"
	"github.com/hyprpal/vview/internal/state"
)

// Registry maps view names to views and keeps the activation history,
// most recent first. history[0] is the current view. Every name in history
// is registered, and every registered view appears in history exactly once.
//
// Registry is not safe for concurrent use; Engine serializes access.
type Registry struct {
	views   map[string]*rules.View
	history []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*rules.View)}
}

// Lookup returns the registered view called name.
func (r *Registry) Lookup(name string) (*rules.View, bool) {
	v, ok := r.views[name]
	return v, ok
}

// Len returns the number of registered views.
func (r *Registry) Len() int {
	return len(r.views)
}

// Current returns the most recently activated view, or nil when the history
// is empty.
func (r *Registry) Current() *rules.View {
	if len(r.history) == 0 {
		return nil
	}
	return r.views[r.history[0]]
}

// History returns a copy of the activation history.
func (r *Registry) History() []string {
	return append([]string(nil), r.history...)
}

// Views returns the registered views in history order.
func (r *Registry) Views() []*rules.View {
	out := make([]*rules.View, 0, len(r.history))
	for _, name := range r.history {
		if v, ok := r.views[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// HistoryRank returns the index of v in the history. Nil or unregistered
// views rank last.
func (r *Registry) HistoryRank(v *rules.View) int {
	if v == nil {
		return math.MaxInt
	}
	for i, name := range r.history {
		if name == v.Name {
			return i
		}
	}
	return math.MaxInt
}

// BestView picks the registered view with the highest positive score for
// res, preferring the most recently active view on ties. When no view owns
// res it returns the current view, which is nil for an empty history.
func (r *Registry) BestView(res *state.Resource) *rules.View {
	var (
		best      *rules.View
		bestScore int
	)
	// History order is rank order, so the first view reaching the maximum
	// wins the tie-break.
	for _, name := range r.history {
		v := r.views[name]
		score := rules.Score(v, res)
		if score <= 0 {
			continue
		}
		if best == nil || score > bestScore {
			best = v
			bestScore = score
		}
	}
	if best != nil {
		return best
	}
	return r.Current()
}

// insert adds v, or replaces the definition of an already registered view
// of the same name. A replacement keeps the existing history position and
// captured state. It reports whether v was newly added.
func (r *Registry) insert(v *rules.View) bool {
	if existing, ok := r.views[v.Name]; ok {
		v.State = existing.State
		r.views[v.Name] = v
		return false
	}
	r.views[v.Name] = v
	r.history = append(r.history, v.Name)
	return true
}

// remove drops name from both the view map and the history.
func (r *Registry) remove(name string) bool {
	if _, ok := r.views[name]; !ok {
		return false
	}
	kept := r.history[:0]
	for _, n := range r.history {
		if n != name {
			kept = append(kept, n)
		}
	}
	r.history = kept
	delete(r.views, name)
	return true
}

// promote moves name to the front of the history, keeping only the first
// occurrence of every name.
func (r *Registry) promote(name string) {
	next := make([]string, 0, len(r.history)+1)
	next = append(next, name)
	seen := map[string]struct{}{name: {}}
	for _, n := range r.history {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		next = append(next, n)
	}
	r.history = next
}

// Reset forgets every view and the whole history.
func (r *Registry) Reset() {
	r.views = make(map[string]*rules.View)
	r.history = nil
}
