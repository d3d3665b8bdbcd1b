package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates opt-in counters for view activity.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	views   map[string]*ViewMetrics
}

// ViewMetrics captures per-view counters tracked by the collector.
type ViewMetrics struct {
	View          string    `json:"view"`
	Switches      uint64    `json:"switches"`
	AutoSwitches  uint64    `json:"autoSwitches"`
	Ownerships    uint64    `json:"ownerships"`
	Registrations uint64    `json:"registrations"`
	LastSwitched  time.Time `json:"lastSwitched,omitempty"`
	LastOwned     time.Time `json:"lastOwned,omitempty"`
}

// Totals aggregates counters across all views in a snapshot.
type Totals struct {
	Switches     uint64 `json:"switches"`
	AutoSwitches uint64 `json:"autoSwitches"`
	Ownerships   uint64 `json:"ownerships"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled bool          `json:"enabled"`
	Started time.Time     `json:"started,omitempty"`
	Totals  Totals        `json:"totals"`
	Views   []ViewMetrics `json:"views,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.views = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.views = make(map[string]*ViewMetrics)
}

// RecordSwitch counts an activation of view. Automatic switches are the
// ones driven by resource activation rather than an explicit command.
func (c *Collector) RecordSwitch(view string, automatic bool) {
	c.updateView(view, func(m *ViewMetrics, now time.Time) {
		m.Switches++
		if automatic {
			m.AutoSwitches++
		}
		m.LastSwitched = now
	})
}

// RecordOwnership counts view winning an ownership lookup.
func (c *Collector) RecordOwnership(view string) {
	c.updateView(view, func(m *ViewMetrics, now time.Time) {
		m.Ownerships++
		m.LastOwned = now
	})
}

// RecordRegistration counts a registration of view.
func (c *Collector) RecordRegistration(view string) {
	c.updateView(view, func(m *ViewMetrics, _ time.Time) {
		m.Registrations++
	})
}

func (c *Collector) updateView(view string, mutate func(*ViewMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.views == nil {
		c.views = make(map[string]*ViewMetrics)
	}
	m, exists := c.views[view]
	if !exists {
		m = &ViewMetrics{View: view}
		c.views[view] = m
	}
	mutate(m, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	if len(c.views) == 0 {
		return snap
	}
	snap.Views = make([]ViewMetrics, 0, len(c.views))
	for _, m := range c.views {
		if m == nil {
			continue
		}
		clone := *m
		snap.Views = append(snap.Views, clone)
		snap.Totals.Switches += clone.Switches
		snap.Totals.AutoSwitches += clone.AutoSwitches
		snap.Totals.Ownerships += clone.Ownerships
	}
	sort.Slice(snap.Views, func(i, j int) bool {
		return snap.Views[i].View < snap.Views[j].View
	})
	return snap
}
