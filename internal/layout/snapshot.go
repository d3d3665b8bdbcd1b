package layout

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an opaque handle to a captured window arrangement. Data is
// whatever the host reported; an empty Data is the neutral layout.
type Snapshot struct {
	ID         string    `json:"id,omitempty"`
	Data       string    `json:"data,omitempty"`
	CapturedAt time.Time `json:"capturedAt,omitempty"`
}

// IsZero reports whether the snapshot was never captured.
func (s Snapshot) IsZero() bool {
	return s.ID == ""
}

// Neutral reports whether the snapshot carries no arrangement.
func (s Snapshot) Neutral() bool {
	return s.Data == ""
}

// Board is the in-memory layout environment used by the daemon: the host
// pushes its current arrangement with Set and reads back what a switch
// restored with Current.
type Board struct {
	mu       sync.Mutex
	current  string
	restored Snapshot
	now      func() time.Time
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Set records the host's present arrangement.
func (b *Board) Set(data string) {
	b.mu.Lock()
	b.current = data
	b.mu.Unlock()
}

// Current returns the arrangement the host should display.
func (b *Board) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// LastRestored returns the snapshot most recently applied by RestoreLayout.
func (b *Board) LastRestored() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.restored
}

// CaptureLayout snapshots the present arrangement under a fresh handle.
func (b *Board) CaptureLayout() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{ID: uuid.NewString(), Data: b.current, CapturedAt: b.now()}
}

// CaptureNeutralLayout returns a fresh handle to the blank arrangement
// without reading the present one.
func (b *Board) CaptureNeutralLayout() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{ID: uuid.NewString(), CapturedAt: b.now()}
}

// RestoreLayout makes snap the present arrangement.
func (b *Board) RestoreLayout(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = snap.Data
	b.restored = snap
}
