package engine

import (
	"sync"
	"time"
)

const inspectorHistoryLimit = 128

// SwitchRecord captures one view switch for the inspector.
type SwitchRecord struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Trigger   Trigger   `json:"trigger"`
	Resource  string    `json:"resource,omitempty"`
}

type switchLog struct {
	mu      sync.Mutex
	entries []SwitchRecord
	limit   int
}

func newSwitchLog(limit int) *switchLog {
	if limit <= 0 {
		limit = inspectorHistoryLimit
	}
	return &switchLog{limit: limit}
}

func (l *switchLog) record(entry SwitchRecord) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, entry)
}

func (l *switchLog) snapshot() []SwitchRecord {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	return append([]SwitchRecord(nil), l.entries...)
}
