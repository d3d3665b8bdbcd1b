package metrics

import (
	"testing"
	"time"
)

func TestCollectorRecordsCounters(t *testing.T) {
	c := NewCollector(true)
	c.RecordRegistration("code")
	c.RecordSwitch("code", false)
	c.RecordSwitch("code", true)
	c.RecordOwnership("code")
	c.RecordSwitch("notes", false)
	snap := c.Snapshot()
	if !snap.Enabled {
		t.Fatalf("expected snapshot to be enabled")
	}
	if snap.Totals.Switches != 3 || snap.Totals.AutoSwitches != 1 || snap.Totals.Ownerships != 1 {
		t.Fatalf("unexpected totals: %#v", snap.Totals)
	}
	if len(snap.Views) != 2 || snap.Views[0].View != "code" || snap.Views[1].View != "notes" {
		t.Fatalf("expected views sorted by name: %#v", snap.Views)
	}
	code := snap.Views[0]
	if code.Registrations != 1 || code.Switches != 2 {
		t.Fatalf("unexpected view counters: %#v", code)
	}
	if code.LastSwitched.IsZero() || code.LastOwned.IsZero() {
		t.Fatalf("expected timestamps to be recorded: %#v", code)
	}
}

func TestCollectorToggle(t *testing.T) {
	c := NewCollector(false)
	c.RecordSwitch("code", false)
	if snap := c.Snapshot(); snap.Enabled || len(snap.Views) != 0 {
		t.Fatalf("expected disabled snapshot: %#v", snap)
	}
	c.SetEnabled(true)
	c.RecordSwitch("code", false)
	snap := c.Snapshot()
	if !snap.Enabled || snap.Totals.Switches != 1 {
		t.Fatalf("unexpected enabled snapshot: %#v", snap)
	}
	c.SetEnabled(false)
	snap = c.Snapshot()
	if snap.Enabled || !snap.Started.IsZero() {
		t.Fatalf("expected disabled snapshot with reset start: %#v", snap)
	}
	time.Sleep(10 * time.Millisecond)
	c.SetEnabled(true)
	c.RecordSwitch("code", true)
	if snap := c.Snapshot(); snap.Totals.Switches != 1 {
		t.Fatalf("expected counters to reset after re-enable: %#v", snap)
	}
	var nilCollector *Collector
	nilCollector.RecordSwitch("code", false)
	if nilCollector.Enabled() {
		t.Fatalf("nil collector should report disabled")
	}
}
