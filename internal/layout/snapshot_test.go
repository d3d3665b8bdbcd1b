package layout

import "testing"

func TestBoardCaptureAndRestore(t *testing.T) {
	board := NewBoard()
	board.Set("split:h")

	captured := board.CaptureLayout()
	if captured.IsZero() || captured.Data != "split:h" {
		t.Fatalf("unexpected capture %+v", captured)
	}
	neutral := board.CaptureNeutralLayout()
	if !neutral.Neutral() || neutral.IsZero() {
		t.Fatalf("neutral capture should have an id and no data: %+v", neutral)
	}
	if neutral.ID == captured.ID {
		t.Fatalf("handles must be unique")
	}
	if board.Current() != "split:h" {
		t.Fatalf("neutral capture must not touch the present arrangement")
	}

	board.RestoreLayout(neutral)
	if board.Current() != "" {
		t.Fatalf("restoring neutral layout should blank the board, got %q", board.Current())
	}
	board.RestoreLayout(captured)
	if board.Current() != "split:h" || board.LastRestored().ID != captured.ID {
		t.Fatalf("restore did not apply snapshot: current=%q last=%+v", board.Current(), board.LastRestored())
	}
	if !(Snapshot{}).IsZero() {
		t.Fatalf("zero snapshot should report IsZero")
	}
}
