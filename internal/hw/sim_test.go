package hw

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func testLines() Lines {
	return Lines{
		SwitchPins: []int{17, 27, 22, 5, 6},
		BulbPins:   []int{23, 24, 25, 16, 26},
	}
}

func TestSimDriverSetupAndMode(t *testing.T) {
	d := NewSimDriver(testLines(), log.New(io.Discard))

	if d.Mode() != ModeSimulation {
		t.Errorf("Mode: got %s, want simulation", d.Mode())
	}
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !d.Configured() {
		t.Error("expected Configured=true after Setup")
	}
}

func TestSimDriverReadSwitchAlwaysReleased(t *testing.T) {
	d := NewSimDriver(testLines(), log.New(io.Discard))
	d.Setup()

	for i := 1; i <= 5; i++ {
		pressed, err := d.ReadSwitch(i)
		if err != nil {
			t.Fatalf("ReadSwitch(%d): %v", i, err)
		}
		if pressed {
			t.Errorf("ReadSwitch(%d): simulated switch must read released", i)
		}
	}

	if _, err := d.ReadSwitch(0); err != ErrBadIndex {
		t.Errorf("ReadSwitch(0): got %v, want ErrBadIndex", err)
	}
	if _, err := d.ReadSwitch(6); err != ErrBadIndex {
		t.Errorf("ReadSwitch(6): got %v, want ErrBadIndex", err)
	}
}

func TestSimDriverWriteBulb(t *testing.T) {
	d := NewSimDriver(testLines(), log.New(io.Discard))
	d.Setup()

	if err := d.WriteBulb(3, true); err != nil {
		t.Fatalf("WriteBulb: %v", err)
	}
	if !d.BulbState(3) {
		t.Error("expected bulb 3 on")
	}
	if err := d.WriteBulb(3, false); err != nil {
		t.Fatalf("WriteBulb: %v", err)
	}
	if d.BulbState(3) {
		t.Error("expected bulb 3 off")
	}

	if err := d.WriteBulb(9, true); err != ErrBadIndex {
		t.Errorf("WriteBulb(9): got %v, want ErrBadIndex", err)
	}
}

func TestSimDriverReleaseAllIdempotent(t *testing.T) {
	d := NewSimDriver(testLines(), log.New(io.Discard))
	d.Setup()
	d.WriteBulb(1, true)

	if err := d.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
	if d.BulbState(1) {
		t.Error("expected bulb 1 off after release")
	}
	if d.Configured() {
		t.Error("expected Configured=false after release")
	}

	// A second release must observe the same state, without error.
	if err := d.ReleaseAll(); err != nil {
		t.Fatalf("second ReleaseAll: %v", err)
	}
	if d.BulbState(1) || d.Configured() {
		t.Error("second release changed observable state")
	}
	if got := d.Releases(); got != 2 {
		t.Errorf("Releases: got %d, want 2", got)
	}
}

func TestLinesValidIndex(t *testing.T) {
	l := testLines()
	for _, tc := range []struct {
		index int
		want  bool
	}{
		{-1, false}, {0, false}, {1, true}, {5, true}, {6, false},
	} {
		if got := l.ValidIndex(tc.index); got != tc.want {
			t.Errorf("ValidIndex(%d): got %v, want %v", tc.index, got, tc.want)
		}
	}
	if l.Count() != 5 {
		t.Errorf("Count: got %d, want 5", l.Count())
	}
}
