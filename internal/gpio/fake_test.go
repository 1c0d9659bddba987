package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/boiler-controller/internal/logic"
)

func TestFakePanelRead(t *testing.T) {
	f := NewFakePanel(
		logic.Commands{Start: true},
		logic.Commands{Stop: true, ResetAlarms: true},
	)

	c, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Start || c.Stop {
		t.Errorf("press 0: expected start only, got %+v", c)
	}

	c, _ = f.Read()
	if !c.Stop || !c.ResetAlarms {
		t.Errorf("press 1: expected stop and reset, got %+v", c)
	}

	// Released once the script runs out
	c, _ = f.Read()
	if c != (logic.Commands{}) {
		t.Errorf("press 2: expected nothing pressed, got %+v", c)
	}
}

func TestFakePanelReadError(t *testing.T) {
	f := NewFakePanel()
	f.ReadError = errors.New("simulated error")

	if _, err := f.Read(); err == nil || err.Error() != "simulated error" {
		t.Errorf("expected simulated error, got %v", err)
	}
}

func TestFakePanelScriptedReadErrors(t *testing.T) {
	f := NewFakePanel(logic.Commands{Start: true}, logic.Commands{Start: true}, logic.Commands{Stop: true})
	f.ReadErrors = []error{nil, errors.New("line busy")}

	if c, err := f.Read(); err != nil || !c.Start {
		t.Errorf("read 0: got %+v, %v", c, err)
	}
	if _, err := f.Read(); err == nil {
		t.Error("read 1: expected error")
	}
	if c, err := f.Read(); err != nil || !c.Stop {
		t.Errorf("read 2: the failed read should consume its press, got %+v, %v", c, err)
	}
}

func TestFakePanelLampsAndClose(t *testing.T) {
	f := NewFakePanel()

	if err := f.SetLamps(Lamps{Alarm: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if len(f.Lamps) != 2 {
		t.Fatalf("expected 2 lamp states, got %d", len(f.Lamps))
	}
	if f.Lamps[1] != (Lamps{}) {
		t.Errorf("close should switch lamps off, got %+v", f.Lamps[1])
	}
}

func TestLampsFor(t *testing.T) {
	got := LampsFor(logic.Outputs{AlarmLight: true, GasValve: true})
	if got != (Lamps{Alarm: true}) {
		t.Errorf("expected alarm lamp only, got %+v", got)
	}
	got = LampsFor(logic.Outputs{PermitRun: true})
	if got != (Lamps{Permit: true}) {
		t.Errorf("expected permit lamp only, got %+v", got)
	}
}

func TestDefaultPinsDistinct(t *testing.T) {
	p := DefaultPins()
	seen := map[int]bool{}
	for _, pin := range []int{p.Start, p.Stop, p.Reset, p.AlarmLamp, p.PermitLamp} {
		if seen[pin] {
			t.Errorf("pin %d used twice", pin)
		}
		seen[pin] = true
	}
}
