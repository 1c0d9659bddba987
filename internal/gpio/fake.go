package gpio

import "github.com/sweeney/boiler-controller/internal/logic"

// FakePanel is a test double that returns scripted button presses and
// records lamp changes.
type FakePanel struct {
	// Presses contains scripted button states. Each call to Read() consumes
	// the next entry; when exhausted, no buttons are pressed.
	Presses []logic.Commands

	index int

	// ReadError, if set, will be returned by Read().
	ReadError error

	// ReadErrors scripts per-read failures alongside Presses. A non-nil
	// entry fails that read and consumes its press.
	ReadErrors []error

	// LampError, if set, will be returned by SetLamps().
	LampError error

	// Lamps records every lamp state set.
	Lamps []Lamps

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePanel creates a FakePanel with the given presses.
func NewFakePanel(presses ...logic.Commands) *FakePanel {
	return &FakePanel{Presses: presses}
}

// Read returns the next scripted press.
func (f *FakePanel) Read() (logic.Commands, error) {
	if f.ReadError != nil {
		return logic.Commands{}, f.ReadError
	}
	i := f.index
	f.index++
	if i < len(f.ReadErrors) && f.ReadErrors[i] != nil {
		return logic.Commands{}, f.ReadErrors[i]
	}
	if i >= len(f.Presses) {
		return logic.Commands{}, nil
	}
	return f.Presses[i], nil
}

// SetLamps records l.
func (f *FakePanel) SetLamps(l Lamps) error {
	if f.LampError != nil {
		return f.LampError
	}
	f.Lamps = append(f.Lamps, l)
	return nil
}

// Close switches the lamps off and marks the panel as closed.
func (f *FakePanel) Close() error {
	f.Lamps = append(f.Lamps, Lamps{})
	f.Closed = true
	return nil
}
