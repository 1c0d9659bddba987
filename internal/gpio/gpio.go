// Package gpio drives the local operator panel: start, stop and reset
// pushbuttons plus the alarm and permit-run lamps.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/boiler-controller/internal/logic"

// Panel reads the panel buttons and drives its lamps.
type Panel interface {
	// Read returns the pressed buttons as commands. Only Start, Stop and
	// ResetAlarms are ever set.
	Read() (logic.Commands, error)

	// SetLamps drives the indicator lamps.
	SetLamps(l Lamps) error

	// Close switches the lamps off and releases GPIO resources.
	Close() error
}

// Lamps is the panel indicator state.
type Lamps struct {
	Alarm  bool
	Permit bool
}

// LampsFor returns the lamp state for a controller output image.
func LampsFor(out logic.Outputs) Lamps {
	return Lamps{Alarm: out.AlarmLight, Permit: out.PermitRun}
}

// Pins holds the BCM line offsets of the panel.
type Pins struct {
	Start      int `yaml:"start"`
	Stop       int `yaml:"stop"`
	Reset      int `yaml:"reset"`
	AlarmLamp  int `yaml:"alarm_lamp"`
	PermitLamp int `yaml:"permit_lamp"`
}

// Default pin definitions (BCM numbering)
const (
	PinStart      = 17
	PinStop       = 27
	PinReset      = 22
	PinAlarmLamp  = 5
	PinPermitLamp = 6
)

// DefaultPins returns the standard panel wiring.
func DefaultPins() Pins {
	return Pins{
		Start:      PinStart,
		Stop:       PinStop,
		Reset:      PinReset,
		AlarmLamp:  PinAlarmLamp,
		PermitLamp: PinPermitLamp,
	}
}

// Chip is the GPIO character device the panel is wired to.
const Chip = "gpiochip0"
