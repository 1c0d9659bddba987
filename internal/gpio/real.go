//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/boiler-controller/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealPanel drives the panel through the Linux GPIO character device.
type RealPanel struct {
	chip    *gpiocdev.Chip
	buttons *gpiocdev.Lines
	lamps   *gpiocdev.Lines
}

// NewRealPanel requests the button and lamp lines on the Raspberry Pi.
func NewRealPanel(pins Pins) (*RealPanel, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons switch to ground: pull-up, active-low reads 1 when pressed.
	buttons, err := chip.RequestLines(
		[]int{pins.Start, pins.Stop, pins.Reset},
		gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pins %d,%d,%d: %w", pins.Start, pins.Stop, pins.Reset, err)
	}

	lamps, err := chip.RequestLines(
		[]int{pins.AlarmLamp, pins.PermitLamp},
		gpiocdev.AsOutput(0, 0))
	if err != nil {
		buttons.Close()
		chip.Close()
		return nil, fmt.Errorf("request lamp pins %d,%d: %w", pins.AlarmLamp, pins.PermitLamp, err)
	}

	return &RealPanel{chip: chip, buttons: buttons, lamps: lamps}, nil
}

// Read returns the pressed buttons.
func (p *RealPanel) Read() (logic.Commands, error) {
	v := make([]int, 3)
	if err := p.buttons.Values(v); err != nil {
		return logic.Commands{}, fmt.Errorf("read buttons: %w", err)
	}
	return logic.Commands{
		Start:       v[0] == 1,
		Stop:        v[1] == 1,
		ResetAlarms: v[2] == 1,
	}, nil
}

// SetLamps drives both lamps in one request.
func (p *RealPanel) SetLamps(l Lamps) error {
	if err := p.lamps.SetValues([]int{boolToInt(l.Alarm), boolToInt(l.Permit)}); err != nil {
		return fmt.Errorf("set lamps: %w", err)
	}
	return nil
}

// Close switches the lamps off and returns every line to input with
// pull-down, matching the Pi boot defaults, before releasing it.
func (p *RealPanel) Close() error {
	var errs []error

	if p.lamps != nil {
		if err := p.lamps.SetValues([]int{0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("lamps off: %w", err))
		}
		if err := p.lamps.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lamp pins: %w", err))
		}
		if err := p.lamps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lamp pins: %w", err))
		}
	}
	if p.buttons != nil {
		if err := p.buttons.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pins: %w", err))
		}
		if err := p.buttons.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pins: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
