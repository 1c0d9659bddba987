//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// RealPanel is not available on non-Linux platforms.
type RealPanel struct{}

// NewRealPanel returns an error on non-Linux platforms.
func NewRealPanel(pins Pins) (*RealPanel, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (p *RealPanel) Read() (logic.Commands, error) {
	return logic.Commands{}, errors.New("gpio: not supported")
}

// SetLamps is not implemented on non-Linux platforms.
func (p *RealPanel) SetLamps(l Lamps) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPanel) Close() error {
	return nil
}
