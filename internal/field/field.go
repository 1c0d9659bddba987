// Package field connects the controller to the plant: analog and digital
// sensors, the HMI command bits and the actuator outputs.
// The real implementation talks Modbus to the PLC I/O.
// SimIO and FakeIO allow running and testing without hardware.
package field

import "github.com/sweeney/boiler-controller/internal/logic"

// Sample is one complete read of the field: sensors plus HMI commands.
type Sample struct {
	Sensors  logic.Sensors
	Commands logic.Commands
}

// IO reads inputs from and writes outputs to the plant.
type IO interface {
	// Read returns a complete snapshot. A partial read is an error; the
	// caller must not run a cycle on it.
	Read() (Sample, error)

	// Write drives every output in one operation.
	Write(out logic.Outputs) error

	// Close releases the connection.
	Close() error
}
