package logic

import (
	"errors"
	"fmt"
	"time"
)

// Band is a trip/reset threshold pair for a hysteresis alarm.
type Band struct {
	Trip  float64
	Reset float64
}

// Apply returns the new alarm flag for value given the flag from the last cycle.
// At or above Trip the flag is set, below Reset it is cleared, and between
// the two it keeps its previous value.
func (b Band) Apply(value float64, latched bool) bool {
	if value >= b.Trip {
		return true
	}
	if value < b.Reset {
		return false
	}
	return latched
}

// Config parameterises the engine.
type Config struct {
	Voltage    Band
	BoilerTemp Band
	// WaterPumpMinTemp is the water temperature the pump needs to exceed.
	WaterPumpMinTemp float64
	// StartupDelay is how long a start must stay enabled before running.
	// Zero starts in the same cycle.
	StartupDelay time.Duration
	// FilterWindow is the moving-average length for voltage and boiler
	// temperature. Values <= 1 disable smoothing.
	FilterWindow int
}

// Reference thresholds.
const (
	DefaultVoltageTrip      = 400
	DefaultVoltageReset     = 380
	DefaultTempTrip         = 80
	DefaultTempReset        = 75
	DefaultWaterPumpMinTemp = 20
)

// DefaultConfig returns the reference configuration with no startup delay
// and no smoothing.
func DefaultConfig() Config {
	return Config{
		Voltage:          Band{Trip: DefaultVoltageTrip, Reset: DefaultVoltageReset},
		BoilerTemp:       Band{Trip: DefaultTempTrip, Reset: DefaultTempReset},
		WaterPumpMinTemp: DefaultWaterPumpMinTemp,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Voltage.Reset >= c.Voltage.Trip {
		errs = append(errs, fmt.Errorf("voltage reset %v must be below trip %v", c.Voltage.Reset, c.Voltage.Trip))
	}
	if c.BoilerTemp.Reset >= c.BoilerTemp.Trip {
		errs = append(errs, fmt.Errorf("boiler temperature reset %v must be below trip %v", c.BoilerTemp.Reset, c.BoilerTemp.Trip))
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startup delay %v must not be negative", c.StartupDelay))
	}
	if c.FilterWindow < 0 {
		errs = append(errs, fmt.Errorf("filter window %d must not be negative", c.FilterWindow))
	}
	return errors.Join(errs...)
}
