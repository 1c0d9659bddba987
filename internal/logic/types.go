// Package logic contains the pure scan-cycle logic of the boiler controller.
// This package has NO external dependencies (no Modbus, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time fields on Input.
package logic

import "time"

// Sensors is one cycle's reading of the plant, already in physical units.
type Sensors struct {
	Voltage       float64 // volts
	BoilerTemp    float64 // °C
	WaterTemp     float64 // °C
	OilPressureOK bool
	GasPresent    bool
	VacuumPresent bool
	EmergencyStop bool
}

// Commands is one cycle's reading of the operator commands.
// Start, Stop and ResetAlarms are treated as pulses: only rising edges act.
type Commands struct {
	Start       bool
	Stop        bool
	Socket1     bool
	Socket2     bool
	ResetAlarms bool
}

// Merge returns the logical OR of two command sets. Used when commands
// arrive from more than one source (HMI registers and panel buttons).
func (c Commands) Merge(o Commands) Commands {
	return Commands{
		Start:       c.Start || o.Start,
		Stop:        c.Stop || o.Stop,
		Socket1:     c.Socket1 || o.Socket1,
		Socket2:     c.Socket2 || o.Socket2,
		ResetAlarms: c.ResetAlarms || o.ResetAlarms,
	}
}

// Input is a complete snapshot consumed by a single Tick.
type Input struct {
	Sensors  Sensors
	Commands Commands
	Time     time.Time
}

// Alarms holds the alarm flags. Analog alarms are latched with hysteresis,
// the rest follow their sensor every cycle.
type Alarms struct {
	VoltageHigh    bool
	TempHigh       bool
	NoGas          bool
	NoVacuum       bool
	OilPressureLow bool
	Emergency      bool
	Any            bool
}

// RunState is the derived run state.
type RunState struct {
	Enabled bool // start accepted, waiting for the startup delay
	Running bool
	Ready   bool
}

// Outputs is the actuator and indicator image written to the plant.
type Outputs struct {
	GasValve   bool
	Socket1    bool
	Socket2    bool
	WaterPump  bool
	OilPump    bool
	FanVent    bool
	AlarmLight bool
	PermitRun  bool
}

// SafeOutputs returns the all-off output image written on shutdown.
func SafeOutputs() Outputs {
	return Outputs{}
}

// Counters tracks statistics since the engine was created or reset.
type Counters struct {
	Starts         int
	Stops          int
	Alarms         int
	GasFailures    int
	VacuumFailures int
	Scans          uint64
	RunTime        time.Duration
}

// AlarmCode identifies the highest-priority active alarm.
type AlarmCode int

const (
	AlarmNone AlarmCode = iota
	AlarmVoltageHigh
	AlarmTempHigh
	AlarmNoGas
	AlarmNoVacuum
	AlarmOilPressureLow
	AlarmEmergency
)

var alarmCodeNames = [...]string{
	AlarmNone:           "NONE",
	AlarmVoltageHigh:    "VOLTAGE_HIGH",
	AlarmTempHigh:       "TEMP_HIGH",
	AlarmNoGas:          "NO_GAS",
	AlarmNoVacuum:       "NO_VACUUM",
	AlarmOilPressureLow: "OIL_PRESSURE_LOW",
	AlarmEmergency:      "EMERGENCY",
}

func (c AlarmCode) String() string {
	if c < 0 || int(c) >= len(alarmCodeNames) {
		return "UNKNOWN"
	}
	return alarmCodeNames[c]
}

// State is the complete controller state after a tick.
// It is a value type: copies are safe to hand to other goroutines.
type State struct {
	// Conditioned analog values the alarms were evaluated against.
	Voltage    float64
	BoilerTemp float64
	WaterTemp  float64

	Alarms    Alarms
	Run       RunState
	Outputs   Outputs
	Counters  Counters
	AlarmCode AlarmCode
	// FirstOut is the alarm that started the current alarm episode.
	// Held until a reset-alarms pulse arrives with no alarm active.
	FirstOut AlarmCode
}

// EventType represents a state transition event.
type EventType string

const (
	EventAlarm        EventType = "ALARM"
	EventAlarmCleared EventType = "ALARM_CLEARED"
	EventStopped      EventType = "STOPPED"
	EventStarted      EventType = "STARTED"
	EventGasLost      EventType = "GAS_LOST"
	EventVacuumLost   EventType = "VACUUM_LOST"
	EventValveOpen    EventType = "VALVE_OPEN"
	EventValveClosed  EventType = "VALVE_CLOSED"
	EventAlarmsReset  EventType = "ALARMS_RESET"
)

// Stop reasons carried on EventStopped.
const (
	ReasonStop  = "STOP"
	ReasonAlarm = "ALARM"
)

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Code      AlarmCode
	Reason    string
	Running   bool
	Ready     bool
	GasValve  bool
	AnyAlarm  bool
}

// Result is what a single Tick produces.
type Result struct {
	State  State
	Events []Event
}

// previous holds the values sampled at the end of the last cycle.
// Every edge in a cycle is computed against this one snapshot.
type previous struct {
	start         bool
	stop          bool
	reset         bool
	gasPresent    bool
	vacuumPresent bool
	anyAlarm      bool
	running       bool
	gasValve      bool
}
