package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	RunID         string       `json:"run_id"`
	Scanned       bool         `json:"scanned"`
	Enabled       bool         `json:"enabled"`
	Running       bool         `json:"running"`
	Ready         bool         `json:"ready"`
	Alarm         bool         `json:"alarm"`
	AlarmCode     string       `json:"alarm_code"`
	FirstOut      string       `json:"first_out"`
	Display       string       `json:"display_code"`
	Alarms        AlarmsJSON   `json:"alarms"`
	Sensors       SensorsJSON  `json:"sensors"`
	Outputs       OutputsJSON  `json:"outputs"`
	Counters      CountersJSON `json:"counters"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	LastScan      string       `json:"last_scan,omitempty"`
	Timestamp     string       `json:"timestamp"`
	Broker        BrokerStatus `json:"broker"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// AlarmsJSON lists the individual alarm flags.
type AlarmsJSON struct {
	VoltageHigh    bool `json:"voltage_high"`
	TempHigh       bool `json:"temp_high"`
	NoGas          bool `json:"no_gas"`
	NoVacuum       bool `json:"no_vacuum"`
	OilPressureLow bool `json:"oil_pressure_low"`
	Emergency      bool `json:"emergency"`
}

// SensorsJSON reports the conditioned analog values and raw digital inputs.
type SensorsJSON struct {
	Voltage       float64 `json:"voltage"`
	BoilerTemp    float64 `json:"boiler_temp"`
	WaterTemp     float64 `json:"water_temp"`
	GasPresent    bool    `json:"gas_present"`
	VacuumPresent bool    `json:"vacuum_present"`
	OilPressureOK bool    `json:"oil_pressure_ok"`
	EmergencyStop bool    `json:"emergency_stop"`
}

// OutputsJSON is the actuator image.
type OutputsJSON struct {
	GasValve   bool `json:"gas_valve"`
	Socket1    bool `json:"socket1"`
	Socket2    bool `json:"socket2"`
	WaterPump  bool `json:"water_pump"`
	OilPump    bool `json:"oil_pump"`
	FanVent    bool `json:"fan_vent"`
	AlarmLight bool `json:"alarm_light"`
	PermitRun  bool `json:"permit_run"`
}

// CountersJSON is the JSON representation of the statistics.
type CountersJSON struct {
	Starts         int    `json:"starts"`
	Stops          int    `json:"stops"`
	Alarms         int    `json:"alarms"`
	GasFailures    int    `json:"gas_failures"`
	VacuumFailures int    `json:"vacuum_failures"`
	Scans          uint64 `json:"scans"`
	ReadErrors     int    `json:"read_errors"`
	RunTimeSeconds int64  `json:"run_time_seconds"`
}

// BrokerStatus reports the telemetry connection state.
type BrokerStatus struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ScanMs         int64   `json:"scan_ms"`
	StartupDelayMs int64   `json:"startup_delay_ms"`
	FilterWindow   int     `json:"filter_window"`
	HeartbeatMs    int64   `json:"heartbeat_ms"`
	VoltageTrip    float64 `json:"voltage_trip"`
	VoltageReset   float64 `json:"voltage_reset"`
	TempTrip       float64 `json:"temp_trip"`
	TempReset      float64 `json:"temp_reset"`
	Field          string  `json:"field"`
	Broker         string  `json:"broker"`
	HTTPAddr       string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.State
	s := snap.Sensors
	a := st.Alarms
	o := st.Outputs
	c := st.Counters

	inner := StatusInner{
		RunID:     snap.RunID,
		Scanned:   snap.Scanned,
		Enabled:   st.Run.Enabled,
		Running:   st.Run.Running,
		Ready:     st.Run.Ready,
		Alarm:     a.Any,
		AlarmCode: st.AlarmCode.String(),
		Display:   DisplayCode(st).String(),
		FirstOut:  st.FirstOut.String(),
		Alarms: AlarmsJSON{
			VoltageHigh:    a.VoltageHigh,
			TempHigh:       a.TempHigh,
			NoGas:          a.NoGas,
			NoVacuum:       a.NoVacuum,
			OilPressureLow: a.OilPressureLow,
			Emergency:      a.Emergency,
		},
		Sensors: SensorsJSON{
			Voltage:       round1(st.Voltage),
			BoilerTemp:    round1(st.BoilerTemp),
			WaterTemp:     round1(st.WaterTemp),
			GasPresent:    s.GasPresent,
			VacuumPresent: s.VacuumPresent,
			OilPressureOK: s.OilPressureOK,
			EmergencyStop: s.EmergencyStop,
		},
		Outputs: OutputsJSON(o),
		Counters: CountersJSON{
			Starts:         c.Starts,
			Stops:          c.Stops,
			Alarms:         c.Alarms,
			GasFailures:    c.GasFailures,
			VacuumFailures: c.VacuumFailures,
			Scans:          c.Scans,
			ReadErrors:     snap.ReadErrors,
			RunTimeSeconds: int64(c.RunTime / time.Second),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Broker:        BrokerStatus{Connected: snap.Connected, URL: snap.Config.Broker},
		Config:        ConfigJSON(snap.Config),
	}
	if !snap.LastScan.IsZero() {
		inner.LastScan = snap.LastScan.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int64(v*10-0.5)) / 10
	}
	return float64(int64(v*10+0.5)) / 10
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// DisplayCode is the alarm code shown to the operator: the active code while
// any alarm is on, otherwise the latched first-out code.
func DisplayCode(st logic.State) logic.AlarmCode {
	if st.Alarms.Any {
		return st.AlarmCode
	}
	return st.FirstOut
}
