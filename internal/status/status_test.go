package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/boiler-controller/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(start, "run-1", cfg)
	tr.now = func() time.Time { return now }
	return tr
}

func runningState() logic.State {
	return logic.State{
		Voltage:    231.04,
		BoilerTemp: 61.26,
		WaterTemp:  44.96,
		Run:        logic.RunState{Enabled: true, Running: true, Ready: true},
		Outputs: logic.Outputs{
			GasValve: true, WaterPump: true, OilPump: true, FanVent: true, PermitRun: true,
		},
		Counters: logic.Counters{Starts: 2, Stops: 1, Scans: 1234, RunTime: 90*time.Second + 400*time.Millisecond},
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{ScanMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, "abc", cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.RunID != "abc" {
		t.Errorf("RunID: got %q, want abc", snap.RunID)
	}
	if snap.Config.ScanMs != 100 {
		t.Errorf("Config.ScanMs: got %d, want 100", snap.Config.ScanMs)
	}
	if snap.Scanned {
		t.Error("expected Scanned=false initially")
	}
	if snap.Connected {
		t.Error("expected Connected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	at := start.Add(time.Minute)
	sensors := logic.Sensors{GasPresent: true, VacuumPresent: true}

	tr.Update(sensors, runningState(), at)
	tr.AddReadError()
	tr.AddReadError()

	snap := tr.Snapshot()
	if !snap.Scanned {
		t.Error("expected Scanned=true")
	}
	if !snap.LastScan.Equal(at) {
		t.Errorf("LastScan: got %v, want %v", snap.LastScan, at)
	}
	if snap.Sensors != sensors {
		t.Errorf("Sensors: got %+v", snap.Sensors)
	}
	if !snap.State.Run.Running {
		t.Error("expected running state")
	}
	if snap.ReadErrors != 2 {
		t.Errorf("ReadErrors: got %d, want 2", snap.ReadErrors)
	}
}

func TestSetConnectedAndNetwork(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	tr.SetConnected(true)
	tr.SetNetwork(&NetworkInfo{IP: "10.0.0.5"})

	snap := tr.Snapshot()
	if !snap.Connected {
		t.Error("expected Connected=true")
	}
	if snap.Network == nil || snap.Network.IP != "10.0.0.5" {
		t.Errorf("Network: got %+v", snap.Network)
	}

	tr.SetConnected(false)
	if tr.Snapshot().Connected {
		t.Error("expected Connected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	tr := fixedTracker(Config{}, start.Add(90*time.Second))
	if got := tr.Snapshot().Uptime(); got != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	tr.Update(logic.Sensors{}, runningState(), start)
	snap := tr.Snapshot()

	tr.Update(logic.Sensors{}, logic.State{}, start)
	if !snap.State.Run.Running {
		t.Error("earlier snapshot must not change")
	}
}

func TestFormatJSON(t *testing.T) {
	cfg := Config{ScanMs: 100, VoltageTrip: 400, VoltageReset: 380, Broker: "tcp://broker:1883", HTTPAddr: ":8080", Field: "sim"}
	tr := fixedTracker(cfg, start.Add(2*time.Minute))
	tr.Update(logic.Sensors{GasPresent: true, VacuumPresent: true, OilPressureOK: true}, runningState(), start.Add(2*time.Minute))
	tr.SetConnected(true)

	data := FormatJSON(tr.Snapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Event != "" || s.Reason != "" {
		t.Errorf("web status should carry no event, got %q/%q", s.Event, s.Reason)
	}
	if s.RunID != "run-1" {
		t.Errorf("RunID: got %q", s.RunID)
	}
	if !s.Running || !s.Ready || s.Alarm {
		t.Errorf("flags: running=%v ready=%v alarm=%v", s.Running, s.Ready, s.Alarm)
	}
	if s.AlarmCode != "NONE" || s.FirstOut != "NONE" || s.Display != "NONE" {
		t.Errorf("codes: %q %q %q", s.AlarmCode, s.FirstOut, s.Display)
	}
	if s.Sensors.Voltage != 231 || s.Sensors.BoilerTemp != 61.3 || s.Sensors.WaterTemp != 45 {
		t.Errorf("sensors not rounded: %+v", s.Sensors)
	}
	if !s.Outputs.GasValve || !s.Outputs.FanVent || s.Outputs.AlarmLight {
		t.Errorf("outputs: %+v", s.Outputs)
	}
	if s.Counters.Starts != 2 || s.Counters.Scans != 1234 || s.Counters.RunTimeSeconds != 90 {
		t.Errorf("counters: %+v", s.Counters)
	}
	if s.UptimeSeconds != 120 {
		t.Errorf("UptimeSeconds: got %d, want 120", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" || s.LastScan != "2026-01-01T00:02:00Z" {
		t.Errorf("times: start %q last %q", s.StartTime, s.LastScan)
	}
	if !s.Broker.Connected || s.Broker.URL != "tcp://broker:1883" {
		t.Errorf("broker: %+v", s.Broker)
	}
	if s.Network != nil {
		t.Error("network should be omitted when unknown")
	}
	if s.Config.VoltageTrip != 400 || s.Config.Field != "sim" || s.Config.HTTPAddr != ":8080" {
		t.Errorf("config: %+v", s.Config)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("web JSON should be indented")
	}
}

func TestFormatJSONBeforeFirstScan(t *testing.T) {
	tr := fixedTracker(Config{}, start)
	data := FormatJSON(tr.Snapshot())
	if strings.Contains(string(data), "last_scan") {
		t.Error("last_scan should be omitted before the first scan")
	}
	if !strings.Contains(string(data), `"scanned": false`) {
		t.Errorf("expected scanned false, got %s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := fixedTracker(Config{}, start)
	st := logic.State{
		Alarms:    logic.Alarms{NoGas: true, Any: true},
		AlarmCode: logic.AlarmNoGas,
		FirstOut:  logic.AlarmNoGas,
	}
	tr.Update(logic.Sensors{}, st, start)

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("event JSON should be compact")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if !parsed.Status.Alarms.NoGas || parsed.Status.AlarmCode != "NO_GAS" {
		t.Errorf("alarms: %+v code %q", parsed.Status.Alarms, parsed.Status.AlarmCode)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(fixedTracker(Config{}, start).Snapshot(), "HEARTBEAT", "")
	if strings.Contains(string(data), `"reason"`) {
		t.Errorf("reason should be omitted, got %s", data)
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	tr := fixedTracker(Config{}, start)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.20", SSID: "Plant"})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network == nil {
		t.Fatal("expected network")
	}
	if parsed.Status.Network.SSID != "Plant" || parsed.Status.Network.Type != "wifi" {
		t.Errorf("network: %+v", parsed.Status.Network)
	}
}

func TestDisplayCode(t *testing.T) {
	active := logic.State{Alarms: logic.Alarms{Any: true}, AlarmCode: logic.AlarmTempHigh, FirstOut: logic.AlarmNoGas}
	if got := DisplayCode(active); got != logic.AlarmTempHigh {
		t.Errorf("active: got %v, want TEMP_HIGH", got)
	}
	cleared := logic.State{FirstOut: logic.AlarmNoGas}
	if got := DisplayCode(cleared); got != logic.AlarmNoGas {
		t.Errorf("cleared: got %v, want NO_GAS", got)
	}
}

func TestRound1(t *testing.T) {
	cases := map[float64]float64{0: 0, 1.04: 1, 1.05: 1.1, -2.26: -2.3, 399.96: 400}
	for in, want := range cases {
		if got := round1(in); got != want {
			t.Errorf("round1(%v): got %v, want %v", in, got, want)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Sensors{Voltage: float64(i)}, logic.State{}, start)
			tr.SetConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
			tr.AddReadError()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()

	wg.Wait()
	if got := tr.Snapshot().ReadErrors; got != 1000 {
		t.Errorf("ReadErrors: got %d, want 1000", got)
	}
}
