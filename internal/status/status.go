// Package status provides a thread-safe status tracker for the controller
// daemon. It is read by the HTTP handlers, the heartbeat job and the metrics.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/netinfo from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ScanMs         int64
	StartupDelayMs int64
	FilterWindow   int
	HeartbeatMs    int64
	VoltageTrip    float64
	VoltageReset   float64
	TempTrip       float64
	TempReset      float64
	Field          string // e.g. "modbus rtu /dev/ttyUSB0", "sim"
	Broker         string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	RunID      string
	Sensors    logic.Sensors
	State      logic.State
	Scanned    bool // at least one cycle has completed
	LastScan   time.Time
	ReadErrors int
	StartTime  time.Time
	Now        time.Time
	Connected  bool // broker connection
	Network    *NetworkInfo
	Config     Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, run ID and config.
func NewTracker(startTime time.Time, runID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     runID,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the result of a completed cycle.
// Called from runLoop on every tick.
func (t *Tracker) Update(sensors logic.Sensors, state logic.State, at time.Time) {
	t.mu.Lock()
	t.snap.Sensors = sensors
	t.snap.State = state
	t.snap.Scanned = true
	t.snap.LastScan = at
	t.mu.Unlock()
}

// AddReadError counts a cycle skipped because the field read failed.
func (t *Tracker) AddReadError() {
	t.mu.Lock()
	t.snap.ReadErrors++
	t.mu.Unlock()
}

// SetConnected sets the broker connection status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
