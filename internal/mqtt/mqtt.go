// Package mqtt publishes controller events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// Topic is the MQTT topic for controller events.
const Topic = "energy/boiler/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/boiler/controller/system"

// System event names.
const (
	SystemStartup     = "STARTUP"
	SystemShutdown    = "SHUTDOWN"
	SystemHeartbeat   = "HEARTBEAT"
	SystemReconnected = "RECONNECTED"
	SystemOffline     = "OFFLINE"
)

// Publisher publishes events to a broker.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // Pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload represents the message payload structure.
type Payload struct {
	Boiler BoilerPayload `json:"boiler"`
}

// BoilerPayload contains the controller event details.
type BoilerPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Running   bool   `json:"running"`
	Ready     bool   `json:"ready"`
	GasValve  bool   `json:"gas_valve"`
	Alarm     bool   `json:"alarm"`
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	var code string
	if event.Code != logic.AlarmNone {
		code = event.Code.String()
	}
	return json.Marshal(Payload{
		Boiler: BoilerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Code:      code,
			Reason:    event.Reason,
			Running:   event.Running,
			Ready:     event.Ready,
			GasValve:  event.GasValve,
			Alarm:     event.AnyAlarm,
		},
	})
}

// SystemPayload is the payload for system events that don't carry a full
// status snapshot (RECONNECTED, the will message).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// WillPayload is the retained message the broker publishes when the
// controller disappears without disconnecting.
func WillPayload() []byte {
	b, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: SystemOffline, Reason: "CONNECTION_LOST"},
	})
	return b
}
