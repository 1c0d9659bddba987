package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/boiler-controller/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventStopped,
		Code:      logic.AlarmNoVacuum,
		Reason:    logic.ReasonAlarm,
		AnyAlarm:  true,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"boiler":{"timestamp":"2026-02-02T22:18:12Z","event":"STOPPED","code":"NO_VACUUM","reason":"ALARM","running":false,"ready":false,"gas_valve":false,"alarm":true}}`
	if string(payload) != want {
		t.Errorf("payload:\n got %s\nwant %s", payload, want)
	}
}

func TestFormatPayloadOmitsEmptyCodeAndReason(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventValveOpen,
		Running:   true,
		Ready:     true,
		GasValve:  true,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	b := raw["boiler"]
	if _, ok := b["code"]; ok {
		t.Error("code should be omitted for NONE")
	}
	if _, ok := b["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
	if b["gas_valve"] != true || b["running"] != true || b["ready"] != true {
		t.Errorf("unexpected flags: %v", b)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 3, 0, 18, 12, 0, loc),
		Type:      logic.EventStarted,
	}
	payload, _ := FormatPayload(event)

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Boiler.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("timestamp: got %s, want UTC", parsed.Boiler.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     SystemReconnected,
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(payload) != want {
		t.Errorf("got %s, want %s", payload, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: SystemHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestWillPayload(t *testing.T) {
	want := `{"system":{"event":"OFFLINE","reason":"CONNECTION_LOST"}}`
	if got := string(WillPayload()); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	if !f.IsConnected() {
		t.Error("new fake should report connected")
	}

	events := []logic.Event{
		{Type: logic.EventStarted},
		{Type: logic.EventValveOpen},
		{Type: logic.EventAlarm, Code: logic.AlarmNoGas},
	}
	for _, e := range events {
		if err := f.Publish(e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got := f.EventTypes()
	if len(got) != 3 || got[0] != logic.EventStarted || got[2] != logic.EventAlarm {
		t.Errorf("unexpected order: %v", got)
	}
	if n := len(f.Payloads(Topic)); n != 3 {
		t.Errorf("expected 3 payloads, got %d", n)
	}

	if err := f.PublishSystem(SystemEvent{Event: SystemStartup, Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last := f.Sent[len(f.Sent)-1]; last.Topic != TopicSystem || !last.Retained {
		t.Errorf("system message: got topic %s retained %v", last.Topic, last.Retained)
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != SystemStartup {
		t.Errorf("unexpected system events: %v", names)
	}

	f.Close()
	if !f.Closed {
		t.Error("should be closed")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("down")
	f.PublishSystemError = errors.New("down")

	if err := f.Publish(logic.Event{}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected publish system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes must not be recorded")
	}
}
