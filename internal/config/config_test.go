package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/boiler-controller/internal/logic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3*time.Second, cfg.StartupDelay)
	assert.Equal(t, DriverModbus, cfg.Field.Driver)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
scan_interval: 50ms
startup_delay: 0s
thresholds:
  voltage_trip: 250
  voltage_reset: 240
field:
  driver: modbus
  modbus:
    mode: tcp
    address: 10.0.0.7:502
    map:
      command_base: 32
publisher:
  broker: nats://nats.local:4222
  heartbeat: 1m
panel:
  enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.ScanInterval)
	assert.Equal(t, time.Duration(0), cfg.StartupDelay)
	assert.Equal(t, 250.0, cfg.Thresholds.VoltageTrip)
	assert.Equal(t, 240.0, cfg.Thresholds.VoltageReset)
	assert.Equal(t, float64(logic.DefaultTempTrip), cfg.Thresholds.TempTrip, "unset keys keep their defaults")
	assert.Equal(t, "tcp", cfg.Field.Modbus.Mode)
	assert.Equal(t, uint16(32), cfg.Field.Modbus.Map.CommandBase)
	assert.Equal(t, byte(1), cfg.Field.Modbus.SlaveID)
	assert.Equal(t, PublisherNATS, cfg.Publisher.Kind())
	assert.Equal(t, time.Minute, cfg.Publisher.Heartbeat)
	assert.True(t, cfg.Panel.Enabled)
	assert.Equal(t, 17, cfg.Panel.Pins.Start)
	assert.Equal(t, "modbus tcp 10.0.0.7:502", cfg.FieldDescription())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("BOILER_BROKER", "tcp://mqtt.plant:1883")
	path := writeConfig(t, "publisher:\n  broker: ${BOILER_BROKER}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://mqtt.plant:1883", cfg.Publisher.Broker)
	assert.Equal(t, PublisherMQTT, cfg.Publisher.Kind())
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "scan_intervall: 1s\n"))
	assert.Error(t, err)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	_, err := Load(writeConfig(t, "thresholds:\n  temp_trip: 70\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boiler temperature reset")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ScanInterval = 0
	cfg.Field.Driver = "serial"
	cfg.Publisher.Broker = "localhost"
	cfg.Publisher.Heartbeat = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"scan_interval", "field.driver", "publisher.broker", "publisher.heartbeat"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSimDriverSkipsModbusValidation(t *testing.T) {
	cfg := Default()
	cfg.Field.Driver = DriverSim
	cfg.Field.Modbus.Address = ""
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSim, cfg.FieldDescription())
}

func TestPublisherKind(t *testing.T) {
	assert.Equal(t, PublisherNone, PublisherConfig{}.Kind())
	assert.Equal(t, PublisherMQTT, PublisherConfig{Broker: "ssl://b:8883"}.Kind())
	assert.Equal(t, PublisherNATS, PublisherConfig{Broker: "nats://b:4222"}.Kind())
}

func TestLogic(t *testing.T) {
	lc := Default().Logic()
	assert.Equal(t, logic.Band{Trip: 400, Reset: 380}, lc.Voltage)
	assert.Equal(t, logic.Band{Trip: 80, Reset: 75}, lc.BoilerTemp)
	assert.Equal(t, 5, lc.FilterWindow)
	assert.NoError(t, lc.Validate())
}
