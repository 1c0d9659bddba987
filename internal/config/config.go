// Package config loads the controller daemon configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sweeney/boiler-controller/internal/field"
	"github.com/sweeney/boiler-controller/internal/gpio"
	"github.com/sweeney/boiler-controller/internal/logic"
	"github.com/sweeney/boiler-controller/internal/netinfo"
	"gopkg.in/yaml.v3"
)

// Field drivers.
const (
	DriverModbus = "modbus"
	DriverSim    = "sim"
)

// Publisher kinds, chosen by broker URL scheme.
const (
	PublisherNone = "none"
	PublisherMQTT = "mqtt"
	PublisherNATS = "nats"
)

// Config is the daemon configuration.
type Config struct {
	ScanInterval time.Duration   `yaml:"scan_interval"`
	StartupDelay time.Duration   `yaml:"startup_delay"`
	FilterWindow int             `yaml:"filter_window"`
	Thresholds   Thresholds      `yaml:"thresholds"`
	Field        FieldConfig     `yaml:"field"`
	Panel        PanelConfig     `yaml:"panel"`
	Publisher    PublisherConfig `yaml:"publisher"`
	HTTP         HTTPConfig      `yaml:"http"`
	NetworkEnv   string          `yaml:"network_env"`
}

// Thresholds are the alarm trip and reset points.
type Thresholds struct {
	VoltageTrip      float64 `yaml:"voltage_trip"`
	VoltageReset     float64 `yaml:"voltage_reset"`
	TempTrip         float64 `yaml:"temp_trip"`
	TempReset        float64 `yaml:"temp_reset"`
	WaterPumpMinTemp float64 `yaml:"water_pump_min_temp"`
}

// FieldConfig selects and configures the plant I/O.
type FieldConfig struct {
	Driver string             `yaml:"driver"`
	Modbus field.ModbusConfig `yaml:"modbus"`
}

// PanelConfig enables the local pushbutton panel.
type PanelConfig struct {
	Enabled bool      `yaml:"enabled"`
	Pins    gpio.Pins `yaml:"pins"`
}

// PublisherConfig configures event publishing.
type PublisherConfig struct {
	// Broker is an MQTT (tcp://, ssl://, ws://, mqtt://) or NATS (nats://)
	// URL. Empty disables publishing.
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ScanInterval: 100 * time.Millisecond,
		StartupDelay: 3 * time.Second,
		FilterWindow: 5,
		Thresholds: Thresholds{
			VoltageTrip:      logic.DefaultVoltageTrip,
			VoltageReset:     logic.DefaultVoltageReset,
			TempTrip:         logic.DefaultTempTrip,
			TempReset:        logic.DefaultTempReset,
			WaterPumpMinTemp: logic.DefaultWaterPumpMinTemp,
		},
		Field: FieldConfig{
			Driver: DriverModbus,
			Modbus: field.DefaultModbusConfig(),
		},
		Panel: PanelConfig{Pins: gpio.DefaultPins()},
		Publisher: PublisherConfig{
			Broker:    "tcp://localhost:1883",
			Heartbeat: 15 * time.Minute,
		},
		HTTP:       HTTPConfig{Addr: ":8080"},
		NetworkEnv: netinfo.DefaultPath,
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. Environment variables in the file are expanded. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Logic returns the engine configuration.
func (c Config) Logic() logic.Config {
	return logic.Config{
		Voltage:          logic.Band{Trip: c.Thresholds.VoltageTrip, Reset: c.Thresholds.VoltageReset},
		BoilerTemp:       logic.Band{Trip: c.Thresholds.TempTrip, Reset: c.Thresholds.TempReset},
		WaterPumpMinTemp: c.Thresholds.WaterPumpMinTemp,
		StartupDelay:     c.StartupDelay,
		FilterWindow:     c.FilterWindow,
	}
}

// Kind returns which publisher the broker URL selects.
func (p PublisherConfig) Kind() string {
	switch {
	case p.Broker == "":
		return PublisherNone
	case strings.HasPrefix(p.Broker, "nats://"):
		return PublisherNATS
	default:
		return PublisherMQTT
	}
}

// FieldDescription is a short human-readable summary of the field I/O.
func (c Config) FieldDescription() string {
	if c.Field.Driver == DriverSim {
		return DriverSim
	}
	m := c.Field.Modbus
	return fmt.Sprintf("modbus %s %s", strings.ToLower(m.Mode), m.Address)
}

// Validate reports every configuration error.
func (c Config) Validate() error {
	var errs []error
	if c.ScanInterval <= 0 {
		errs = append(errs, fmt.Errorf("scan_interval %v must be positive", c.ScanInterval))
	}
	if c.Publisher.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("publisher.heartbeat %v must not be negative", c.Publisher.Heartbeat))
	}
	switch c.Field.Driver {
	case DriverSim:
	case DriverModbus:
		if err := c.Field.Modbus.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("field.driver %q must be %s or %s", c.Field.Driver, DriverModbus, DriverSim))
	}
	if p := c.Publisher.Broker; p != "" && !strings.Contains(p, "://") {
		errs = append(errs, fmt.Errorf("publisher.broker %q must be a URL", p))
	}
	if err := c.Logic().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
