package field

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sweeney/boiler-controller/internal/logic"
)

// Register offsets from AddressMap.AnalogBase (holding registers).
const (
	RegVoltage = iota
	RegBoilerTemp
	RegWaterTemp
	analogCount
)

// Discrete input offsets from AddressMap.InputBase. Offset 3 is unused.
const (
	InGas       = 0
	InVacuum    = 1
	InOilOK     = 2
	InEmergency = 4
	inputCount  = 5
)

// HMI command coil offsets from AddressMap.CommandBase.
const (
	CmdStart = iota
	CmdStop
	CmdSocket1
	CmdSocket2
	CmdResetAlarms
	commandCount
)

// Output coil offsets from AddressMap.OutputBase.
const (
	OutGasValve = iota
	OutSocket1
	OutSocket2
	OutWaterPump
	OutOilPump
	OutAlarmLight
	OutPermitRun
	OutFanVent
	outputCount
)

// AddressMap holds the base address of each block on the PLC.
type AddressMap struct {
	AnalogBase  uint16 `yaml:"analog_base"`
	InputBase   uint16 `yaml:"input_base"`
	CommandBase uint16 `yaml:"command_base"`
	OutputBase  uint16 `yaml:"output_base"`
}

// DefaultAddressMap returns the FATEK layout used on the boiler PLC.
func DefaultAddressMap() AddressMap {
	return AddressMap{
		AnalogBase:  0,
		InputBase:   0,
		CommandBase: 16,
		OutputBase:  0,
	}
}

// ModbusConfig describes how to reach the PLC.
type ModbusConfig struct {
	// Mode is "rtu" (serial) or "tcp".
	Mode string `yaml:"mode"`
	// Address is a serial device for rtu or host:port for tcp.
	Address  string        `yaml:"address"`
	BaudRate int           `yaml:"baud_rate"`
	SlaveID  byte          `yaml:"slave_id"`
	Timeout  time.Duration `yaml:"timeout"`

	// Full-scale physical values of the 12-bit analog channels.
	VoltageFullScale float64 `yaml:"voltage_full_scale"`
	TempFullScale    float64 `yaml:"temp_full_scale"`

	Map AddressMap `yaml:"map"`
}

// DefaultModbusConfig returns settings for the PLC on the first USB serial port.
func DefaultModbusConfig() ModbusConfig {
	return ModbusConfig{
		Mode:             "rtu",
		Address:          "/dev/ttyUSB0",
		BaudRate:         9600,
		SlaveID:          1,
		Timeout:          time.Second,
		VoltageFullScale: logic.VoltageFullScale,
		TempFullScale:    logic.TemperatureFullScale,
		Map:              DefaultAddressMap(),
	}
}

// Validate reports configuration errors.
func (c ModbusConfig) Validate() error {
	var errs []error
	switch strings.ToLower(c.Mode) {
	case "rtu", "tcp":
	default:
		errs = append(errs, fmt.Errorf("modbus mode %q must be rtu or tcp", c.Mode))
	}
	if c.Address == "" {
		errs = append(errs, errors.New("modbus address is required"))
	}
	if c.VoltageFullScale <= 0 || c.TempFullScale <= 0 {
		errs = append(errs, errors.New("modbus full scale values must be positive"))
	}
	return errors.Join(errs...)
}

const (
	maxConnRetries = 3
	connBackoff    = time.Second
)

// connector is the lifecycle half of the goburrow handlers.
type connector interface {
	Connect() error
	Close() error
}

// ModbusIO reads and writes the plant through a Modbus client.
type ModbusIO struct {
	client modbus.Client
	conn   connector
	cfg    ModbusConfig
}

// NewModbusIO connects to the PLC, retrying with exponential backoff.
// It gives up early if ctx is cancelled.
func NewModbusIO(ctx context.Context, cfg ModbusConfig) (*ModbusIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		h    modbus.ClientHandler
		conn connector
	)
	switch strings.ToLower(cfg.Mode) {
	case "tcp":
		th := modbus.NewTCPClientHandler(cfg.Address)
		th.Timeout = cfg.Timeout
		th.SlaveId = cfg.SlaveID
		h, conn = th, th
	default:
		rh := modbus.NewRTUClientHandler(cfg.Address)
		rh.BaudRate = cfg.BaudRate
		rh.DataBits = 8
		rh.Parity = "E"
		rh.StopBits = 1
		rh.Timeout = cfg.Timeout
		rh.SlaveId = cfg.SlaveID
		h, conn = rh, rh
	}

	if err := connectWithRetry(ctx, conn.Connect, maxConnRetries, connBackoff); err != nil {
		return nil, fmt.Errorf("connect to plc %s: %w", cfg.Address, err)
	}

	return newModbusIO(modbus.NewClient(h), conn, cfg), nil
}

func newModbusIO(client modbus.Client, conn connector, cfg ModbusConfig) *ModbusIO {
	return &ModbusIO{client: client, conn: conn, cfg: cfg}
}

// connectWithRetry calls connect up to attempts+1 times, doubling the wait
// after each failure.
func connectWithRetry(ctx context.Context, connect func() error, attempts int, base time.Duration) error {
	var err error
	for attempt := 0; attempt <= attempts; attempt++ {
		if err = connect(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		wait := time.Duration(math.Pow(2, float64(attempt))) * base
		log.Printf("field: connect failed (attempt %d): %v, retrying in %v", attempt, err, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts+1, err)
}

// Read fetches analog registers, discrete inputs and HMI command coils.
func (m *ModbusIO) Read() (Sample, error) {
	mp := m.cfg.Map

	regs, err := m.client.ReadHoldingRegisters(mp.AnalogBase, analogCount)
	if err != nil {
		return Sample{}, fmt.Errorf("read analog registers: %w", err)
	}
	if len(regs) < 2*analogCount {
		return Sample{}, fmt.Errorf("read analog registers: short response (%d bytes)", len(regs))
	}

	inputs, err := m.client.ReadDiscreteInputs(mp.InputBase, inputCount)
	if err != nil {
		return Sample{}, fmt.Errorf("read discrete inputs: %w", err)
	}
	if len(inputs) < (inputCount+7)/8 {
		return Sample{}, fmt.Errorf("read discrete inputs: short response (%d bytes)", len(inputs))
	}

	cmds, err := m.client.ReadCoils(mp.CommandBase, commandCount)
	if err != nil {
		return Sample{}, fmt.Errorf("read command coils: %w", err)
	}
	if len(cmds) < (commandCount+7)/8 {
		return Sample{}, fmt.Errorf("read command coils: short response (%d bytes)", len(cmds))
	}

	return Sample{
		Sensors: logic.Sensors{
			Voltage:       logic.ScaleADC(register(regs, RegVoltage), m.cfg.VoltageFullScale),
			BoilerTemp:    logic.ScaleADC(register(regs, RegBoilerTemp), m.cfg.TempFullScale),
			WaterTemp:     logic.ScaleADC(register(regs, RegWaterTemp), m.cfg.TempFullScale),
			GasPresent:    bit(inputs, InGas),
			VacuumPresent: bit(inputs, InVacuum),
			OilPressureOK: bit(inputs, InOilOK),
			EmergencyStop: bit(inputs, InEmergency),
		},
		Commands: logic.Commands{
			Start:       bit(cmds, CmdStart),
			Stop:        bit(cmds, CmdStop),
			Socket1:     bit(cmds, CmdSocket1),
			Socket2:     bit(cmds, CmdSocket2),
			ResetAlarms: bit(cmds, CmdResetAlarms),
		},
	}, nil
}

// Write sets all output coils with a single request.
func (m *ModbusIO) Write(out logic.Outputs) error {
	if _, err := m.client.WriteMultipleCoils(m.cfg.Map.OutputBase, outputCount, PackOutputs(out)); err != nil {
		return fmt.Errorf("write output coils: %w", err)
	}
	return nil
}

// Close closes the underlying serial port or TCP connection.
func (m *ModbusIO) Close() error {
	if m.conn == nil {
		return nil
	}
	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("close plc connection: %w", err)
	}
	return nil
}

// PackOutputs encodes the output image as a coil bitmap, LSB first.
func PackOutputs(out logic.Outputs) []byte {
	bits := [outputCount]bool{
		OutGasValve:   out.GasValve,
		OutSocket1:    out.Socket1,
		OutSocket2:    out.Socket2,
		OutWaterPump:  out.WaterPump,
		OutOilPump:    out.OilPump,
		OutAlarmLight: out.AlarmLight,
		OutPermitRun:  out.PermitRun,
		OutFanVent:    out.FanVent,
	}
	packed := make([]byte, (outputCount+7)/8)
	for i, on := range bits {
		if on {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}

func bit(b []byte, i int) bool {
	return b[i/8]>>(i%8)&1 == 1
}

// register decodes the i-th big-endian register from a response.
func register(b []byte, i int) uint16 {
	return uint16(b[2*i])<<8 | uint16(b[2*i+1])
}
