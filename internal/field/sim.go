package field

import (
	"sync"

	"github.com/sweeney/boiler-controller/internal/logic"
)

// SimIO is an in-memory plant for bench runs without a PLC. It starts
// healthy and stays that way unless Update changes the sample; the daemon
// never does, so `--field sim` runs a static plant driven by the panel.
// It is safe for concurrent use.
type SimIO struct {
	mu      sync.Mutex
	sample  Sample
	outputs logic.Outputs
	writes  int
}

// NewSimIO creates a simulated plant with healthy readings.
func NewSimIO() *SimIO {
	return &SimIO{sample: Sample{Sensors: HealthySensors()}}
}

// HealthySensors returns readings that raise no alarm.
func HealthySensors() logic.Sensors {
	return logic.Sensors{
		Voltage:       230,
		BoilerTemp:    60,
		WaterTemp:     45,
		OilPressureOK: true,
		GasPresent:    true,
		VacuumPresent: true,
	}
}

// Read returns the current simulated sample.
func (s *SimIO) Read() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample, nil
}

// Write stores the output image.
func (s *SimIO) Write(out logic.Outputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = out
	s.writes++
	return nil
}

// Close is a no-op.
func (s *SimIO) Close() error {
	return nil
}

// Update changes the simulated sample in place.
func (s *SimIO) Update(fn func(*Sample)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.sample)
}

// Outputs returns the last written output image and the number of writes.
func (s *SimIO) Outputs() (logic.Outputs, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs, s.writes
}
