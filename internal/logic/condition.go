package logic

import "math"

// ADCMax is the full-scale count of the 12-bit analog inputs.
const ADCMax = 4095

// Full-scale physical ranges of the analog channels.
const (
	VoltageFullScale     = 500.0 // V
	TemperatureFullScale = 150.0 // °C
)

// ScaleADC converts a raw ADC count to physical units.
// Counts above ADCMax are clamped.
func ScaleADC(raw uint16, fullScale float64) float64 {
	if raw > ADCMax {
		raw = ADCMax
	}
	return float64(raw) * fullScale / ADCMax
}

// movingAverage keeps the last n samples of a signal.
type movingAverage struct {
	buf   []float64
	head  int
	count int
	sum   float64
}

func newMovingAverage(n int) *movingAverage {
	if n <= 1 {
		return nil
	}
	return &movingAverage{buf: make([]float64, n)}
}

// add records v and returns the average of the retained samples.
// A nil filter passes v through unchanged. NaN and ±Inf are not recorded:
// the current average is returned instead, or v itself while empty.
func (m *movingAverage) add(v float64) float64 {
	if m == nil {
		return v
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		if m.count == 0 {
			return v
		}
		return m.sum / float64(m.count)
	}
	if m.count == len(m.buf) {
		m.sum -= m.buf[m.head]
	} else {
		m.count++
	}
	m.buf[m.head] = v
	m.sum += v
	m.head = (m.head + 1) % len(m.buf)
	return m.sum / float64(m.count)
}

func (m *movingAverage) reset() {
	if m == nil {
		return
	}
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.head, m.count, m.sum = 0, 0, 0
}

// condition updates the analog values alarms are evaluated against.
func (e *Engine) condition(s Sensors) {
	e.state.Voltage = e.voltageFilter.add(s.Voltage)
	e.state.BoilerTemp = e.tempFilter.add(s.BoilerTemp)
	e.state.WaterTemp = s.WaterTemp
}
