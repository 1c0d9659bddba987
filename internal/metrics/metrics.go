// Package metrics exposes controller metrics to Prometheus.
// All Recorder methods are safe on a nil receiver so metrics stay optional.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/boiler-controller/internal/logic"
)

const namespace = "boiler"

// Recorder holds the controller collectors.
type Recorder struct {
	reg *prom.Registry

	scanDuration prom.Histogram
	scans        prom.Counter
	readErrors   prom.Counter
	writeErrors  prom.Counter
	publishErrs  prom.Counter
	events       *prom.CounterVec

	running   prom.Gauge
	ready     prom.Gauge
	alarm     prom.Gauge
	alarmCode prom.Gauge
	analog    *prom.GaugeVec
	outputs   *prom.GaugeVec
	plant     *prom.GaugeVec
}

// NewRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		scanDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time from field read to output write for one scan",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
		}),
		scans: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scan cycles",
		}),
		readErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "field_read_errors_total",
			Help:      "Scans skipped because the field read failed",
		}),
		writeErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "field_write_errors_total",
			Help:      "Failed output writes",
		}),
		publishErrs: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Events that could not be handed to the broker",
		}),
		events: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Transition events by type",
		}, []string{"event"}),
		running: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the boiler is running",
		}),
		ready: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 while the boiler is ready",
		}),
		alarm: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm",
			Help:      "1 while any alarm is active",
		}),
		alarmCode: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_code",
			Help:      "Highest-priority active alarm code (0 = none)",
		}),
		analog: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "analog_value",
			Help:      "Conditioned analog inputs",
		}, []string{"input"}),
		outputs: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "output",
			Help:      "Actuator output state",
		}, []string{"output"}),
		plant: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "plant_counter",
			Help:      "Controller statistics since start",
		}, []string{"counter"}),
	}
	reg.MustRegister(r.scanDuration, r.scans, r.readErrors, r.writeErrors, r.publishErrs,
		r.events, r.running, r.ready, r.alarm, r.alarmCode, r.analog, r.outputs, r.plant)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveScan records one completed scan.
func (r *Recorder) ObserveScan(d time.Duration) {
	if r == nil {
		return
	}
	r.scans.Inc()
	r.scanDuration.Observe(d.Seconds())
}

func (r *Recorder) IncReadError() {
	if r == nil {
		return
	}
	r.readErrors.Inc()
}

func (r *Recorder) IncWriteError() {
	if r == nil {
		return
	}
	r.writeErrors.Inc()
}

func (r *Recorder) IncPublishError() {
	if r == nil {
		return
	}
	r.publishErrs.Inc()
}

func (r *Recorder) IncEvent(t logic.EventType) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(string(t)).Inc()
}

// SetState mirrors the controller state into the gauges.
func (r *Recorder) SetState(st logic.State) {
	if r == nil {
		return
	}
	r.running.Set(b2f(st.Run.Running))
	r.ready.Set(b2f(st.Run.Ready))
	r.alarm.Set(b2f(st.Alarms.Any))
	r.alarmCode.Set(float64(st.AlarmCode))

	r.analog.WithLabelValues("voltage").Set(st.Voltage)
	r.analog.WithLabelValues("boiler_temp").Set(st.BoilerTemp)
	r.analog.WithLabelValues("water_temp").Set(st.WaterTemp)

	o := st.Outputs
	r.outputs.WithLabelValues("gas_valve").Set(b2f(o.GasValve))
	r.outputs.WithLabelValues("socket1").Set(b2f(o.Socket1))
	r.outputs.WithLabelValues("socket2").Set(b2f(o.Socket2))
	r.outputs.WithLabelValues("water_pump").Set(b2f(o.WaterPump))
	r.outputs.WithLabelValues("oil_pump").Set(b2f(o.OilPump))
	r.outputs.WithLabelValues("fan_vent").Set(b2f(o.FanVent))
	r.outputs.WithLabelValues("alarm_light").Set(b2f(o.AlarmLight))
	r.outputs.WithLabelValues("permit_run").Set(b2f(o.PermitRun))

	c := st.Counters
	r.plant.WithLabelValues("starts").Set(float64(c.Starts))
	r.plant.WithLabelValues("stops").Set(float64(c.Stops))
	r.plant.WithLabelValues("alarms").Set(float64(c.Alarms))
	r.plant.WithLabelValues("gas_failures").Set(float64(c.GasFailures))
	r.plant.WithLabelValues("vacuum_failures").Set(float64(c.VacuumFailures))
	r.plant.WithLabelValues("run_time_seconds").Set(c.RunTime.Seconds())
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
