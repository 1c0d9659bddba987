package logic

import "time"

// Engine runs the scan cycle. It is not safe for concurrent use: one
// goroutine owns it and calls Tick once per scan period.
type Engine struct {
	cfg   Config
	state State
	prev  previous

	voltageFilter *movingAverage
	tempFilter    *movingAverage

	// Sample time of the accepted start, used for the startup delay.
	enabledAt time.Time
	// Sample time of the previous tick, used for run time accounting.
	lastTime time.Time
}

// NewEngine creates an engine with all flags false and counters zero.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:           cfg,
		voltageFilter: newMovingAverage(cfg.FilterWindow),
		tempFilter:    newMovingAverage(cfg.FilterWindow),
	}, nil
}

// Tick runs one scan cycle over a complete input snapshot and returns the
// resulting state together with any transition events.
func (e *Engine) Tick(in Input) Result {
	e.condition(in.Sensors)
	e.evaluateAlarms(in.Sensors)
	e.arbitrate(in)
	e.deriveReady(in.Sensors)
	e.control(in)
	events := e.bookkeep(in)
	return Result{State: e.state, Events: events}
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Reset returns the engine to its startup state.
func (e *Engine) Reset() {
	e.state = State{}
	e.prev = previous{}
	e.enabledAt = time.Time{}
	e.lastTime = time.Time{}
	e.voltageFilter.reset()
	e.tempFilter.reset()
}
