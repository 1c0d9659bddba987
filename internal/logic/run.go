package logic

// arbitrate applies the start and stop commands. Start acts only on a rising
// edge with the plant idle and alarm-free. A stop edge or any alarm drops
// Enabled and Running in the same cycle, after start has been considered, so
// stop always wins.
func (e *Engine) arbitrate(in Input) {
	r := &e.state.Run
	anyAlarm := e.state.Alarms.Any

	startEdge := in.Commands.Start && !e.prev.start
	stopEdge := in.Commands.Stop && !e.prev.stop

	if startEdge && !r.Running && !r.Enabled && !anyAlarm {
		r.Enabled = true
		e.enabledAt = in.Time
	}

	if stopEdge || anyAlarm {
		r.Enabled = false
		r.Running = false
	}

	if r.Enabled && !r.Running && in.Time.Sub(e.enabledAt) >= e.cfg.StartupDelay {
		r.Running = true
	}
}

// deriveReady recomputes readiness from scratch.
func (e *Engine) deriveReady(s Sensors) {
	a := e.state.Alarms
	e.state.Run.Ready = e.state.Run.Running &&
		!a.VoltageHigh &&
		!a.TempHigh &&
		s.GasPresent &&
		s.VacuumPresent &&
		s.OilPressureOK &&
		!s.EmergencyStop
}

// control computes the output image.
func (e *Engine) control(in Input) {
	o := &e.state.Outputs
	a := e.state.Alarms
	r := e.state.Run

	o.Socket1 = in.Commands.Socket1 && !a.Any
	o.Socket2 = in.Commands.Socket2 && !a.Any
	o.WaterPump = r.Ready && e.state.WaterTemp > e.cfg.WaterPumpMinTemp
	o.OilPump = r.Ready && in.Sensors.OilPressureOK
	o.FanVent = r.Running
	o.AlarmLight = a.Any
	o.PermitRun = r.Ready

	o.GasValve = r.Ready
	// Vacuum interlock. Must stay the last write to the valve.
	if !in.Sensors.VacuumPresent {
		o.GasValve = false
	}
}
