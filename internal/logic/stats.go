package logic

// bookkeep counts edges, emits transition events and finally replaces the
// previous-cycle snapshot. All comparisons read e.prev before it is written.
func (e *Engine) bookkeep(in Input) []Event {
	st := &e.state
	c := &st.Counters
	p := e.prev

	var events []Event
	emit := func(t EventType, code AlarmCode, reason string) {
		events = append(events, Event{
			Timestamp: in.Time,
			Type:      t,
			Code:      code,
			Reason:    reason,
			Running:   st.Run.Running,
			Ready:     st.Run.Ready,
			GasValve:  st.Outputs.GasValve,
			AnyAlarm:  st.Alarms.Any,
		})
	}

	if st.Alarms.Any && !p.anyAlarm {
		c.Alarms++
		if st.FirstOut == AlarmNone {
			st.FirstOut = st.AlarmCode
		}
		emit(EventAlarm, st.AlarmCode, "")
	}
	if !st.Alarms.Any && p.anyAlarm {
		emit(EventAlarmCleared, AlarmNone, "")
	}

	if p.running && !st.Run.Running {
		c.Stops++
		reason := ReasonStop
		if st.Alarms.Any {
			reason = ReasonAlarm
		}
		emit(EventStopped, st.AlarmCode, reason)
	}
	if !p.running && st.Run.Running {
		c.Starts++
		emit(EventStarted, AlarmNone, "")
	}

	if p.gasPresent && !in.Sensors.GasPresent {
		c.GasFailures++
		emit(EventGasLost, AlarmNoGas, "")
	}
	if p.vacuumPresent && !in.Sensors.VacuumPresent {
		c.VacuumFailures++
		emit(EventVacuumLost, AlarmNoVacuum, "")
	}

	if st.Outputs.GasValve != p.gasValve {
		if st.Outputs.GasValve {
			emit(EventValveOpen, AlarmNone, "")
		} else {
			emit(EventValveClosed, st.AlarmCode, "")
		}
	}

	if in.Commands.ResetAlarms && !p.reset && !st.Alarms.Any && st.FirstOut != AlarmNone {
		st.FirstOut = AlarmNone
		emit(EventAlarmsReset, AlarmNone, "")
	}

	if p.running && st.Run.Running && !e.lastTime.IsZero() {
		if d := in.Time.Sub(e.lastTime); d > 0 {
			c.RunTime += d
		}
	}
	c.Scans++
	e.lastTime = in.Time

	e.prev = previous{
		start:         in.Commands.Start,
		stop:          in.Commands.Stop,
		reset:         in.Commands.ResetAlarms,
		gasPresent:    in.Sensors.GasPresent,
		vacuumPresent: in.Sensors.VacuumPresent,
		anyAlarm:      st.Alarms.Any,
		running:       st.Run.Running,
		gasValve:      st.Outputs.GasValve,
	}
	return events
}
