package logic

// evaluateAlarms updates every alarm flag, then Any and the alarm code.
func (e *Engine) evaluateAlarms(s Sensors) {
	a := &e.state.Alarms

	a.VoltageHigh = e.cfg.Voltage.Apply(e.state.Voltage, a.VoltageHigh)
	a.TempHigh = e.cfg.BoilerTemp.Apply(e.state.BoilerTemp, a.TempHigh)

	a.NoGas = !s.GasPresent
	a.NoVacuum = !s.VacuumPresent
	a.OilPressureLow = !s.OilPressureOK
	a.Emergency = s.EmergencyStop

	a.Any = a.VoltageHigh || a.TempHigh || a.NoGas || a.NoVacuum ||
		a.OilPressureLow || a.Emergency

	e.state.AlarmCode = alarmCode(*a)
}

// alarmCode returns the highest-priority active alarm.
func alarmCode(a Alarms) AlarmCode {
	switch {
	case a.VoltageHigh:
		return AlarmVoltageHigh
	case a.TempHigh:
		return AlarmTempHigh
	case a.NoGas:
		return AlarmNoGas
	case a.NoVacuum:
		return AlarmNoVacuum
	case a.OilPressureLow:
		return AlarmOilPressureLow
	case a.Emergency:
		return AlarmEmergency
	default:
		return AlarmNone
	}
}
