package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/boiler-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"okfault": func(ok bool) string {
		if ok {
			return "OK"
		}
		return "FAULT"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Boiler Controller</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alarm { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Boiler Controller</h1>

<h2>Run</h2>
<table>
<tr><th>Running</th><td id="running" class="{{if .State.Run.Running}}on{{else}}off{{end}}">{{onoff .State.Run.Running}}</td></tr>
<tr><th>Ready</th><td id="ready" class="{{if .State.Run.Ready}}on{{else}}off{{end}}">{{onoff .State.Run.Ready}}</td></tr>
<tr><th>Alarm</th><td id="alarm" class="{{if .State.Alarms.Any}}alarm{{else}}off{{end}}">{{.Display}}</td></tr>
<tr><th>First out</th><td>{{.State.FirstOut}}</td></tr>
{{if not .Scanned}}<tr><th>Scan</th><td class="alarm">waiting for first scan</td></tr>{{end}}
</table>

<h2>Plant</h2>
<table>
<tr><th>Voltage</th><td>{{printf "%.1f" .State.Voltage}} V</td></tr>
<tr><th>Boiler temperature</th><td>{{printf "%.1f" .State.BoilerTemp}} °C</td></tr>
<tr><th>Water temperature</th><td>{{printf "%.1f" .State.WaterTemp}} °C</td></tr>
<tr><th>Gas</th><td>{{okfault .Sensors.GasPresent}}</td></tr>
<tr><th>Vacuum</th><td>{{okfault .Sensors.VacuumPresent}}</td></tr>
<tr><th>Oil pressure</th><td>{{okfault .Sensors.OilPressureOK}}</td></tr>
<tr><th>Emergency stop</th><td class="{{if .Sensors.EmergencyStop}}alarm{{end}}">{{if .Sensors.EmergencyStop}}PRESSED{{else}}released{{end}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Gas valve</th><td id="gas-valve" class="{{if .State.Outputs.GasValve}}on{{else}}off{{end}}">{{onoff .State.Outputs.GasValve}}</td></tr>
<tr><th>Socket 1</th><td>{{onoff .State.Outputs.Socket1}}</td></tr>
<tr><th>Socket 2</th><td>{{onoff .State.Outputs.Socket2}}</td></tr>
<tr><th>Water pump</th><td>{{onoff .State.Outputs.WaterPump}}</td></tr>
<tr><th>Oil pump</th><td>{{onoff .State.Outputs.OilPump}}</td></tr>
<tr><th>Fan</th><td>{{onoff .State.Outputs.FanVent}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Starts</th><td>{{.State.Counters.Starts}}</td></tr>
<tr><th>Stops</th><td>{{.State.Counters.Stops}}</td></tr>
<tr><th>Alarms</th><td>{{.State.Counters.Alarms}}</td></tr>
<tr><th>Gas failures</th><td>{{.State.Counters.GasFailures}}</td></tr>
<tr><th>Vacuum failures</th><td>{{.State.Counters.VacuumFailures}}</td></tr>
<tr><th>Run time</th><td>{{uptime .State.Counters.RunTime}}</td></tr>
<tr><th>Scans</th><td>{{.State.Counters.Scans}} ({{.ReadErrors}} read errors)</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Broker</th><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{.Config.Broker}} ({{if .Connected}}connected{{else}}disconnected{{end}})</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Run ID</th><td>{{.RunID}}</td></tr>
<tr><th>Field</th><td>{{.Config.Field}}</td></tr>
<tr><th>Scan</th><td>{{.Config.ScanMs}}ms</td></tr>
<tr><th>Startup delay</th><td>{{.Config.StartupDelayMs}}ms</td></tr>
<tr><th>Voltage trip/reset</th><td>{{.Config.VoltageTrip}} / {{.Config.VoltageReset}} V</td></tr>
<tr><th>Temperature trip/reset</th><td>{{.Config.TempTrip}} / {{.Config.TempReset}} °C</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template needs fields, not methods with arguments.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Display string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Display:  status.DisplayCode(snap.State).String(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render error: %v", err)
	}
}
