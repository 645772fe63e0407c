package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/reed-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"outcomeClass": func(outcome string) string {
		if outcome == "DELIVERED" {
			return "ok"
		}
		return "err"
	},
}).Parse(indexHTML))

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Reed Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.closed { color: green; font-weight: bold; }
.open { color: #c60; font-weight: bold; }
.unknown { color: orange; }
.ok { color: green; }
.err { color: red; }
</style>
</head>
<body>
<h1>Reed Sensor {{.DeviceID}}</h1>

<h2>Sensor</h2>
<table>
<tr><th>Status</th><td id="sensor" class="{{if eq .Sensor "CLOSED"}}closed{{else if eq .Sensor "OPEN"}}open{{else}}unknown{{end}}">{{.Sensor}}</td></tr>
<tr><th>Level</th><td>{{if .HasLevel}}{{.Level}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Edges</th><td>{{.Counts.Edges}}</td></tr>
</table>

<h2>Last Report</h2>
<table>
{{with .Last}}<tr><th>Time</th><td>{{.Time.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Kind</th><td>{{if .Heartbeat}}heartbeat{{else}}change{{end}}</td></tr>
<tr><th>Outcome</th><td class="{{outcomeClass .Outcome}}">{{.Outcome}}{{if .HTTPStatus}} ({{.HTTPStatus}}){{end}}</td></tr>
{{else}}<tr><th>Time</th><td>none yet</td></tr>{{end}}
</table>

<h2>Report Counts</h2>
<table>
<tr><th>Reports</th><td>{{.Counts.Reports}}</td></tr>
<tr><th>Heartbeats</th><td>{{.Counts.Heartbeats}}</td></tr>
<tr><th>Delivered</th><td>{{.Counts.Delivered}}</td></tr>
<tr><th>Request failed</th><td>{{.Counts.RequestFailed}}</td></tr>
<tr><th>Send failed</th><td>{{.Counts.SendFailed}}</td></tr>
<tr><th>Timed out</th><td>{{.Counts.TimedOut}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Wi-Fi</th><td class="{{if eq .LinkState "CONNECTED"}}ok{{else}}err{{end}}">{{.LinkState}}</td></tr>
<tr><th>Connect attempts</th><td>{{.ConnectAttempts}}</td></tr>
<tr><th>Interface</th><td>{{.Config.Interface}} {{if .LinkUp}}up{{else}}down{{end}}</td></tr>
<tr><th>IP</th><td>{{if .IP}}{{.IP}}{{else}}none{{end}}</td></tr>
<tr><th>Server</th><td>{{.Config.BaseURL}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}err{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
{{with .Host}}<tr><th>Host uptime</th><td>{{.UptimeSeconds}}s</td></tr>
<tr><th>Memory used</th><td>{{printf "%.1f" .MemUsedPercent}}%</td></tr>{{end}}
<tr><th>Pin</th><td>{{.Config.Chip}}:{{.Config.Pin}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.WaitTimeoutMs}}ms</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot methods are flattened into fields for the template.
	data := struct {
		status.Snapshot
		Sensor    string
		LinkState string
		Uptime    time.Duration
	}{
		Snapshot:  snap,
		Sensor:    status.SensorString(snap),
		LinkState: snap.Link.String(),
		Uptime:    snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
