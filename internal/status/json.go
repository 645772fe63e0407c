package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	DeviceID      string      `json:"device_id"`
	BootID        string      `json:"boot_id"`
	Sensor        string      `json:"sensor"`
	Level         string      `json:"level"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Link          LinkJSON    `json:"link"`
	LastReport    *ReportJSON `json:"last_report,omitempty"`
	Counts        CountsJSON  `json:"report_counts"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Host          *HostJSON   `json:"host,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// LinkJSON reports the wireless link.
type LinkJSON struct {
	State           string `json:"state"`
	Up              bool   `json:"up"`
	IP              string `json:"ip,omitempty"`
	ConnectAttempts uint64 `json:"connect_attempts"`
}

// ReportJSON is the JSON representation of the last report.
type ReportJSON struct {
	Timestamp  string `json:"timestamp"`
	Heartbeat  bool   `json:"heartbeat"`
	Outcome    string `json:"outcome"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// CountsJSON is the JSON representation of report counts.
type CountsJSON struct {
	Reports       int    `json:"reports"`
	Heartbeats    int    `json:"heartbeats"`
	Delivered     int    `json:"delivered"`
	RequestFailed int    `json:"request_failed"`
	SendFailed    int    `json:"send_failed"`
	TimedOut      int    `json:"timed_out"`
	Edges         uint64 `json:"edges"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HostJSON is the JSON representation of host statistics.
type HostJSON struct {
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BaseURL         string `json:"base_url"`
	Chip            string `json:"chip"`
	Pin             int    `json:"pin"`
	Interface       string `json:"interface"`
	DebounceMs      int64  `json:"debounce_ms"`
	WaitTimeoutMs   int64  `json:"wait_timeout_ms"`
	NotifyTimeoutMs int64  `json:"notify_timeout_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	Broker          string `json:"broker,omitempty"`
	HTTPAddr        string `json:"http_addr,omitempty"`
}

// SensorString returns CLOSED/OPEN for a known level, UNKNOWN otherwise.
func SensorString(snap Snapshot) string {
	if !snap.HasLevel {
		return "UNKNOWN"
	}
	return logic.StatusString(snap.Closed())
}

func buildInner(snap Snapshot) StatusInner {
	level := "UNKNOWN"
	if snap.HasLevel {
		level = snap.Level.String()
	}

	inner := StatusInner{
		DeviceID:      snap.DeviceID.String(),
		BootID:        snap.BootID,
		Sensor:        SensorString(snap),
		Level:         level,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Link: LinkJSON{
			State:           snap.Link.String(),
			Up:              snap.LinkUp,
			IP:              snap.IP,
			ConnectAttempts: snap.ConnectAttempts,
		},
		Counts: CountsJSON{
			Reports:       snap.Counts.Reports,
			Heartbeats:    snap.Counts.Heartbeats,
			Delivered:     snap.Counts.Delivered,
			RequestFailed: snap.Counts.RequestFailed,
			SendFailed:    snap.Counts.SendFailed,
			TimedOut:      snap.Counts.TimedOut,
			Edges:         snap.Counts.Edges,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			BaseURL:         snap.Config.BaseURL,
			Chip:            snap.Config.Chip,
			Pin:             snap.Config.Pin,
			Interface:       snap.Config.Interface,
			DebounceMs:      snap.Config.DebounceMs,
			WaitTimeoutMs:   snap.Config.WaitTimeoutMs,
			NotifyTimeoutMs: snap.Config.NotifyTimeoutMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}

	if snap.Last != nil {
		inner.LastReport = &ReportJSON{
			Timestamp:  snap.Last.Time.UTC().Format(time.RFC3339),
			Heartbeat:  snap.Last.Heartbeat,
			Outcome:    snap.Last.Outcome,
			HTTPStatus: snap.Last.HTTPStatus,
		}
	}
	if snap.Host != nil {
		inner.Host = &HostJSON{
			UptimeSeconds:  snap.Host.UptimeSeconds,
			MemUsedPercent: snap.Host.MemUsedPercent,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
