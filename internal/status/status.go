// Package status provides a thread-safe status tracker for the reed-sensor daemon.
// It is read by the HTTP status page and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
	"github.com/sweeney/reed-sensor/internal/notify"
)

// Config contains daemon configuration for display.
type Config struct {
	BaseURL         string
	Chip            string
	Pin             int
	Interface       string
	DebounceMs      int64
	WaitTimeoutMs   int64
	NotifyTimeoutMs int64
	HeartbeatMs     int64
	Broker          string
	HTTPAddr        string
}

// Counts tracks report outcomes since startup.
type Counts struct {
	Reports       int
	Heartbeats    int
	Delivered     int
	RequestFailed int
	SendFailed    int
	TimedOut      int
	Edges         uint64
}

// LastReport describes the most recent notification attempt.
type LastReport struct {
	Time       time.Time
	Heartbeat  bool
	Outcome    string
	HTTPStatus int
}

// HostInfo contains host statistics refreshed on heartbeat.
type HostInfo struct {
	UptimeSeconds  uint64
	MemUsedPercent float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	DeviceID logic.DeviceID
	BootID   string

	HasLevel bool
	Level    logic.Level

	Link            logic.ConnectionState
	LinkUp          bool
	IP              string
	ConnectAttempts uint64

	Last   *LastReport
	Counts Counts

	MQTTConnected bool
	Host          *HostInfo

	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Closed returns the sensor status derived from the last known level.
func (s Snapshot) Closed() bool {
	return logic.Status(s.Level)
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given identity, start time and config.
func NewTracker(id logic.DeviceID, bootID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			DeviceID:  id,
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetLevel records the current pin level.
func (t *Tracker) SetLevel(l logic.Level) {
	t.mu.Lock()
	t.snap.Level = l
	t.snap.HasLevel = true
	t.mu.Unlock()
}

// RecordReport records one reporter iteration.
func (t *Tracker) RecordReport(r logic.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Level = r.Level
	t.snap.HasLevel = true
	t.snap.Last = &LastReport{
		Time:       r.Timestamp,
		Heartbeat:  r.Heartbeat,
		Outcome:    r.Outcome,
		HTTPStatus: r.HTTPStatus,
	}

	c := &t.snap.Counts
	c.Reports++
	if r.Heartbeat {
		c.Heartbeats++
	}
	switch r.Outcome {
	case notify.Delivered.String():
		c.Delivered++
	case notify.RequestFailed.String():
		c.RequestFailed++
	case notify.SendFailed.String():
		c.SendFailed++
	case notify.TimedOut.String():
		c.TimedOut++
	}
}

// SetLink sets the supervisor connection state.
func (t *Tracker) SetLink(state logic.ConnectionState, attempts uint64) {
	t.mu.Lock()
	t.snap.Link = state
	t.snap.ConnectAttempts = attempts
	t.mu.Unlock()
}

// SetNetwork sets the interface link and address.
func (t *Tracker) SetNetwork(up bool, ip string) {
	t.mu.Lock()
	t.snap.LinkUp = up
	t.snap.IP = ip
	t.mu.Unlock()
}

// SetEdges sets the number of edges seen by the sensor monitor.
func (t *Tracker) SetEdges(n uint64) {
	t.mu.Lock()
	t.snap.Counts.Edges = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetHost sets the host statistics.
func (t *Tracker) SetHost(info *HostInfo) {
	t.mu.Lock()
	t.snap.Host = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
