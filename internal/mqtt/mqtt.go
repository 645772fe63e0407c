// Package mqtt mirrors sensor reports and system events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// Topic is the MQTT topic for sensor reports.
const Topic = "home/reed/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/reed/sensor/system"

// BufferCapacity is the number of messages held while the broker is
// unreachable.
const BufferCapacity = 100

// Publisher publishes reports to MQTT.
type Publisher interface {
	// Publish sends a sensor report to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(report logic.Report) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Reed ReedPayload `json:"reed"`
}

// ReedPayload contains the report details.
type ReedPayload struct {
	Timestamp  string `json:"timestamp"`
	DeviceID   string `json:"device_id"`
	BootID     string `json:"boot_id,omitempty"`
	Status     string `json:"status"`
	Level      string `json:"level"`
	Heartbeat  bool   `json:"heartbeat"`
	Outcome    string `json:"outcome"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// FormatPayload creates the JSON payload for a report.
func FormatPayload(r logic.Report, bootID string) ([]byte, error) {
	payload := Payload{
		Reed: ReedPayload{
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
			DeviceID:   r.DeviceID.String(),
			BootID:     bootID,
			Status:     logic.StatusString(r.Closed),
			Level:      r.Level.String(),
			Heartbeat:  r.Heartbeat,
			Outcome:    r.Outcome,
			HTTPStatus: r.HTTPStatus,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Mirror forwards every report to a Publisher. Publish failures are logged
// and never reach the reporting loop.
type Mirror struct {
	pub Publisher
}

// NewMirror creates a Mirror.
func NewMirror(pub Publisher) *Mirror {
	return &Mirror{pub: pub}
}

// RecordReport publishes r.
func (m *Mirror) RecordReport(r logic.Report) {
	if err := m.pub.Publish(r); err != nil {
		log.Printf("mqtt: publish report: %v", err)
	}
}
