// Package logic contains the pure parts of the reed sensor: pin levels, the
// derived sensor status, the device id and request URL formatting.
// This package has NO external dependencies (no GPIO, HTTP, OS, or time.Sleep).
package logic

import "time"

// Level is a raw instantaneous pin reading.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Status derives the logical sensor status from a pin level.
// The input is pulled up and the switch pulls it low, so the polarity is
// inverted: true = closed, false = open.
func Status(l Level) bool {
	return !bool(l)
}

// StatusString returns "CLOSED" or "OPEN" for a status value.
func StatusString(closed bool) string {
	if closed {
		return "CLOSED"
	}
	return "OPEN"
}

// ConnectionState is the wireless link state owned by the link supervisor.
type ConnectionState int32

const (
	NotStarted ConnectionState = iota
	Started
	Connected
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Started:
		return "STARTED"
	case Connected:
		return "CONNECTED"
	case Disconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// Report describes one notification attempt made by the reporter loop.
type Report struct {
	Timestamp time.Time
	DeviceID  DeviceID
	Level     Level
	Closed    bool
	// Heartbeat is true when the channel wait timed out and the previous
	// level was reused.
	Heartbeat  bool
	Outcome    string
	HTTPStatus int
}
