// Package config holds the build-time configuration. Values are injected
// with -ldflags and cannot change at runtime:
//
//	go build -ldflags "-X github.com/sweeney/reed-sensor/internal/config.SSID=home \
//	  -X github.com/sweeney/reed-sensor/internal/config.Password=secret \
//	  -X github.com/sweeney/reed-sensor/internal/config.BaseURL=10.0.0.5:3000" ./cmd/reed-sensor
package config

import (
	"errors"
	"math"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// Set at build time.
var (
	SSID     string
	Password string
	BaseURL  string
)

var (
	ErrNoSSID    = errors.New("config: SSID not set at build time")
	ErrNoBaseURL = errors.New("config: BaseURL not set at build time")
)

// Build is a copy of the build-time configuration.
type Build struct {
	SSID     string
	Password string
	BaseURL  string
}

// Load returns the values injected at build time.
func Load() Build {
	return Build{SSID: SSID, Password: Password, BaseURL: BaseURL}
}

// Validate reports missing required values. An empty password is allowed
// (open network).
func (b Build) Validate() error {
	if b.SSID == "" {
		return ErrNoSSID
	}
	if b.BaseURL == "" {
		return ErrNoBaseURL
	}
	return nil
}

// URLFits reports whether every status URL built from BaseURL fits the
// request buffer, using the longest possible device id and status. When it
// returns false the reporter will hit the reset path on its first report.
func (b Build) URLFits() bool {
	_, err := logic.BuildURL(b.BaseURL, logic.DeviceID(math.MaxUint64), false)
	return err == nil
}

// Redacted returns b with the password masked, for logging.
func (b Build) Redacted() Build {
	if b.Password != "" {
		b.Password = "********"
	}
	return b
}
