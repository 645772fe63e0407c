//go:build !linux

package reset

import "errors"

// Reboot is not available on non-Linux platforms.
type Reboot struct{}

// Reset always fails on non-Linux platforms.
func (Reboot) Reset() error {
	return errors.New("reset: reboot not supported on this platform (requires Linux)")
}
