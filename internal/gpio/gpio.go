// Package gpio provides the sensor input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// Input is a single digital input with edge detection.
type Input interface {
	// WaitForEdge blocks until a rising or falling edge has been seen
	// or ctx is done.
	WaitForEdge(ctx context.Context) error

	// ClearEdges discards edges latched since the last WaitForEdge.
	ClearEdges()

	// Level returns the raw level of the pin.
	Level() (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering on gpiochip0).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 10
)
