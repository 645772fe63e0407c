//go:build !linux

package gpio

import (
	"context"
	"errors"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// NewRealInput returns an error on non-Linux platforms.
func NewRealInput(chipName string, pin int) (*RealInput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// WaitForEdge is not implemented on non-Linux platforms.
func (r *RealInput) WaitForEdge(ctx context.Context) error {
	return errors.New("gpio: not supported")
}

// ClearEdges is a no-op on non-Linux platforms.
func (r *RealInput) ClearEdges() {}

// Level is not implemented on non-Linux platforms.
func (r *RealInput) Level() (logic.Level, error) {
	return logic.Low, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealInput) Close() error {
	return nil
}
