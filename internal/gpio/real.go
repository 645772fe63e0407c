//go:build linux

package gpio

import (
	"context"
	"fmt"

	"github.com/sweeney/reed-sensor/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealInput reads the sensor from actual hardware using the Linux GPIO
// character device.
type RealInput struct {
	chip  *gpiocdev.Chip
	line  *gpiocdev.Line
	edges chan struct{}
}

// NewRealInput requests pin on the named chip as an input with pull-up and
// edge detection on both edges.
func NewRealInput(chipName string, pin int) (*RealInput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	in := &RealInput{
		chip:  chip,
		edges: make(chan struct{}, 1),
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(in.handleEvent))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}
	in.line = line

	return in, nil
}

// handleEvent runs on the gpiocdev watcher goroutine. Edges coalesce into a
// single pending token.
func (r *RealInput) handleEvent(gpiocdev.LineEvent) {
	select {
	case r.edges <- struct{}{}:
	default:
	}
}

// WaitForEdge blocks until an edge has been latched or ctx is done.
func (r *RealInput) WaitForEdge(ctx context.Context) error {
	select {
	case <-r.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearEdges discards a latched edge, if any.
func (r *RealInput) ClearEdges() {
	select {
	case <-r.edges:
	default:
	}
}

// Level returns the raw pin level.
func (r *RealInput) Level() (logic.Level, error) {
	v, err := r.line.Value()
	if err != nil {
		return logic.Low, fmt.Errorf("read pin: %w", err)
	}
	return logic.Level(v != 0), nil
}

// Close releases GPIO resources.
func (r *RealInput) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
