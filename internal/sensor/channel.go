// Package sensor turns pin edges into a stream of settled levels and carries
// them to the reporter.
package sensor

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// Capacity is the number of levels the state channel holds before the
// producer blocks.
const Capacity = 8

// ErrReceiveTimeout is returned by Receive when no level arrives in time.
var ErrReceiveTimeout = errors.New("state channel receive timeout")

// Channel is a bounded FIFO of levels between one producer (the monitor) and
// one consumer (the reporter). A full channel blocks the producer; levels are
// never dropped.
type Channel struct {
	ch chan logic.Level
}

// NewChannel creates a channel with the given capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{ch: make(chan logic.Level, capacity)}
}

// Send queues l, blocking while the channel is full.
func (c *Channel) Send(ctx context.Context, l logic.Level) error {
	select {
	case c.ch <- l:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the oldest queued level, waiting at most timeout.
func (c *Channel) Receive(ctx context.Context, timeout time.Duration) (logic.Level, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l := <-c.ch:
		return l, nil
	case <-timer.C:
		return logic.Low, ErrReceiveTimeout
	case <-ctx.Done():
		return logic.Low, ctx.Err()
	}
}

// Len returns the number of queued levels.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Cap returns the channel capacity.
func (c *Channel) Cap() int {
	return cap(c.ch)
}
