package sensor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/reed-sensor/internal/gpio"
)

// DefaultDebounce is the settle window between an edge and the re-read.
const DefaultDebounce = time.Millisecond

// Monitor waits for edges on the input, lets the pin settle for the
// debounce window and pushes the re-read level into the channel.
type Monitor struct {
	input    gpio.Input
	out      *Channel
	debounce time.Duration

	edges  atomic.Uint64
	pushes atomic.Uint64
}

// NewMonitor creates a Monitor. A debounce <= 0 uses DefaultDebounce.
func NewMonitor(input gpio.Input, out *Channel, debounce time.Duration) *Monitor {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Monitor{input: input, out: out, debounce: debounce}
}

// Run loops until ctx is done. Read errors are logged and the edge is
// skipped; the next edge (or the reporter heartbeat) covers it.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := m.input.WaitForEdge(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for edge: %w", err)
		}
		m.edges.Add(1)

		timer := time.NewTimer(m.debounce)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}

		// Bounces inside the window collapse into this one read.
		m.input.ClearEdges()

		level, err := m.input.Level()
		if err != nil {
			log.Printf("sensor: read error: %v", err)
			continue
		}
		log.Printf("sensor: pin change detected, level=%s", level)

		if err := m.out.Send(ctx, level); err != nil {
			return nil
		}
		m.pushes.Add(1)
	}
}

// Counts returns the number of edges observed and levels pushed.
func (m *Monitor) Counts() (edges, pushes uint64) {
	return m.edges.Load(), m.pushes.Load()
}
