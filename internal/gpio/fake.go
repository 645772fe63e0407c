package gpio

import (
	"context"
	"sync"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// FakeInput is a test double whose level is set by the test. Setting a new
// level latches an edge, like the real input does on a pin transition.
// Safe for concurrent use.
type FakeInput struct {
	mu     sync.Mutex
	level  logic.Level
	edges  chan struct{}
	closed bool

	// ReadError, if set, will be returned by Level.
	ReadError error
}

// NewFakeInput creates a FakeInput starting at the given level.
func NewFakeInput(initial logic.Level) *FakeInput {
	return &FakeInput{
		level: initial,
		edges: make(chan struct{}, 1),
	}
}

// Set changes the level and latches an edge. Setting the same level again
// still latches an edge (a bounce that returned to where it started).
func (f *FakeInput) Set(l logic.Level) {
	f.mu.Lock()
	f.level = l
	f.mu.Unlock()

	select {
	case f.edges <- struct{}{}:
	default:
	}
}

// WaitForEdge blocks until Set has been called or ctx is done.
func (f *FakeInput) WaitForEdge(ctx context.Context) error {
	select {
	case <-f.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearEdges discards a latched edge, if any.
func (f *FakeInput) ClearEdges() {
	select {
	case <-f.edges:
	default:
	}
}

// Level returns the current level.
func (f *FakeInput) Level() (logic.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return logic.Low, f.ReadError
	}
	return f.level, nil
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeInput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
