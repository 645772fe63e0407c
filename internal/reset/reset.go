// Package reset restarts the device when it hits an unrecoverable fault.
package reset

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// DefaultGrace is how long Fatal waits before resetting so the log line can
// be seen.
const DefaultGrace = 30 * time.Second

// Resetter restarts the device. A successful Reset does not return.
type Resetter interface {
	Reset() error
}

// Fatal logs msg, waits out the grace period and resets the device. It
// returns only if ctx ends during the grace period (ctx.Err()) or if the
// reset itself fails.
func Fatal(ctx context.Context, r Resetter, grace time.Duration, msg string) error {
	log.Printf("fatal: %s; resetting after %v...", msg, grace)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := r.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Exit resets by terminating the process with a non-zero status and letting
// the service manager restart it.
type Exit struct {
	Code int
}

// Reset exits the process.
func (e Exit) Reset() error {
	code := e.Code
	if code == 0 {
		code = 1
	}
	log.Printf("reset: exiting with status %d", code)
	os.Exit(code)
	return nil
}

// FakeResetter records resets. Safe for concurrent use.
type FakeResetter struct {
	mu    sync.Mutex
	count int

	// Err, if set, is returned by Reset.
	Err error

	// Done, if set, is closed on the first Reset.
	Done chan struct{}
}

// Reset records the call.
func (f *FakeResetter) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.count == 1 && f.Done != nil {
		close(f.Done)
	}
	return f.Err
}

// Count returns the number of Reset calls.
func (f *FakeResetter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}
