package link

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// DefaultBackoff is the fixed delay between connect attempts and after a
// disconnect.
const DefaultBackoff = 5 * time.Second

// ErrLinkStart is returned by Supervisor.Run when the radio cannot be
// configured or started.
var ErrLinkStart = errors.New("link start failed")

// Credentials are the network credentials fixed at build time.
type Credentials struct {
	SSID     string
	Password string
}

// Controller drives the wireless radio.
type Controller interface {
	// Started reports whether the radio has been started.
	Started() bool

	// Configure installs the client credentials.
	Configure(creds Credentials) error

	// Start brings the radio up.
	Start(ctx context.Context) error

	// Connect attempts to join the configured network.
	Connect(ctx context.Context) error

	// Connected reports whether the station is associated.
	Connected() bool

	// WaitForDisconnect blocks until the station loses its association or
	// ctx is done.
	WaitForDisconnect(ctx context.Context) error
}

// Supervisor keeps the wireless link up. It never gives up on connecting:
// failures and disconnects are followed by a fixed backoff and another try.
type Supervisor struct {
	ctrl    Controller
	creds   Credentials
	backoff time.Duration

	// OnStateChange, if set, is called from the Run goroutine on every
	// state transition.
	OnStateChange func(logic.ConnectionState)

	state    atomic.Int32
	attempts atomic.Uint64
}

// NewSupervisor creates a Supervisor. A backoff <= 0 uses DefaultBackoff.
func NewSupervisor(ctrl Controller, creds Credentials, backoff time.Duration) *Supervisor {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Supervisor{ctrl: ctrl, creds: creds, backoff: backoff}
}

// State returns the current connection state. Safe to call from any goroutine.
func (s *Supervisor) State() logic.ConnectionState {
	return logic.ConnectionState(s.state.Load())
}

// Attempts returns the number of connect attempts made so far.
func (s *Supervisor) Attempts() uint64 {
	return s.attempts.Load()
}

func (s *Supervisor) setState(st logic.ConnectionState) {
	if logic.ConnectionState(s.state.Swap(int32(st))) == st {
		return
	}
	if s.OnStateChange != nil {
		s.OnStateChange(st)
	}
}

// Run supervises the link until ctx is done. It returns an error wrapping
// ErrLinkStart if the radio cannot be configured or started; nil on
// cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Printf("link: start connection task")
	for {
		if s.ctrl.Connected() {
			s.setState(logic.Connected)
			if err := s.ctrl.WaitForDisconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("link: wait for disconnect: %v", err)
			} else {
				log.Printf("link: disconnected")
			}
			s.setState(logic.Disconnected)
			if !s.sleep(ctx) {
				return nil
			}
		}

		if !s.ctrl.Started() {
			if err := s.ctrl.Configure(s.creds); err != nil {
				return fmt.Errorf("%w: configure: %v", ErrLinkStart, err)
			}
			log.Printf("link: starting wifi")
			if err := s.ctrl.Start(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: start: %v", ErrLinkStart, err)
			}
			log.Printf("link: wifi started")
			s.setState(logic.Started)
		}

		log.Printf("link: about to connect to %q", s.creds.SSID)
		s.attempts.Add(1)
		if err := s.ctrl.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("link: failed to connect: %v", err)
			s.setState(logic.Disconnected)
			if !s.sleep(ctx) {
				return nil
			}
			continue
		}
		log.Printf("link: wifi connected")
		s.setState(logic.Connected)
	}
}

// sleep waits out the backoff; false means ctx ended first.
func (s *Supervisor) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
