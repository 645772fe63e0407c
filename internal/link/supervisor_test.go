package link

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/reed-sensor/internal/logic"
)

// runSupervisor starts s in the background and returns a stop func that
// cancels it and returns Run's error.
func runSupervisor(s *Supervisor) (stop func() error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSupervisorConnects(t *testing.T) {
	ctrl := NewFakeController()
	creds := Credentials{SSID: "home", Password: "secret"}
	s := NewSupervisor(ctrl, creds, 10*time.Millisecond)
	stop := runSupervisor(s)

	waitFor(t, "connected", func() bool { return s.State() == logic.Connected })

	if err := stop(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := ctrl.Credentials(); got != creds {
		t.Errorf("credentials: got %+v, want %+v", got, creds)
	}
	if n := len(ctrl.Attempts()); n != 1 {
		t.Errorf("attempts: got %d, want 1", n)
	}
}

func TestSupervisorRetriesIndefinitely(t *testing.T) {
	backoff := 20 * time.Millisecond
	failure := errors.New("auth timeout")

	ctrl := NewFakeController()
	ctrl.ConnectErrors = []error{failure, failure, failure, failure, failure}
	s := NewSupervisor(ctrl, Credentials{SSID: "home"}, backoff)
	stop := runSupervisor(s)

	waitFor(t, "6th attempt", func() bool { return len(ctrl.Attempts()) >= 6 })
	waitFor(t, "connected", func() bool { return s.State() == logic.Connected })
	if err := stop(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	attempts := ctrl.Attempts()
	if len(attempts) != 6 {
		t.Fatalf("attempts: got %d, want 6", len(attempts))
	}
	for i := 1; i < len(attempts); i++ {
		if gap := attempts[i].Sub(attempts[i-1]); gap < backoff {
			t.Errorf("attempt %d followed attempt %d after %v, want >= %v", i, i-1, gap, backoff)
		}
	}
	if s.Attempts() != 6 {
		t.Errorf("Attempts(): got %d, want 6", s.Attempts())
	}
}

func TestSupervisorReconnectsAfterDisconnect(t *testing.T) {
	backoff := 20 * time.Millisecond
	ctrl := NewFakeController()

	var mu sync.Mutex
	var states []logic.ConnectionState
	s := NewSupervisor(ctrl, Credentials{SSID: "home"}, backoff)
	s.OnStateChange = func(st logic.ConnectionState) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	}
	stop := runSupervisor(s)

	waitFor(t, "first connect", func() bool { return len(ctrl.Attempts()) == 1 })
	waitFor(t, "connected", func() bool { return s.State() == logic.Connected })

	ctrl.Disconnect()
	waitFor(t, "disconnected", func() bool { return s.State() == logic.Disconnected })
	waitFor(t, "reconnect", func() bool { return len(ctrl.Attempts()) == 2 })
	waitFor(t, "connected again", func() bool { return s.State() == logic.Connected })

	if err := stop(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	attempts := ctrl.Attempts()
	if gap := attempts[1].Sub(attempts[0]); gap < backoff {
		t.Errorf("reconnect after %v, want >= backoff %v", gap, backoff)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []logic.ConnectionState{logic.Started, logic.Connected, logic.Disconnected, logic.Connected}
	if len(states) != len(want) {
		t.Fatalf("states: got %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d: got %s, want %s", i, states[i], want[i])
		}
	}
}

func TestSupervisorStartFailureIsFatal(t *testing.T) {
	ctrl := NewFakeController()
	ctrl.StartError = errors.New("radio init failed")
	s := NewSupervisor(ctrl, Credentials{SSID: "home"}, time.Millisecond)

	err := s.Run(context.Background())
	if !errors.Is(err, ErrLinkStart) {
		t.Fatalf("got %v, want ErrLinkStart", err)
	}
	if n := len(ctrl.Attempts()); n != 0 {
		t.Errorf("connect attempts after start failure: got %d, want 0", n)
	}
}

func TestSupervisorConfigureFailureIsFatal(t *testing.T) {
	ctrl := NewFakeController()
	ctrl.ConfigureError = errors.New("bad ssid")
	s := NewSupervisor(ctrl, Credentials{SSID: "home"}, time.Millisecond)

	if err := s.Run(context.Background()); !errors.Is(err, ErrLinkStart) {
		t.Fatalf("got %v, want ErrLinkStart", err)
	}
	if s.State() != logic.NotStarted {
		t.Errorf("state: got %s, want NOT_STARTED", s.State())
	}
}

func TestSupervisorCancelDuringBackoff(t *testing.T) {
	ctrl := NewFakeController()
	ctrl.ConnectErrors = []error{errors.New("no ap")}
	s := NewSupervisor(ctrl, Credentials{SSID: "home"}, time.Hour)
	stop := runSupervisor(s)

	waitFor(t, "first attempt", func() bool { return len(ctrl.Attempts()) == 1 })
	waitFor(t, "disconnected", func() bool { return s.State() == logic.Disconnected })

	done := make(chan error, 1)
	go func() { done <- stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return during backoff")
	}
}

func TestNewSupervisorDefaultBackoff(t *testing.T) {
	s := NewSupervisor(NewFakeController(), Credentials{}, 0)
	if s.backoff != 5*time.Second {
		t.Errorf("backoff: got %v, want 5s", s.backoff)
	}
}
