package link

import (
	"context"
	"sync"
	"time"
)

// FakeController is a test double for the wireless radio. Connect consumes
// ConnectErrors in order; once they run out every attempt succeeds.
// Safe for concurrent use.
type FakeController struct {
	mu sync.Mutex

	// ConfigureError and StartError, if set, are returned by Configure and Start.
	ConfigureError error
	StartError     error

	// ConnectErrors are returned by successive Connect calls.
	ConnectErrors []error

	started      bool
	connected    bool
	creds        Credentials
	attemptTimes []time.Time
	disconnect   chan struct{}
}

// NewFakeController creates a stopped, disconnected FakeController.
func NewFakeController() *FakeController {
	return &FakeController{disconnect: make(chan struct{}, 1)}
}

func (f *FakeController) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *FakeController) Configure(creds Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.creds = creds
	return nil
}

func (f *FakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartError != nil {
		return f.StartError
	}
	f.started = true
	return nil
}

func (f *FakeController) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.attemptTimes)
	f.attemptTimes = append(f.attemptTimes, time.Now())
	if n < len(f.ConnectErrors) && f.ConnectErrors[n] != nil {
		return f.ConnectErrors[n]
	}
	f.connected = true
	return nil
}

func (f *FakeController) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeController) WaitForDisconnect(ctx context.Context) error {
	select {
	case <-f.disconnect:
		f.mu.Lock()
		f.connected = false
		f.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect simulates the access point dropping the station.
func (f *FakeController) Disconnect() {
	select {
	case f.disconnect <- struct{}{}:
	default:
	}
}

// Attempts returns the times of every Connect call.
func (f *FakeController) Attempts() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.attemptTimes))
	copy(out, f.attemptTimes)
	return out
}

// Credentials returns the credentials passed to Configure.
func (f *FakeController) Credentials() Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

// FakeStack is a test double for the network stack.
type FakeStack struct {
	mu     sync.Mutex
	linkUp bool
	cfg    *IPConfig
}

// NewFakeStack creates a FakeStack with the link down and no address.
func NewFakeStack() *FakeStack {
	return &FakeStack{}
}

// SetLinkUp sets the link state.
func (f *FakeStack) SetLinkUp(up bool) {
	f.mu.Lock()
	f.linkUp = up
	f.mu.Unlock()
}

// SetIPConfig assigns an address; nil clears it.
func (f *FakeStack) SetIPConfig(cfg *IPConfig) {
	f.mu.Lock()
	f.cfg = cfg
	f.mu.Unlock()
}

func (f *FakeStack) LinkUp() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linkUp
}

func (f *FakeStack) IPConfig() (IPConfig, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg == nil {
		return IPConfig{}, false
	}
	return *f.cfg, true
}

// Run blocks until ctx is done.
func (f *FakeStack) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
