// Package link owns the wireless link: the connection supervisor, the
// network stack view used to gate startup, and the wpa_supplicant controller.
package link

import (
	"context"
	"log"
	"net/netip"
	"time"
)

// DefaultReadyPoll is the interval between link/IP checks in WaitReady.
const DefaultReadyPoll = 500 * time.Millisecond

// IPConfig is the address assigned to the interface.
type IPConfig struct {
	Address netip.Prefix
}

// Stack is the network stack as seen by the rest of the device.
type Stack interface {
	// LinkUp reports whether the interface has carrier.
	LinkUp() bool

	// IPConfig returns the IPv4 configuration, if one has been assigned.
	IPConfig() (IPConfig, bool)

	// Run services the stack until ctx is done.
	Run(ctx context.Context) error
}

// WaitReady blocks until the stack reports link up and then an IPv4 address,
// checking every poll interval. It is a one-shot startup gate.
func WaitReady(ctx context.Context, s Stack, poll time.Duration) (IPConfig, error) {
	if poll <= 0 {
		poll = DefaultReadyPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Printf("link: waiting to get IP address...")
	for !s.LinkUp() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return IPConfig{}, ctx.Err()
		}
	}
	for {
		if cfg, ok := s.IPConfig(); ok {
			log.Printf("link: got IP: %s", cfg.Address)
			return cfg, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return IPConfig{}, ctx.Err()
		}
	}
}
