package link

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/netip"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// DefaultObserveInterval is how often InterfaceStack.Run re-reads the
// interface.
const DefaultObserveInterval = 5 * time.Second

// InterfaceStack is the Stack view of one kernel network interface. The
// kernel does the packet work; Run only watches for link and address changes.
type InterfaceStack struct {
	name     string
	interval time.Duration
	list     func(ctx context.Context) (psnet.InterfaceStatList, error)

	// OnChange, if set, is called from Run whenever link or address changes.
	OnChange func(up bool, cfg IPConfig, hasIP bool)
}

// NewInterfaceStack creates a Stack for the named interface (e.g. "wlan0").
func NewInterfaceStack(name string) *InterfaceStack {
	return &InterfaceStack{
		name:     name,
		interval: DefaultObserveInterval,
		list:     psnet.InterfacesWithContext,
	}
}

func (s *InterfaceStack) lookup(ctx context.Context) (psnet.InterfaceStat, error) {
	ifaces, err := s.list(ctx)
	if err != nil {
		return psnet.InterfaceStat{}, fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Name == s.name {
			return iface, nil
		}
	}
	return psnet.InterfaceStat{}, fmt.Errorf("interface %q not found", s.name)
}

// LinkUp reports whether the interface is administratively up and running.
func (s *InterfaceStack) LinkUp() bool {
	iface, err := s.lookup(context.Background())
	if err != nil {
		return false
	}
	return linkUp(iface)
}

// IPConfig returns the first IPv4 address on the interface.
func (s *InterfaceStack) IPConfig() (IPConfig, bool) {
	iface, err := s.lookup(context.Background())
	if err != nil {
		return IPConfig{}, false
	}
	return ipv4Config(iface)
}

// Run watches the interface until ctx is done, logging link and address
// changes.
func (s *InterfaceStack) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		first   = true
		lastUp  bool
		lastCfg IPConfig
		lastOK  bool
	)
	for {
		iface, err := s.lookup(ctx)
		up, cfg, ok := false, IPConfig{}, false
		if err == nil {
			up = linkUp(iface)
			cfg, ok = ipv4Config(iface)
		}
		if first || up != lastUp || ok != lastOK || cfg != lastCfg {
			if err != nil {
				log.Printf("link: %v", err)
			} else {
				log.Printf("link: %s up=%v ip=%s", s.name, up, cfg.Address)
			}
			if s.OnChange != nil {
				s.OnChange(up, cfg, ok)
			}
			first, lastUp, lastCfg, lastOK = false, up, cfg, ok
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// HardwareAddr returns the MAC address of the interface.
func (s *InterfaceStack) HardwareAddr(ctx context.Context) (net.HardwareAddr, error) {
	iface, err := s.lookup(ctx)
	if err != nil {
		return nil, err
	}
	mac, err := net.ParseMAC(iface.HardwareAddr)
	if err != nil {
		return nil, fmt.Errorf("parse mac %q: %w", iface.HardwareAddr, err)
	}
	return mac, nil
}

func linkUp(iface psnet.InterfaceStat) bool {
	var up, running bool
	for _, f := range iface.Flags {
		switch f {
		case "up":
			up = true
		case "running":
			running = true
		}
	}
	return up && running
}

func ipv4Config(iface psnet.InterfaceStat) (IPConfig, bool) {
	for _, a := range iface.Addrs {
		p, err := netip.ParsePrefix(a.Addr)
		if err != nil {
			continue
		}
		if p.Addr().Is4() && !p.Addr().IsLoopback() {
			return IPConfig{Address: p}, true
		}
	}
	return IPConfig{}, false
}
