package status

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// ReadHostInfo collects host uptime and memory usage.
func ReadHostInfo(ctx context.Context) (*HostInfo, error) {
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read uptime: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	return &HostInfo{
		UptimeSeconds:  uptime,
		MemUsedPercent: vm.UsedPercent,
	}, nil
}
