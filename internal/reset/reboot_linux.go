//go:build linux

package reset

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

// Reboot resets by restarting the whole machine through reboot(2).
// Requires CAP_SYS_BOOT.
type Reboot struct{}

// Reset syncs filesystems and reboots.
func (Reboot) Reset() error {
	log.Printf("reset: rebooting")
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}
