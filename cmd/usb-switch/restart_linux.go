//go:build linux

package main

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

func rebootDevice(reason string) error {
	log.Printf("rebooting: %s", reason)
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}
