package main

import (
	"log"

	"github.com/sweeney/usb-switch/internal/switcher"
)

// newRestarter returns the fail-safe used when the broker link stays down.
// By default the process exits with exitRestart and the supervisor starts it
// again; with reboot the whole device is restarted.
func newRestarter(reboot bool) switcher.Restarter {
	if reboot {
		return switcher.RestartFunc(rebootDevice)
	}
	return switcher.RestartFunc(func(reason string) error {
		log.Printf("exiting with status %d for supervisor restart: %s", exitRestart, reason)
		return nil
	})
}
