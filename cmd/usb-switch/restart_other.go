//go:build !linux

package main

import "errors"

func rebootDevice(reason string) error {
	return errors.New("reboot: only supported on linux")
}
