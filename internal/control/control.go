// Package control simulates presses of the switch's front-panel button.
package control

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/usb-switch/internal/gpio"
)

// DefaultPressDuration is how long the button line is held low.
const DefaultPressDuration = 50 * time.Millisecond

// Toggle phases reported in a HardwareFault.
const (
	PhaseIdle    = "idle"
	PhasePress   = "press"
	PhaseRelease = "release"
)

// HardwareFault reports a failed write to the button line.
type HardwareFault struct {
	Phase string
	Err   error
}

func (f *HardwareFault) Error() string {
	return fmt.Sprintf("button %s failed: %v", f.Phase, f.Err)
}

func (f *HardwareFault) Unwrap() error {
	return f.Err
}

// Controller issues toggle pulses on the button line.
// Toggle is the single entry point; concurrent calls are serialized.
type Controller struct {
	mu      sync.Mutex
	line    gpio.Line
	press   time.Duration
	sleep   func(time.Duration)
	toggles int
}

// New creates a Controller for a line configured as open-drain output.
// The line must idle high before any toggle; New releases it if it reads low.
// A nil sleep uses time.Sleep.
func New(line gpio.Line, press time.Duration, sleep func(time.Duration)) (*Controller, error) {
	if press <= 0 {
		press = DefaultPressDuration
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	v, err := line.Value()
	if err != nil {
		return nil, &HardwareFault{Phase: PhaseIdle, Err: err}
	}
	if v != gpio.High {
		log.Printf("control: button line low at startup, releasing")
		if err := line.SetValue(gpio.High); err != nil {
			return nil, &HardwareFault{Phase: PhaseIdle, Err: err}
		}
	}

	return &Controller{
		line:  line,
		press: press,
		sleep: sleep,
	}, nil
}

// Toggle presses and releases the button once.
//
// A failure to press aborts without a release, since the line never dropped.
// A failure to release is retried once; if that also fails the line is in an
// unknown state and the fault is returned for the caller to handle.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.line.SetValue(gpio.Low); err != nil {
		log.Printf("control: failed to press button: %v", err)
		return &HardwareFault{Phase: PhasePress, Err: err}
	}

	c.sleep(c.press)

	err := c.line.SetValue(gpio.High)
	if err != nil {
		log.Printf("control: failed to release button, retrying: %v", err)
		err = c.line.SetValue(gpio.High)
	}
	if err != nil {
		log.Printf("control: failed to release button, line state unknown: %v", err)
		return &HardwareFault{Phase: PhaseRelease, Err: err}
	}

	c.toggles++
	return nil
}

// Toggles returns the number of completed toggles.
func (c *Controller) Toggles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}
