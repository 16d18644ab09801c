// Package logic contains pure decision logic for the USB switch bridge.
// This package has NO external dependencies (no GPIO, ADC, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// Output identifies one of the two switch-selectable endpoints.
type Output int

const (
	OutputA Output = iota
	OutputB
	// OutputInvalid is only ever a decode result, never real hardware state.
	OutputInvalid
)

func (o Output) String() string {
	switch o {
	case OutputA:
		return "A"
	case OutputB:
		return "B"
	default:
		return "INVALID"
	}
}

// Valid reports whether o is a real endpoint.
func (o Output) Valid() bool {
	return o == OutputA || o == OutputB
}

// Other returns the endpoint a single toggle moves to.
func (o Output) Other() Output {
	switch o {
	case OutputA:
		return OutputB
	case OutputB:
		return OutputA
	default:
		return OutputInvalid
	}
}

// ErrUnknownOutput is returned when a name matches neither configured output.
var ErrUnknownOutput = errors.New("unknown output name")

// Names holds the configured human-readable names of the two outputs.
// The same strings are used as state payloads and accepted as commands.
type Names struct {
	A string
	B string
}

// DefaultNames matches the factory firmware configuration.
var DefaultNames = Names{A: "Desktop", B: "Laptop"}

// Validate checks that both names are set and distinguishable.
func (n Names) Validate() error {
	if n.A == "" || n.B == "" {
		return errors.New("output names must not be empty")
	}
	if n.A == n.B {
		return fmt.Errorf("output names must differ, both are %q", n.A)
	}
	return nil
}

// Name returns the configured name for o. Invalid has no name.
func (n Names) Name(o Output) (string, bool) {
	switch o {
	case OutputA:
		return n.A, true
	case OutputB:
		return n.B, true
	default:
		return "", false
	}
}

// Parse maps a name to its output.
func (n Names) Parse(s string) (Output, error) {
	switch s {
	case n.A:
		return OutputA, nil
	case n.B:
		return OutputB, nil
	default:
		return OutputInvalid, fmt.Errorf("%w: %q", ErrUnknownOutput, s)
	}
}

// Decode maps a raw command payload to an output. Surrounding whitespace is
// ignored; anything else that is not an exact name decodes to OutputInvalid.
func (n Names) Decode(payload []byte) Output {
	o, err := n.Parse(string(bytes.TrimSpace(payload)))
	if err != nil {
		return OutputInvalid
	}
	return o
}

// Counts tracks activity since startup.
type Counts struct {
	StateChanges    int // observed hardware transitions
	Toggles         int // successful button presses
	ToggleFailures  int
	CommandsIgnored int // unrecognized command payloads
	PublishFailures int
	LinkWaits       int // transitions that found the link down
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
