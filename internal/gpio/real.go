//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives the button line using the Linux GPIO character device.
type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLine requests the button pin as an open-drain output, idle high.
// The physical button shares the line, so it must never be driven high
// actively and must be released before any toggle is attempted.
func NewRealLine(chipName string, pin int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("usb-switch"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(High), gpiocdev.AsOpenDrain)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealLine{
		chip: chip,
		line: line,
	}, nil
}

// SetValue drives the button line.
func (r *RealLine) SetValue(v int) error {
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set button pin: %w", err)
	}
	return nil
}

// Value reads back the button line level.
func (r *RealLine) Value() (int, error) {
	v, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read button pin: %w", err)
	}
	return v, nil
}

// Close releases the button line.
// The line is released high and reconfigured as an input first so the
// physical button keeps working while the daemon is stopped.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(High); err != nil {
			errs = append(errs, fmt.Errorf("release button pin: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
