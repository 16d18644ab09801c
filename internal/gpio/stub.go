//go:build !linux

package gpio

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chipName string, pin int) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetValue is not implemented on non-Linux platforms.
func (r *RealLine) SetValue(v int) error {
	return errors.New("gpio: not supported")
}

// Value is not implemented on non-Linux platforms.
func (r *RealLine) Value() (int, error) {
	return 0, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}
