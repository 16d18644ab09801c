// Package gpio drives the switch's button line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line is a single open-drain control line wired to the switch button.
type Line interface {
	// SetValue drives the line. 0 pulls it low (button pressed),
	// 1 releases it high (idle).
	SetValue(v int) error

	// Value reads back the current line level.
	Value() (int, error)

	// Close releases GPIO resources.
	Close() error
}

// Line levels.
const (
	Low  = 0
	High = 1
)

// Defaults (BCM numbering).
const (
	DefaultChip      = "gpiochip0"
	DefaultButtonPin = 13
)
