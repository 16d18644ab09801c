// Package analog reads the switch's LED driver voltages with hardware abstraction.
// The real implementation uses the Linux IIO subsystem through sysfs.
// The fake implementation allows testing without hardware.
package analog

// Channel selects one of the two sensed LED driver lines.
type Channel int

const (
	ChannelA Channel = iota // output A driver
	ChannelB                // output B driver
)

func (c Channel) String() string {
	if c == ChannelA {
		return "A"
	}
	return "B"
}

// Reader reads raw ADC conversions.
type Reader interface {
	// ReadRaw returns a single raw conversion for the channel.
	ReadRaw(ch Channel) (int, error)

	// Close releases ADC resources.
	Close() error
}

// Defaults for a Raspberry Pi with an ADS1015/ADS1115 bound to the kernel
// IIO driver, LED A on AIN0 and LED B on AIN1.
const (
	DefaultDevice   = "/sys/bus/iio/devices/iio:device0"
	DefaultChannelA = 0
	DefaultChannelB = 1
)
