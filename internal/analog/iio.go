package analog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOReader reads raw conversions from a Linux IIO ADC via sysfs.
// Each read of in_voltageN_raw triggers a fresh conversion.
type IIOReader struct {
	files [2]*os.File
}

// NewIIOReader opens the raw voltage attributes of the given IIO device.
func NewIIOReader(device string, chA, chB int) (*IIOReader, error) {
	a, err := openRaw(device, chA)
	if err != nil {
		return nil, fmt.Errorf("open channel A: %w", err)
	}
	b, err := openRaw(device, chB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open channel B: %w", err)
	}
	return &IIOReader{files: [2]*os.File{a, b}}, nil
}

func openRaw(device string, ch int) (*os.File, error) {
	return os.Open(filepath.Join(device, fmt.Sprintf("in_voltage%d_raw", ch)))
}

// ReadRaw returns one raw conversion for the channel.
// Safe for concurrent use: reads are positioned and share no offset.
func (r *IIOReader) ReadRaw(ch Channel) (int, error) {
	if ch != ChannelA && ch != ChannelB {
		return 0, fmt.Errorf("invalid channel %d", ch)
	}

	var buf [32]byte
	n, err := r.files[ch].ReadAt(buf[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read channel %s: %w", ch, err)
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("parse channel %s: %w", ch, err)
	}
	return v, nil
}

// Close releases the sysfs attribute files.
func (r *IIOReader) Close() error {
	var errs []error
	for i, f := range r.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %s: %w", Channel(i), err))
		}
	}
	return errors.Join(errs...)
}
