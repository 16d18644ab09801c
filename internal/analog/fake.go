package analog

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted conversions.
// Safe for concurrent use.
type FakeReader struct {
	mu sync.Mutex

	// seq holds scripted conversions per channel. Each ReadRaw consumes the
	// next value; once exhausted the last value repeats.
	seq   [2][]int
	index [2]int

	// reads counts ReadRaw calls per channel.
	reads [2]int

	// errs, if set, are returned by ReadRaw for that channel.
	errs [2]error

	closed bool
}

// NewFakeReader creates a FakeReader with per-channel conversion sequences.
func NewFakeReader(a, b []int) *FakeReader {
	return &FakeReader{seq: [2][]int{a, b}}
}

// NewLevelReader creates a FakeReader that always returns the given levels.
func NewLevelReader(a, b int) *FakeReader {
	return NewFakeReader([]int{a}, []int{b})
}

// ReadRaw returns the next scripted conversion for the channel.
func (f *FakeReader) ReadRaw(ch Channel) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch != ChannelA && ch != ChannelB {
		return 0, errors.New("invalid channel")
	}
	f.reads[ch]++
	if f.errs[ch] != nil {
		return 0, f.errs[ch]
	}

	seq := f.seq[ch]
	if len(seq) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := seq[f.index[ch]]
	if f.index[ch] < len(seq)-1 {
		f.index[ch]++
	}
	return v, nil
}

// SetLevels replaces both sequences with constant levels.
func (f *FakeReader) SetLevels(a, b int) {
	f.mu.Lock()
	f.seq = [2][]int{{a}, {b}}
	f.index = [2]int{}
	f.mu.Unlock()
}

// SetError makes ReadRaw fail for the channel. A nil err clears it.
func (f *FakeReader) SetError(ch Channel, err error) {
	f.mu.Lock()
	f.errs[ch] = err
	f.mu.Unlock()
}

// Reads returns the number of ReadRaw calls made for the channel.
func (f *FakeReader) Reads(ch Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[ch]
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
