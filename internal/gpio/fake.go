package gpio

import (
	"errors"
	"sync"
)

// FakeLine is a test double that records writes to the button line.
// Safe for concurrent use.
type FakeLine struct {
	mu sync.Mutex

	level  int
	writes []int

	// script holds errors returned by successive SetValue calls.
	// A nil entry lets that write succeed; an exhausted script always succeeds.
	script []error

	// readErr, if set, is returned by Value.
	readErr error

	// onChange is called with the new level after each successful write.
	onChange func(level int)

	closed bool
}

// NewFakeLine creates a FakeLine at the given level.
func NewFakeLine(level int) *FakeLine {
	return &FakeLine{level: level}
}

// SetValue records the write, or returns the next scripted error.
func (f *FakeLine) SetValue(v int) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("line closed")
	}
	if len(f.script) > 0 {
		err := f.script[0]
		f.script = f.script[1:]
		if err != nil {
			f.mu.Unlock()
			return err
		}
	}
	f.level = v
	f.writes = append(f.writes, v)
	hook := f.onChange
	f.mu.Unlock()

	if hook != nil {
		hook(v)
	}
	return nil
}

// Value returns the current level.
func (f *FakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.level, nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Script queues errors for successive SetValue calls.
func (f *FakeLine) Script(errs ...error) {
	f.mu.Lock()
	f.script = append(f.script, errs...)
	f.mu.Unlock()
}

// SetReadError makes Value fail. A nil err clears it.
func (f *FakeLine) SetReadError(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// OnChange registers a hook called after each successful write.
func (f *FakeLine) OnChange(fn func(level int)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// Writes returns a copy of the successful writes in order.
func (f *FakeLine) Writes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.writes...)
}

// Level returns the current level without error injection.
func (f *FakeLine) Level() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Closed reports whether Close was called.
func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
