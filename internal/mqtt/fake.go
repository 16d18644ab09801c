package mqtt

import "sync"

// FakeBridge records published messages for test assertions.
// Safe for concurrent use.
type FakeBridge struct {
	conn ConnState

	mu             sync.Mutex
	states         []string
	systemEvents   []SystemEvent
	systemPayloads [][]byte
	publishErr     error
	systemErr      error
	closed         bool

	state   StateFunc
	handler CommandHandler
}

// NewFakeBridge creates a FakeBridge with the given link status.
func NewFakeBridge(connected bool) *FakeBridge {
	f := &FakeBridge{}
	f.conn.Set(connected)
	return f
}

// Connect stores the state func and command handler.
func (f *FakeBridge) Connect(state StateFunc, handler CommandHandler) error {
	f.mu.Lock()
	f.state = state
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake bridge is "connected".
func (f *FakeBridge) IsConnected() bool {
	return f.conn.Get()
}

// SetConnected changes the link status without side effects.
func (f *FakeBridge) SetConnected(connected bool) {
	f.conn.Set(connected)
}

// SimulateConnect marks the link up and publishes the live state,
// as the real bridge does on every (re)connect.
func (f *FakeBridge) SimulateConnect() {
	f.conn.Set(true)
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()
	if state != nil {
		if name, ok := state(); ok {
			f.PublishState(name)
		}
	}
}

// Deliver passes a command payload to the registered handler.
func (f *FakeBridge) Deliver(payload []byte) error {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(payload)
}

// PublishState records the state name.
func (f *FakeBridge) PublishState(name string) error {
	if !f.conn.Get() {
		return ErrNotConnected
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.states = append(f.states, name)
	return nil
}

// PublishSystem records the system event.
func (f *FakeBridge) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.systemErr != nil {
		return f.systemErr
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the bridge as closed.
func (f *FakeBridge) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.conn.Set(false)
	return nil
}

// SetPublishError makes PublishState fail. A nil err clears it.
func (f *FakeBridge) SetPublishError(err error) {
	f.mu.Lock()
	f.publishErr = err
	f.mu.Unlock()
}

// SetSystemError makes PublishSystem fail. A nil err clears it.
func (f *FakeBridge) SetSystemError(err error) {
	f.mu.Lock()
	f.systemErr = err
	f.mu.Unlock()
}

// States returns a copy of the published state names in order.
func (f *FakeBridge) States() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.states...)
}

// SystemEvents returns a copy of the published system events in order.
func (f *FakeBridge) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns a copy of the system event payloads in order.
func (f *FakeBridge) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Closed reports whether Close was called.
func (f *FakeBridge) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages and injected errors.
func (f *FakeBridge) Reset() {
	f.mu.Lock()
	f.states = nil
	f.systemEvents = nil
	f.systemPayloads = nil
	f.publishErr = nil
	f.systemErr = nil
	f.closed = false
	f.mu.Unlock()
}
