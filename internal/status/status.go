// Package status provides a thread-safe status tracker for the usb-switch daemon.
// It is read by the HTTP handlers and used to build system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/usb-switch/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	PressMs         int64
	RetryIntervalMs int64
	MaxRetries      int
	HeartbeatMs     int64
	Broker          string
	BaseTopic       string
	HTTPPort        string
	WSBroker        string // Websocket broker URL for browser MQTT (empty = disabled)
	NameA           string
	NameB           string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Output        string // name of the active output, empty until first read
	Ready         bool
	LinkWaiting   bool // a state change is waiting for the broker link
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetOutput records the active output name and marks the tracker ready.
func (t *Tracker) SetOutput(name string) {
	t.mu.Lock()
	t.snap.Output = name
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetLinkWaiting records whether a state change is waiting for the link.
func (t *Tracker) SetLinkWaiting(waiting bool) {
	t.mu.Lock()
	t.snap.LinkWaiting = waiting
	t.mu.Unlock()
}

// UpdateCounts applies fn to the counters under the lock.
// Called from both the poll loop and the command path.
func (t *Tracker) UpdateCounts(fn func(c *logic.Counts)) {
	t.mu.Lock()
	fn(&t.snap.Counts)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
