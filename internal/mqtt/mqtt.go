// Package mqtt bridges the switch to an MQTT broker with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultBaseTopic is the topic prefix for all switch topics.
const DefaultBaseTopic = "usb_switch"

// Availability payloads, published retained on the availability topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// System event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventRestart   = "RESTART"
)

// ErrNotConnected is returned when publishing without a broker link.
var ErrNotConnected = errors.New("not connected to broker")

// Topics holds the full topic names derived from a base topic.
type Topics struct {
	State     string // retained active output name
	Command   string // inbound output names
	Available string // online/offline, also the last will
	System    string // lifecycle status snapshots
}

// NewTopics derives the switch topics from base.
func NewTopics(base string) Topics {
	base = strings.TrimRight(base, "/")
	return Topics{
		State:     base + "/state",
		Command:   base + "/command",
		Available: base + "/available",
		System:    base + "/system",
	}
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Bridge is the switch's pub/sub session.
type Bridge interface {
	ConnectionStatus

	// PublishState publishes the active output name, retained.
	// A single best-effort attempt; errors are not retried.
	PublishState(name string) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// CommandHandler receives raw command payloads.
// It is called on the bridge's goroutine, concurrently with the poll loop.
type CommandHandler func(payload []byte) error

// StateFunc returns the live output name to publish after (re)connecting.
type StateFunc func() (string, bool)

// ConnState is the link status flag shared between the bridge's event
// handlers and the poll loop. Every access holds the lock for the
// duration of the read or write only.
type ConnState struct {
	mu        sync.Mutex
	connected bool
}

// Set records the link status.
func (c *ConnState) Set(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
}

// Get returns the link status.
func (c *ConnState) Get() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events
// that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
