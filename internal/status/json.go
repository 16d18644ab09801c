package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Output        string       `json:"output"`
	Ready         bool         `json:"ready"`
	LinkWaiting   bool         `json:"link_waiting"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counters.
type CountsJSON struct {
	StateChanges    int `json:"state_changes"`
	Toggles         int `json:"toggles"`
	ToggleFailures  int `json:"toggle_failures"`
	CommandsIgnored int `json:"commands_ignored"`
	PublishFailures int `json:"publish_failures"`
	LinkWaits       int `json:"link_waits"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64       `json:"poll_ms"`
	PressMs         int64       `json:"press_ms"`
	RetryIntervalMs int64       `json:"retry_interval_ms"`
	MaxRetries      int         `json:"max_retries"`
	HeartbeatMs     int64       `json:"heartbeat_ms"`
	Broker          string      `json:"broker"`
	BaseTopic       string      `json:"base_topic"`
	HTTPPort        string      `json:"http_port"`
	WSBroker        string      `json:"ws_broker,omitempty"`
	Outputs         OutputsJSON `json:"outputs"`
}

// OutputsJSON lists the configured output names.
type OutputsJSON struct {
	A string `json:"a"`
	B string `json:"b"`
}

func buildInner(snap Snapshot) StatusInner {
	output := snap.Output
	if output == "" {
		output = "UNKNOWN"
	}

	c := snap.Counts
	return StatusInner{
		Output:        output,
		Ready:         snap.Ready,
		LinkWaiting:   snap.LinkWaiting,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			StateChanges:    c.StateChanges,
			Toggles:         c.Toggles,
			ToggleFailures:  c.ToggleFailures,
			CommandsIgnored: c.CommandsIgnored,
			PublishFailures: c.PublishFailures,
			LinkWaits:       c.LinkWaits,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			PressMs:         snap.Config.PressMs,
			RetryIntervalMs: snap.Config.RetryIntervalMs,
			MaxRetries:      snap.Config.MaxRetries,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			BaseTopic:       snap.Config.BaseTopic,
			HTTPPort:        snap.Config.HTTPPort,
			WSBroker:        snap.Config.WSBroker,
			Outputs:         OutputsJSON{A: snap.Config.NameA, B: snap.Config.NameB},
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
