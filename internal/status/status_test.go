package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/usb-switch/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 50, MaxRetries: 60, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 50 {
		t.Errorf("Config.PollMs: got %d, want 50", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.Output != "" {
		t.Errorf("expected empty Output initially, got %q", snap.Output)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetOutput(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetOutput("Laptop")

	snap := tr.Snapshot()
	if snap.Output != "Laptop" {
		t.Errorf("Output: got %q, want Laptop", snap.Output)
	}
	if !snap.Ready {
		t.Error("expected Ready=true after SetOutput")
	}
}

func TestUpdateCounts(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.UpdateCounts(func(c *logic.Counts) { c.Toggles++ })
	tr.UpdateCounts(func(c *logic.Counts) { c.Toggles++; c.StateChanges += 3 })

	snap := tr.Snapshot()
	if snap.Counts.Toggles != 2 {
		t.Errorf("Counts.Toggles: got %d, want 2", snap.Counts.Toggles)
	}
	if snap.Counts.StateChanges != 3 {
		t.Errorf("Counts.StateChanges: got %d, want 3", snap.Counts.StateChanges)
	}
}

func TestSetLinkWaiting(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetLinkWaiting(true)
	if !tr.Snapshot().LinkWaiting {
		t.Error("expected LinkWaiting=true")
	}
	tr.SetLinkWaiting(false)
	if tr.Snapshot().LinkWaiting {
		t.Error("expected LinkWaiting=false")
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetOutput("Desktop")
	tr.UpdateCounts(func(c *logic.Counts) { c.Toggles = 1 })

	snap1 := tr.Snapshot()

	tr.SetOutput("Laptop")
	tr.UpdateCounts(func(c *logic.Counts) { c.Toggles = 5 })

	if snap1.Output != "Desktop" {
		t.Error("snapshot should be a copy; Output was modified")
	}
	if snap1.Counts.Toggles != 1 {
		t.Error("snapshot should be a copy; Counts were modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Output:        "Desktop",
		Ready:         true,
		Counts:        logic.Counts{StateChanges: 5, Toggles: 2, CommandsIgnored: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			PollMs:     50,
			MaxRetries: 60,
			Broker:     "tcp://localhost:1883",
			HTTPPort:   ":80",
			NameA:      "Desktop",
			NameB:      "Laptop",
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Output != "Desktop" {
		t.Errorf("Output: got %q, want Desktop", parsed.Status.Output)
	}
	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.StateChanges != 5 {
		t.Errorf("Counts.StateChanges: got %d, want 5", parsed.Status.Counts.StateChanges)
	}
	if parsed.Status.Counts.Toggles != 2 {
		t.Errorf("Counts.Toggles: got %d, want 2", parsed.Status.Counts.Toggles)
	}
	if parsed.Status.Counts.CommandsIgnored != 1 {
		t.Errorf("Counts.CommandsIgnored: got %d, want 1", parsed.Status.Counts.CommandsIgnored)
	}
	if parsed.Status.Config.MaxRetries != 60 {
		t.Errorf("Config.MaxRetries: got %d, want 60", parsed.Status.Config.MaxRetries)
	}
	if parsed.Status.Config.Outputs.B != "Laptop" {
		t.Errorf("Config.Outputs.B: got %q, want Laptop", parsed.Status.Config.Outputs.B)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONUnknownOutput(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Output != "UNKNOWN" {
		t.Errorf("Output: got %q, want UNKNOWN", parsed.Status.Output)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Output:        "Laptop",
		Ready:         true,
		Counts:        logic.Counts{Toggles: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 50, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Output != "Laptop" {
		t.Errorf("Output: got %q, want Laptop", parsed.Status.Output)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Output:    "Desktop",
		Ready:     true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Output:    "Desktop",
		Ready:     true,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestFormatJSONNetworkOmittedWhenNil(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	if _, exists := raw["status"]["network"]; exists {
		t.Error("network should be omitted when nil")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Poll loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetOutput("Desktop")
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Command path
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateCounts(func(c *logic.Counts) { c.Toggles++ })
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()

	if got := tr.Snapshot().Counts.Toggles; got != 1000 {
		t.Errorf("Counts.Toggles: got %d, want 1000", got)
	}
}
