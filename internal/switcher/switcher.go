// Package switcher keeps the published output state consistent with the
// switch hardware and applies remote commands to it.
package switcher

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/usb-switch/internal/logic"
	"github.com/sweeney/usb-switch/internal/mqtt"
	"github.com/sweeney/usb-switch/internal/status"
)

// DefaultCommandSettle is the pause after a commanded toggle before the
// next hardware observation.
const DefaultCommandSettle = 20 * time.Millisecond

var (
	// ErrLinkRetryExhausted is returned by Step when a state change could
	// not be published before the retry policy ran out.
	ErrLinkRetryExhausted = errors.New("broker link retry exhausted")

	// ErrRestartRequested is returned by Run after the restart was issued.
	ErrRestartRequested = errors.New("restart requested")
)

// Sampler reports which output the hardware currently has active.
type Sampler interface {
	ActiveOutput() logic.Output
}

// Toggler flips the switch to the other output.
type Toggler interface {
	Toggle() error
}

// Restarter performs the fail-safe restart.
type Restarter interface {
	Restart(reason string) error
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func(reason string) error

// Restart calls f.
func (f RestartFunc) Restart(reason string) error {
	return f(reason)
}

// Config holds loop behaviour settings.
type Config struct {
	Names         logic.Names
	Retry         logic.RetryPolicy
	CommandSettle time.Duration
	Heartbeat     time.Duration // 0 disables
}

// Deps are the loop's collaborators. Tracker may be nil; Sleep and Now
// default to time.Sleep and time.Now.
type Deps struct {
	Sampler   Sampler
	Bridge    mqtt.Bridge
	Toggler   Toggler
	Restarter Restarter
	Tracker   *status.Tracker
	Sleep     func(time.Duration)
	Now       func() time.Time
}

// Loop is the reconciliation loop. Run and Step belong to the polling
// goroutine; HandleCommand and CurrentName may be called from the bridge.
type Loop struct {
	cfg  Config
	deps Deps

	// hwMu serializes hardware access between the poll loop and the
	// command path, so a sampling pass never overlaps a toggle.
	hwMu sync.Mutex

	// current is owned by the polling goroutine.
	current logic.Output

	countsMu sync.Mutex
	counts   logic.Counts

	heartbeat *logic.Heartbeat
}

// New creates a Loop and records the output the hardware reports at startup.
// Nothing is published until a change is observed.
func New(cfg Config, deps Deps) (*Loop, error) {
	if deps.Sampler == nil || deps.Bridge == nil || deps.Toggler == nil || deps.Restarter == nil {
		return nil, errors.New("switcher: sampler, bridge, toggler and restarter are required")
	}
	if cfg.Names == (logic.Names{}) {
		cfg.Names = logic.DefaultNames
	}
	if err := cfg.Names.Validate(); err != nil {
		return nil, fmt.Errorf("switcher: %w", err)
	}
	if cfg.Retry == (logic.RetryPolicy{}) {
		cfg.Retry = logic.DefaultRetryPolicy
	}
	if cfg.CommandSettle <= 0 {
		cfg.CommandSettle = DefaultCommandSettle
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	l := &Loop{
		cfg:       cfg,
		deps:      deps,
		heartbeat: logic.NewHeartbeat(deps.Now(), cfg.Heartbeat),
	}

	l.current = l.observe()
	name, _ := cfg.Names.Name(l.current)
	log.Printf("startup output: %s (%s)", l.current, name)
	if deps.Tracker != nil {
		deps.Tracker.SetOutput(name)
	}
	return l, nil
}

// Current returns the last recorded output. Only safe from the polling goroutine.
func (l *Loop) Current() logic.Output {
	return l.current
}

// Counts returns a copy of the activity counters.
func (l *Loop) Counts() logic.Counts {
	l.countsMu.Lock()
	defer l.countsMu.Unlock()
	return l.counts
}

func (l *Loop) count(fn func(c *logic.Counts)) {
	l.countsMu.Lock()
	defer l.countsMu.Unlock()
	fn(&l.counts)
	if l.deps.Tracker != nil {
		c := l.counts
		l.deps.Tracker.UpdateCounts(func(t *logic.Counts) { *t = c })
	}
}

func (l *Loop) observe() logic.Output {
	l.hwMu.Lock()
	defer l.hwMu.Unlock()
	return l.deps.Sampler.ActiveOutput()
}

// CurrentName samples the hardware and returns the active output's name.
// The bridge publishes it after every (re)connect.
func (l *Loop) CurrentName() (string, bool) {
	return l.cfg.Names.Name(l.observe())
}

// Run polls on every tick until a signal arrives or the retry policy is
// exhausted. A signal publishes a SHUTDOWN event and returns nil. Exhaustion
// calls the Restarter exactly once and returns ErrRestartRequested.
func (l *Loop) Run(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.publishSystem(mqtt.EventShutdown, signalName(s))
			return nil

		case <-tick:
			if err := l.Step(); err != nil {
				if !errors.Is(err, ErrLinkRetryExhausted) {
					log.Printf("poll error: %v", err)
					continue
				}
				log.Printf("%v, restarting", err)
				l.publishSystem(mqtt.EventRestart, err.Error())
				if rerr := l.deps.Restarter.Restart(err.Error()); rerr != nil {
					log.Printf("restart failed: %v", rerr)
				}
				return fmt.Errorf("%w: %w", ErrRestartRequested, err)
			}

			if hb := l.heartbeat.Check(l.deps.Now()); hb != nil {
				log.Printf("heartbeat: uptime=%v output=%s", hb.Uptime, l.current)
				l.publishSystem(mqtt.EventHeartbeat, "")
			}
		}
	}
}

// Step performs one reconciliation pass: observe the hardware and, if the
// output changed, publish it. While the link is down the change waits per
// the retry policy; if the policy runs out Step returns ErrLinkRetryExhausted
// and the record keeps its old value.
func (l *Loop) Step() error {
	observed := l.observe()
	l.syncLink()
	if observed == l.current {
		return nil
	}

	name, ok := l.cfg.Names.Name(observed)
	if !ok {
		return fmt.Errorf("sampler returned %s", observed)
	}
	log.Printf("output changed: %s -> %s (%s)", l.current, observed, name)

	if !l.deps.Bridge.IsConnected() {
		if err := l.awaitLink(); err != nil {
			return err
		}
	}

	// A failed publish on a live link is not retried; the bridge republishes
	// the live state on its next reconnect.
	if err := l.deps.Bridge.PublishState(name); err != nil {
		log.Printf("publish error: %v", err)
		l.count(func(c *logic.Counts) { c.PublishFailures++ })
	} else {
		log.Printf("published state %s", name)
	}

	l.current = observed
	l.count(func(c *logic.Counts) { c.StateChanges++ })
	if l.deps.Tracker != nil {
		l.deps.Tracker.SetOutput(name)
	}
	return nil
}

// awaitLink sleeps one interval before each connectivity check until the
// link is back or the policy is exhausted.
func (l *Loop) awaitLink() error {
	p := l.cfg.Retry
	log.Printf("broker link down, waiting up to %v", p.Budget())
	l.count(func(c *logic.Counts) { c.LinkWaits++ })
	if l.deps.Tracker != nil {
		l.deps.Tracker.SetLinkWaiting(true)
		defer l.deps.Tracker.SetLinkWaiting(false)
	}

	for attempts := 0; !p.Exhausted(attempts); {
		l.deps.Sleep(p.Interval)
		attempts++
		if l.deps.Bridge.IsConnected() {
			log.Printf("broker link restored after %d checks", attempts)
			l.syncLink()
			return nil
		}
	}
	return fmt.Errorf("%w after %d checks", ErrLinkRetryExhausted, p.MaxAttempts)
}

// HandleCommand applies an inbound command payload. Unknown payloads are
// ignored. A toggle is issued only when the requested output differs from a
// live hardware read, so repeated commands are idempotent. The record is
// left to the poll loop, which observes the toggled hardware on its next pass.
func (l *Loop) HandleCommand(payload []byte) error {
	target := l.cfg.Names.Decode(payload)
	if !target.Valid() {
		log.Printf("ignoring unknown command %q", payload)
		l.count(func(c *logic.Counts) { c.CommandsIgnored++ })
		return nil
	}
	name, _ := l.cfg.Names.Name(target)

	l.hwMu.Lock()
	defer l.hwMu.Unlock()

	live := l.deps.Sampler.ActiveOutput()
	if live == target {
		log.Printf("command %s: already active", name)
		if l.deps.Bridge.IsConnected() {
			if err := l.deps.Bridge.PublishState(name); err != nil {
				log.Printf("publish error: %v", err)
				l.count(func(c *logic.Counts) { c.PublishFailures++ })
			}
		}
		return nil
	}

	log.Printf("command %s: toggling from %s", name, live)
	if err := l.deps.Toggler.Toggle(); err != nil {
		l.count(func(c *logic.Counts) { c.ToggleFailures++ })
		return fmt.Errorf("toggle to %s: %w", name, err)
	}
	l.count(func(c *logic.Counts) { c.Toggles++ })
	l.deps.Sleep(l.cfg.CommandSettle)
	return nil
}

func (l *Loop) syncLink() {
	if l.deps.Tracker != nil {
		l.deps.Tracker.SetMQTTConnected(l.deps.Bridge.IsConnected())
	}
}

// publishSystem sends a retained lifecycle event, carrying a full status
// snapshot when a tracker is available.
func (l *Loop) publishSystem(event, reason string) {
	ev := mqtt.SystemEvent{
		Timestamp: l.deps.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  event != mqtt.EventHeartbeat,
	}
	if l.deps.Tracker != nil {
		l.syncLink()
		snap := l.deps.Tracker.Snapshot()
		ev.RawPayload = status.FormatStatusEvent(snap, event, reason)
	}
	if err := l.deps.Bridge.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
