// Command usb-switch bridges a two-port USB switch to MQTT: it publishes
// which output is active and presses the switch's button on command.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/usb-switch/internal/analog"
	"github.com/sweeney/usb-switch/internal/control"
	"github.com/sweeney/usb-switch/internal/gpio"
	"github.com/sweeney/usb-switch/internal/logic"
	"github.com/sweeney/usb-switch/internal/mqtt"
	"github.com/sweeney/usb-switch/internal/status"
	"github.com/sweeney/usb-switch/internal/switcher"
	"github.com/sweeney/usb-switch/internal/web"
)

// exitRestart is the exit status after the link retry budget runs out.
// The systemd unit restarts the service on it.
const exitRestart = 3

type options struct {
	broker    string
	username  string
	password  string
	clientID  string
	baseTopic string
	wsBroker  string

	nameA string
	nameB string

	chip      string
	buttonPin int

	iioDevice string
	channelA  int
	channelB  int
	samples   int

	poll          time.Duration
	retryInterval time.Duration
	maxRetries    int
	press         time.Duration
	settle        time.Duration
	heartbeat     time.Duration

	httpAddr string
	reboot   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, switcher.ErrRestartRequested) {
			os.Exit(exitRestart)
		}
		log.Fatalf("fatal: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "usb-switch",
		Short: "Bridge a two-port USB switch to MQTT",
		Long: `Polls the switch's output LEDs through the ADC, publishes the active
output to <base-topic>/state and presses the switch's button when an output
name arrives on <base-topic>/command.

Examples:
  usb-switch --broker tcp://192.168.1.200:1883          # Run the daemon
  usb-switch state                                      # Print the active output
  usb-switch toggle                                     # Press the button once`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.nameA, "name-a", logic.DefaultNames.A, "name of output A")
	f.StringVar(&opts.nameB, "name-b", logic.DefaultNames.B, "name of output B")
	f.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO chip for the button line")
	f.IntVar(&opts.buttonPin, "button-pin", gpio.DefaultButtonPin, "GPIO line offset of the button")
	f.StringVar(&opts.iioDevice, "iio-device", analog.DefaultDevice, "IIO device directory of the ADC")
	f.IntVar(&opts.channelA, "channel-a", analog.DefaultChannelA, "ADC channel sensing output A")
	f.IntVar(&opts.channelB, "channel-b", analog.DefaultChannelB, "ADC channel sensing output B")
	f.IntVar(&opts.samples, "samples", logic.SamplesPerPass, "ADC conversions per channel per pass")
	f.DurationVar(&opts.press, "press", control.DefaultPressDuration, "how long the button is held low")

	rf := root.Flags()
	rf.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	rf.StringVar(&opts.username, "username", "", "MQTT username")
	rf.StringVar(&opts.password, "password", "", "MQTT password")
	rf.StringVar(&opts.clientID, "client-id", "", "MQTT client ID (default usb-switch-<random>)")
	rf.StringVar(&opts.baseTopic, "base-topic", mqtt.DefaultBaseTopic, "MQTT topic prefix")
	rf.StringVar(&opts.wsBroker, "ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	rf.DurationVar(&opts.poll, "poll", 50*time.Millisecond, "output polling interval")
	rf.DurationVar(&opts.retryInterval, "retry-interval", logic.DefaultRetryPolicy.Interval, "wait between broker link checks while a change is pending")
	rf.IntVar(&opts.maxRetries, "max-retries", logic.DefaultRetryPolicy.MaxAttempts, "link checks before restarting")
	rf.DurationVar(&opts.settle, "settle", switcher.DefaultCommandSettle, "pause after a commanded toggle")
	rf.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "heartbeat interval (0 to disable)")
	rf.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	rf.BoolVar(&opts.reboot, "reboot", false, "reboot the device instead of exiting when the link retry budget runs out")

	root.AddCommand(newStateCmd(opts), newToggleCmd(opts))
	return root
}

func newStateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the active output and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := opts.names()
			if err != nil {
				return err
			}
			reader, err := analog.NewIIOReader(opts.iioDevice, opts.channelA, opts.channelB)
			if err != nil {
				return fmt.Errorf("init adc: %w", err)
			}
			defer reader.Close()

			sampler := analog.NewSampler(reader, opts.samples)
			a, b := sampler.Means()
			out := logic.Decide(a, b)
			name, _ := names.Name(out)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) A=%d B=%d\n", name, out, a, b)
			return nil
		},
	}
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Press the switch's button once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := gpio.NewRealLine(opts.chip, opts.buttonPin)
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer line.Close()

			ctrl, err := control.New(line, opts.press, nil)
			if err != nil {
				return err
			}
			return ctrl.Toggle()
		},
	}
}

func (o *options) names() (logic.Names, error) {
	n := logic.Names{A: o.nameA, B: o.nameB}
	if err := n.Validate(); err != nil {
		return n, fmt.Errorf("output names: %w", err)
	}
	return n, nil
}

func (o *options) mqttClientID() string {
	if o.clientID != "" {
		return o.clientID
	}
	return "usb-switch-" + uuid.NewString()[:8]
}

func run(opts *options) error {
	names, err := opts.names()
	if err != nil {
		return err
	}

	// Initialize hardware
	reader, err := analog.NewIIOReader(opts.iioDevice, opts.channelA, opts.channelB)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer reader.Close()

	line, err := gpio.NewRealLine(opts.chip, opts.buttonPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	ctrl, err := control.New(line, opts.press, nil)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}

	ws := resolveWSBroker(opts.wsBroker, opts.broker)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          opts.poll.Milliseconds(),
		PressMs:         opts.press.Milliseconds(),
		RetryIntervalMs: opts.retryInterval.Milliseconds(),
		MaxRetries:      opts.maxRetries,
		HeartbeatMs:     opts.heartbeat.Milliseconds(),
		Broker:          opts.broker,
		BaseTopic:       opts.baseTopic,
		HTTPPort:        opts.httpAddr,
		WSBroker:        ws,
		NameA:           names.A,
		NameB:           names.B,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	bridge := mqtt.NewRealBridge(mqtt.Config{
		Broker:   opts.broker,
		ClientID: opts.mqttClientID(),
		Username: opts.username,
		Password: opts.password,
		Topics:   mqtt.NewTopics(opts.baseTopic),
	})
	defer bridge.Close()

	loop, err := switcher.New(switcher.Config{
		Names:         names,
		Retry:         logic.RetryPolicy{MaxAttempts: opts.maxRetries, Interval: opts.retryInterval},
		CommandSettle: opts.settle,
		Heartbeat:     opts.heartbeat,
	}, switcher.Deps{
		Sampler:   analog.NewSampler(reader, opts.samples),
		Bridge:    bridge,
		Toggler:   ctrl,
		Restarter: newRestarter(opts.reboot),
		Tracker:   tracker,
	})
	if err != nil {
		return err
	}

	if err := bridge.Connect(loop.CurrentName, loop.HandleCommand); err != nil {
		return err
	}
	tracker.SetMQTTConnected(bridge.IsConnected())

	// Publish startup event with full status snapshot; deferred until the
	// first connect if the broker is not up yet.
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := bridge.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: poll=%v broker=%s topic=%s outputs=%s/%s retry=%dx%v heartbeat=%v",
		opts.poll, opts.broker, opts.baseTopic, names.A, names.B, opts.maxRetries, opts.retryInterval, opts.heartbeat)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return loop.Run(ticker.C, sigCh)
}
