package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // ms
)

// Config holds broker session settings.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topics         Topics
	ConnectTimeout time.Duration
}

// RealBridge talks to an actual MQTT broker.
type RealBridge struct {
	client  paho.Client
	cfg     Config
	conn    ConnState
	state   StateFunc
	handler CommandHandler

	mu      sync.Mutex
	pending *SystemEvent // latest system event deferred while offline
}

// NewRealBridge creates an unconnected bridge. Call Connect to start the session.
func NewRealBridge(cfg Config) *RealBridge {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	b := &RealBridge{cfg: cfg}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOrderMatters(false).
		SetWill(cfg.Topics.Available, PayloadOffline, 1, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)

	b.client = paho.NewClient(opts)
	return b
}

// Connect starts the session. state supplies the live output published on
// every (re)connect; handler receives command payloads.
//
// If the broker is unreachable within the connect timeout, Connect returns
// nil and the client keeps retrying in the background.
func (b *RealBridge) Connect(state StateFunc, handler CommandHandler) error {
	b.state = state
	b.handler = handler

	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", b.cfg.Broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (b *RealBridge) onConnect(c paho.Client) {
	b.conn.Set(true)
	log.Printf("mqtt: connected to %s", b.cfg.Broker)

	if err := b.publish(b.cfg.Topics.Available, 1, true, []byte(PayloadOnline)); err != nil {
		log.Printf("mqtt: publish online status: %v", err)
	}

	if b.state != nil {
		if name, ok := b.state(); ok {
			if err := b.PublishState(name); err != nil {
				log.Printf("mqtt: publish state on connect: %v", err)
			}
		}
	}

	token := c.Subscribe(b.cfg.Topics.Command, 0, b.onMessage)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("mqtt: subscribe %s: timeout", b.cfg.Topics.Command)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: subscribe %s: %v", b.cfg.Topics.Command, err)
	} else {
		log.Printf("mqtt: subscribed to %s", b.cfg.Topics.Command)
	}

	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	if pending != nil {
		if err := b.PublishSystem(*pending); err != nil {
			log.Printf("mqtt: replay %s event: %v", pending.Event, err)
		}
	}
}

func (b *RealBridge) onConnectionLost(_ paho.Client, err error) {
	b.conn.Set(false)
	log.Printf("mqtt: connection lost: %v", err)
}

func (b *RealBridge) onMessage(_ paho.Client, msg paho.Message) {
	if b.handler == nil {
		return
	}
	if err := b.handler(msg.Payload()); err != nil {
		log.Printf("mqtt: command %q: %v", msg.Payload(), err)
	}
}

// IsConnected reports the link status recorded by the connection handlers.
func (b *RealBridge) IsConnected() bool {
	return b.conn.Get()
}

// PublishState publishes the active output name (QoS 1, retained).
func (b *RealBridge) PublishState(name string) error {
	return b.publish(b.cfg.Topics.State, 1, true, []byte(name))
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
// While offline only the latest event is kept and sent after reconnecting.
func (b *RealBridge) PublishSystem(event SystemEvent) error {
	if !b.conn.Get() {
		b.mu.Lock()
		b.pending = &event
		b.mu.Unlock()
		log.Printf("mqtt: offline, deferring %s event", event.Event)
		return nil
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should arrive
	return b.publish(b.cfg.Topics.System, 1, event.Retained, payload)
}

func (b *RealBridge) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := b.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close marks the device offline and disconnects from the broker.
// A clean disconnect suppresses the last will, so offline is sent explicitly.
func (b *RealBridge) Close() error {
	if b.conn.Get() {
		if err := b.publish(b.cfg.Topics.Available, 1, true, []byte(PayloadOffline)); err != nil {
			log.Printf("mqtt: publish offline status: %v", err)
		}
	}
	b.client.Disconnect(disconnectQuiesce)
	b.conn.Set(false)
	return nil
}
