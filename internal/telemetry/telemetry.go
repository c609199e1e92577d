// Package telemetry publishes sequencer events to an MQTT broker for
// external observers (dashboards, log aggregators) that want a live
// feed of frame selections without tailing the process's own log
// output.
//
// Grounded on the teacher's MQTT emitter: a paho.mqtt.golang client
// wrapped with auto-reconnect, a publish counter shared by all topics, and
// fire-and-forget Publish semantics that degrade to a logged error
// rather than blocking the caller's real-time path.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the select stage's view of telemetry: publish a
// tick or selection event, fire-and-forget. Both *Emitter and
// NoopEmitter satisfy it, so callers never need a nil check depending
// on whether a schedule config has an mqtt section.
type Publisher interface {
	PublishTick(TickEvent) error
	PublishSelection(SelectionEvent) error
}

// Config configures the emitter.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
}

// Emitter publishes sequencer events to MQTT. The zero value is not
// usable; construct with New.
type Emitter struct {
	cfg Config

	mu        sync.RWMutex
	client    mqtt.Client
	connected bool

	published atomic.Uint64
	errors    atomic.Uint64
}

// New constructs an Emitter; it does not connect until Connect is called.
func New(cfg Config) *Emitter {
	return &Emitter{cfg: cfg}
}

// Connect dials the configured broker with auto-reconnect enabled. A
// broker given without a scheme (host:port) is dialed over tcp://.
func (e *Emitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	broker := e.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts.AddBroker(broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("telemetry: mqtt connection established", "broker", e.cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("telemetry: mqtt connection lost, will auto-reconnect", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("telemetry: mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connect failed: %w", err)
	}

	e.mu.Lock()
	e.client = client
	e.connected = true
	e.mu.Unlock()
	return nil
}

// TickEvent describes one base tick and the services it released.
// PublishTick sends one when called; the sequencer's tick handler does
// not call it, so no tick events are published during a run.
type TickEvent struct {
	Iteration uint64    `json:"iteration"`
	Released  []string  `json:"released"`
	At        time.Time `json:"at"`
}

// SelectionEvent is published each time the select stage emits a token
// to the selected queue (spec.md §4.6).
type SelectionEvent struct {
	RequestID            uint64    `json:"request_id"`
	DifferencePercentage float64   `json:"difference_percentage"`
	At                   time.Time `json:"at"`
}

// PublishTick publishes a TickEvent under "<topic>/ticks".
func (e *Emitter) PublishTick(ev TickEvent) error {
	return e.publish(e.cfg.Topic+"/ticks", ev)
}

// PublishSelection publishes a SelectionEvent under "<topic>/selections".
func (e *Emitter) PublishSelection(ev SelectionEvent) error {
	return e.publish(e.cfg.Topic+"/selections", ev)
}

func (e *Emitter) publish(topic string, v any) error {
	e.mu.RLock()
	client, connected := e.client, e.connected
	e.mu.RUnlock()

	if !connected || client == nil {
		e.errors.Add(1)
		return fmt.Errorf("telemetry: not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		e.errors.Add(1)
		return fmt.Errorf("telemetry: marshaling event: %w", err)
	}

	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.errors.Add(1)
		return fmt.Errorf("telemetry: publish to %q timed out", topic)
	}
	if err := token.Error(); err != nil {
		e.errors.Add(1)
		return fmt.Errorf("telemetry: publish to %q failed: %w", topic, err)
	}

	e.published.Add(1)
	return nil
}

// Stats is a diagnostic snapshot for the control endpoint.
type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// Snapshot returns the emitter's current Stats.
func (e *Emitter) Snapshot() Stats {
	e.mu.RLock()
	connected := e.connected
	e.mu.RUnlock()
	return Stats{
		Connected: connected,
		Published: e.published.Load(),
		Errors:    e.errors.Load(),
	}
}

// Disconnect closes the MQTT connection, if any.
func (e *Emitter) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
	}
	e.connected = false
}

// NoopEmitter satisfies the same call sites as *Emitter when no MQTT
// section is configured, so cmd/sequencerd never needs a nil check.
type NoopEmitter struct{}

func (NoopEmitter) PublishTick(TickEvent) error           { return nil }
func (NoopEmitter) PublishSelection(SelectionEvent) error { return nil }
