package mqttrelay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/melcloud-bridge/internal/command"
	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/mqtt"
)

// Integration is the source name recorded for commands arriving over MQTT.
const Integration = "MQTT"

// defaultBuffer is the event subscription buffer.
const defaultBuffer = 256

// Logger is the logging interface used by the relay.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the MQTT surface the relay needs. *mqtt.Client satisfies it.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
	QoS() byte
}

// Devices resolves devices for both directions.
type Devices interface {
	Get(id int) (*device.Record, error)
	FindBySlug(slug string) (*device.Record, error)
}

// Commander applies integration payloads.
type Commander interface {
	ApplyExternal(ctx context.Context, integration string, deviceID int, payload map[string]any) error
}

// Observer counts relayed messages.
type Observer interface {
	ObserveRelayMessage(relay string)
}

// Config holds the relay's collaborators.
type Config struct {
	Broker   Broker
	Bus      *events.Bus
	Devices  Devices
	Commands Commander
	Observer Observer
	Logger   Logger

	// Buffer is the event subscription buffer; 0 means 256.
	Buffer int
}

// Relay bridges the event bus and an MQTT broker.
type Relay struct {
	cfg    Config
	topics mqtt.Topics
}

// New creates a relay.
func New(cfg Config) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	return &Relay{cfg: cfg, topics: cfg.Broker.Topics()}
}

// Run subscribes to Set topics and forwards events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.cfg.Bus.Subscribe(r.cfg.Buffer,
		events.TypeStateChanged,
		events.TypeInfo,
		events.TypeWarning,
		events.TypeError,
		events.TypeSessionState,
		events.TypeCommandApplied,
	)
	defer sub.Close()

	err := r.cfg.Broker.Subscribe(r.topics.AllSets(), r.cfg.Broker.QoS(), func(topic string, payload []byte) error {
		return r.HandleSet(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to set topics: %w", err)
	}
	r.cfg.Logger.Info("mqtt relay started", "topic", r.topics.AllSets())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.Forward(ev); err != nil {
				r.cfg.Logger.Warn("mqtt publish failed", "type", ev.Type, "device_id", ev.DeviceID, "error", err)
			}
		}
	}
}

// Forward publishes one bridge event.
func (r *Relay) Forward(ev events.Event) error {
	switch ev.Type {
	case events.TypeStateChanged:
		rec, err := r.cfg.Devices.Get(ev.DeviceID)
		if err != nil {
			return fmt.Errorf("device %d: %w", ev.DeviceID, err)
		}
		family, slug := rec.Type.Slug(), rec.Slug()
		if len(rec.Snapshot.State) > 0 {
			if err := r.publish(r.topics.DeviceState(family, slug), rec.Snapshot.State, true); err != nil {
				return err
			}
		}
		return r.publishJSON(r.topics.DeviceZones(family, slug), ev.Data, true)

	case events.TypeInfo:
		rec, err := r.cfg.Devices.Get(ev.DeviceID)
		if err != nil {
			return fmt.Errorf("device %d: %w", ev.DeviceID, err)
		}
		return r.publishJSON(r.topics.DeviceInfo(rec.Type.Slug(), rec.Slug()), ev.Data, true)

	default:
		return r.publishJSON(r.topics.Event(ev.Type), ev, false)
	}
}

// HandleSet applies one inbound Set message.
func (r *Relay) HandleSet(ctx context.Context, topic string, payload []byte) error {
	family, slug, ok := r.topics.ParseSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	rec, err := r.cfg.Devices.FindBySlug(slug)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", slug, err)
	}
	if rec.Type.Slug() != family {
		return fmt.Errorf("%w: topic says %s, device %d is %s", ErrFamilyMismatch, family, rec.DeviceID, rec.Type.Slug())
	}

	values, err := command.DecodePayload(payload)
	if err != nil {
		return err
	}
	r.observe()
	r.cfg.Logger.Debug("mqtt set received", "device_id", rec.DeviceID, "keys", len(values))

	return r.cfg.Commands.ApplyExternal(ctx, Integration, rec.DeviceID, values)
}

func (r *Relay) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", topic, err)
	}
	return r.publish(topic, payload, retained)
}

func (r *Relay) publish(topic string, payload []byte, retained bool) error {
	if err := r.cfg.Broker.Publish(topic, payload, r.cfg.Broker.QoS(), retained); err != nil {
		return err
	}
	r.observe()
	return nil
}

func (r *Relay) observe() {
	if r.cfg.Observer != nil {
		r.cfg.Observer.ObserveRelayMessage("mqtt")
	}
}
