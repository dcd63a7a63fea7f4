package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the bridge.
const (
	TypeDiscovered     = "device.discovered"
	TypeStateChanged   = "device.state_changed"
	TypeInfo           = "device.info"
	TypeWarning        = "warning"
	TypeError          = "error"
	TypeCommandApplied = "command.applied"
	TypeSessionState   = "session.state"
)

// Event is one notification from the bridge core.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Account   string    `json:"account,omitempty"`
	DeviceID  int       `json:"device_id,omitempty"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message,omitempty"`

	// Data is the type-specific payload: a zone.Result for state changes,
	// zone.Info for device info, a device.Descriptor for discoveries.
	Data any `json:"data,omitempty"`
}

// New builds an event with a fresh id and the current time.
func New(eventType string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Warning builds a warning event for a device.
func Warning(account string, deviceID int, message string) Event {
	ev := New(TypeWarning)
	ev.Account = account
	ev.DeviceID = deviceID
	ev.Message = message
	return ev
}

// Error builds an error event for a device.
func Error(account string, deviceID int, err error) Event {
	ev := New(TypeError)
	ev.Account = account
	ev.DeviceID = deviceID
	if err != nil {
		ev.Message = err.Error()
	}
	return ev
}

// Publisher accepts events. The Bus implements it.
type Publisher interface {
	Publish(ev Event)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
