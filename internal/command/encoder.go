package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// DefaultSetTimeout bounds a Device/Set* call.
const DefaultSetTimeout = 25 * time.Second

// Logger defines the logging interface used by the Encoder.
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

// Client sends mutation requests. *melcloud.Client implements it.
type Client interface {
	SetDevice(ctx context.Context, contextKey string, t melcloud.DeviceType, body map[string]any) (json.RawMessage, error)
}

// Sessions resolves the context key of an account.
type Sessions interface {
	ContextKey(account string) (string, error)
	Invalidate(account, reason string)
}

// Devices is the read side of the device registry.
type Devices interface {
	Get(id int) (*device.Record, error)
	Snapshot(id int) (melcloud.Snapshot, error)
}

// Store accepts optimistic snapshots after a successful command.
type Store interface {
	Store(deviceID int, snap melcloud.Snapshot)
}

// Observer is told about every delivered or failed command.
type Observer interface {
	ObserveCommand(source string, family melcloud.DeviceType, err error)
}

// Config wires an Encoder.
type Config struct {
	Client   Client
	Sessions Sessions
	Devices  Devices
	Store    Store
	Events   events.Publisher
	Observer Observer
	Logger   Logger

	// SetTimeout applies to accounts without an entry in AccountTimeouts.
	SetTimeout      time.Duration
	AccountTimeouts map[string]time.Duration
}

// Encoder turns local intents into vendor mutation requests.
//
// Commands are not queued: two concurrent commands to the same device
// race and the last response wins.
//
// Thread Safety: all methods are safe for concurrent use.
type Encoder struct {
	cfg    Config
	logger Logger

	savedMu sync.Mutex
	saved   map[presetKey][]Change
}

type presetKey struct {
	deviceID int
	presetID int
}

// AppliedCommand is the payload of command.applied events.
type AppliedCommand struct {
	Changes []Change `json:"changes"`
	Flags   uint64   `json:"effective_flags"`
}

// NewEncoder creates an encoder.
func NewEncoder(cfg Config) *Encoder {
	if cfg.SetTimeout <= 0 {
		cfg.SetTimeout = DefaultSetTimeout
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &Encoder{
		cfg:    cfg,
		logger: logger,
		saved:  make(map[presetKey][]Change),
	}
}

// Apply sets one field on a device.
//
// An unknown field produces a warning event, no request and a nil error.
// Delivery failures are returned as *CommandError.
func (e *Encoder) Apply(ctx context.Context, source string, deviceID int, field string, value any) error {
	return e.ApplyChanges(ctx, source, deviceID, Change{Field: field, Value: value})
}

// ApplyChanges sets several fields in one request, OR'ing their flags.
func (e *Encoder) ApplyChanges(ctx context.Context, source string, deviceID int, changes ...Change) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, changes, err)
	}
	return e.send(ctx, source, rec, snap, changes)
}

// ApplyExternal routes an integration payload of {field: value} pairs.
// Each key is applied on its own, in key order; unknown keys are reported
// as "<integration>, received key: <k>, value: <v>".
func (e *Encoder) ApplyExternal(ctx context.Context, integration string, deviceID int, payload map[string]any) error {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := e.Apply(ctx, integration, deviceID, k, payload[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetZoneTarget changes the target state of one zone.
func (e *Encoder) SetZoneTarget(ctx context.Context, source string, deviceID int, role zone.Role, target int) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	if rec.Result == nil {
		return newCommandError(source, deviceID, nil, device.ErrNoState)
	}
	state, err := snap.StateMap()
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	changes, err := ZoneTarget(rec.Result.Layout, state, role, target)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	return e.send(ctx, source, rec, snap, changes)
}

// SetZoneTemperature changes the setpoint of one zone. Read-only zones
// produce a warning and no request.
func (e *Encoder) SetZoneTemperature(ctx context.Context, source string, deviceID int, role zone.Role, celsius float64) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	changes, err := ZoneTemperature(rec.Type, role, celsius)
	if errors.Is(err, ErrReadOnly) {
		e.warn(rec, fmt.Sprintf("%s, %s", source, err))
		return nil
	}
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	return e.send(ctx, source, rec, snap, changes)
}

// SetZoneLock locks or unlocks one zone.
func (e *Encoder) SetZoneLock(ctx context.Context, source string, deviceID int, role zone.Role, locked bool) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	caps, err := zone.CapabilitiesOf(rec.Type, snap.Entry)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	changes, err := ZoneLock(rec.Type, caps, role, locked)
	if errors.Is(err, ErrReadOnly) {
		e.warn(rec, fmt.Sprintf("%s, %s", source, err))
		return nil
	}
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	return e.send(ctx, source, rec, snap, changes)
}

// ApplyPreset switches a server preset on or off.
//
// Switching on copies the preset's fields and remembers the values they
// replaced; switching off restores them. Switching off a preset that was
// not switched on by this encoder only produces a warning.
func (e *Encoder) ApplyPreset(ctx context.Context, source string, deviceID, presetID int, on bool) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	key := presetKey{deviceID: deviceID, presetID: presetID}

	if !on {
		e.savedMu.Lock()
		restore, ok := e.saved[key]
		e.savedMu.Unlock()
		if !ok || len(restore) == 0 {
			e.warn(rec, fmt.Sprintf("%s, preset %d: no saved state to restore", source, presetID))
			return nil
		}
		if err := e.send(ctx, source, rec, snap, restore); err != nil {
			return err
		}
		e.savedMu.Lock()
		delete(e.saved, key)
		e.savedMu.Unlock()
		return nil
	}

	changes, err := PresetChanges(rec.Type, snap.Entry, presetID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	state, err := snap.StateMap()
	if err != nil {
		return newCommandError(source, deviceID, changes, err)
	}
	previous := currentValues(state, changes)
	if err := e.send(ctx, source, rec, snap, changes); err != nil {
		return err
	}
	e.savedMu.Lock()
	e.saved[key] = previous
	e.savedMu.Unlock()
	return nil
}

// PressButton switches a configured button.
func (e *Encoder) PressButton(ctx context.Context, source string, deviceID, mode int, on bool) error {
	rec, snap, err := e.load(deviceID)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	changes, err := ButtonChanges(rec.Type, mode, on)
	if err != nil {
		return newCommandError(source, deviceID, nil, err)
	}
	return e.send(ctx, source, rec, snap, changes)
}

func (e *Encoder) load(deviceID int) (*device.Record, melcloud.Snapshot, error) {
	rec, err := e.cfg.Devices.Get(deviceID)
	if err != nil {
		return nil, melcloud.Snapshot{}, err
	}
	snap, err := e.cfg.Devices.Snapshot(deviceID)
	if err != nil {
		return nil, melcloud.Snapshot{}, err
	}
	return rec, snap, nil
}

func (e *Encoder) send(ctx context.Context, source string, rec *device.Record, snap melcloud.Snapshot, changes []Change) error {
	patched, flags, err := ApplyFields(rec.Type, snap, changes...)
	if errors.Is(err, ErrUnknownField) {
		for _, c := range changes {
			if _, ok := Flag(rec.Type, c.Field); !ok {
				e.warn(rec, fmt.Sprintf("%s, received key: %s, value: %v", source, c.Field, c.Value))
			}
		}
		return nil
	}
	if err != nil {
		return e.fail(source, rec, changes, err)
	}

	body, err := RequestBody(rec.Type, patched)
	if err != nil {
		return e.fail(source, rec, changes, err)
	}
	key, err := e.cfg.Sessions.ContextKey(rec.AccountName)
	if err != nil {
		return e.fail(source, rec, changes, err)
	}

	setCtx, cancel := context.WithTimeout(ctx, e.timeout(rec.AccountName))
	defer cancel()

	if _, err := e.cfg.Client.SetDevice(setCtx, key, rec.Type, body); err != nil {
		if errors.Is(err, melcloud.ErrAuth) {
			e.cfg.Sessions.Invalidate(rec.AccountName, "set rejected: "+err.Error())
		}
		return e.fail(source, rec, changes, err)
	}

	if e.cfg.Store != nil {
		e.cfg.Store.Store(rec.DeviceID, patched)
	}
	e.observe(source, rec.Type, nil)
	e.logger.Info("command applied",
		"source", source,
		"device_id", rec.DeviceID,
		"effective_flags", fmt.Sprintf("0x%x", flags),
		"changes", len(changes),
	)

	ev := events.New(events.TypeCommandApplied)
	ev.Account = rec.AccountName
	ev.DeviceID = rec.DeviceID
	ev.Source = source
	ev.Data = AppliedCommand{Changes: changes, Flags: flags}
	e.cfg.Events.Publish(ev)
	return nil
}

func (e *Encoder) fail(source string, rec *device.Record, changes []Change, err error) error {
	ce := newCommandError(source, rec.DeviceID, changes, err)
	e.observe(source, rec.Type, ce)
	e.logger.Error("command failed", "source", source, "device_id", rec.DeviceID, "error", err)
	e.cfg.Events.Publish(events.Error(rec.AccountName, rec.DeviceID, ce))
	return ce
}

func (e *Encoder) warn(rec *device.Record, msg string) {
	e.logger.Warn(msg, "device_id", rec.DeviceID)
	e.cfg.Events.Publish(events.Warning(rec.AccountName, rec.DeviceID, msg))
}

func (e *Encoder) observe(source string, family melcloud.DeviceType, err error) {
	if e.cfg.Observer != nil {
		e.cfg.Observer.ObserveCommand(source, family, err)
	}
}

func (e *Encoder) timeout(account string) time.Duration {
	if d, ok := e.cfg.AccountTimeouts[account]; ok && d > 0 {
		return d
	}
	return e.cfg.SetTimeout
}
