package command

import (
	"fmt"
	"strings"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Change is one field assignment on a device state body.
type Change struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ERV request defaults.
const (
	ervDefaultCoolingSetTemperature = 23
	ervDefaultHeatingSetTemperature = 21
)

// ervBodyFields are copied from the patched state into an ERV request.
var ervBodyFields = []string{
	"DeviceID",
	"EffectiveFlags",
	"RoomTemperature",
	"SupplyTemperature",
	"OutdoorTemperature",
	"NightPurgeMode",
	"SetTemperature",
	"SetFanSpeed",
	"OperationMode",
	"VentilationMode",
	"Power",
	"Offline",
	"HasPendingCommand",
}

// ApplyField encodes a single field change.
//
// See ApplyFields.
func ApplyField(family melcloud.DeviceType, snap melcloud.Snapshot, name string, value any) (melcloud.Snapshot, uint64, error) {
	return ApplyFields(family, snap, Change{Field: name, Value: value})
}

// ApplyFields encodes one or more field changes onto a copy of snap.
//
// Each value is coerced to the field type and temperatures are clamped to
// the device range. EffectiveFlags is set to exactly the OR of the changed
// fields' bits, replacing whatever the stored state carried, and
// HasPendingCommand is set.
//
// Parameters:
//   - family: device family selecting the flag table
//   - snap: current snapshot; never modified
//   - changes: assignments applied in order
//
// Returns:
//   - the patched snapshot and its EffectiveFlags
//   - ErrUnknownField for a name outside the table; no change is applied
func ApplyFields(family melcloud.DeviceType, snap melcloud.Snapshot, changes ...Change) (melcloud.Snapshot, uint64, error) {
	if len(changes) == 0 {
		return melcloud.Snapshot{}, 0, ErrNoChanges
	}
	table, err := fieldsFor(family)
	if err != nil {
		return melcloud.Snapshot{}, 0, err
	}
	state, err := snap.StateMap()
	if err != nil {
		return melcloud.Snapshot{}, 0, err
	}
	caps, err := zone.CapabilitiesOf(family, snap.Entry)
	if err != nil {
		return melcloud.Snapshot{}, 0, err
	}

	var flags uint64
	for _, c := range changes {
		f, ok := table[c.Field]
		if !ok {
			return melcloud.Snapshot{}, 0, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
		}
		v, err := f.coerce(c.Value)
		if err != nil {
			return melcloud.Snapshot{}, 0, fmt.Errorf("%s: %w", c.Field, err)
		}
		if lo, hi, ok := f.bounds(caps, snap.Entry, state); ok {
			v = clamp(v.(float64), lo, hi)
		}
		state[c.Field] = v
		flags |= f.flag
	}

	state["EffectiveFlags"] = flags
	state["HasPendingCommand"] = true

	patched, err := snap.WithState(state)
	if err != nil {
		return melcloud.Snapshot{}, 0, err
	}
	return patched, flags, nil
}

// RequestBody builds the Device/Set* body from a patched snapshot.
//
// ERV units receive a fixed field list; the other families get the whole
// state body.
func RequestBody(family melcloud.DeviceType, snap melcloud.Snapshot) (map[string]any, error) {
	state, err := snap.StateMap()
	if err != nil {
		return nil, err
	}
	if family != melcloud.TypeERV {
		return state, nil
	}

	body := make(map[string]any, len(ervBodyFields)+6)
	for _, name := range ervBodyFields {
		if v, ok := state[name]; ok {
			body[name] = v
		}
	}
	for name, v := range state {
		if strings.HasPrefix(name, "Hide") {
			body[name] = v
		}
	}
	body["DefaultCoolingSetTemperature"] = ervDefaultCoolingSetTemperature
	body["DefaultHeatingSetTemperature"] = ervDefaultHeatingSetTemperature
	return body, nil
}
