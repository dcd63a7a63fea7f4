package zone

import (
	"encoding/json"
	"reflect"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// presetFields lists, per family, the state fields a server preset sets.
var presetFields = map[melcloud.DeviceType][]string{
	melcloud.TypeAirToWater: {
		"Power",
		"EcoHotWater",
		"OperationModeZone1",
		"OperationModeZone2",
		"SetTankWaterTemperature",
		"SetTemperatureZone1",
		"SetTemperatureZone2",
		"ForcedHotWaterMode",
		"SetHeatFlowTemperatureZone1",
		"SetHeatFlowTemperatureZone2",
		"SetCoolFlowTemperatureZone1",
		"SetCoolFlowTemperatureZone2",
	},
	melcloud.TypeAirToAir: {
		"Power",
		"OperationMode",
		"SetTemperature",
		"SetFanSpeed",
		"VaneHorizontal",
		"VaneVertical",
	},
	melcloud.TypeERV: {
		"Power",
		"OperationMode",
		"VentilationMode",
		"SetFanSpeed",
	},
}

// PresetFields returns the preset field list for a family.
func PresetFields(family melcloud.DeviceType) []string {
	return append([]string(nil), presetFields[family]...)
}

// FindPreset returns the server preset with the given id from a raw
// device entry.
func FindPreset(entry json.RawMessage, id int) (map[string]json.RawMessage, bool) {
	e, err := decodeEntry(melcloud.Snapshot{Entry: entry})
	if err != nil {
		return nil, false
	}
	return findPreset(e.Presets, id)
}

func findPreset(presets []map[string]json.RawMessage, id int) (map[string]json.RawMessage, bool) {
	for _, p := range presets {
		var pid int
		if err := json.Unmarshal(p["ID"], &pid); err != nil {
			continue
		}
		if pid == id {
			return p, true
		}
	}
	return nil, false
}

// presetApplied reports whether every preset field matches the state.
func presetApplied(family melcloud.DeviceType, preset, state map[string]json.RawMessage) bool {
	for _, field := range presetFields[family] {
		if !rawEqual(preset[field], state[field]) {
			return false
		}
	}
	return true
}

func rawEqual(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func displayName(deviceName, name string, prefix bool) string {
	if prefix && deviceName != "" {
		return deviceName + " " + name
	}
	return name
}

// evaluatePresets computes the applied flag of each configured preset.
func evaluatePresets(family melcloud.DeviceType, e entryView, state map[string]json.RawMessage, specs []PresetSpec, w *warnings) []Indicator {
	var out []Indicator
	for _, spec := range specs {
		if spec.DisplayType == DisplayNone {
			continue
		}
		if spec.Name == "" {
			w.addf("preset %d: missing name, skipped", spec.ID)
			continue
		}
		ind := Indicator{
			ID:          spec.ID,
			Name:        displayName(e.DeviceName, spec.Name, spec.NamePrefix),
			DisplayType: spec.DisplayType,
		}
		if p, ok := findPreset(e.Presets, spec.ID); ok {
			ind.Applied = presetApplied(family, p, state)
		}
		out = append(out, ind)
	}
	return out
}
