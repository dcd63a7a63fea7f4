package command

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Air-to-water zone operation modes written by zone intents.
const (
	zoneModeHeatThermostat = 0
	zoneModeHeatFlow       = 1
	zoneModeCurve          = 2
	zoneModeCoolThermostat = 3
	zoneModeCoolFlow       = 4
)

// Air-to-water unit status values.
const (
	unitStatusHeating = 0
	unitStatusCooling = 1
)

func set(field string, value any) Change {
	return Change{Field: field, Value: value}
}

// ZoneTarget translates a target state for one zone into field changes.
//
// Target values follow the presentation mode of the layout: heater-cooler
// uses AUTO/HEAT/COOL, thermostat OFF/HEAT/COOL/AUTO.
func ZoneTarget(layout zone.Layout, state map[string]any, role zone.Role, target int) ([]Change, error) {
	slot, ok := layout.Slot(role)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, role)
	}
	if len(slot.Range.ValidOperations) > 0 && !slices.Contains(slot.Range.ValidOperations, target) {
		return nil, fmt.Errorf("%w: target %d for %s", ErrInvalidValue, target, role)
	}
	if layout.Family == melcloud.TypeAirToWater {
		return atwZoneTarget(layout.Mode, state, role, target), nil
	}
	return airZoneTarget(layout.Mode, target), nil
}

func isAuto(mode zone.Mode, target int) bool {
	if mode == zone.ModeThermostat {
		return target == zone.ThTargetAuto
	}
	return target == zone.HCTargetAuto
}

func isOff(mode zone.Mode, target int) bool {
	return mode == zone.ModeThermostat && target == zone.ThTargetOff
}

func atwZoneTarget(mode zone.Mode, state map[string]any, role zone.Role, target int) []Change {
	unitStatus, _ := toInt(state["UnitStatus"]) //nolint:errcheck // absent status reads as heating

	switch role {
	case zone.RolePrimary:
		switch {
		case isOff(mode, target):
			return []Change{set("Power", false)}
		case isAuto(mode, target):
			return []Change{set("Power", true)}
		case target == zone.HCTargetHeat:
			return []Change{set("Power", true), set("UnitStatus", unitStatusHeating)}
		default:
			return []Change{set("Power", true), set("UnitStatus", unitStatusCooling)}
		}

	case zone.RoleZone1, zone.RoleZone2:
		field := "OperationModeZone1"
		if role == zone.RoleZone2 {
			field = "OperationModeZone2"
		}
		cooling := unitStatus == unitStatusCooling
		switch {
		case isAuto(mode, target) || isOff(mode, target):
			return []Change{set(field, zoneModeCurve)}
		case target == zone.HCTargetHeat:
			if cooling {
				return []Change{set(field, zoneModeCoolThermostat)}
			}
			return []Change{set(field, zoneModeHeatThermostat)}
		default:
			if cooling {
				return []Change{set(field, zoneModeCoolFlow)}
			}
			return []Change{set(field, zoneModeHeatFlow)}
		}

	default:
		return []Change{set("ForcedHotWaterMode", target == zone.HCTargetHeat)}
	}
}

func airZoneTarget(mode zone.Mode, target int) []Change {
	switch {
	case isOff(mode, target):
		return []Change{set("Power", false)}
	case isAuto(mode, target):
		return []Change{set("Power", true), set("OperationMode", zone.AirModeAuto)}
	case target == zone.HCTargetHeat:
		return []Change{set("Power", true), set("OperationMode", zone.AirModeHeat)}
	default:
		return []Change{set("Power", true), set("OperationMode", zone.AirModeCool)}
	}
}

// ZoneTemperature translates a setpoint for one zone into a field change.
// The air-to-water primary zone shows outdoor temperature and is read-only.
func ZoneTemperature(family melcloud.DeviceType, role zone.Role, celsius float64) ([]Change, error) {
	if family != melcloud.TypeAirToWater {
		if role != zone.RolePrimary {
			return nil, fmt.Errorf("%w: %s", ErrUnknownZone, role)
		}
		return []Change{set("SetTemperature", celsius)}, nil
	}
	switch role {
	case zone.RoleZone1:
		return []Change{set("SetTemperatureZone1", celsius)}, nil
	case zone.RoleZone2:
		return []Change{set("SetTemperatureZone2", celsius)}, nil
	case zone.RoleHotWater:
		return []Change{set("SetTankWaterTemperature", celsius)}, nil
	default:
		return nil, fmt.Errorf("%w: %s temperature", ErrReadOnly, role)
	}
}

// ZoneLock translates a lock request into prohibit changes. Locking the
// air-to-water primary zone locks every zone the unit has.
func ZoneLock(family melcloud.DeviceType, caps zone.Capabilities, role zone.Role, locked bool) ([]Change, error) {
	if family != melcloud.TypeAirToWater {
		return nil, fmt.Errorf("%w: %s lock", ErrReadOnly, role)
	}
	switch role {
	case zone.RoleZone1:
		return []Change{set("ProhibitZone1", locked)}, nil
	case zone.RoleZone2:
		return []Change{set("ProhibitZone2", locked)}, nil
	case zone.RoleHotWater:
		return []Change{set("ProhibitHotWater", locked)}, nil
	default:
		changes := []Change{set("ProhibitZone1", locked)}
		if caps.HasHotWaterTank {
			changes = append(changes, set("ProhibitHotWater", locked))
		}
		if caps.HasZone2 {
			changes = append(changes, set("ProhibitZone2", locked))
		}
		return changes, nil
	}
}

// PresetChanges returns the field assignments of a server preset.
func PresetChanges(family melcloud.DeviceType, entry json.RawMessage, id int) ([]Change, error) {
	preset, ok := zone.FindPreset(entry, id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPresetNotFound, id)
	}
	var changes []Change
	for _, name := range zone.PresetFields(family) {
		raw, ok := preset[name]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: preset %d field %s: %v", melcloud.ErrData, id, name, err)
		}
		if v == nil {
			continue
		}
		changes = append(changes, set(name, v))
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: preset %d has no fields", ErrNoChanges, id)
	}
	return changes, nil
}

// currentValues captures the state values of the fields changes touches.
func currentValues(state map[string]any, changes []Change) []Change {
	saved := make([]Change, 0, len(changes))
	for _, c := range changes {
		if v, ok := state[c.Field]; ok {
			saved = append(saved, set(c.Field, v))
		}
	}
	return saved
}

// ButtonChanges translates a button press into field changes.
//
// Mode numbering matches the indicator read side, so a button reads as
// applied after its own press.
func ButtonChanges(family melcloud.DeviceType, mode int, on bool) ([]Change, error) {
	var changes []Change
	switch family {
	case melcloud.TypeAirToWater:
		changes = atwButtonChanges(mode, on)
	case melcloud.TypeAirToAir:
		changes = ataButtonChanges(mode, on)
	case melcloud.TypeERV:
		changes = ervButtonChanges(mode, on)
	default:
		return nil, fmt.Errorf("%w: %d", melcloud.ErrUnsupportedType, int(family))
	}
	if changes == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownButton, mode)
	}
	return changes, nil
}

func atwButtonChanges(mode int, on bool) []Change {
	powerOn := set("Power", true)
	switch {
	case mode == zone.ButtonPower:
		return []Change{set("Power", on)}
	case mode == zone.ButtonHeat:
		return []Change{powerOn, set("UnitStatus", unitStatusHeating)}
	case mode == zone.ButtonCool:
		return []Change{powerOn, set("UnitStatus", unitStatusCooling)}
	case mode == zone.ButtonHoliday:
		return []Change{set("HolidayMode", on)}
	case mode == zone.ButtonAllZonesLocked:
		return []Change{set("ProhibitZone1", on), set("ProhibitHotWater", on), set("ProhibitZone2", on)}
	case mode == zone.ButtonHotWaterAuto:
		return []Change{powerOn, set("ForcedHotWaterMode", !on)}
	case mode == zone.ButtonEcoHotWater:
		return []Change{powerOn, set("EcoHotWater", on)}
	case mode == zone.ButtonForcedHotWater:
		return []Change{powerOn, set("ForcedHotWaterMode", on)}
	case mode == zone.ButtonHotWaterLocked:
		return []Change{set("ProhibitHotWater", on)}
	case mode >= zone.ButtonZone1ModeBase && mode <= zone.ButtonZone1ModeBase+5:
		return []Change{powerOn, set("OperationModeZone1", mode-zone.ButtonZone1ModeBase)}
	case mode == zone.ButtonZone1Locked:
		return []Change{set("ProhibitZone1", on)}
	case mode >= zone.ButtonZone2ModeBase && mode <= zone.ButtonZone2ModeBase+5:
		return []Change{powerOn, set("OperationModeZone2", mode-zone.ButtonZone2ModeBase)}
	case mode == zone.ButtonZone2Locked:
		return []Change{set("ProhibitZone2", on)}
	default:
		return nil
	}
}

func ataButtonChanges(mode int, on bool) []Change {
	powerOn := set("Power", true)
	if op, ok := zone.AirButtonModes[mode]; ok {
		return []Change{powerOn, set("OperationMode", op)}
	}
	switch {
	case mode == zone.ButtonPower:
		return []Change{set("Power", on)}
	case mode >= zone.ButtonAirFanSpeedBase && mode <= zone.ButtonAirFanSpeedBase+5:
		return []Change{powerOn, set("SetFanSpeed", mode-zone.ButtonAirFanSpeedBase)}
	case mode == zone.ButtonAirVaneHSwing:
		v := 0
		if on {
			v = zone.AirVaneHorizontalSwing
		}
		return []Change{powerOn, set("VaneHorizontal", v)}
	case mode == zone.ButtonAirVaneVSwing:
		v := 0
		if on {
			v = zone.AirVaneVerticalSwing
		}
		return []Change{powerOn, set("VaneVertical", v)}
	default:
		return nil
	}
}

func ervButtonChanges(mode int, on bool) []Change {
	powerOn := set("Power", true)
	switch {
	case mode == zone.ButtonPower:
		return []Change{set("Power", on)}
	case mode == zone.ButtonErvLossnay:
		return []Change{powerOn, set("VentilationMode", zone.VentilationLossnay)}
	case mode == zone.ButtonErvBypass:
		return []Change{powerOn, set("VentilationMode", zone.VentilationBypass)}
	case mode == zone.ButtonErvAutoVent:
		return []Change{powerOn, set("VentilationMode", zone.VentilationAuto)}
	case mode == zone.ButtonErvNightPurge:
		return []Change{powerOn, set("NightPurgeMode", on)}
	case mode >= zone.ButtonErvFanSpeedBase && mode <= zone.ButtonErvFanSpeedBase+4:
		return []Change{powerOn, set("SetFanSpeed", mode-zone.ButtonErvFanSpeedBase)}
	default:
		return nil
	}
}
