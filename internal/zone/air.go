package zone

import (
	"math"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Air-to-air and ERV operation mode codes.
const (
	AirModeHeat = 1
	AirModeDry  = 2
	AirModeCool = 3
	AirModeFan  = 7
	AirModeAuto = 8
)

// ERV ventilation mode codes.
const (
	VentilationLossnay = 0
	VentilationBypass  = 1
	VentilationAuto    = 2
)

// airTable maps operation mode codes for one presentation mode. Auto is
// resolved from room and set temperature and is absent from current.
type airTable struct {
	current  map[int]int
	target   map[int]int
	autoHeat int
	autoCool int
	autoIdle int
	valid    []int
}

var airTables = map[Mode]airTable{
	ModeHeaterCooler: {
		current:  map[int]int{AirModeHeat: HCHeating, AirModeDry: HCCooling, AirModeCool: HCCooling, AirModeFan: HCIdle},
		target:   map[int]int{AirModeHeat: HCTargetHeat, AirModeDry: HCTargetCool, AirModeCool: HCTargetCool, AirModeFan: HCTargetAuto, AirModeAuto: HCTargetAuto},
		autoHeat: HCHeating,
		autoCool: HCCooling,
		autoIdle: HCIdle,
		valid:    []int{HCTargetAuto, HCTargetHeat, HCTargetCool},
	},
	ModeThermostat: {
		current:  map[int]int{AirModeHeat: ThHeat, AirModeDry: ThCool, AirModeCool: ThCool, AirModeFan: ThOff},
		target:   map[int]int{AirModeHeat: ThTargetHeat, AirModeDry: ThTargetCool, AirModeCool: ThTargetCool, AirModeFan: ThTargetAuto, AirModeAuto: ThTargetAuto},
		autoHeat: ThHeat,
		autoCool: ThCool,
		autoIdle: ThOff,
		valid:    []int{ThTargetOff, ThTargetHeat, ThTargetCool, ThTargetAuto},
	},
}

// airCapabilities derives capabilities for air-to-air and ERV units.
func airCapabilities(family melcloud.DeviceType, d entryDeviceView) Capabilities {
	c := Capabilities{
		CanHeat:              true,
		CanCool:              family == melcloud.TypeAirToAir,
		TemperatureIncrement: floatOr(d.TemperatureIncrement, 1),
	}
	c.MinSetTemperature, c.MaxSetTemperature = airTemperatureBounds(family, d)
	c.Class = classOf(c.CanHeat, c.CanCool)
	return c
}

// airTemperatureBounds is the widest setpoint range across modes.
func airTemperatureBounds(family melcloud.DeviceType, d entryDeviceView) (float64, float64) {
	lo, hi := floatOr(d.MinTempHeat, 10), floatOr(d.MaxTempHeat, 31)
	if family == melcloud.TypeERV {
		return lo, hi
	}
	lo = math.Min(lo, math.Min(floatOr(d.MinTempCoolDry, 16), floatOr(d.MinTempAutomatic, 16)))
	hi = math.Max(hi, math.Max(floatOr(d.MaxTempCoolDry, 31), floatOr(d.MaxTempAutomatic, 31)))
	return lo, hi
}

// AirModeRange returns the setpoint range for one air-to-air operation
// mode, with the vendor defaults applied.
func AirModeRange(entry []byte, operationMode int) (float64, float64) {
	e, err := decodeEntry(melcloud.Snapshot{Entry: entry})
	if err != nil {
		return 10, 31
	}
	d := e.Device
	switch operationMode {
	case AirModeHeat:
		return floatOr(d.MinTempHeat, 10), floatOr(d.MaxTempHeat, 31)
	case AirModeDry, AirModeCool:
		return floatOr(d.MinTempCoolDry, 16), floatOr(d.MaxTempCoolDry, 31)
	case AirModeAuto:
		return floatOr(d.MinTempAutomatic, 16), floatOr(d.MaxTempAutomatic, 31)
	default:
		return airTemperatureBounds(melcloud.TypeAirToAir, d)
	}
}

// airLayout builds the single-zone arrangement for air-to-air and ERV units.
func airLayout(e entryView, family melcloud.DeviceType, c Capabilities, mode Mode) Layout {
	t := airTables[mode]
	name := e.DeviceName
	if name == "" {
		name = family.String()
	}
	return Layout{
		Mode: mode,
		Slots: []Slot{{
			Index: 0,
			Role:  RolePrimary,
			Name:  name,
			Range: Range{
				OperationMin:    t.valid[0],
				OperationMax:    t.valid[len(t.valid)-1],
				ValidOperations: append([]int(nil), t.valid...),
				TemperatureMin:  c.MinSetTemperature,
				TemperatureMax:  c.MaxSetTemperature,
			},
		}},
	}
}

// airZones evaluates the primary zone of an air-to-air or ERV unit.
func airZones(family melcloud.DeviceType, st airStateView, layout Layout, w *warnings) []State {
	t := airTables[layout.Mode]
	slot := layout.Slots[0]
	z := State{
		Index:             slot.Index,
		Role:              slot.Role,
		Name:              slot.Name,
		Power:             st.Power,
		RoomTemperature:   st.RoomTemperature,
		TargetTemperature: st.SetTemperature,
		Locked:            st.ProhibitPower && st.ProhibitOperationMode && st.ProhibitSetTemperature,
		Range:             slot.Range,
	}
	if family == melcloud.TypeERV {
		z.FlowTemperature = st.SupplyTemperature
	}

	if st.Power {
		switch cur, ok := t.current[st.OperationMode]; {
		case ok:
			z.CurrentState = cur
		case st.OperationMode == AirModeAuto:
			switch {
			case st.RoomTemperature < st.SetTemperature:
				z.CurrentState = t.autoHeat
			case st.RoomTemperature > st.SetTemperature:
				z.CurrentState = t.autoCool
			default:
				z.CurrentState = t.autoIdle
			}
		default:
			w.addf("%s: unknown operation mode %d", slot.Name, st.OperationMode)
		}
	}

	if !st.Power && layout.Mode == ModeThermostat {
		z.TargetState = ThTargetOff
	} else if tgt, ok := t.target[st.OperationMode]; ok {
		z.TargetState = tgt
	} else {
		w.addf("%s: unknown operation mode %d", slot.Name, st.OperationMode)
	}

	return []State{z}
}
