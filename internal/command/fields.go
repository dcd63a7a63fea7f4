package command

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Air-to-water EffectiveFlags bits.
const (
	FlagAtwPower               uint64 = 0x1
	FlagAtwOperationMode       uint64 = 0x2
	FlagAtwEcoHotWater         uint64 = 0x4
	FlagAtwOperationModeZone1  uint64 = 0x8
	FlagAtwOperationModeZone2  uint64 = 0x10
	FlagAtwSetTankTemperature  uint64 = 0x20
	FlagAtwSetTemperatureZone1 uint64 = 0x80
	FlagAtwSetTemperatureZone2 uint64 = 0x200
	FlagAtwForcedHotWater      uint64 = 0x10000
	FlagAtwHoliday             uint64 = 0x40000
	FlagAtwProhibitHotWater    uint64 = 0x80000
	FlagAtwProhibitZone1       uint64 = 0x300000
	FlagAtwProhibitZone2       uint64 = 0xC00000
	FlagAtwFlowTemperature     uint64 = 0x1000000000000
)

// Air-to-air EffectiveFlags bits.
const (
	FlagAtaPower          uint64 = 0x1
	FlagAtaOperationMode  uint64 = 0x2
	FlagAtaSetTemperature uint64 = 0x4
	FlagAtaSetFanSpeed    uint64 = 0x8
	FlagAtaVaneVertical   uint64 = 0x10
	FlagAtaVaneHorizontal uint64 = 0x100
)

// ERV EffectiveFlags bits. Mode, ventilation, setpoint and night purge
// share one bit.
const (
	FlagErvPower       uint64 = 0x1
	FlagErvMode        uint64 = 0x4
	FlagErvSetFanSpeed uint64 = 0x8
)

// Flow temperature clamps.
const (
	heatFlowMin = 25
	heatFlowMax = 60
	coolFlowMin = 5
	coolFlowMax = 25
)

type valueType int

const (
	typeBool valueType = iota
	typeInt
	typeFloat
)

type clampKind int

const (
	clampNone clampKind = iota
	clampZoneSetpoint
	clampTank
	clampHeatFlow
	clampCoolFlow
	clampAirSetpoint
	clampErvSetpoint
)

type field struct {
	flag  uint64
	typ   valueType
	clamp clampKind
}

var atwFields = map[string]field{
	"Power":                       {FlagAtwPower, typeBool, clampNone},
	"OperationMode":               {FlagAtwOperationMode, typeInt, clampNone},
	"UnitStatus":                  {FlagAtwOperationMode, typeInt, clampNone},
	"EcoHotWater":                 {FlagAtwEcoHotWater, typeBool, clampNone},
	"OperationModeZone1":          {FlagAtwOperationModeZone1, typeInt, clampNone},
	"OperationModeZone2":          {FlagAtwOperationModeZone2, typeInt, clampNone},
	"SetTankWaterTemperature":     {FlagAtwSetTankTemperature, typeFloat, clampTank},
	"SetTemperatureZone1":         {FlagAtwSetTemperatureZone1, typeFloat, clampZoneSetpoint},
	"SetTemperatureZone2":         {FlagAtwSetTemperatureZone2, typeFloat, clampZoneSetpoint},
	"ForcedHotWaterMode":          {FlagAtwForcedHotWater, typeBool, clampNone},
	"HolidayMode":                 {FlagAtwHoliday, typeBool, clampNone},
	"ProhibitHotWater":            {FlagAtwProhibitHotWater, typeBool, clampNone},
	"ProhibitZone1":               {FlagAtwProhibitZone1, typeBool, clampNone},
	"ProhibitZone2":               {FlagAtwProhibitZone2, typeBool, clampNone},
	"SetHeatFlowTemperatureZone1": {FlagAtwFlowTemperature, typeFloat, clampHeatFlow},
	"SetHeatFlowTemperatureZone2": {FlagAtwFlowTemperature, typeFloat, clampHeatFlow},
	"SetCoolFlowTemperatureZone1": {FlagAtwFlowTemperature, typeFloat, clampCoolFlow},
	"SetCoolFlowTemperatureZone2": {FlagAtwFlowTemperature, typeFloat, clampCoolFlow},
}

var ataFields = map[string]field{
	"Power":          {FlagAtaPower, typeBool, clampNone},
	"OperationMode":  {FlagAtaOperationMode, typeInt, clampNone},
	"SetTemperature": {FlagAtaSetTemperature, typeFloat, clampAirSetpoint},
	"SetFanSpeed":    {FlagAtaSetFanSpeed, typeInt, clampNone},
	"VaneVertical":   {FlagAtaVaneVertical, typeInt, clampNone},
	"VaneHorizontal": {FlagAtaVaneHorizontal, typeInt, clampNone},
}

var ervFields = map[string]field{
	"Power":           {FlagErvPower, typeBool, clampNone},
	"OperationMode":   {FlagErvMode, typeInt, clampNone},
	"VentilationMode": {FlagErvMode, typeInt, clampNone},
	"SetTemperature":  {FlagErvMode, typeFloat, clampErvSetpoint},
	"NightPurgeMode":  {FlagErvMode, typeBool, clampNone},
	"SetFanSpeed":     {FlagErvSetFanSpeed, typeInt, clampNone},
}

func fieldsFor(family melcloud.DeviceType) (map[string]field, error) {
	switch family {
	case melcloud.TypeAirToWater:
		return atwFields, nil
	case melcloud.TypeAirToAir:
		return ataFields, nil
	case melcloud.TypeERV:
		return ervFields, nil
	default:
		return nil, fmt.Errorf("%w: %d", melcloud.ErrUnsupportedType, int(family))
	}
}

// Flag returns the EffectiveFlags bits of a field.
func Flag(family melcloud.DeviceType, name string) (uint64, bool) {
	table, err := fieldsFor(family)
	if err != nil {
		return 0, false
	}
	f, ok := table[name]
	return f.flag, ok
}

// Fields returns the writable field names of a family.
func Fields(family melcloud.DeviceType) []string {
	table, _ := fieldsFor(family) //nolint:errcheck // unknown family yields an empty list
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// bounds returns the clamp range of a field for the current device.
func (f field) bounds(caps zone.Capabilities, entry json.RawMessage, state map[string]any) (float64, float64, bool) {
	switch f.clamp {
	case clampZoneSetpoint:
		return caps.MinSetTemperature, caps.MaxSetTemperature, true
	case clampTank:
		return 0, caps.MaxTankTemperature, true
	case clampHeatFlow:
		return heatFlowMin, heatFlowMax, true
	case clampCoolFlow:
		return coolFlowMin, coolFlowMax, true
	case clampAirSetpoint:
		mode, _ := toInt(state["OperationMode"]) //nolint:errcheck // absent mode uses the widest range
		lo, hi := zone.AirModeRange(entry, mode)
		return lo, hi, true
	case clampErvSetpoint:
		return caps.MinSetTemperature, caps.MaxSetTemperature, true
	default:
		return 0, 0, false
	}
}

func (f field) coerce(v any) (any, error) {
	switch f.typ {
	case typeBool:
		return toBool(v)
	case typeInt:
		return toInt(v)
	default:
		return toFloat(v)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
	}
}

func toInt(v any) (int, error) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
	}
	return int(f), nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "on":
			return true, nil
		case "false", "0", "off":
			return false, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, b)
	default:
		f, err := toFloat(v)
		if err != nil {
			return false, fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, v)
		}
		return f != 0, nil
	}
}
