package zone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

func atwEntry() map[string]any {
	return map[string]any{
		"DeviceID":     100,
		"DeviceName":   "Ecodan",
		"BuildingID":   1,
		"Type":         1,
		"SerialNumber": "SN-100",
		"Device": map[string]any{
			"HasHotWaterTank":         true,
			"HasZone2":                false,
			"CanHeat":                 true,
			"CanCool":                 true,
			"MaxTankTemperature":      60,
			"FlowTemperature":         41.5,
			"ReturnTemperature":       36,
			"FlowTemperatureZone1":    35,
			"ReturnTemperatureZone1":  30,
			"FlowTemperatureZone2":    33,
			"ReturnTemperatureZone2":  29,
			"FlowTemperatureBoiler":   55,
			"ReturnTemperatureBoiler": 50,
			"FirmwareAppVersion":      33000,
			"Units": []any{
				map[string]any{"IsIndoor": true, "Model": "EHST20D"},
				map[string]any{"IsIndoor": false, "Model": "PUZ-WM85"},
			},
		},
		"Presets": []any{
			map[string]any{
				"ID":                          7,
				"Power":                       true,
				"EcoHotWater":                 false,
				"OperationModeZone1":          0,
				"OperationModeZone2":          0,
				"SetTankWaterTemperature":     50,
				"SetTemperatureZone1":         21,
				"SetTemperatureZone2":         20,
				"ForcedHotWaterMode":          false,
				"SetHeatFlowTemperatureZone1": 40,
				"SetHeatFlowTemperatureZone2": 40,
				"SetCoolFlowTemperatureZone1": 20,
				"SetCoolFlowTemperatureZone2": 20,
			},
		},
	}
}

func atwState() map[string]any {
	return map[string]any{
		"DeviceID":                    100,
		"Power":                       true,
		"OperationMode":               2,
		"OperationModeZone1":          0,
		"OperationModeZone2":          0,
		"UnitStatus":                  0,
		"SetTemperatureZone1":         21,
		"SetTemperatureZone2":         20,
		"RoomTemperatureZone1":        20.5,
		"RoomTemperatureZone2":        19,
		"TankWaterTemperature":        48,
		"SetTankWaterTemperature":     50,
		"OutdoorTemperature":          7,
		"EcoHotWater":                 false,
		"ForcedHotWaterMode":          false,
		"HolidayMode":                 false,
		"ProhibitZone1":               false,
		"ProhibitZone2":               false,
		"ProhibitHotWater":            false,
		"IdleZone1":                   false,
		"IdleZone2":                   false,
		"SetHeatFlowTemperatureZone1": 40,
		"SetHeatFlowTemperatureZone2": 40,
		"SetCoolFlowTemperatureZone1": 20,
		"SetCoolFlowTemperatureZone2": 20,
		"EffectiveFlags":              0,
	}
}

func ataEntry() map[string]any {
	return map[string]any{
		"DeviceID":   200,
		"DeviceName": "Lounge",
		"BuildingID": 1,
		"Type":       0,
		"Device": map[string]any{
			"MinTempHeat":      10,
			"MaxTempHeat":      31,
			"MinTempCoolDry":   16,
			"MaxTempCoolDry":   31,
			"MinTempAutomatic": 16,
			"MaxTempAutomatic": 31,
			"Units":            []any{map[string]any{"IsIndoor": true, "Model": "MSZ-LN"}},
		},
	}
}

func ataState() map[string]any {
	return map[string]any{
		"DeviceID":        200,
		"Power":           true,
		"OperationMode":   1,
		"RoomTemperature": 20,
		"SetTemperature":  22,
		"SetFanSpeed":     3,
		"VaneHorizontal":  0,
		"VaneVertical":    0,
	}
}

func ervEntry() map[string]any {
	return map[string]any{
		"DeviceID":   300,
		"DeviceName": "Lossnay",
		"BuildingID": 1,
		"Type":       3,
		"Device": map[string]any{
			"MinTempHeat": 12,
			"MaxTempHeat": 28,
		},
	}
}

func ervState() map[string]any {
	return map[string]any{
		"DeviceID":          300,
		"Power":             true,
		"OperationMode":     7,
		"VentilationMode":   1,
		"RoomTemperature":   21,
		"SupplyTemperature": 18,
		"SetTemperature":    21,
		"SetFanSpeed":       2,
		"NightPurgeMode":    false,
	}
}

func snapshotOf(t *testing.T, entry, state map[string]any) melcloud.Snapshot {
	t.Helper()
	e, err := json.Marshal(entry)
	require.NoError(t, err)
	s, err := json.Marshal(state)
	require.NoError(t, err)
	return melcloud.Snapshot{Entry: e, State: s}
}

func deviceOf(entry map[string]any) map[string]any {
	return entry["Device"].(map[string]any)
}
