package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

func atwEntry() map[string]any {
	return map[string]any{
		"DeviceID":   100,
		"DeviceName": "Ecodan",
		"BuildingID": 1,
		"Type":       1,
		"Device": map[string]any{
			"HasHotWaterTank":    true,
			"HasZone2":           true,
			"CanHeat":            true,
			"CanCool":            true,
			"MinSetTemperature":  10,
			"MaxSetTemperature":  30,
			"MaxTankTemperature": 60,
			"Units":              []any{map[string]any{"IsIndoor": true, "Model": "EHST20D"}},
		},
		"Presets": []any{
			map[string]any{
				"ID":                          7,
				"Power":                       true,
				"EcoHotWater":                 true,
				"OperationModeZone1":          1,
				"OperationModeZone2":          1,
				"SetTankWaterTemperature":     55,
				"SetTemperatureZone1":         22,
				"SetTemperatureZone2":         21,
				"ForcedHotWaterMode":          false,
				"SetHeatFlowTemperatureZone1": 45,
				"SetHeatFlowTemperatureZone2": 45,
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
		"SetHeatFlowTemperatureZone1": 40,
		"SetHeatFlowTemperatureZone2": 40,
		"SetCoolFlowTemperatureZone1": 20,
		"SetCoolFlowTemperatureZone2": 20,
		"EffectiveFlags":              0x1FF,
		"HasPendingCommand":           false,
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
			"MaxTempCoolDry":   30,
			"MinTempAutomatic": 17,
			"MaxTempAutomatic": 28,
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
		"DeviceID":              300,
		"Power":                 true,
		"OperationMode":         7,
		"VentilationMode":       1,
		"RoomTemperature":       21,
		"SupplyTemperature":     18,
		"OutdoorTemperature":    9,
		"SetTemperature":        21,
		"SetFanSpeed":           2,
		"NightPurgeMode":        false,
		"HideRoomTemperature":   false,
		"HideSupplyTemperature": true,
		"Offline":               false,
		"NumberOfFanSpeeds":     4,
		"LastCommunication":     "2026-10-14T12:00:00",
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

func stateOf(t *testing.T, snap melcloud.Snapshot) map[string]any {
	t.Helper()
	m, err := snap.StateMap()
	require.NoError(t, err)
	return m
}
