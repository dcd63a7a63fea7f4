package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

func layoutFor(t *testing.T, family melcloud.DeviceType, snap melcloud.Snapshot, mode zone.Mode) zone.Layout {
	t.Helper()
	res, err := zone.Translate(family, snap, zone.Options{Mode: mode}, nil)
	require.NoError(t, err)
	return res.Layout
}

func TestZoneTarget_AtwHeaterCooler(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())
	layout := layoutFor(t, melcloud.TypeAirToWater, snap, zone.ModeHeaterCooler)
	state := stateOf(t, snap)

	tests := []struct {
		name   string
		role   zone.Role
		target int
		want   []Change
	}{
		{"primary heat", zone.RolePrimary, zone.HCTargetHeat, []Change{{"Power", true}, {"UnitStatus", 0}}},
		{"primary cool", zone.RolePrimary, zone.HCTargetCool, []Change{{"Power", true}, {"UnitStatus", 1}}},
		{"zone1 auto", zone.RoleZone1, zone.HCTargetAuto, []Change{{"OperationModeZone1", 2}}},
		{"zone1 heat", zone.RoleZone1, zone.HCTargetHeat, []Change{{"OperationModeZone1", 0}}},
		{"zone1 cool", zone.RoleZone1, zone.HCTargetCool, []Change{{"OperationModeZone1", 1}}},
		{"zone2 heat", zone.RoleZone2, zone.HCTargetHeat, []Change{{"OperationModeZone2", 0}}},
		{"hot water heat", zone.RoleHotWater, zone.HCTargetHeat, []Change{{"ForcedHotWaterMode", true}}},
		{"hot water auto", zone.RoleHotWater, zone.HCTargetAuto, []Change{{"ForcedHotWaterMode", false}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ZoneTarget(layout, state, tt.role, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZoneTarget_AtwCoolingUnitStatus(t *testing.T) {
	st := atwState()
	st["UnitStatus"] = 1
	snap := snapshotOf(t, atwEntry(), st)
	layout := layoutFor(t, melcloud.TypeAirToWater, snap, zone.ModeHeaterCooler)

	got, err := ZoneTarget(layout, stateOf(t, snap), zone.RoleZone1, zone.HCTargetHeat)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"OperationModeZone1", 3}}, got)

	got, err = ZoneTarget(layout, stateOf(t, snap), zone.RoleZone1, zone.HCTargetCool)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"OperationModeZone1", 4}}, got)
}

func TestZoneTarget_AtwThermostat(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())
	layout := layoutFor(t, melcloud.TypeAirToWater, snap, zone.ModeThermostat)
	state := stateOf(t, snap)

	got, err := ZoneTarget(layout, state, zone.RolePrimary, zone.ThTargetOff)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", false}}, got)

	got, err = ZoneTarget(layout, state, zone.RolePrimary, zone.ThTargetHeat)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"UnitStatus", 0}}, got)

	got, err = ZoneTarget(layout, state, zone.RoleZone1, zone.ThTargetAuto)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"OperationModeZone1", 2}}, got)

	got, err = ZoneTarget(layout, state, zone.RoleHotWater, zone.ThTargetAuto)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"ForcedHotWaterMode", false}}, got)
}

func TestZoneTarget_Rejects(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())
	layout := layoutFor(t, melcloud.TypeAirToWater, snap, zone.ModeHeaterCooler)

	// Heater-cooler primary zone accepts HEAT and COOL only.
	_, err := ZoneTarget(layout, stateOf(t, snap), zone.RolePrimary, zone.HCTargetAuto)
	assert.ErrorIs(t, err, ErrInvalidValue)

	ata := snapshotOf(t, ataEntry(), ataState())
	ataLayout := layoutFor(t, melcloud.TypeAirToAir, ata, zone.ModeHeaterCooler)
	_, err = ZoneTarget(ataLayout, stateOf(t, ata), zone.RoleZone1, zone.HCTargetHeat)
	assert.ErrorIs(t, err, ErrUnknownZone)
}

func TestZoneTarget_Air(t *testing.T) {
	snap := snapshotOf(t, ataEntry(), ataState())

	hc := layoutFor(t, melcloud.TypeAirToAir, snap, zone.ModeHeaterCooler)
	got, err := ZoneTarget(hc, stateOf(t, snap), zone.RolePrimary, zone.HCTargetCool)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"OperationMode", zone.AirModeCool}}, got)

	th := layoutFor(t, melcloud.TypeAirToAir, snap, zone.ModeThermostat)
	got, err = ZoneTarget(th, stateOf(t, snap), zone.RolePrimary, zone.ThTargetOff)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", false}}, got)

	got, err = ZoneTarget(th, stateOf(t, snap), zone.RolePrimary, zone.ThTargetAuto)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"OperationMode", zone.AirModeAuto}}, got)
}

func TestZoneTemperature(t *testing.T) {
	tests := []struct {
		name    string
		family  melcloud.DeviceType
		role    zone.Role
		want    string
		wantErr error
	}{
		{"atw zone1", melcloud.TypeAirToWater, zone.RoleZone1, "SetTemperatureZone1", nil},
		{"atw zone2", melcloud.TypeAirToWater, zone.RoleZone2, "SetTemperatureZone2", nil},
		{"atw tank", melcloud.TypeAirToWater, zone.RoleHotWater, "SetTankWaterTemperature", nil},
		{"atw primary read-only", melcloud.TypeAirToWater, zone.RolePrimary, "", ErrReadOnly},
		{"ata primary", melcloud.TypeAirToAir, zone.RolePrimary, "SetTemperature", nil},
		{"erv primary", melcloud.TypeERV, zone.RolePrimary, "SetTemperature", nil},
		{"ata zone1", melcloud.TypeAirToAir, zone.RoleZone1, "", ErrUnknownZone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ZoneTemperature(tt.family, tt.role, 21)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []Change{{tt.want, 21.0}}, got)
		})
	}
}

func TestZoneLock(t *testing.T) {
	full := zone.Capabilities{HasHotWaterTank: true, HasZone2: true}

	got, err := ZoneLock(melcloud.TypeAirToWater, full, zone.RolePrimary, true)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"ProhibitZone1", true}, {"ProhibitHotWater", true}, {"ProhibitZone2", true}}, got)

	got, err = ZoneLock(melcloud.TypeAirToWater, zone.Capabilities{}, zone.RolePrimary, false)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"ProhibitZone1", false}}, got)

	got, err = ZoneLock(melcloud.TypeAirToWater, full, zone.RoleHotWater, true)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"ProhibitHotWater", true}}, got)

	_, err = ZoneLock(melcloud.TypeAirToAir, full, zone.RolePrimary, true)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestPresetChanges(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())

	changes, err := PresetChanges(melcloud.TypeAirToWater, snap.Entry, 7)
	require.NoError(t, err)
	assert.Len(t, changes, 12)

	_, flags, err := ApplyFields(melcloud.TypeAirToWater, snap, changes...)
	require.NoError(t, err)
	want := FlagAtwPower | FlagAtwEcoHotWater | FlagAtwOperationModeZone1 | FlagAtwOperationModeZone2 |
		FlagAtwSetTankTemperature | FlagAtwSetTemperatureZone1 | FlagAtwSetTemperatureZone2 |
		FlagAtwForcedHotWater | FlagAtwFlowTemperature
	assert.Equal(t, want, flags)

	_, err = PresetChanges(melcloud.TypeAirToWater, snap.Entry, 99)
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestPresetChanges_ReadBackApplied(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())
	opts := zone.Options{Presets: []zone.PresetSpec{{ID: 7, Name: "Comfort", DisplayType: zone.DisplaySwitch}}}

	before, err := zone.Translate(melcloud.TypeAirToWater, snap, opts, nil)
	require.NoError(t, err)
	require.Len(t, before.Presets, 1)
	assert.False(t, before.Presets[0].Applied)

	changes, err := PresetChanges(melcloud.TypeAirToWater, snap.Entry, 7)
	require.NoError(t, err)
	patched, _, err := ApplyFields(melcloud.TypeAirToWater, snap, changes...)
	require.NoError(t, err)

	after, err := zone.Translate(melcloud.TypeAirToWater, patched, opts, nil)
	require.NoError(t, err)
	assert.True(t, after.Presets[0].Applied)
}

func TestButtonChanges_ReadBack(t *testing.T) {
	tests := []struct {
		name   string
		family melcloud.DeviceType
		entry  map[string]any
		state  map[string]any
		mode   int
	}{
		{"atw holiday", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonHoliday},
		{"atw all locked", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonAllZonesLocked},
		{"atw eco", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonEcoHotWater},
		{"atw forced", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonForcedHotWater},
		{"atw zone1 mode 3", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonZone1ModeBase + 3},
		{"atw zone2 locked", melcloud.TypeAirToWater, atwEntry(), atwState(), zone.ButtonZone2Locked},
		{"ata dry", melcloud.TypeAirToAir, ataEntry(), ataState(), zone.ButtonAirDry},
		{"ata fan speed 5", melcloud.TypeAirToAir, ataEntry(), ataState(), zone.ButtonAirFanSpeedBase + 5},
		{"ata vane swing", melcloud.TypeAirToAir, ataEntry(), ataState(), zone.ButtonAirVaneVSwing},
		{"erv bypass", melcloud.TypeERV, ervEntry(), ervState(), zone.ButtonErvBypass},
		{"erv auto vent", melcloud.TypeERV, ervEntry(), ervState(), zone.ButtonErvAutoVent},
		{"erv night purge", melcloud.TypeERV, ervEntry(), ervState(), zone.ButtonErvNightPurge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotOf(t, tt.entry, tt.state)
			opts := zone.Options{Buttons: []zone.ButtonSpec{{Name: "b", Mode: tt.mode, DisplayType: zone.DisplaySwitch}}}

			changes, err := ButtonChanges(tt.family, tt.mode, true)
			require.NoError(t, err)
			patched, _, err := ApplyFields(tt.family, snap, changes...)
			require.NoError(t, err)

			res, err := zone.Translate(tt.family, patched, opts, nil)
			require.NoError(t, err)
			require.Len(t, res.Buttons, 1)
			assert.True(t, res.Buttons[0].Applied)
		})
	}
}

func TestButtonChanges_UnitStatus(t *testing.T) {
	got, err := ButtonChanges(melcloud.TypeAirToWater, zone.ButtonHeat, true)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"UnitStatus", 0}}, got)

	got, err = ButtonChanges(melcloud.TypeAirToWater, zone.ButtonCool, true)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"UnitStatus", 1}}, got)
}

func TestButtonChanges_Off(t *testing.T) {
	got, err := ButtonChanges(melcloud.TypeAirToWater, zone.ButtonPower, false)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", false}}, got)

	got, err = ButtonChanges(melcloud.TypeAirToWater, zone.ButtonHotWaterAuto, false)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"ForcedHotWaterMode", true}}, got)

	got, err = ButtonChanges(melcloud.TypeAirToAir, zone.ButtonAirVaneHSwing, false)
	require.NoError(t, err)
	assert.Equal(t, []Change{{"Power", true}, {"VaneHorizontal", 0}}, got)
}

func TestButtonChanges_Unknown(t *testing.T) {
	_, err := ButtonChanges(melcloud.TypeAirToWater, 99, true)
	assert.ErrorIs(t, err, ErrUnknownButton)

	_, err = ButtonChanges(melcloud.TypeERV, zone.ButtonErvFanSpeedBase+5, true)
	assert.ErrorIs(t, err, ErrUnknownButton)

	_, err = ButtonChanges(melcloud.DeviceType(9), 0, true)
	assert.ErrorIs(t, err, melcloud.ErrUnsupportedType)
}
