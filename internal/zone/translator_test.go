package zone

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

func roles(r Result) []Role {
	out := make([]Role, len(r.Zones))
	for i, z := range r.Zones {
		out[i] = z.Role
	}
	return out
}

func translateATW(t *testing.T, mode Mode, entry, state map[string]any) Result {
	t.Helper()
	res, err := Translate(melcloud.TypeAirToWater, snapshotOf(t, entry, state), Options{Mode: mode}, nil)
	require.NoError(t, err)
	return res
}

func TestTranslate_Layouts(t *testing.T) {
	tests := []struct {
		name  string
		tank  bool
		zone2 bool
		roles []Role
		names []string
	}{
		{"zone 1 only", false, false, []Role{RolePrimary, RoleZone1}, []string{"Heat Pump", "Zone 1"}},
		{"tank without zone 2", true, false, []Role{RolePrimary, RoleZone1, RoleHotWater}, []string{"Heat Pump", "Zone 1", "Hot Water"}},
		{"zone 2 without tank", false, true, []Role{RolePrimary, RoleZone1, RoleZone2}, []string{"Heat Pump", "Zone 1", "Zone 2"}},
		{"full", true, true, []Role{RolePrimary, RoleZone1, RoleHotWater, RoleZone2}, []string{"Heat Pump", "Zone 1", "Hot Water", "Zone 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := atwEntry()
			deviceOf(entry)["HasHotWaterTank"] = tt.tank
			deviceOf(entry)["HasZone2"] = tt.zone2

			res := translateATW(t, ModeHeaterCooler, entry, atwState())

			require.Len(t, res.Zones, len(tt.roles))
			assert.Equal(t, tt.roles, roles(res))
			for i, z := range res.Zones {
				assert.Equal(t, i, z.Index)
				assert.Equal(t, tt.names[i], z.Name)
			}
		})
	}
}

func TestTranslate_ZoneNamesFromEntry(t *testing.T) {
	entry := atwEntry()
	deviceOf(entry)["HasZone2"] = true
	entry["Zone1Name"] = "Ground floor"
	entry["Zone2Name"] = "First floor"

	res := translateATW(t, ModeHeaterCooler, entry, atwState())

	z1, _ := res.Zone(RoleZone1)
	z2, _ := res.Zone(RoleZone2)
	assert.Equal(t, "Ground floor", z1.Name)
	assert.Equal(t, "First floor", z2.Name)
}

func TestTranslate_Idempotent(t *testing.T) {
	snap := snapshotOf(t, atwEntry(), atwState())
	entryCopy := append([]byte(nil), snap.Entry...)
	stateCopy := append([]byte(nil), snap.State...)
	opts := Options{Mode: ModeThermostat, Presets: []PresetSpec{{ID: 7, Name: "Comfort", DisplayType: DisplaySwitch}}}

	first, err := Translate(melcloud.TypeAirToWater, snap, opts, nil)
	require.NoError(t, err)
	second, err := Translate(melcloud.TypeAirToWater, snap, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, bytes.Equal(entryCopy, snap.Entry), "entry mutated")
	assert.True(t, bytes.Equal(stateCopy, snap.State), "state mutated")
}

func TestTranslate_HeaterCoolerStates(t *testing.T) {
	res := translateATW(t, ModeHeaterCooler, atwEntry(), atwState())

	primary, _ := res.Zone(RolePrimary)
	assert.Equal(t, HCHeating, primary.CurrentState)
	assert.Equal(t, HCTargetHeat, primary.TargetState)
	assert.Equal(t, 7.0, primary.RoomTemperature)
	assert.Equal(t, 7.0, primary.TargetTemperature)

	z1, _ := res.Zone(RoleZone1)
	assert.Equal(t, HCHeating, z1.CurrentState)
	assert.Equal(t, HCTargetHeat, z1.TargetState)
	assert.Equal(t, 20.5, z1.RoomTemperature)
	assert.Equal(t, 21.0, z1.TargetTemperature)

	hw, _ := res.Zone(RoleHotWater)
	assert.Equal(t, HCIdle, hw.CurrentState)
	assert.Equal(t, HCTargetAuto, hw.TargetState)
	assert.Equal(t, 48.0, hw.RoomTemperature)
	assert.Equal(t, 50.0, hw.TargetTemperature)
}

func TestTranslate_PrimaryCurrentTable(t *testing.T) {
	hc := []int{1, 2, 2, 3, 2, 1, 1, 2, 1, 1, 1, 2}
	th := []int{0, 1, 1, 2, 1, 0, 0, 1, 0, 0, 0, 1}

	for code := range hc {
		state := atwState()
		state["OperationMode"] = code

		p, _ := translateATW(t, ModeHeaterCooler, atwEntry(), state).Zone(RolePrimary)
		assert.Equal(t, hc[code], p.CurrentState, "heater_cooler OperationMode %d", code)

		p, _ = translateATW(t, ModeThermostat, atwEntry(), state).Zone(RolePrimary)
		assert.Equal(t, th[code], p.CurrentState, "thermostat OperationMode %d", code)
	}
}

func TestTranslate_ZoneTables(t *testing.T) {
	hcCurrent := []int{2, 2, 2, 3, 3, 2}
	hcTarget := []int{1, 2, 0, 1, 2, 1}
	thCurrent := []int{1, 1, 1, 2, 2, 1}
	thTarget := []int{1, 2, 3, 1, 2, 1}

	entry := atwEntry()
	deviceOf(entry)["HasZone2"] = true

	for code := range hcCurrent {
		state := atwState()
		state["OperationModeZone1"] = code
		state["OperationModeZone2"] = code

		hc := translateATW(t, ModeHeaterCooler, entry, state)
		th := translateATW(t, ModeThermostat, entry, state)
		for _, role := range []Role{RoleZone1, RoleZone2} {
			z, _ := hc.Zone(role)
			assert.Equal(t, hcCurrent[code], z.CurrentState, "heater_cooler %s mode %d", role, code)
			assert.Equal(t, hcTarget[code], z.TargetState, "heater_cooler %s mode %d", role, code)

			z, _ = th.Zone(role)
			assert.Equal(t, thCurrent[code], z.CurrentState, "thermostat %s mode %d", role, code)
			assert.Equal(t, thTarget[code], z.TargetState, "thermostat %s mode %d", role, code)
		}
	}
}

func TestTranslate_ZoneIdle(t *testing.T) {
	state := atwState()
	state["IdleZone1"] = true
	state["OperationModeZone1"] = 3

	z, _ := translateATW(t, ModeHeaterCooler, atwEntry(), state).Zone(RoleZone1)
	assert.Equal(t, HCIdle, z.CurrentState)

	z, _ = translateATW(t, ModeThermostat, atwEntry(), state).Zone(RoleZone1)
	assert.Equal(t, ThOff, z.CurrentState)
	assert.Equal(t, ThTargetHeat, z.TargetState)
}

func TestTranslate_HotWater(t *testing.T) {
	tests := []struct {
		name          string
		operationMode int
		forced        bool
		hcCurrent     int
		hcTarget      int
		thCurrent     int
		thTarget      int
	}{
		{"unit heating tank", 1, false, HCHeating, HCTargetAuto, ThHeat, ThTargetAuto},
		{"normal", 2, false, HCIdle, HCTargetAuto, ThOff, ThTargetAuto},
		{"forced", 2, true, HCHeating, HCTargetHeat, ThHeat, ThTargetHeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := atwState()
			state["OperationMode"] = tt.operationMode
			state["ForcedHotWaterMode"] = tt.forced

			hw, _ := translateATW(t, ModeHeaterCooler, atwEntry(), state).Zone(RoleHotWater)
			assert.Equal(t, tt.hcCurrent, hw.CurrentState)
			assert.Equal(t, tt.hcTarget, hw.TargetState)

			hw, _ = translateATW(t, ModeThermostat, atwEntry(), state).Zone(RoleHotWater)
			assert.Equal(t, tt.thCurrent, hw.CurrentState)
			assert.Equal(t, tt.thTarget, hw.TargetState)
		})
	}
}

func TestTranslate_PowerOffOverridesEveryMode(t *testing.T) {
	entry := atwEntry()
	deviceOf(entry)["HasZone2"] = true

	for _, mode := range []Mode{ModeHeaterCooler, ModeThermostat} {
		for op := 0; op < 12; op++ {
			for zm := 0; zm < 6; zm++ {
				state := atwState()
				state["Power"] = false
				state["OperationMode"] = op
				state["OperationModeZone1"] = zm
				state["OperationModeZone2"] = zm
				state["IdleZone1"] = zm%2 == 0
				state["ForcedHotWaterMode"] = zm%2 == 1

				res := translateATW(t, mode, entry, state)
				for _, z := range res.Zones {
					assert.Equal(t, 0, z.CurrentState, "%s op=%d zone=%d %s", mode, op, zm, z.Role)
					assert.False(t, z.Power)
				}
			}
		}
	}
}

func TestTranslate_PrimaryTargetWhenPowerOff(t *testing.T) {
	state := atwState()
	state["Power"] = false
	state["UnitStatus"] = 1

	p, _ := translateATW(t, ModeThermostat, atwEntry(), state).Zone(RolePrimary)
	assert.Equal(t, ThTargetOff, p.TargetState)

	p, _ = translateATW(t, ModeHeaterCooler, atwEntry(), state).Zone(RolePrimary)
	assert.Equal(t, HCTargetCool, p.TargetState)
}

func TestTranslate_UnknownCodesWarn(t *testing.T) {
	state := atwState()
	state["OperationMode"] = 99
	state["OperationModeZone1"] = 17
	state["UnitStatus"] = 5

	var res Result
	require.NotPanics(t, func() {
		res = translateATW(t, ModeHeaterCooler, atwEntry(), state)
	})

	p, _ := res.Zone(RolePrimary)
	assert.Equal(t, 0, p.CurrentState)
	assert.Equal(t, 0, p.TargetState)
	z1, _ := res.Zone(RoleZone1)
	assert.Equal(t, 0, z1.CurrentState)
	assert.Equal(t, 0, z1.TargetState)

	assert.Contains(t, res.Warnings, "Heat Pump: unknown operation mode 99")
	assert.Contains(t, res.Warnings, "Heat Pump: unknown unit status 5")
	assert.Contains(t, res.Warnings, "Zone 1: unknown operation mode 17")
}

func TestTranslate_MissingDeviceID(t *testing.T) {
	tests := []struct {
		name   string
		family melcloud.DeviceType
		entry  map[string]any
		state  map[string]any
	}{
		{"air to water", melcloud.TypeAirToWater, atwEntry(), atwState()},
		{"air to air", melcloud.TypeAirToAir, ataEntry(), ataState()},
		{"erv", melcloud.TypeERV, ervEntry(), ervState()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delete(tt.state, "DeviceID")
			_, err := Translate(tt.family, snapshotOf(t, tt.entry, tt.state), Options{}, nil)
			assert.ErrorIs(t, err, ErrMissingDeviceID)
		})
	}
}

func TestTranslate_UnsupportedFamily(t *testing.T) {
	_, err := Translate(melcloud.DeviceType(9), snapshotOf(t, atwEntry(), atwState()), Options{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
}

func TestTranslate_Locks(t *testing.T) {
	tests := []struct {
		name          string
		tank, zone2   bool
		pz1, phw, pz2 bool
		primaryLocked bool
	}{
		{"no tank no zone 2", false, false, true, true, true, false},
		{"tank, both prohibited", true, false, true, true, false, true},
		{"tank, hot water free", true, false, true, false, true, false},
		{"zone 2, both prohibited", false, true, true, false, true, true},
		{"full, all prohibited", true, true, true, true, true, true},
		{"full, zone 2 free", true, true, true, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := atwEntry()
			deviceOf(entry)["HasHotWaterTank"] = tt.tank
			deviceOf(entry)["HasZone2"] = tt.zone2
			state := atwState()
			state["ProhibitZone1"] = tt.pz1
			state["ProhibitHotWater"] = tt.phw
			state["ProhibitZone2"] = tt.pz2

			for _, mode := range []Mode{ModeHeaterCooler, ModeThermostat} {
				res := translateATW(t, mode, entry, state)
				p, _ := res.Zone(RolePrimary)
				assert.Equal(t, tt.primaryLocked, p.Locked, "%s primary", mode)
				z1, _ := res.Zone(RoleZone1)
				assert.Equal(t, tt.pz1, z1.Locked, "%s zone 1", mode)
				if hw, ok := res.Zone(RoleHotWater); ok {
					assert.Equal(t, tt.phw, hw.Locked, "%s hot water", mode)
				}
				if z2, ok := res.Zone(RoleZone2); ok {
					assert.Equal(t, tt.pz2, z2.Locked, "%s zone 2", mode)
				}
			}
		})
	}
}

func TestTranslate_FlowAndReturnPerZone(t *testing.T) {
	entry := atwEntry()
	deviceOf(entry)["HasZone2"] = true

	for _, mode := range []Mode{ModeHeaterCooler, ModeThermostat} {
		res := translateATW(t, mode, entry, atwState())

		want := map[Role][2]float64{
			RolePrimary:  {41.5, 36},
			RoleZone1:    {35, 30},
			RoleHotWater: {55, 50},
			RoleZone2:    {33, 29},
		}
		for role, temps := range want {
			z, ok := res.Zone(role)
			require.True(t, ok, "%s %s", mode, role)
			require.NotNil(t, z.FlowTemperature)
			require.NotNil(t, z.ReturnTemperature)
			assert.Equal(t, temps[0], *z.FlowTemperature, "%s %s flow", mode, role)
			assert.Equal(t, temps[1], *z.ReturnTemperature, "%s %s return", mode, role)
		}
	}
}

func TestTranslate_MissingFlowIsNil(t *testing.T) {
	entry := atwEntry()
	delete(deviceOf(entry), "FlowTemperatureBoiler")

	hw, _ := translateATW(t, ModeHeaterCooler, entry, atwState()).Zone(RoleHotWater)
	assert.Nil(t, hw.FlowTemperature)
}

func TestTranslate_RangesByClass(t *testing.T) {
	tests := []struct {
		name             string
		canHeat, canCool bool
		hcPrimary        Range
		hcZone           Range
		thPrimary        Range
		thZone           Range
	}{
		{
			"both", true, true,
			Range{1, 2, []int{1, 2}, -35, 100},
			Range{0, 2, []int{0, 1, 2}, 0, 31},
			Range{0, 2, []int{0, 1, 2}, -35, 100},
			Range{1, 3, []int{1, 2, 3}, 0, 31},
		},
		{
			"heat only", true, false,
			Range{1, 1, []int{1}, -35, 100},
			Range{0, 2, []int{0, 1, 2}, 0, 31},
			Range{0, 1, []int{0, 1}, -35, 100},
			Range{1, 3, []int{1, 2, 3}, 0, 31},
		},
		{
			"cool only", false, true,
			Range{2, 2, []int{2}, -35, 100},
			Range{1, 2, []int{1, 2}, 0, 31},
			Range{0, 2, []int{0, 2}, -35, 100},
			Range{1, 2, []int{1, 2}, 0, 31},
		},
		{
			"neither", false, false,
			Range{0, 0, []int{0}, -35, 100},
			Range{0, 0, []int{0}, 0, 31},
			Range{0, 0, []int{0}, -35, 100},
			Range{0, 0, []int{0}, 0, 31},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := atwEntry()
			deviceOf(entry)["CanHeat"] = tt.canHeat
			deviceOf(entry)["CanCool"] = tt.canCool

			hc := translateATW(t, ModeHeaterCooler, entry, atwState())
			p, _ := hc.Zone(RolePrimary)
			z1, _ := hc.Zone(RoleZone1)
			assert.Equal(t, tt.hcPrimary, p.Range)
			assert.Equal(t, tt.hcZone, z1.Range)

			th := translateATW(t, ModeThermostat, entry, atwState())
			p, _ = th.Zone(RolePrimary)
			z1, _ = th.Zone(RoleZone1)
			assert.Equal(t, tt.thPrimary, p.Range)
			assert.Equal(t, tt.thZone, z1.Range)
		})
	}
}

func TestTranslate_HotWaterRange(t *testing.T) {
	entry := atwEntry()
	deviceOf(entry)["MaxTankTemperature"] = 65

	hw, _ := translateATW(t, ModeHeaterCooler, entry, atwState()).Zone(RoleHotWater)
	assert.Equal(t, Range{0, 1, []int{0, 1}, 0, 65}, hw.Range)

	hw, _ = translateATW(t, ModeThermostat, entry, atwState()).Zone(RoleHotWater)
	assert.Equal(t, Range{1, 3, []int{1, 3}, 0, 60}, hw.Range)

	delete(deviceOf(entry), "MaxTankTemperature")
	hw, _ = translateATW(t, ModeHeaterCooler, entry, atwState()).Zone(RoleHotWater)
	assert.Equal(t, 70.0, hw.Range.TemperatureMax)
}

func TestTranslate_CapabilityDefaults(t *testing.T) {
	entry := atwEntry()
	entry["Device"] = map[string]any{}

	res := translateATW(t, ModeHeaterCooler, entry, atwState())

	assert.Equal(t, Capabilities{
		Class:                ClassNeither,
		TemperatureIncrement: 1,
		MinSetTemperature:    10,
		MaxSetTemperature:    30,
		MaxTankTemperature:   70,
	}, res.Capabilities)
	assert.Len(t, res.Zones, 2)
}

func TestTranslator_LayoutFixedAtFirstSnapshot(t *testing.T) {
	tr := NewTranslator()

	res, err := tr.Translate(100, melcloud.TypeAirToWater, snapshotOf(t, atwEntry(), atwState()), Options{})
	require.NoError(t, err)
	require.Len(t, res.Zones, 3)

	entry := atwEntry()
	deviceOf(entry)["HasZone2"] = true
	deviceOf(entry)["MaxTankTemperature"] = 45
	res, err = tr.Translate(100, melcloud.TypeAirToWater, snapshotOf(t, entry, atwState()), Options{})
	require.NoError(t, err)

	assert.Len(t, res.Zones, 3)
	hw, _ := res.Zone(RoleHotWater)
	assert.Equal(t, 60.0, hw.Range.TemperatureMax)
	assert.True(t, res.Capabilities.HasZone2, "capabilities reflect the current entry")

	layout, ok := tr.Layout(100)
	require.True(t, ok)
	assert.Len(t, layout.Slots, 3)
	assert.Equal(t, melcloud.TypeAirToWater, layout.Family)
}

func TestTranslator_ErrorsDoNotFixLayout(t *testing.T) {
	tr := NewTranslator()
	state := atwState()
	delete(state, "DeviceID")

	_, err := tr.Translate(100, melcloud.TypeAirToWater, snapshotOf(t, atwEntry(), state), Options{})
	require.ErrorIs(t, err, ErrMissingDeviceID)

	_, ok := tr.Layout(100)
	assert.False(t, ok)
}

func TestTranslate_ResultHeader(t *testing.T) {
	state := atwState()
	state["Offline"] = true

	res := translateATW(t, ModeThermostat, atwEntry(), state)

	assert.Equal(t, 100, res.DeviceID)
	assert.Equal(t, "Ecodan", res.DeviceName)
	assert.Equal(t, ModeThermostat, res.Mode)
	assert.True(t, res.Power)
	assert.True(t, res.Offline)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeThermostat, ParseMode("thermostat"))
	assert.Equal(t, ModeThermostat, ParseMode(" Thermostat "))
	assert.Equal(t, ModeHeaterCooler, ParseMode("heater_cooler"))
	assert.Equal(t, ModeHeaterCooler, ParseMode(""))
	assert.Equal(t, "thermostat", ModeThermostat.String())
}

func TestRoleNames(t *testing.T) {
	for _, r := range []Role{RolePrimary, RoleZone1, RoleHotWater, RoleZone2} {
		parsed, ok := ParseRole(r.String())
		require.True(t, ok)
		assert.Equal(t, r, parsed)
	}
	_, ok := ParseRole("attic")
	assert.False(t, ok)
}
