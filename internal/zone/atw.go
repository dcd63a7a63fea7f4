package zone

import "fmt"

// zoneKind groups roles that share a translation table.
type zoneKind int

const (
	kindPrimary zoneKind = iota
	kindZone
	kindHotWater
)

func kindOf(r Role) zoneKind {
	switch r {
	case RoleZone1, RoleZone2:
		return kindZone
	case RoleHotWater:
		return kindHotWater
	default:
		return kindPrimary
	}
}

// zoneTable maps raw air-to-water codes to presented states for one
// (mode, kind) pair. Per-class arrays are indexed by HeatCoolClass.
type zoneTable struct {
	current []int
	target  []int

	// idle is the current state of a zone reporting IdleZoneN.
	idle int
	// active is the hot water current state while the unit heats the tank.
	active int
	// targetOffWhenPowerOff forces the target state to 0 when powered down.
	targetOffWhenPowerOff bool

	opMin   [4]int
	opMax   [4]int
	valid   [4][]int
	tempMin float64
	tempMax float64
	// tankMax takes the temperature ceiling from MaxTankTemperature.
	tankMax bool
}

func allClasses[T any](v T) [4]T {
	return [4]T{v, v, v, v}
}

var atwTables = map[Mode]map[zoneKind]zoneTable{
	ModeHeaterCooler: {
		kindPrimary: {
			current: []int{1, 2, 2, 3, 2, 1, 1, 2, 1, 1, 1, 2},
			target:  []int{1, 2},
			opMin:   [4]int{1, 1, 2, 0},
			opMax:   [4]int{2, 1, 2, 0},
			valid:   [4][]int{{1, 2}, {1}, {2}, {0}},
			tempMin: -35,
			tempMax: 100,
		},
		kindZone: {
			current: []int{2, 2, 2, 3, 3, 2},
			target:  []int{1, 2, 0, 1, 2, 1},
			idle:    HCIdle,
			opMin:   [4]int{0, 0, 1, 0},
			opMax:   [4]int{2, 2, 2, 0},
			valid:   [4][]int{{0, 1, 2}, {0, 1, 2}, {1, 2}, {0}},
			tempMin: 0,
			tempMax: 31,
		},
		kindHotWater: {
			current: []int{1, 2},
			target:  []int{0, 1},
			active:  HCHeating,
			opMin:   allClasses(0),
			opMax:   allClasses(1),
			valid:   allClasses([]int{0, 1}),
			tempMin: 0,
			tankMax: true,
		},
	},
	ModeThermostat: {
		kindPrimary: {
			current:               []int{0, 1, 1, 2, 1, 0, 0, 1, 0, 0, 0, 1},
			target:                []int{1, 2},
			targetOffWhenPowerOff: true,
			opMin:                 allClasses(0),
			opMax:                 [4]int{2, 1, 2, 0},
			valid:                 [4][]int{{0, 1, 2}, {0, 1}, {0, 2}, {0}},
			tempMin:               -35,
			tempMax:               100,
		},
		kindZone: {
			current: []int{1, 1, 1, 2, 2, 1},
			target:  []int{1, 2, 3, 1, 2, 1},
			idle:    ThOff,
			opMin:   [4]int{1, 1, 1, 0},
			opMax:   [4]int{3, 3, 2, 0},
			valid:   [4][]int{{1, 2, 3}, {1, 2, 3}, {1, 2}, {0}},
			tempMin: 0,
			tempMax: 31,
		},
		kindHotWater: {
			current: []int{0, 1},
			target:  []int{3, 1},
			active:  ThHeat,
			opMin:   allClasses(1),
			opMax:   allClasses(3),
			valid:   allClasses([]int{1, 3}),
			tempMin: 0,
			tempMax: 60,
		},
	},
}

func (t zoneTable) rangeFor(c Capabilities) Range {
	r := Range{
		OperationMin:    t.opMin[c.Class],
		OperationMax:    t.opMax[c.Class],
		ValidOperations: append([]int(nil), t.valid[c.Class]...),
		TemperatureMin:  t.tempMin,
		TemperatureMax:  t.tempMax,
	}
	if t.tankMax {
		r.TemperatureMax = c.MaxTankTemperature
	}
	return r
}

// warnings accumulates non-fatal translation problems.
type warnings []string

func (w *warnings) addf(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

// lookup indexes a table, falling back to 0 with a warning.
func lookup(table []int, code int, zoneName, field string, w *warnings) int {
	if code < 0 || code >= len(table) {
		w.addf("%s: unknown %s %d", zoneName, field, code)
		return 0
	}
	return table[code]
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// atwLayout builds the zone arrangement for an air-to-water unit.
func atwLayout(e entryView, c Capabilities, mode Mode) Layout {
	tables := atwTables[mode]
	slots := []Slot{
		{Role: RolePrimary, Name: "Heat Pump"},
		{Role: RoleZone1, Name: stringOr(e.Zone1Name, "Zone 1")},
	}
	if c.HasHotWaterTank {
		slots = append(slots, Slot{Role: RoleHotWater, Name: "Hot Water"})
	}
	if c.HasZone2 {
		slots = append(slots, Slot{Role: RoleZone2, Name: stringOr(e.Zone2Name, "Zone 2")})
	}
	for i := range slots {
		slots[i].Index = i
		slots[i].Range = tables[kindOf(slots[i].Role)].rangeFor(c)
	}
	return Layout{Mode: mode, Slots: slots}
}

// atwZones evaluates every slot of the layout against one state body.
func atwZones(e entryView, st atwStateView, layout Layout, w *warnings) []State {
	tables := atwTables[layout.Mode]
	_, hasTank := layout.Slot(RoleHotWater)
	_, hasZone2 := layout.Slot(RoleZone2)
	d := e.Device

	zones := make([]State, 0, len(layout.Slots))
	for _, slot := range layout.Slots {
		t := tables[kindOf(slot.Role)]
		z := State{
			Index: slot.Index,
			Role:  slot.Role,
			Name:  slot.Name,
			Power: st.Power,
			Range: slot.Range,
		}

		switch slot.Role {
		case RolePrimary:
			if st.Power {
				z.CurrentState = lookup(t.current, st.OperationMode, slot.Name, "operation mode", w)
			}
			if !st.Power && t.targetOffWhenPowerOff {
				z.TargetState = 0
			} else {
				z.TargetState = lookup(t.target, st.UnitStatus, slot.Name, "unit status", w)
			}
			z.RoomTemperature = st.OutdoorTemperature
			z.TargetTemperature = st.OutdoorTemperature
			z.Locked = primaryLock(st, hasTank, hasZone2)
			z.FlowTemperature = d.FlowTemperature
			z.ReturnTemperature = d.ReturnTemperature

		case RoleZone1, RoleZone2:
			code, idle := st.OperationModeZone1, st.IdleZone1
			z.RoomTemperature, z.TargetTemperature = st.RoomTemperatureZone1, st.SetTemperatureZone1
			z.Locked = st.ProhibitZone1
			z.FlowTemperature, z.ReturnTemperature = d.FlowTemperatureZone1, d.ReturnTemperatureZone1
			if slot.Role == RoleZone2 {
				code, idle = st.OperationModeZone2, st.IdleZone2
				z.RoomTemperature, z.TargetTemperature = st.RoomTemperatureZone2, st.SetTemperatureZone2
				z.Locked = st.ProhibitZone2
				z.FlowTemperature, z.ReturnTemperature = d.FlowTemperatureZone2, d.ReturnTemperatureZone2
			}
			switch {
			case !st.Power:
			case idle:
				z.CurrentState = t.idle
			default:
				z.CurrentState = lookup(t.current, code, slot.Name, "operation mode", w)
			}
			z.TargetState = lookup(t.target, code, slot.Name, "operation mode", w)

		case RoleHotWater:
			forced := btoi(st.ForcedHotWaterMode)
			switch {
			case !st.Power:
			case st.OperationMode == 1:
				z.CurrentState = t.active
			default:
				z.CurrentState = t.current[forced]
			}
			z.TargetState = t.target[forced]
			z.RoomTemperature = st.TankWaterTemperature
			z.TargetTemperature = st.SetTankWaterTemperature
			z.Locked = st.ProhibitHotWater
			z.FlowTemperature = d.FlowTemperatureBoiler
			z.ReturnTemperature = d.ReturnTemperatureBoiler
		}

		zones = append(zones, z)
	}
	return zones
}

// primaryLock is set only when every existing zone is prohibited.
func primaryLock(st atwStateView, hasTank, hasZone2 bool) bool {
	if !hasTank && !hasZone2 {
		return false
	}
	locked := st.ProhibitZone1
	if hasTank {
		locked = locked && st.ProhibitHotWater
	}
	if hasZone2 {
		locked = locked && st.ProhibitZone2
	}
	return locked
}
