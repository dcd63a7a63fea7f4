package zone

import "github.com/nerrad567/melcloud-bridge/internal/melcloud"

// Air-to-water button modes.
const (
	ButtonPower          = 0
	ButtonHeat           = 1
	ButtonCool           = 2
	ButtonAllZonesLocked = 10
	ButtonHotWaterAuto   = 20
	ButtonEcoHotWater    = 21
	ButtonForcedHotWater = 22
	ButtonHotWaterLocked = 30
	ButtonZone1ModeBase  = 40
	ButtonZone1Locked    = 50
	ButtonHoliday        = 53
	ButtonZone2ModeBase  = 60
	ButtonZone2Locked    = 70
)

// Air-to-air button modes.
const (
	ButtonAirHeat          = 1
	ButtonAirDry           = 2
	ButtonAirCool          = 3
	ButtonAirFan           = 4
	ButtonAirAuto          = 5
	ButtonAirFanSpeedBase  = 10
	ButtonAirVaneHSwing    = 20
	ButtonAirVaneVSwing    = 21
	AirVaneHorizontalSwing = 12
	AirVaneVerticalSwing   = 7
)

// ERV button modes.
const (
	ButtonErvLossnay      = 1
	ButtonErvBypass       = 2
	ButtonErvAutoVent     = 3
	ButtonErvNightPurge   = 4
	ButtonErvFanSpeedBase = 10
)

// Zone operation modes addressable by buttons are 0 through 5.
const zoneModeCount = 6

// AirButtonModes maps air-to-air button modes 1-5 to operation modes.
var AirButtonModes = map[int]int{
	ButtonAirHeat: AirModeHeat,
	ButtonAirDry:  AirModeDry,
	ButtonAirCool: AirModeCool,
	ButtonAirFan:  AirModeFan,
	ButtonAirAuto: AirModeAuto,
}

// atwButton reports the state of an air-to-water button.
func atwButton(mode int, s atwStateView) (bool, bool) {
	p := s.Power
	switch {
	case mode == ButtonPower:
		return p, true
	case mode == ButtonHeat:
		return p && s.OperationMode == 0, true
	case mode == ButtonCool:
		return p && s.OperationMode == 1, true
	case mode == ButtonHoliday:
		return p && s.HolidayMode, true
	case mode == ButtonAllZonesLocked:
		return p && s.ProhibitZone1 && s.ProhibitHotWater && s.ProhibitZone2, true
	case mode == ButtonHotWaterAuto:
		return p && !s.ForcedHotWaterMode, true
	case mode == ButtonEcoHotWater:
		return p && s.EcoHotWater, true
	case mode == ButtonForcedHotWater:
		return p && s.ForcedHotWaterMode, true
	case mode == ButtonHotWaterLocked:
		return s.ProhibitHotWater, true
	case mode >= ButtonZone1ModeBase && mode < ButtonZone1ModeBase+zoneModeCount:
		return p && s.OperationModeZone1 == mode-ButtonZone1ModeBase, true
	case mode == ButtonZone1Locked:
		return s.ProhibitZone1, true
	case mode >= ButtonZone2ModeBase && mode < ButtonZone2ModeBase+zoneModeCount:
		return p && s.OperationModeZone2 == mode-ButtonZone2ModeBase, true
	case mode == ButtonZone2Locked:
		return s.ProhibitZone2, true
	default:
		return false, false
	}
}

// ataButton reports the state of an air-to-air button.
func ataButton(mode int, s airStateView) (bool, bool) {
	p := s.Power
	if op, ok := AirButtonModes[mode]; ok {
		return p && s.OperationMode == op, true
	}
	switch {
	case mode == ButtonPower:
		return p, true
	case mode >= ButtonAirFanSpeedBase && mode <= ButtonAirFanSpeedBase+5:
		return p && s.SetFanSpeed == mode-ButtonAirFanSpeedBase, true
	case mode == ButtonAirVaneHSwing:
		return p && s.VaneHorizontal == AirVaneHorizontalSwing, true
	case mode == ButtonAirVaneVSwing:
		return p && s.VaneVertical == AirVaneVerticalSwing, true
	default:
		return false, false
	}
}

// ervButton reports the state of an ERV button.
func ervButton(mode int, s airStateView) (bool, bool) {
	p := s.Power
	switch {
	case mode == ButtonPower:
		return p, true
	case mode == ButtonErvLossnay:
		return p && s.VentilationMode == VentilationLossnay, true
	case mode == ButtonErvBypass:
		return p && s.VentilationMode == VentilationBypass, true
	case mode == ButtonErvAutoVent:
		return p && s.VentilationMode == VentilationAuto, true
	case mode == ButtonErvNightPurge:
		return p && s.NightPurgeMode, true
	case mode >= ButtonErvFanSpeedBase && mode <= ButtonErvFanSpeedBase+4:
		return p && s.SetFanSpeed == mode-ButtonErvFanSpeedBase, true
	default:
		return false, false
	}
}

// evaluateButtons computes the state of each configured button.
func evaluateButtons(deviceName string, specs []ButtonSpec, state func(mode int) (bool, bool), w *warnings) []Indicator {
	var out []Indicator
	for _, spec := range specs {
		if spec.DisplayType == DisplayNone {
			continue
		}
		if spec.Name == "" {
			w.addf("button mode %d: missing name, skipped", spec.Mode)
			continue
		}
		applied, known := state(spec.Mode)
		if !known {
			w.addf("unknown button mode %d", spec.Mode)
		}
		out = append(out, Indicator{
			ID:          spec.Mode,
			Name:        displayName(deviceName, spec.Name, spec.NamePrefix),
			DisplayType: spec.DisplayType,
			Applied:     applied,
		})
	}
	return out
}

// buttonEvaluator selects the family-specific button table.
func buttonEvaluator(family melcloud.DeviceType, atw atwStateView, air airStateView) func(int) (bool, bool) {
	switch family {
	case melcloud.TypeAirToWater:
		return func(m int) (bool, bool) { return atwButton(m, atw) }
	case melcloud.TypeERV:
		return func(m int) (bool, bool) { return ervButton(m, air) }
	default:
		return func(m int) (bool, bool) { return ataButton(m, air) }
	}
}
