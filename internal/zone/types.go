package zone

import (
	"fmt"
	"strings"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Mode selects how zone states are presented.
type Mode int

// Presentation modes.
const (
	ModeHeaterCooler Mode = 1
	ModeThermostat   Mode = 2
)

// ParseMode converts a configuration value to a Mode.
// Unknown values select ModeHeaterCooler.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thermostat", "2":
		return ModeThermostat
	default:
		return ModeHeaterCooler
	}
}

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	if m == ModeThermostat {
		return "thermostat"
	}
	return "heater_cooler"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Role identifies what a zone represents.
type Role int

// Zone roles, in index order for a full heat pump.
const (
	RolePrimary Role = iota
	RoleZone1
	RoleHotWater
	RoleZone2
)

var roleNames = [...]string{"primary", "zone_1", "hot_water", "zone_2"}

// String returns the role name.
func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, bool) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), true
		}
	}
	return 0, false
}

// HeatCoolClass summarises what a unit can do.
type HeatCoolClass int

// Heat/cool classes; the value indexes the per-class range tables.
const (
	ClassBoth HeatCoolClass = iota
	ClassHeatOnly
	ClassCoolOnly
	ClassNeither
)

// Heater-cooler current states.
const (
	HCInactive = 0
	HCIdle     = 1
	HCHeating  = 2
	HCCooling  = 3
)

// Heater-cooler target states.
const (
	HCTargetAuto = 0
	HCTargetHeat = 1
	HCTargetCool = 2
)

// Thermostat current states.
const (
	ThOff  = 0
	ThHeat = 1
	ThCool = 2
)

// Thermostat target states.
const (
	ThTargetOff  = 0
	ThTargetHeat = 1
	ThTargetCool = 2
	ThTargetAuto = 3
)

// Capabilities describes what a device reports it can do.
type Capabilities struct {
	HasHotWaterTank      bool          `json:"has_hot_water_tank"`
	HasZone2             bool          `json:"has_zone2"`
	CanHeat              bool          `json:"can_heat"`
	CanCool              bool          `json:"can_cool"`
	Class                HeatCoolClass `json:"heat_cool_class"`
	TemperatureIncrement float64       `json:"temperature_increment"`
	MinSetTemperature    float64       `json:"min_set_temperature"`
	MaxSetTemperature    float64       `json:"max_set_temperature"`
	MaxTankTemperature   float64       `json:"max_tank_temperature"`
}

// Range bounds the values a zone accepts.
type Range struct {
	OperationMin    int     `json:"operation_min"`
	OperationMax    int     `json:"operation_max"`
	ValidOperations []int   `json:"valid_operations"`
	TemperatureMin  float64 `json:"temperature_min"`
	TemperatureMax  float64 `json:"temperature_max"`
}

// Slot is one fixed position in a device's zone layout.
type Slot struct {
	Index int    `json:"index"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Range Range  `json:"range"`
}

// Layout is the zone arrangement of a device. It is computed from the
// first successful snapshot and reused for the life of the process.
type Layout struct {
	Family melcloud.DeviceType `json:"family"`
	Mode   Mode                `json:"mode"`
	Slots  []Slot              `json:"slots"`
}

// Slot returns the slot for a role.
func (l Layout) Slot(role Role) (Slot, bool) {
	for _, s := range l.Slots {
		if s.Role == role {
			return s, true
		}
	}
	return Slot{}, false
}

// State is the presented state of one zone.
type State struct {
	Index             int      `json:"index"`
	Role              Role     `json:"role"`
	Name              string   `json:"name"`
	Power             bool     `json:"power"`
	CurrentState      int      `json:"current_state"`
	TargetState       int      `json:"target_state"`
	RoomTemperature   float64  `json:"room_temperature"`
	TargetTemperature float64  `json:"target_temperature"`
	Locked            bool     `json:"locked"`
	FlowTemperature   *float64 `json:"flow_temperature"`
	ReturnTemperature *float64 `json:"return_temperature"`
	Range             Range    `json:"range"`
}

// PresetSpec configures one preset indicator.
type PresetSpec struct {
	ID          int
	Name        string
	DisplayType int
	NamePrefix  bool
}

// ButtonSpec configures one button indicator.
type ButtonSpec struct {
	Name        string
	Mode        int
	DisplayType int
	NamePrefix  bool
}

// Indicator display types for presets and buttons.
const (
	DisplayNone            = 0
	DisplayOutlet          = 1
	DisplaySwitch          = 2
	DisplayMotionSensor    = 3
	DisplayOccupancySensor = 4
	DisplayContactSensor   = 5
)

// Indicator is the evaluated state of a preset or button.
type Indicator struct {
	Name        string `json:"name"`
	DisplayType int    `json:"display_type"`
	Applied     bool   `json:"applied"`

	// ID is the preset id or the button mode.
	ID int `json:"id"`
}

// Writable reports whether the indicator accepts presses.
func (i Indicator) Writable() bool {
	return i.DisplayType == DisplayOutlet || i.DisplayType == DisplaySwitch
}

// Info is the static identification of a device.
type Info struct {
	Manufacturer    string `json:"manufacturer"`
	ModelIndoor     string `json:"model_indoor"`
	ModelOutdoor    string `json:"model_outdoor"`
	SerialNumber    string `json:"serial_number"`
	Firmware        string `json:"firmware"`
	UnitsConfigured bool   `json:"units_configured"`
}

// Options carries per-device presentation configuration.
type Options struct {
	Mode    Mode
	Presets []PresetSpec
	Buttons []ButtonSpec
}

// Result is the full translation of one snapshot.
type Result struct {
	DeviceID     int                 `json:"device_id"`
	DeviceName   string              `json:"device_name"`
	Family       melcloud.DeviceType `json:"family"`
	Mode         Mode                `json:"mode"`
	Power        bool                `json:"power"`
	Offline      bool                `json:"offline"`
	Capabilities Capabilities        `json:"capabilities"`
	Layout       Layout              `json:"-"`
	Zones        []State             `json:"zones"`
	Presets      []Indicator         `json:"presets"`
	Buttons      []Indicator         `json:"buttons"`
	Info         Info                `json:"info"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// Zone returns the zone state for a role.
func (r Result) Zone(role Role) (State, bool) {
	for _, z := range r.Zones {
		if z.Role == role {
			return z, true
		}
	}
	return State{}, false
}
