package zone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Typed views over the raw vendor bodies. Pointer fields distinguish
// absent values from zero values so defaults can be applied.

type unitView struct {
	IsIndoor *bool   `json:"IsIndoor"`
	Model    *string `json:"Model"`
}

type entryDeviceView struct {
	HasHotWaterTank      *bool    `json:"HasHotWaterTank"`
	HasZone2             *bool    `json:"HasZone2"`
	CanHeat              *bool    `json:"CanHeat"`
	CanCool              *bool    `json:"CanCool"`
	TemperatureIncrement *float64 `json:"TemperatureIncrement"`
	MinSetTemperature    *float64 `json:"MinSetTemperature"`
	MaxSetTemperature    *float64 `json:"MaxSetTemperature"`
	MaxTankTemperature   *float64 `json:"MaxTankTemperature"`

	FlowTemperature         *float64 `json:"FlowTemperature"`
	FlowTemperatureZone1    *float64 `json:"FlowTemperatureZone1"`
	FlowTemperatureZone2    *float64 `json:"FlowTemperatureZone2"`
	FlowTemperatureBoiler   *float64 `json:"FlowTemperatureBoiler"`
	ReturnTemperature       *float64 `json:"ReturnTemperature"`
	ReturnTemperatureZone1  *float64 `json:"ReturnTemperatureZone1"`
	ReturnTemperatureZone2  *float64 `json:"ReturnTemperatureZone2"`
	ReturnTemperatureBoiler *float64 `json:"ReturnTemperatureBoiler"`

	// Air-to-air and ERV temperature ranges.
	MinTempHeat      *float64 `json:"MinTempHeat"`
	MaxTempHeat      *float64 `json:"MaxTempHeat"`
	MinTempCoolDry   *float64 `json:"MinTempCoolDry"`
	MaxTempCoolDry   *float64 `json:"MaxTempCoolDry"`
	MinTempAutomatic *float64 `json:"MinTempAutomatic"`
	MaxTempAutomatic *float64 `json:"MaxTempAutomatic"`

	FirmwareAppVersion json.RawMessage `json:"FirmwareAppVersion"`
	Units              []unitView      `json:"Units"`
}

type entryView struct {
	DeviceID     int                          `json:"DeviceID"`
	DeviceName   string                       `json:"DeviceName"`
	SerialNumber *string                      `json:"SerialNumber"`
	Zone1Name    *string                      `json:"Zone1Name"`
	Zone2Name    *string                      `json:"Zone2Name"`
	Device       entryDeviceView              `json:"Device"`
	Presets      []map[string]json.RawMessage `json:"Presets"`
}

// atwStateView is the air-to-water Device/Get body.
type atwStateView struct {
	DeviceID *int `json:"DeviceID"`
	Power    bool `json:"Power"`
	Offline  bool `json:"Offline"`

	OperationMode      int `json:"OperationMode"`
	OperationModeZone1 int `json:"OperationModeZone1"`
	OperationModeZone2 int `json:"OperationModeZone2"`
	UnitStatus         int `json:"UnitStatus"`

	SetTemperatureZone1     float64 `json:"SetTemperatureZone1"`
	SetTemperatureZone2     float64 `json:"SetTemperatureZone2"`
	RoomTemperatureZone1    float64 `json:"RoomTemperatureZone1"`
	RoomTemperatureZone2    float64 `json:"RoomTemperatureZone2"`
	TankWaterTemperature    float64 `json:"TankWaterTemperature"`
	SetTankWaterTemperature float64 `json:"SetTankWaterTemperature"`
	OutdoorTemperature      float64 `json:"OutdoorTemperature"`

	ForcedHotWaterMode bool `json:"ForcedHotWaterMode"`
	EcoHotWater        bool `json:"EcoHotWater"`
	HolidayMode        bool `json:"HolidayMode"`
	ProhibitZone1      bool `json:"ProhibitZone1"`
	ProhibitZone2      bool `json:"ProhibitZone2"`
	ProhibitHotWater   bool `json:"ProhibitHotWater"`
	IdleZone1          bool `json:"IdleZone1"`
	IdleZone2          bool `json:"IdleZone2"`
}

// airStateView is the air-to-air and ERV Device/Get body.
type airStateView struct {
	DeviceID *int `json:"DeviceID"`
	Power    bool `json:"Power"`
	Offline  bool `json:"Offline"`

	OperationMode   int     `json:"OperationMode"`
	RoomTemperature float64 `json:"RoomTemperature"`
	SetTemperature  float64 `json:"SetTemperature"`
	SetFanSpeed     int     `json:"SetFanSpeed"`
	VaneHorizontal  int     `json:"VaneHorizontal"`
	VaneVertical    int     `json:"VaneVertical"`

	ProhibitSetTemperature bool `json:"ProhibitSetTemperature"`
	ProhibitOperationMode  bool `json:"ProhibitOperationMode"`
	ProhibitPower          bool `json:"ProhibitPower"`

	// ERV only.
	VentilationMode    int      `json:"VentilationMode"`
	NightPurgeMode     bool     `json:"NightPurgeMode"`
	SupplyTemperature  *float64 `json:"SupplyTemperature"`
	OutdoorTemperature *float64 `json:"OutdoorTemperature"`
}

func decodeEntry(snap melcloud.Snapshot) (entryView, error) {
	var e entryView
	if len(snap.Entry) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(snap.Entry, &e); err != nil {
		return e, fmt.Errorf("%w: decoding device entry: %v", melcloud.ErrData, err)
	}
	return e, nil
}

func decodeState(snap melcloud.Snapshot, v any) error {
	if err := json.Unmarshal(snap.State, v); err != nil {
		return fmt.Errorf("%w: decoding device state: %v", melcloud.ErrData, err)
	}
	return nil
}

// decodeStateMap decodes the state body for field-by-field comparison.
func decodeStateMap(snap melcloud.Snapshot) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(snap.State, &m); err != nil {
		return nil
	}
	return m
}

// atwCapabilities derives capabilities with the vendor defaults applied.
func atwCapabilities(d entryDeviceView) Capabilities {
	c := Capabilities{
		HasHotWaterTank:      boolOr(d.HasHotWaterTank, false),
		HasZone2:             boolOr(d.HasZone2, false),
		CanHeat:              boolOr(d.CanHeat, false),
		CanCool:              boolOr(d.CanCool, false),
		TemperatureIncrement: floatOr(d.TemperatureIncrement, 1),
		MinSetTemperature:    floatOr(d.MinSetTemperature, 10),
		MaxSetTemperature:    floatOr(d.MaxSetTemperature, 30),
		MaxTankTemperature:   floatOr(d.MaxTankTemperature, 70),
	}
	c.Class = classOf(c.CanHeat, c.CanCool)
	return c
}

func classOf(canHeat, canCool bool) HeatCoolClass {
	switch {
	case canHeat && canCool:
		return ClassBoth
	case canHeat:
		return ClassHeatOnly
	case canCool:
		return ClassCoolOnly
	default:
		return ClassNeither
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}

// rawString renders a scalar JSON value as text, or def when absent.
func rawString(raw json.RawMessage, def string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return stringOr(&s, def)
	}
	return string(raw)
}

// CapabilitiesOf derives the capability profile of a raw device entry.
func CapabilitiesOf(family melcloud.DeviceType, entry json.RawMessage) (Capabilities, error) {
	e, err := decodeEntry(melcloud.Snapshot{Entry: entry})
	if err != nil {
		return Capabilities{}, err
	}
	switch family {
	case melcloud.TypeAirToWater:
		return atwCapabilities(e.Device), nil
	case melcloud.TypeAirToAir, melcloud.TypeERV:
		return airCapabilities(family, e.Device), nil
	default:
		return Capabilities{}, fmt.Errorf("%w: %d", ErrUnsupportedFamily, int(family))
	}
}
