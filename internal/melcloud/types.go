package melcloud

import (
	"encoding/json"
	"fmt"
)

// DeviceType is the vendor's device family code.
type DeviceType int

// Known device families.
const (
	TypeAirToAir   DeviceType = 0
	TypeAirToWater DeviceType = 1
	TypeERV        DeviceType = 3
)

// String returns the display text used in logs and relay topics.
func (t DeviceType) String() string {
	switch t {
	case TypeAirToAir:
		return "Air Conditioner"
	case TypeAirToWater:
		return "Heat Pump"
	case TypeERV:
		return "Energy Recovery Ventilation"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Slug returns a topic-safe name for the family.
func (t DeviceType) Slug() string {
	switch t {
	case TypeAirToAir:
		return "ata"
	case TypeAirToWater:
		return "atw"
	case TypeERV:
		return "erv"
	default:
		return fmt.Sprintf("type%d", int(t))
	}
}

// setEndpoint returns the mutation path for the family.
func (t DeviceType) setEndpoint() (string, error) {
	switch t {
	case TypeAirToAir:
		return "Device/SetAta", nil
	case TypeAirToWater:
		return "Device/SetAtw", nil
	case TypeERV:
		return "Device/SetErv", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnsupportedType, int(t))
	}
}

// Credentials are the account login fields.
type Credentials struct {
	Email    string
	Password string
	Language int
}

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	ContextKey    string
	UseFahrenheit bool

	// Account is the LoginData object, kept for account option updates.
	Account map[string]any

	// Raw is the verbatim response body.
	Raw json.RawMessage
}

// Building is one entry of the User/ListDevices response.
// Device objects are kept raw.
type Building struct {
	ID        int       `json:"ID"`
	Name      string    `json:"Name"`
	Structure Structure `json:"Structure"`
}

// Structure is the nested floor/area/device tree of a building.
type Structure struct {
	Floors  []Floor           `json:"Floors"`
	Areas   []Area            `json:"Areas"`
	Devices []json.RawMessage `json:"Devices"`
}

// Floor contains areas and devices.
type Floor struct {
	Areas   []Area            `json:"Areas"`
	Devices []json.RawMessage `json:"Devices"`
}

// Area contains devices.
type Area struct {
	Devices []json.RawMessage `json:"Devices"`
}

// DeviceHeader is the identity portion of a list-endpoint device object.
type DeviceHeader struct {
	DeviceID   int        `json:"DeviceID"`
	DeviceName string     `json:"DeviceName"`
	BuildingID int        `json:"BuildingID"`
	Type       DeviceType `json:"Type"`
}

// DecodeHeader extracts the identity fields from a raw device entry.
func DecodeHeader(entry json.RawMessage) (DeviceHeader, error) {
	var h DeviceHeader
	if err := json.Unmarshal(entry, &h); err != nil {
		return DeviceHeader{}, fmt.Errorf("%w: decoding device entry: %v", ErrData, err)
	}
	if h.DeviceID == 0 {
		return DeviceHeader{}, fmt.Errorf("%w: device entry without DeviceID", ErrData)
	}
	return h, nil
}
