package device

import (
	"fmt"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Descriptor identifies one cloud device. Identity is DeviceID.
type Descriptor struct {
	AccountName string              `json:"account"`
	BuildingID  int                 `json:"building_id"`
	DeviceID    int                 `json:"device_id"`
	Type        melcloud.DeviceType `json:"type"`
	Name        string              `json:"name"`
}

// String renders the descriptor for logs.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s (%d)", d.Type, d.Name, d.DeviceID)
}

// Slug returns a URL and topic safe form of the device name, suffixed by
// the device id so that equal names stay distinct.
func (d Descriptor) Slug() string {
	base := GenerateSlug(d.Name)
	if base == "" {
		return fmt.Sprintf("%s-%d", d.Type.Slug(), d.DeviceID)
	}
	return fmt.Sprintf("%s-%d", base, d.DeviceID)
}

// HealthStatus represents the device reachability as last observed.
type HealthStatus string

// HealthStatus constants.
const (
	HealthStatusOnline  HealthStatus = "online"
	HealthStatusOffline HealthStatus = "offline"
	HealthStatusUnknown HealthStatus = "unknown"
)

// Record is everything the bridge knows about one device.
type Record struct {
	Descriptor

	// Snapshot is the last accepted vendor data.
	Snapshot melcloud.Snapshot `json:"-"`

	// Result is the latest translation, nil until the first poll succeeds.
	Result *zone.Result `json:"state,omitempty"`

	HealthStatus   HealthStatus `json:"health_status"`
	DiscoveredAt   time.Time    `json:"discovered_at"`
	StateUpdatedAt *time.Time   `json:"state_updated_at,omitempty"`
	LastError      string       `json:"last_error,omitempty"`
}

// DeepCopy returns a copy sharing no mutable memory with r.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Snapshot = r.Snapshot.Clone()
	if r.Result != nil {
		res := copyResult(*r.Result)
		out.Result = &res
	}
	if r.StateUpdatedAt != nil {
		t := *r.StateUpdatedAt
		out.StateUpdatedAt = &t
	}
	return &out
}

func copyResult(r zone.Result) zone.Result {
	out := r
	out.Zones = append([]zone.State(nil), r.Zones...)
	out.Presets = append([]zone.Indicator(nil), r.Presets...)
	out.Buttons = append([]zone.Indicator(nil), r.Buttons...)
	out.Warnings = append([]string(nil), r.Warnings...)
	out.Layout.Slots = append([]zone.Slot(nil), r.Layout.Slots...)
	return out
}
