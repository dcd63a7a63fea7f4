package directory

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Found is one device entry of a scan.
type Found struct {
	Descriptor device.Descriptor
	Entry      json.RawMessage
}

// Flatten walks the building tree in vendor order: every floor's area
// devices, then the floor's own devices, then the building's area devices,
// then the building's own devices. A device id seen earlier in the walk is
// skipped. Entries without a DeviceID are reported in skipped.
func Flatten(account string, buildings []melcloud.Building) (found []Found, skipped []error) {
	seen := make(map[int]struct{})

	add := func(b melcloud.Building, raw json.RawMessage) {
		h, err := melcloud.DecodeHeader(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("building %d: %w", b.ID, err))
			return
		}
		if _, dup := seen[h.DeviceID]; dup {
			return
		}
		seen[h.DeviceID] = struct{}{}

		buildingID := h.BuildingID
		if buildingID == 0 {
			buildingID = b.ID
		}
		found = append(found, Found{
			Descriptor: device.Descriptor{
				AccountName: account,
				BuildingID:  buildingID,
				DeviceID:    h.DeviceID,
				Type:        h.Type,
				Name:        h.DeviceName,
			},
			Entry: append(json.RawMessage(nil), raw...),
		})
	}

	for _, b := range buildings {
		s := b.Structure
		for _, floor := range s.Floors {
			for _, area := range floor.Areas {
				for _, raw := range area.Devices {
					add(b, raw)
				}
			}
			for _, raw := range floor.Devices {
				add(b, raw)
			}
		}
		for _, area := range s.Areas {
			for _, raw := range area.Devices {
				add(b, raw)
			}
		}
		for _, raw := range s.Devices {
			add(b, raw)
		}
	}
	return found, skipped
}
