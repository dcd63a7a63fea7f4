package bridge

import (
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/config"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// zoneOptions builds the presentation options of one device from its
// account block.
func zoneOptions(acc config.AccountConfig, deviceID int) zone.Options {
	opts := zone.Options{Mode: zone.ParseMode(acc.DisplayModeFor(deviceID))}

	dev, ok := acc.Device(deviceID)
	if !ok {
		return opts
	}
	for _, p := range dev.Presets {
		opts.Presets = append(opts.Presets, zone.PresetSpec{
			ID:          p.ID,
			Name:        p.Name,
			DisplayType: p.DisplayType,
			NamePrefix:  p.NamePrefix,
		})
	}
	for _, b := range dev.Buttons {
		opts.Buttons = append(opts.Buttons, zone.ButtonSpec{
			Name:        b.Name,
			Mode:        b.Mode,
			DisplayType: b.DisplayType,
			NamePrefix:  b.NamePrefix,
		})
	}
	return opts
}
