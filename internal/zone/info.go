package zone

const (
	manufacturer = "Mitsubishi"
	undefined    = "Undefined"
)

// deviceInfo extracts identification from a device entry.
func deviceInfo(e entryView) Info {
	info := Info{
		Manufacturer:    manufacturer,
		ModelIndoor:     undefined,
		ModelOutdoor:    undefined,
		SerialNumber:    stringOr(e.SerialNumber, undefined),
		Firmware:        rawString(e.Device.FirmwareAppVersion, undefined),
		UnitsConfigured: len(e.Device.Units) > 0,
	}
	for _, u := range e.Device.Units {
		model := stringOr(u.Model, undefined)
		if boolOr(u.IsIndoor, false) {
			info.ModelIndoor = model
		} else {
			info.ModelOutdoor = model
		}
	}
	return info
}
