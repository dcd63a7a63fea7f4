// Package zone translates MELCloud device snapshots into a normalised
// multi-zone climate model.
//
// An air-to-water heat pump is presented as up to four zones, in index
// order: the primary unit, zone 1, the hot water tank (when fitted) and
// zone 2 (when fitted). Air-to-air and ERV units present a single primary
// zone. Each zone carries a current and target state whose numbering
// depends on the presentation Mode:
//
//	heater_cooler  current: 0 inactive, 1 idle, 2 heating, 3 cooling
//	               target:  0 auto, 1 heat, 2 cool
//	thermostat     current: 0 off, 1 heat, 2 cool
//	               target:  0 off, 1 heat, 2 cool, 3 auto
//
// All mappings are table driven and keyed by mode, zone kind and the
// unit's heat/cool class. Translate is pure; Translator adds the
// per-device layout cache that fixes zone count and ranges at the first
// successful snapshot.
//
// Presets and buttons configured for a device are evaluated against the
// same snapshot and reported as Indicators.
package zone
