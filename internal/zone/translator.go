package zone

import (
	"fmt"
	"sync"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Translate converts one device snapshot into presented zone states.
//
// Translate is pure: it never mutates snap and returns equal results for
// equal inputs. When layout is nil the layout is derived from snap;
// otherwise zone count, roles, names and ranges come from layout.
//
// Raw codes outside the translation tables yield the zero state and a
// warning in Result.Warnings. A state body without DeviceID fails with
// ErrMissingDeviceID.
func Translate(family melcloud.DeviceType, snap melcloud.Snapshot, opts Options, layout *Layout) (Result, error) {
	if opts.Mode != ModeThermostat {
		opts.Mode = ModeHeaterCooler
	}

	e, err := decodeEntry(snap)
	if err != nil {
		return Result{}, err
	}

	var w warnings
	var atw atwStateView
	var air airStateView
	var caps Capabilities
	var l Layout
	var zones []State

	switch family {
	case melcloud.TypeAirToWater:
		if err := decodeState(snap, &atw); err != nil {
			return Result{}, err
		}
		if atw.DeviceID == nil {
			return Result{}, ErrMissingDeviceID
		}
		caps = atwCapabilities(e.Device)
		l = pickLayout(layout, func() Layout { return atwLayout(e, caps, opts.Mode) })
		zones = atwZones(e, atw, l, &w)

	case melcloud.TypeAirToAir, melcloud.TypeERV:
		if err := decodeState(snap, &air); err != nil {
			return Result{}, err
		}
		if air.DeviceID == nil {
			return Result{}, ErrMissingDeviceID
		}
		caps = airCapabilities(family, e.Device)
		l = pickLayout(layout, func() Layout { return airLayout(e, family, caps, opts.Mode) })
		zones = airZones(family, air, l, &w)

	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnsupportedFamily, int(family))
	}
	l.Family = family

	res := Result{
		DeviceName:   e.DeviceName,
		Family:       family,
		Mode:         l.Mode,
		Capabilities: caps,
		Layout:       l,
		Zones:        zones,
		Info:         deviceInfo(e),
	}
	if family == melcloud.TypeAirToWater {
		res.DeviceID, res.Power, res.Offline = *atw.DeviceID, atw.Power, atw.Offline
	} else {
		res.DeviceID, res.Power, res.Offline = *air.DeviceID, air.Power, air.Offline
	}
	if !res.Info.UnitsConfigured {
		w.addf("Units are not configured in MELCloud service.")
	}

	res.Presets = evaluatePresets(family, e, decodeStateMap(snap), opts.Presets, &w)
	res.Buttons = evaluateButtons(e.DeviceName, opts.Buttons, buttonEvaluator(family, atw, air), &w)
	res.Warnings = dedupe(w)

	return res, nil
}

func pickLayout(cached *Layout, derive func() Layout) Layout {
	if cached != nil && len(cached.Slots) > 0 {
		return *cached
	}
	return derive()
}

func dedupe(w warnings) []string {
	if len(w) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(w))
	out := make([]string, 0, len(w))
	for _, s := range w {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Translator wraps Translate with a per-device layout cache.
//
// The first successful translation of a device fixes its layout; later
// capability changes in the entry do not add or remove zones.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Translator struct {
	mu      sync.RWMutex
	layouts map[int]Layout
}

// NewTranslator creates a Translator with an empty layout cache.
func NewTranslator() *Translator {
	return &Translator{layouts: make(map[int]Layout)}
}

// Translate translates a snapshot using the cached layout for deviceID,
// caching the derived layout on first success.
func (t *Translator) Translate(deviceID int, family melcloud.DeviceType, snap melcloud.Snapshot, opts Options) (Result, error) {
	t.mu.RLock()
	cached, ok := t.layouts[deviceID]
	t.mu.RUnlock()

	var layout *Layout
	if ok {
		layout = &cached
	}

	res, err := Translate(family, snap, opts, layout)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		t.mu.Lock()
		if _, exists := t.layouts[deviceID]; !exists {
			t.layouts[deviceID] = res.Layout
		}
		t.mu.Unlock()
	}
	return res, nil
}

// Layout returns the cached layout of a device.
func (t *Translator) Layout(deviceID int) (Layout, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.layouts[deviceID]
	return l, ok
}
