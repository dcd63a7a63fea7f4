package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/melcloud-bridge/internal/command"
	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// zoneRequest is the body of PUT /devices/{id}/zones/{index}. Absent
// fields are left unchanged.
type zoneRequest struct {
	TargetState       *int     `json:"target_state"`
	TargetTemperature *float64 `json:"target_temperature"`
	Locked            *bool    `json:"locked"`
}

// switchRequest is the body of preset and button presses.
type switchRequest struct {
	On *bool `json:"on"`
}

// handleListDevices returns all devices, optionally filtered by account,
// type slug or health.
//
// Query parameters:
//   - account: account name
//   - type: ata, atw or erv
//   - health: online, offline or unknown
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account, typ, health := q.Get("account"), q.Get("type"), q.Get("health")

	records := s.devices.List()
	out := make([]device.Record, 0, len(records))
	for _, rec := range records {
		if account != "" && rec.AccountName != account {
			continue
		}
		if typ != "" && rec.Type.Slug() != typ {
			continue
		}
		if health != "" && string(rec.HealthStatus) != health {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })

	writeJSON(w, http.StatusOK, map[string]any{"devices": out, "count": len(out)})
}

// handleDeviceStats returns registry counts.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.devices.GetStats())
}

// handleGetDevice returns one device with its latest translated state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetDeviceState returns the raw vendor state last accepted.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if len(rec.Snapshot.State) == 0 {
		writeNotFound(w, "device has not been polled yet")
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(rec.Snapshot.State))
}

// handleSetDeviceState applies a {key: value} object, one key at a time.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read body")
		return
	}
	values, err := command.DecodePayload(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(values) == 0 {
		writeBadRequest(w, "no keys to apply")
		return
	}

	s.observe()
	if err := s.commands.ApplyExternal(r.Context(), Integration, rec.DeviceID, values); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"device_id": rec.DeviceID, "applied": len(values)})
}

// handleGetZones returns the translated zones.
func (s *Server) handleGetZones(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	zones := []zone.State{}
	if rec.Result != nil {
		zones = rec.Result.Zones
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": rec.DeviceID, "zones": zones})
}

// handleSetZone applies zone intents in a fixed order: target state,
// target temperature, lock.
func (s *Server) handleSetZone(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	z, ok := findZone(rec, chi.URLParam(r, "index"))
	if !ok {
		writeNotFound(w, "zone not found")
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.TargetState == nil && req.TargetTemperature == nil && req.Locked == nil {
		writeBadRequest(w, "one of target_state, target_temperature or locked is required")
		return
	}

	ctx := r.Context()
	s.observe()
	if req.TargetState != nil {
		if err := s.commands.SetZoneTarget(ctx, Integration, rec.DeviceID, z.Role, *req.TargetState); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.TargetTemperature != nil {
		if err := s.commands.SetZoneTemperature(ctx, Integration, rec.DeviceID, z.Role, *req.TargetTemperature); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Locked != nil {
		if err := s.commands.SetZoneLock(ctx, Integration, rec.DeviceID, z.Role, *req.Locked); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"device_id": rec.DeviceID, "zone": z.Index, "role": z.Role})
}

// handleApplyPreset switches a server preset. Body {"on": false} restores
// the values the preset replaced; an empty body switches it on.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	presetID, err := strconv.Atoi(chi.URLParam(r, "presetID"))
	if err != nil {
		writeBadRequest(w, "preset id must be an integer")
		return
	}
	on, err := decodeSwitch(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if ind, found := findIndicator(rec.Result, presetID, true); found && !ind.Writable() {
		writeError(w, http.StatusConflict, ErrCodeConflict, fmt.Sprintf("preset %d is read-only", presetID))
		return
	}

	s.observe()
	if err := s.commands.ApplyPreset(r.Context(), Integration, rec.DeviceID, presetID, on); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"device_id": rec.DeviceID, "preset": presetID, "on": on})
}

// handlePressButton switches a configured button.
func (s *Server) handlePressButton(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	mode, err := strconv.Atoi(chi.URLParam(r, "mode"))
	if err != nil {
		writeBadRequest(w, "button mode must be an integer")
		return
	}
	on, err := decodeSwitch(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ind, found := findIndicator(rec.Result, mode, false)
	if !found {
		writeNotFound(w, fmt.Sprintf("button %d is not configured", mode))
		return
	}
	if !ind.Writable() {
		writeError(w, http.StatusConflict, ErrCodeConflict, fmt.Sprintf("button %d is read-only", mode))
		return
	}

	s.observe()
	if err := s.commands.PressButton(r.Context(), Integration, rec.DeviceID, mode, on); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"device_id": rec.DeviceID, "button": mode, "on": on})
}

// lookup resolves {id}, writing the error response itself on failure.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*device.Record, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "device id must be an integer")
		return nil, false
	}
	rec, err := s.devices.Get(id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		writeDomainError(w, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) observe() {
	if s.observer != nil {
		s.observer.ObserveRelayMessage("rest")
	}
}

func findZone(rec *device.Record, param string) (zone.State, bool) {
	index, err := strconv.Atoi(param)
	if err != nil || rec.Result == nil {
		return zone.State{}, false
	}
	for _, z := range rec.Result.Zones {
		if z.Index == index {
			return z, true
		}
	}
	return zone.State{}, false
}

func findIndicator(res *zone.Result, id int, preset bool) (zone.Indicator, bool) {
	if res == nil {
		return zone.Indicator{}, false
	}
	list := res.Buttons
	if preset {
		list = res.Presets
	}
	for _, ind := range list {
		if ind.ID == id {
			return ind, true
		}
	}
	return zone.Indicator{}, false
}

// decodeSwitch reads {"on": bool}; an empty body means on.
func decodeSwitch(r *http.Request) (bool, error) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, errors.New("invalid JSON body")
	}
	if req.On == nil {
		return true, nil
	}
	return *req.On, nil
}
