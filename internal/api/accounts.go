package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// accountStatus is one entry of GET /accounts.
type accountStatus struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Devices int    `json:"devices"`
}

type temperatureUnitRequest struct {
	Fahrenheit *bool `json:"fahrenheit"`
}

// handleListAccounts returns each account with its session state.
func (s *Server) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	byAccount := s.devices.GetStats().ByAccount

	accounts := make([]accountStatus, 0, len(s.bridge.Accounts()))
	for _, name := range s.bridge.Accounts() {
		st, err := s.bridge.AccountState(name)
		if err != nil {
			continue
		}
		accounts = append(accounts, accountStatus{Name: name, State: st.String(), Devices: byAccount[name]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts, "count": len(accounts)})
}

// handleSetTemperatureUnit changes the account's display unit in the cloud.
func (s *Server) handleSetTemperatureUnit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req temperatureUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Fahrenheit == nil {
		writeBadRequest(w, `body must be {"fahrenheit": true|false}`)
		return
	}

	s.observe()
	if err := s.bridge.SetTemperatureUnit(r.Context(), name, *req.Fahrenheit); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": name, "fahrenheit": *req.Fahrenheit})
}

// handleRescan requests an immediate device directory scan.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.bridge.Rescan(name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"account": name, "rescan": "scheduled"})
}
