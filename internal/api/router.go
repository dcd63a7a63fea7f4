package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/melcloud-bridge/internal/session"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", s.handleWebSocket)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Put("/{name}/temperature-unit", s.handleSetTemperatureUnit)
				r.Post("/{name}/rescan", s.handleRescan)
			})
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/state", s.handleGetDeviceState)
				r.Get("/zones", s.handleGetZones)

				r.Group(func(r chi.Router) {
					r.Use(s.authMiddleware)
					r.Put("/state", s.handleSetDeviceState)
					r.Put("/zones/{index}", s.handleSetZone)
					r.Post("/presets/{presetID}", s.handleApplyPreset)
					r.Post("/buttons/{mode}", s.handlePressButton)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health and per-account session state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	accounts := make(map[string]string)
	status := "ok"
	for _, name := range s.bridge.Accounts() {
		st, err := s.bridge.AccountState(name)
		if err != nil {
			continue
		}
		accounts[name] = st.String()
		if st != session.StateConnected {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"version":  s.version,
		"accounts": accounts,
		"devices":  s.devices.GetStats().TotalDevices,
		"clients":  s.hub.ClientCount(),
		"uptime":   int(time.Since(s.startTime).Seconds()),
	})
}
