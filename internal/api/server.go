package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/config"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/melcloud-bridge/internal/session"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Integration is the source name recorded for REST commands.
const Integration = "REST"

// Bridge is the account surface of the bridge.
type Bridge interface {
	Accounts() []string
	AccountState(name string) (session.State, error)
	SetTemperatureUnit(ctx context.Context, name string, fahrenheit bool) error
	Rescan(name string) error
}

// Devices is the read side of the device registry.
type Devices interface {
	List() []device.Record
	Get(id int) (*device.Record, error)
	GetStats() device.Stats
}

// Commands is the write side of the bridge.
type Commands interface {
	ApplyExternal(ctx context.Context, integration string, deviceID int, payload map[string]any) error
	SetZoneTarget(ctx context.Context, source string, deviceID int, role zone.Role, target int) error
	SetZoneTemperature(ctx context.Context, source string, deviceID int, role zone.Role, celsius float64) error
	SetZoneLock(ctx context.Context, source string, deviceID int, role zone.Role, locked bool) error
	ApplyPreset(ctx context.Context, source string, deviceID, presetID int, on bool) error
	PressButton(ctx context.Context, source string, deviceID, mode int, on bool) error
}

// Observer counts relayed messages.
type Observer interface {
	ObserveRelayMessage(relay string)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Bridge   Bridge
	Devices  Devices
	Commands Commands

	// Bus feeds the WebSocket hub; nil disables event streaming.
	Bus *events.Bus

	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string

	Observer Observer
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	bridge      Bridge
	devices     Devices
	commands    Commands
	bus         *events.Bus
	metrics     http.Handler
	metricsPath string
	observer    Observer
	version     string

	hub       *Hub
	server    *http.Server
	listener  net.Listener
	startTime time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an API server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Devices == nil {
		return nil, errors.New("device registry is required")
	}
	if deps.Bridge == nil || deps.Commands == nil {
		return nil, errors.New("bridge and commands are required")
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       withWSDefaults(deps.WS),
		logger:      deps.Logger,
		bridge:      deps.Bridge,
		devices:     deps.Devices,
		commands:    deps.Commands,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		metricsPath: deps.MetricsPath,
		observer:    deps.Observer,
		version:     deps.Version,
		hub:         NewHub(withWSDefaults(deps.WS), deps.Logger),
		startTime:   time.Now(),
	}, nil
}

// Start binds the listener and serves in the background. The WebSocket
// hub and its bus subscription live until Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(srvCtx)
	}()
	if s.bus != nil {
		sub := s.bus.Subscribe(wsSendBufferSize)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.relayEvents(srvCtx, sub)
		}()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("API server listening", "address", ln.Addr().String(), "auth", s.cfg.Auth.JWTSecret != "")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down, waiting up to 10 seconds for in-flight
// requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}

// relayEvents broadcasts every bus event to subscribed WebSocket clients.
func (s *Server) relayEvents(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if n := s.hub.Broadcast(ev.Type, ev); n > 0 && s.observer != nil {
				s.observer.ObserveRelayMessage("websocket")
			}
		}
	}
}

func withWSDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10
	}
	return cfg
}
