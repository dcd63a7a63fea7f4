package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/snapshot"
)

// Default timings.
const (
	DefaultReconnectDelay = 65 * time.Second
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultLoginTimeout   = 15 * time.Second
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client is the part of the MELCloud API the Manager uses.
type Client interface {
	Login(ctx context.Context, creds melcloud.Credentials) (*melcloud.LoginResult, error)
	UpdateApplicationOptions(ctx context.Context, contextKey string, options map[string]any) error
}

// Persister stores raw response blobs.
type Persister interface {
	Put(ctx context.Context, key string, blob []byte) error
}

// Config wires a Manager for one account.
type Config struct {
	Account     string
	Credentials melcloud.Credentials

	// UseFahrenheit, when set, is pushed to the account on connect if the
	// account preference differs.
	UseFahrenheit *bool

	ReconnectDelay time.Duration
	SettleDelay    time.Duration
	LoginTimeout   time.Duration

	Client    Client
	Tokens    *TokenStore
	Persister Persister
	Events    events.Publisher
	Logger    Logger

	// OnConnected runs after every successful login and settle delay.
	OnConnected func(ctx context.Context, s *Session)

	// OnStateChange observes every transition.
	OnStateChange func(account string, s State)

	// OnLogin observes every login attempt.
	OnLogin func(account string, err error)
}

// Manager owns the login lifecycle of one account.
//
// Run loops DISCONNECTED → CONNECTING → CONNECTED, and on failure or
// Invalidate moves through RECONNECTING back to CONNECTING. It retries
// forever; only context cancellation stops it.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	cfg    Config
	logger Logger
	state  atomic.Int32
	wake   chan string
}

// NewManager creates a manager in StateDisconnected.
func NewManager(cfg Config) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewTokenStore(melcloud.DefaultBaseURL)
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		wake:   make(chan string, 1),
	}
}

// Tokens returns the store holding the current session.
func (m *Manager) Tokens() *TokenStore {
	return m.cfg.Tokens
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Run connects and keeps the account connected until ctx is cancelled.
// It returns ctx.Err().
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.setState(StateConnecting)
		sess, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("login failed, retrying",
				"error", err,
				"retry_in", m.cfg.ReconnectDelay.String(),
			)
			m.cfg.Events.Publish(events.Error(m.cfg.Account, 0, err))
			m.setState(StateReconnecting)
			if !sleep(ctx, m.cfg.ReconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		m.cfg.Tokens.Store(sess)
		m.drainWake()
		m.setState(StateConnected)

		if !sleep(ctx, m.cfg.SettleDelay) {
			return ctx.Err()
		}
		if m.cfg.OnConnected != nil {
			m.cfg.OnConnected(ctx, m.cfg.Tokens.Load())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-m.wake:
			m.logger.Warn("session invalidated, reconnecting", "reason", reason)
			m.cfg.Tokens.Clear()
			m.setState(StateReconnecting)
		}
	}
}

// Invalidate reports that the server rejected the current session.
// It is a no-op unless the manager is connected.
func (m *Manager) Invalidate(reason string) {
	if m.State() != StateConnected {
		return
	}
	select {
	case m.wake <- reason:
	default:
	}
}

// SetTemperatureUnit updates the account's Fahrenheit preference and
// replaces the stored session with the new value.
func (m *Manager) SetTemperatureUnit(ctx context.Context, fahrenheit bool) error {
	sess := m.cfg.Tokens.Load()
	if sess == nil {
		return ErrNotConnected
	}
	next := sess.withFahrenheit(fahrenheit)

	loginCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()
	if err := m.cfg.Client.UpdateApplicationOptions(loginCtx, sess.ContextKey, next.Account); err != nil {
		if errors.Is(err, melcloud.ErrAuth) {
			m.Invalidate("update application options rejected")
		}
		return fmt.Errorf("setting temperature unit: %w", err)
	}

	// Only replace the session that was read; a reconnect in between wins.
	m.cfg.Tokens.current.CompareAndSwap(sess, next)
	m.logger.Info("temperature unit updated", "use_fahrenheit", fahrenheit)
	return nil
}

func (m *Manager) connect(ctx context.Context) (*Session, error) {
	loginCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()

	res, err := m.cfg.Client.Login(loginCtx, m.cfg.Credentials)
	if err == nil && (res == nil || res.ContextKey == "") {
		err = ErrNoContextKey
	}
	if m.cfg.OnLogin != nil {
		m.cfg.OnLogin(m.cfg.Account, err)
	}
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ContextKey:    res.ContextKey,
		UseFahrenheit: res.UseFahrenheit,
		Account:       res.Account,
		Raw:           res.Raw,
		ObtainedAt:    time.Now().UTC(),
	}
	m.logger.Info("logged in", "use_fahrenheit", sess.UseFahrenheit)

	if m.cfg.Persister != nil {
		key := snapshot.AccountKey(m.cfg.Account)
		if err := m.cfg.Persister.Put(ctx, key, melcloud.Pretty(res.Raw)); err != nil {
			m.logger.Warn("saving account snapshot failed", "key", key, "error", err)
		}
	}

	if want := m.cfg.UseFahrenheit; want != nil && *want != sess.UseFahrenheit {
		next := sess.withFahrenheit(*want)
		if err := m.cfg.Client.UpdateApplicationOptions(loginCtx, sess.ContextKey, next.Account); err != nil {
			m.logger.Warn("updating temperature unit failed", "use_fahrenheit", *want, "error", err)
		} else {
			m.logger.Info("temperature unit updated", "use_fahrenheit", *want)
			sess = next
		}
	}
	return sess, nil
}

func (m *Manager) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev == s {
		return
	}
	m.logger.Info("session state changed", "from", prev.String(), "to", s.String())
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(m.cfg.Account, s)
	}
	ev := events.New(events.TypeSessionState)
	ev.Account = m.cfg.Account
	ev.Message = s.String()
	m.cfg.Events.Publish(ev)
}

func (m *Manager) drainWake() {
	select {
	case <-m.wake:
	default:
	}
}

// sleep waits for d or ctx. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
