package session

import (
	"encoding/json"
	"maps"
	"sync/atomic"
	"time"
)

// Session is one authenticated MELCloud login. It is immutable once stored;
// changes produce a new Session.
type Session struct {
	ContextKey    string
	UseFahrenheit bool

	// Account is the LoginData object of the login response.
	Account map[string]any

	// Raw is the verbatim login response.
	Raw json.RawMessage

	ObtainedAt time.Time
}

// withFahrenheit returns a copy with the temperature unit replaced.
func (s *Session) withFahrenheit(on bool) *Session {
	out := *s
	out.UseFahrenheit = on
	out.Account = maps.Clone(s.Account)
	if out.Account == nil {
		out.Account = map[string]any{}
	}
	out.Account["UseFahrenheit"] = on
	return &out
}

// TokenStore holds the current session of one account. Reads are lock-free.
type TokenStore struct {
	current atomic.Pointer[Session]
	baseURL string
}

// NewTokenStore creates an empty store for the given API base URL.
func NewTokenStore(baseURL string) *TokenStore {
	return &TokenStore{baseURL: baseURL}
}

// BaseURL returns the API root the session belongs to.
func (t *TokenStore) BaseURL() string {
	return t.baseURL
}

// Load returns the current session, or nil.
func (t *TokenStore) Load() *Session {
	return t.current.Load()
}

// Store replaces the current session.
func (t *TokenStore) Store(s *Session) {
	t.current.Store(s)
}

// Clear drops the current session.
func (t *TokenStore) Clear() {
	t.current.Store(nil)
}

// ContextKey returns the current context key or ErrNotConnected.
func (t *TokenStore) ContextKey() (string, error) {
	s := t.current.Load()
	if s == nil || s.ContextKey == "" {
		return "", ErrNotConnected
	}
	return s.ContextKey, nil
}
