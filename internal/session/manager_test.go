package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

type loginReply struct {
	res *melcloud.LoginResult
	err error
}

type fakeClient struct {
	mu      sync.Mutex
	replies []loginReply
	logins  int
	updates []map[string]any
	updErr  error
}

func (f *fakeClient) Login(_ context.Context, _ melcloud.Credentials) (*melcloud.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if len(f.replies) == 0 {
		return okLogin("key-default", false), nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r.res, r.err
}

func (f *fakeClient) UpdateApplicationOptions(_ context.Context, _ string, options map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, options)
	return f.updErr
}

func (f *fakeClient) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

type memPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (p *memPersister) Put(_ context.Context, key string, blob []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.blobs == nil {
		p.blobs = make(map[string][]byte)
	}
	p.blobs[key] = blob
	return nil
}

func okLogin(key string, fahrenheit bool) *melcloud.LoginResult {
	return &melcloud.LoginResult{
		ContextKey:    key,
		UseFahrenheit: fahrenheit,
		Account:       map[string]any{"UseFahrenheit": fahrenheit, "Name": "x"},
		Raw:           []byte(`{"LoginData":{"ContextKey":"` + key + `"}}`),
	}
}

func testConfig(client *fakeClient) Config {
	return Config{
		Account:        "home",
		Client:         client,
		ReconnectDelay: 5 * time.Millisecond,
		SettleDelay:    time.Millisecond,
		LoginTimeout:   time.Second,
	}
}

// runUntilConnected starts Run and returns after the first OnConnected.
func runUntilConnected(t *testing.T, cfg Config) (*Manager, chan *Session, context.CancelFunc, chan error) {
	t.Helper()
	connected := make(chan *Session, 4)
	cfg.OnConnected = func(_ context.Context, s *Session) { connected <- s }
	m := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return m, connected, cancel, done
}

func waitSession(t *testing.T, ch chan *Session) *Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnConnected")
		return nil
	}
}

func TestManager_ConnectSuccess(t *testing.T) {
	client := &fakeClient{replies: []loginReply{{res: okLogin("abc", false)}}}
	persist := &memPersister{}
	cfg := testConfig(client)
	cfg.Persister = persist

	var statesMu sync.Mutex
	var states []State
	cfg.OnStateChange = func(_ string, s State) {
		statesMu.Lock()
		states = append(states, s)
		statesMu.Unlock()
	}

	m, connected, cancel, done := runUntilConnected(t, cfg)
	s := waitSession(t, connected)

	if s.ContextKey != "abc" {
		t.Errorf("ContextKey = %q, want %q", s.ContextKey, "abc")
	}
	if m.State() != StateConnected {
		t.Errorf("State() = %v, want %v", m.State(), StateConnected)
	}
	key, err := m.Tokens().ContextKey()
	if err != nil || key != "abc" {
		t.Errorf("Tokens().ContextKey() = %q, %v; want abc, nil", key, err)
	}
	if _, ok := persist.blobs["home_Account"]; !ok {
		t.Error("account snapshot not persisted under home_Account")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	statesMu.Lock()
	defer statesMu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Errorf("states = %v, want [connecting connected ...]", states)
	}
}

func TestManager_MissingContextKeyRetries(t *testing.T) {
	client := &fakeClient{replies: []loginReply{
		{res: &melcloud.LoginResult{ContextKey: ""}},
		{err: melcloud.ErrNetwork},
		{res: okLogin("good", false)},
	}}

	var loginErrs []error
	var mu sync.Mutex
	cfg := testConfig(client)
	cfg.OnLogin = func(_ string, err error) {
		mu.Lock()
		loginErrs = append(loginErrs, err)
		mu.Unlock()
	}

	_, connected, cancel, done := runUntilConnected(t, cfg)
	defer func() { cancel(); <-done }()

	s := waitSession(t, connected)
	if s.ContextKey != "good" {
		t.Errorf("ContextKey = %q, want %q", s.ContextKey, "good")
	}
	if n := client.loginCount(); n != 3 {
		t.Errorf("logins = %d, want 3", n)
	}
	select {
	case <-connected:
		t.Error("OnConnected fired more than once")
	default:
	}

	mu.Lock()
	defer mu.Unlock()
	if len(loginErrs) != 3 || !errors.Is(loginErrs[0], ErrNoContextKey) || loginErrs[2] != nil {
		t.Errorf("login results = %v", loginErrs)
	}
}

func TestManager_Invalidate(t *testing.T) {
	client := &fakeClient{replies: []loginReply{
		{res: okLogin("first", false)},
		{res: okLogin("second", false)},
	}}

	m, connected, cancel, done := runUntilConnected(t, testConfig(client))
	defer func() { cancel(); <-done }()

	if s := waitSession(t, connected); s.ContextKey != "first" {
		t.Fatalf("first ContextKey = %q", s.ContextKey)
	}

	m.Invalidate("401 from poll")
	if s := waitSession(t, connected); s.ContextKey != "second" {
		t.Errorf("second ContextKey = %q, want %q", s.ContextKey, "second")
	}
}

func TestManager_InvalidateWhenNotConnected(t *testing.T) {
	m := NewManager(testConfig(&fakeClient{}))
	m.Invalidate("ignored")

	select {
	case <-m.wake:
		t.Error("Invalidate() queued a wake while disconnected")
	default:
	}
}

func TestManager_FahrenheitOnConnect(t *testing.T) {
	tests := []struct {
		name        string
		want        *bool
		account     bool
		wantUpdates int
	}{
		{"unset", nil, false, 0},
		{"matches", boolPtr(true), true, 0},
		{"differs", boolPtr(true), false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{replies: []loginReply{{res: okLogin("k", tt.account)}}}
			cfg := testConfig(client)
			cfg.UseFahrenheit = tt.want

			_, connected, cancel, done := runUntilConnected(t, cfg)
			s := waitSession(t, connected)
			cancel()
			<-done

			if len(client.updates) != tt.wantUpdates {
				t.Fatalf("updates = %d, want %d", len(client.updates), tt.wantUpdates)
			}
			if tt.wantUpdates > 0 {
				if client.updates[0]["UseFahrenheit"] != true || client.updates[0]["Name"] != "x" {
					t.Errorf("update payload = %v", client.updates[0])
				}
				if !s.UseFahrenheit {
					t.Error("session UseFahrenheit not updated")
				}
			}
		})
	}
}

func TestManager_SetTemperatureUnit(t *testing.T) {
	client := &fakeClient{}
	m := NewManager(testConfig(client))

	if err := m.SetTemperatureUnit(context.Background(), true); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("SetTemperatureUnit() disconnected error = %v, want ErrNotConnected", err)
	}

	original := &Session{ContextKey: "k", Account: map[string]any{"UseFahrenheit": false}}
	m.Tokens().Store(original)

	if err := m.SetTemperatureUnit(context.Background(), true); err != nil {
		t.Fatalf("SetTemperatureUnit() error = %v", err)
	}
	if !m.Tokens().Load().UseFahrenheit {
		t.Error("stored session not replaced")
	}
	if original.Account["UseFahrenheit"] != false {
		t.Error("original session mutated")
	}

	client.updErr = melcloud.ErrStatus
	if err := m.SetTemperatureUnit(context.Background(), false); !errors.Is(err, melcloud.ErrStatus) {
		t.Errorf("SetTemperatureUnit() error = %v, want ErrStatus", err)
	}
}

func TestTokenStore(t *testing.T) {
	ts := NewTokenStore("https://example.test")
	if ts.BaseURL() != "https://example.test" {
		t.Errorf("BaseURL() = %q", ts.BaseURL())
	}
	if _, err := ts.ContextKey(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ContextKey() empty error = %v, want ErrNotConnected", err)
	}
	ts.Store(&Session{ContextKey: "k"})
	if key, _ := ts.ContextKey(); key != "k" {
		t.Errorf("ContextKey() = %q, want k", key)
	}
	ts.Clear()
	if ts.Load() != nil {
		t.Error("Load() after Clear() should be nil")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
