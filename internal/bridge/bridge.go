package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/command"
	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/directory"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/config"
	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/poller"
	"github.com/nerrad567/melcloud-bridge/internal/session"
	"github.com/nerrad567/melcloud-bridge/internal/snapshot"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// DefaultChangeBuffer is the capacity of the change channel.
const DefaultChangeBuffer = 64

// Client is the MELCloud API surface used by every account.
// *melcloud.Client implements it.
type Client interface {
	session.Client
	directory.Client
	poller.Client
	command.Client
}

// Observer receives pipeline measurements. *metrics.Metrics implements it.
type Observer interface {
	ObserveSessionState(account string, s session.State)
	ObserveLogin(account string, err error)
	ObserveScan(account string, devices int, err error)
	ObservePoll(account string, deviceID int, changed bool, err error)
	ObserveCommand(source string, family melcloud.DeviceType, err error)
}

// Options configures a Bridge.
type Options struct {
	Accounts []config.AccountConfig
	BaseURL  string
	Client   Client

	// Store persists raw responses. Nil disables persistence.
	Store snapshot.Store

	// Events receives every bridge event. Required.
	Events events.Publisher

	// Registry holds device state. Nil creates a new one.
	Registry *device.Registry

	// Observer is optional.
	Observer Observer

	Logger       *logging.Logger
	ChangeBuffer int
}

// Bridge runs every account's pipeline and dispatches state changes.
//
// Thread Safety: all methods are safe for concurrent use; Run must be
// called once.
type Bridge struct {
	opts       Options
	logger     *logging.Logger
	registry   *device.Registry
	translator *zone.Translator
	encoder    *command.Encoder
	changes    chan poller.Change

	accounts map[string]*account
	names    []string

	// infos is owned by the dispatcher goroutine.
	infos map[int]zone.Info

	wg sync.WaitGroup
}

type account struct {
	cfg       config.AccountConfig
	logger    *logging.Logger
	session   *session.Manager
	directory *directory.Directory
	poller    *poller.Poller
}

// New builds the per-account pipelines. Nothing runs until Run.
func New(opts Options) (*Bridge, error) {
	if len(opts.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("bridge: client is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("bridge: events publisher is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Registry == nil {
		opts.Registry = device.NewRegistry()
	}
	if opts.ChangeBuffer <= 0 {
		opts.ChangeBuffer = DefaultChangeBuffer
	}

	b := &Bridge{
		opts:       opts,
		logger:     opts.Logger,
		registry:   opts.Registry,
		translator: zone.NewTranslator(),
		changes:    make(chan poller.Change, opts.ChangeBuffer),
		accounts:   make(map[string]*account, len(opts.Accounts)),
		infos:      make(map[int]zone.Info),
	}

	timeouts := make(map[string]time.Duration, len(opts.Accounts))
	for _, acc := range opts.Accounts {
		if _, dup := b.accounts[acc.Name]; dup {
			return nil, fmt.Errorf("bridge: duplicate account %q", acc.Name)
		}
		b.accounts[acc.Name] = b.newAccount(acc)
		b.names = append(b.names, acc.Name)
		timeouts[acc.Name] = time.Duration(acc.SetTimeout) * time.Second
	}
	sort.Strings(b.names)

	var observer command.Observer
	if opts.Observer != nil {
		observer = opts.Observer
	}
	b.encoder = command.NewEncoder(command.Config{
		Client:          opts.Client,
		Sessions:        sessions{b},
		Devices:         b.registry,
		Store:           b,
		Events:          opts.Events,
		Observer:        observer,
		Logger:          opts.Logger.With("component", "command"),
		AccountTimeouts: timeouts,
	})
	return b, nil
}

func (b *Bridge) newAccount(acc config.AccountConfig) *account {
	logger := b.logger.With("account", acc.Name)
	a := &account{cfg: acc, logger: logger}

	var persister session.Persister
	if b.opts.Store != nil {
		persister = b.opts.Store
	}

	a.session = session.NewManager(session.Config{
		Account: acc.Name,
		Credentials: melcloud.Credentials{
			Email:    acc.User,
			Password: acc.Password,
			Language: acc.Language,
		},
		UseFahrenheit:  acc.UseFahrenheit,
		ReconnectDelay: acc.GetReconnectDelay(),
		SettleDelay:    acc.GetSettleDelay(),
		LoginTimeout:   acc.GetLoginTimeout(),
		Client:         b.opts.Client,
		Tokens:         session.NewTokenStore(b.opts.BaseURL),
		Persister:      persister,
		Events:         b.opts.Events,
		Logger:         logger.With("component", "session"),
		OnConnected: func(context.Context, *session.Session) {
			a.directory.Trigger()
		},
		OnStateChange: b.observeState,
		OnLogin:       b.observeLogin,
	})

	a.poller = poller.New(poller.Config{
		Account:         acc.Name,
		Client:          b.opts.Client,
		Tokens:          a.session.Tokens(),
		Logger:          logger.With("component", "poller"),
		RefreshInterval: acc.GetRefreshInterval(),
		Changes:         b.changes,
		Invalidate:      a.session.Invalidate,
		OnPoll:          b.observePoll,
	})

	var dirPersister directory.Persister
	if b.opts.Store != nil {
		dirPersister = b.opts.Store
	}
	a.directory = directory.New(directory.Config{
		Account:        acc.Name,
		Client:         b.opts.Client,
		Tokens:         a.session.Tokens(),
		Persister:      dirPersister,
		Events:         b.opts.Events,
		Logger:         logger.With("component", "directory"),
		RescanInterval: acc.GetRescanInterval(),
		Invalidate:     a.session.Invalidate,
		OnDiscovered: func(ctx context.Context, d device.Descriptor, entry json.RawMessage) {
			b.discovered(ctx, a, d, entry)
		},
		OnRefreshed: func(_ context.Context, d device.Descriptor, entry json.RawMessage) {
			b.refreshed(a, d, entry)
		},
		OnScan: b.observeScan,
	})
	return a
}

// Run starts every account and the dispatcher and blocks until ctx is
// cancelled and all loops have exited.
func (b *Bridge) Run(ctx context.Context) error {
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		b.dispatch(ctx)
	}()

	for _, name := range b.names {
		a := b.accounts[name]
		b.wg.Add(2)
		go func() {
			defer b.wg.Done()
			_ = a.session.Run(ctx) //nolint:errcheck // Returns ctx.Err() only
		}()
		go func() {
			defer b.wg.Done()
			_ = a.directory.Run(ctx) //nolint:errcheck // Returns ctx.Err() only
		}()
		a.logger.Info("account started", "refresh_interval", a.cfg.GetRefreshInterval().String())
	}

	<-ctx.Done()
	b.wg.Wait()
	for _, name := range b.names {
		b.accounts[name].poller.Wait()
	}
	<-dispatchDone
	b.logger.Info("bridge stopped")
	return ctx.Err()
}

// Encoder returns the command encoder shared by all relays.
func (b *Bridge) Encoder() *command.Encoder {
	return b.encoder
}

// Registry returns the device registry.
func (b *Bridge) Registry() *device.Registry {
	return b.registry
}

// Accounts returns the configured account names, sorted.
func (b *Bridge) Accounts() []string {
	return append([]string(nil), b.names...)
}

// AccountState returns the session state of an account.
func (b *Bridge) AccountState(name string) (session.State, error) {
	a, ok := b.accounts[name]
	if !ok {
		return session.StateDisconnected, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return a.session.State(), nil
}

// Session returns the current session of an account, or nil when
// disconnected.
func (b *Bridge) Session(name string) (*session.Session, error) {
	a, ok := b.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return a.session.Tokens().Load(), nil
}

// SetTemperatureUnit changes an account's Fahrenheit preference.
func (b *Bridge) SetTemperatureUnit(ctx context.Context, name string, fahrenheit bool) error {
	a, ok := b.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return a.session.SetTemperatureUnit(ctx, fahrenheit)
}

// Rescan triggers an immediate device list scan for an account.
func (b *Bridge) Rescan(name string) error {
	a, ok := b.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	a.directory.Trigger()
	return nil
}

// Store routes an optimistic snapshot to the owning account's poller.
func (b *Bridge) Store(deviceID int, snap melcloud.Snapshot) {
	rec, err := b.registry.Get(deviceID)
	if err != nil {
		return
	}
	if a, ok := b.accounts[rec.AccountName]; ok {
		a.poller.Store(deviceID, snap)
	}
}

func (b *Bridge) discovered(ctx context.Context, a *account, d device.Descriptor, entry json.RawMessage) {
	b.registry.Upsert(d)
	_ = b.registry.SetEntry(d.DeviceID, entry) //nolint:errcheck // Upserted above

	ev := events.New(events.TypeDiscovered)
	ev.Account = d.AccountName
	ev.DeviceID = d.DeviceID
	ev.Message = d.String()
	ev.Data = d
	b.opts.Events.Publish(ev)

	a.poller.Start(ctx, d, entry)
}

func (b *Bridge) refreshed(a *account, d device.Descriptor, entry json.RawMessage) {
	b.registry.Upsert(d)
	_ = b.registry.SetEntry(d.DeviceID, entry) //nolint:errcheck // Upserted above
	a.poller.UpdateEntry(d, entry)
}

// dispatch is the single consumer of the change channel.
func (b *Bridge) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.changes:
			b.handle(c)
		}
	}
}

// handle translates one accepted snapshot and publishes the outcome.
func (b *Bridge) handle(c poller.Change) {
	d := c.Descriptor
	a, ok := b.accounts[d.AccountName]
	if !ok {
		return
	}

	b.registry.Upsert(d)
	_ = b.registry.SetSnapshot(d.DeviceID, c.Snapshot) //nolint:errcheck // Upserted above

	res, err := b.translator.Translate(d.DeviceID, d.Type, c.Snapshot, zoneOptions(a.cfg, d.DeviceID))
	if err != nil {
		_ = b.registry.SetError(d.DeviceID, err) //nolint:errcheck // Upserted above
		a.logger.Warn("translating device state failed", "device_id", d.DeviceID, "error", err)
		b.opts.Events.Publish(events.Error(d.AccountName, d.DeviceID, err))
		return
	}
	_ = b.registry.SetResult(d.DeviceID, res) //nolint:errcheck // Upserted above

	ev := events.New(events.TypeStateChanged)
	ev.Account = d.AccountName
	ev.DeviceID = d.DeviceID
	ev.Message = d.Name
	ev.Data = res
	if c.Optimistic {
		ev.Source = "command"
	}
	b.opts.Events.Publish(ev)

	for _, w := range res.Warnings {
		b.opts.Events.Publish(events.Warning(d.AccountName, d.DeviceID, w))
	}

	if prev, seen := b.infos[d.DeviceID]; !seen || prev != res.Info {
		b.infos[d.DeviceID] = res.Info
		info := events.New(events.TypeInfo)
		info.Account = d.AccountName
		info.DeviceID = d.DeviceID
		info.Message = d.Name
		info.Data = res.Info
		b.opts.Events.Publish(info)
	}
}

func (b *Bridge) observeState(account string, s session.State) {
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveSessionState(account, s)
	}
}

func (b *Bridge) observeLogin(account string, err error) {
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveLogin(account, err)
	}
}

func (b *Bridge) observeScan(account string, n int, err error) {
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveScan(account, n, err)
	}
}

func (b *Bridge) observePoll(account string, id int, changed bool, err error) {
	if b.opts.Observer != nil {
		b.opts.Observer.ObservePoll(account, id, changed, err)
	}
}

// sessions adapts the bridge's account table to command.Sessions.
type sessions struct{ b *Bridge }

func (s sessions) ContextKey(name string) (string, error) {
	a, ok := s.b.accounts[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return a.session.Tokens().ContextKey()
}

func (s sessions) Invalidate(name, reason string) {
	if a, ok := s.b.accounts[name]; ok {
		a.session.Invalidate(reason)
	}
}
