package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/events"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/snapshot"
)

// DefaultRescanInterval is the delay between scans.
const DefaultRescanInterval = 90 * time.Second

// Logger defines the logging interface used by the Directory.
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

// Client lists an account's devices. *melcloud.Client implements it.
type Client interface {
	ListDevices(ctx context.Context, contextKey string) ([]melcloud.Building, json.RawMessage, error)
}

// Tokens supplies the current context key. *session.TokenStore implements it.
type Tokens interface {
	ContextKey() (string, error)
}

// Persister stores raw response blobs.
type Persister interface {
	Put(ctx context.Context, key string, blob []byte) error
}

// Config wires a Directory for one account.
type Config struct {
	Account        string
	Client         Client
	Tokens         Tokens
	Persister      Persister
	Events         events.Publisher
	Logger         Logger
	RescanInterval time.Duration

	// Invalidate is called when the server rejects the session.
	Invalidate func(reason string)

	// OnDiscovered runs once per device per process.
	OnDiscovered func(ctx context.Context, d device.Descriptor, entry json.RawMessage)

	// OnRefreshed runs for devices already discovered.
	OnRefreshed func(ctx context.Context, d device.Descriptor, entry json.RawMessage)

	// OnScan observes every scan.
	OnScan func(account string, devices int, err error)
}

// Directory enumerates one account's devices.
//
// Thread Safety: Scan, Trigger and Seen are safe for concurrent use; Run
// must be called once.
type Directory struct {
	cfg     Config
	logger  Logger
	trigger chan struct{}

	scanMu sync.Mutex
	seenMu sync.RWMutex
	seen   map[int]struct{}
}

// New creates a directory.
func New(cfg Config) *Directory {
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = DefaultRescanInterval
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &Directory{
		cfg:     cfg,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		seen:    make(map[int]struct{}),
	}
}

// Trigger requests a scan as soon as possible.
func (d *Directory) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Seen reports whether a device id has been announced.
func (d *Directory) Seen(id int) bool {
	d.seenMu.RLock()
	defer d.seenMu.RUnlock()
	_, ok := d.seen[id]
	return ok
}

// Run scans on every Trigger and every rescan interval until ctx is
// cancelled. Scan failures are logged and retried on the next interval.
func (d *Directory) Run(ctx context.Context) error {
	timer := time.NewTimer(d.cfg.RescanInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.trigger:
		case <-timer.C:
		}

		if _, err := d.Scan(ctx); err != nil && ctx.Err() == nil {
			if errors.Is(err, errNotConnected) {
				d.logger.Debug("scan skipped, not connected")
			} else {
				d.logger.Error("device scan failed", "error", err, "retry_in", d.cfg.RescanInterval.String())
				d.cfg.Events.Publish(events.Error(d.cfg.Account, 0, err))
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.cfg.RescanInterval)
	}
}

var errNotConnected = errors.New("directory: no session")

// Scan lists the account's devices once and announces them.
//
// Returns the flattened entries of this scan.
func (d *Directory) Scan(ctx context.Context) ([]Found, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	found, err := d.scan(ctx)
	if d.cfg.OnScan != nil {
		d.cfg.OnScan(d.cfg.Account, len(found), err)
	}
	return found, err
}

func (d *Directory) scan(ctx context.Context) ([]Found, error) {
	key, err := d.cfg.Tokens.ContextKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotConnected, err)
	}

	buildings, raw, err := d.cfg.Client.ListDevices(ctx, key)
	if err != nil {
		if errors.Is(err, melcloud.ErrAuth) && d.cfg.Invalidate != nil {
			d.cfg.Invalidate("list devices rejected")
		}
		return nil, err
	}

	d.persist(ctx, snapshot.BuildingsKey(d.cfg.Account), raw)

	found, skipped := Flatten(d.cfg.Account, buildings)
	for _, err := range skipped {
		d.logger.Warn("skipping device entry", "error", err)
	}
	d.logger.Debug("devices listed", "buildings", len(buildings), "devices", len(found))

	for _, f := range found {
		id := f.Descriptor.DeviceID
		d.persist(ctx, snapshot.DeviceKey(d.cfg.Account, id), f.Entry)

		d.seenMu.Lock()
		_, known := d.seen[id]
		d.seen[id] = struct{}{}
		d.seenMu.Unlock()

		if !known {
			d.logger.Info("device discovered",
				"device_id", id,
				"type", f.Descriptor.Type.String(),
				"name", f.Descriptor.Name,
			)
			if d.cfg.OnDiscovered != nil {
				d.cfg.OnDiscovered(ctx, f.Descriptor, f.Entry)
			}
			continue
		}
		if d.cfg.OnRefreshed != nil {
			d.cfg.OnRefreshed(ctx, f.Descriptor, f.Entry)
		}
	}
	return found, nil
}

func (d *Directory) persist(ctx context.Context, key string, raw []byte) {
	if d.cfg.Persister == nil {
		return
	}
	if err := d.cfg.Persister.Put(ctx, key, melcloud.Pretty(raw)); err != nil {
		d.logger.Warn("saving snapshot failed", "key", key, "error", err)
	}
}
