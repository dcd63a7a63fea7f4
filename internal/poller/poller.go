package poller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

// Default timings.
const (
	DefaultRefreshInterval = 120 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
)

// Logger defines the logging interface used by the Poller.
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

// Client fetches device state. *melcloud.Client implements it.
type Client interface {
	GetDevice(ctx context.Context, contextKey string, deviceID, buildingID int) (json.RawMessage, error)
}

// Tokens supplies the current context key. *session.TokenStore implements it.
type Tokens interface {
	ContextKey() (string, error)
}

// Change is a snapshot that differs from the previously stored one.
type Change struct {
	Descriptor device.Descriptor
	Snapshot   melcloud.Snapshot

	// Optimistic is set for snapshots stored after a command rather than
	// fetched from the cloud.
	Optimistic bool
}

// Config wires a Poller for one account.
type Config struct {
	Account         string
	Client          Client
	Tokens          Tokens
	Logger          Logger
	RefreshInterval time.Duration
	RequestTimeout  time.Duration

	// Changes receives every accepted snapshot. It should be buffered.
	Changes chan<- Change

	// Invalidate is called when the server rejects the session.
	Invalidate func(reason string)

	// OnPoll observes every completed cycle.
	OnPoll func(account string, deviceID int, changed bool, err error)
}

// Poller runs one polling loop per device.
//
// Thread Safety: all methods are safe for concurrent use.
type Poller struct {
	cfg    Config
	logger Logger

	mu      sync.Mutex
	workers map[int]*worker
	wg      sync.WaitGroup
}

type worker struct {
	// mu serializes a cycle's compare-and-store with Store and UpdateEntry.
	mu    sync.Mutex
	desc  device.Descriptor
	entry json.RawMessage
	snap  melcloud.Snapshot
	done  <-chan struct{}
}

// New creates a poller.
func New(cfg Config) *Poller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	var logger Logger = noopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	return &Poller{
		cfg:     cfg,
		logger:  logger,
		workers: make(map[int]*worker),
	}
}

// Start begins polling a device. Starting a device that is already polled
// only replaces its entry. The loop stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context, desc device.Descriptor, entry json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.workers[desc.DeviceID]; ok {
		p.updateEntryLocked(desc, entry)
		return
	}
	w := &worker{
		desc:  desc,
		entry: append(json.RawMessage(nil), entry...),
		done:  ctx.Done(),
	}
	p.workers[desc.DeviceID] = w

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx, w)
	}()
	p.logger.Debug("polling started", "device_id", desc.DeviceID, "interval", p.cfg.RefreshInterval.String())
}

// UpdateEntry swaps in a new directory entry for a polled device. The next
// cycle compares against it, so a capability change is emitted even when
// the state body is unchanged.
func (p *Poller) UpdateEntry(desc device.Descriptor, entry json.RawMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateEntryLocked(desc, entry)
}

func (p *Poller) updateEntryLocked(desc device.Descriptor, entry json.RawMessage) bool {
	w, ok := p.workers[desc.DeviceID]
	if !ok {
		return false
	}
	w.mu.Lock()
	w.desc = desc
	w.entry = append(json.RawMessage(nil), entry...)
	w.mu.Unlock()
	return true
}

// Store replaces a device's snapshot with one patched by a command and
// forwards it as an optimistic Change.
func (p *Poller) Store(deviceID int, snap melcloud.Snapshot) {
	w := p.worker(deviceID)
	if w == nil {
		return
	}
	w.mu.Lock()
	w.snap = snap.Clone()
	if len(snap.Entry) > 0 {
		w.entry = append(json.RawMessage(nil), snap.Entry...)
	}
	change := Change{Descriptor: w.desc, Snapshot: w.snap.Clone(), Optimistic: true}
	w.mu.Unlock()

	p.emit(w.done, change)
}

// Snapshot returns the stored snapshot of a device.
func (p *Poller) Snapshot(deviceID int) (melcloud.Snapshot, bool) {
	w := p.worker(deviceID)
	if w == nil {
		return melcloud.Snapshot{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.snap.State) == 0 {
		return melcloud.Snapshot{}, false
	}
	return w.snap.Clone(), true
}

// Count returns the number of polled devices.
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Wait blocks until every loop has exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) worker(id int) *worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers[id]
}

func (p *Poller) loop(ctx context.Context, w *worker) {
	for {
		p.cycle(ctx, w)

		t := time.NewTimer(p.cfg.RefreshInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// cycle performs one fetch-compare-emit pass.
func (p *Poller) cycle(ctx context.Context, w *worker) {
	w.mu.Lock()
	desc := w.desc
	w.mu.Unlock()

	changed, err := p.fetch(ctx, w, desc)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Warn("device poll failed", "device_id", desc.DeviceID, "error", err)
	}
	if p.cfg.OnPoll != nil {
		p.cfg.OnPoll(p.cfg.Account, desc.DeviceID, changed, err)
	}
}

func (p *Poller) fetch(ctx context.Context, w *worker, desc device.Descriptor) (bool, error) {
	key, err := p.cfg.Tokens.ContextKey()
	if err != nil {
		return false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	raw, err := p.cfg.Client.GetDevice(reqCtx, key, desc.DeviceID, desc.BuildingID)
	if err != nil {
		if errors.Is(err, melcloud.ErrAuth) && p.cfg.Invalidate != nil {
			p.cfg.Invalidate("device poll rejected")
		}
		return false, err
	}

	w.mu.Lock()
	next := melcloud.Snapshot{
		Entry: append(json.RawMessage(nil), w.entry...),
		State: raw,
	}
	if next.Equal(w.snap) {
		w.mu.Unlock()
		return false, nil
	}
	w.snap = next
	change := Change{Descriptor: w.desc, Snapshot: next.Clone()}
	w.mu.Unlock()

	p.emit(ctx.Done(), change)
	return true, nil
}

func (p *Poller) emit(done <-chan struct{}, c Change) {
	if p.cfg.Changes == nil {
		return
	}
	select {
	case p.cfg.Changes <- c:
	case <-done:
	}
}
