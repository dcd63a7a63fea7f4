package device

import (
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/zone"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds a Record per device id.
//
// Writers are the bridge dispatcher and the command encoder; readers are the
// relays. All public methods are thread-safe and every returned record is a
// deep copy.
type Registry struct {
	cache   map[int]*Record
	cacheMu sync.RWMutex
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		cache:  make(map[int]*Record),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Upsert adds a descriptor or refreshes an existing one.
//
// Returns true when the device was not known before.
func (r *Registry) Upsert(desc Descriptor) bool {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if rec, ok := r.cache[desc.DeviceID]; ok {
		rec.Descriptor = desc
		return false
	}

	r.cache[desc.DeviceID] = &Record{
		Descriptor:   desc,
		HealthStatus: HealthStatusUnknown,
		DiscoveredAt: r.now(),
	}
	r.logger.Info("device registered", "device_id", desc.DeviceID, "type", desc.Type.String(), "name", desc.Name)
	return true
}

// SetSnapshot stores the last accepted snapshot for a device.
func (r *Registry) SetSnapshot(id int, snap melcloud.Snapshot) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	rec, ok := r.cache[id]
	if !ok {
		return ErrDeviceNotFound
	}
	rec.Snapshot = snap.Clone()
	return nil
}

// SetEntry replaces only the list-endpoint entry of a device's snapshot.
func (r *Registry) SetEntry(id int, entry []byte) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	rec, ok := r.cache[id]
	if !ok {
		return ErrDeviceNotFound
	}
	rec.Snapshot.Entry = append([]byte(nil), entry...)
	return nil
}

// SetResult stores a translation and marks the device online or offline
// according to the vendor's Offline flag.
func (r *Registry) SetResult(id int, res zone.Result) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	rec, ok := r.cache[id]
	if !ok {
		return ErrDeviceNotFound
	}
	c := copyResult(res)
	rec.Result = &c
	now := r.now()
	rec.StateUpdatedAt = &now
	rec.LastError = ""
	if res.Offline {
		rec.HealthStatus = HealthStatusOffline
	} else {
		rec.HealthStatus = HealthStatusOnline
	}
	return nil
}

// SetError records the last failure seen for a device.
func (r *Registry) SetError(id int, err error) error {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	rec, ok := r.cache[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if err == nil {
		rec.LastError = ""
		return nil
	}
	rec.LastError = err.Error()
	return nil
}

// Get retrieves a device by id.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Get(id int) (*Record, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	rec, ok := r.cache[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return rec.DeepCopy(), nil
}

// Snapshot returns the stored snapshot of a device.
// Returns ErrNoState if nothing has been polled yet.
func (r *Registry) Snapshot(id int) (melcloud.Snapshot, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	rec, ok := r.cache[id]
	if !ok {
		return melcloud.Snapshot{}, ErrDeviceNotFound
	}
	if len(rec.Snapshot.State) == 0 {
		return melcloud.Snapshot{}, ErrNoState
	}
	return rec.Snapshot.Clone(), nil
}

// List returns all devices ordered by device id.
func (r *Registry) List() []Record {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Record, 0, len(r.cache))
	for _, rec := range r.cache {
		out = append(out, *rec.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// ListByAccount returns the devices of one account ordered by device id.
func (r *Registry) ListByAccount(account string) []Record {
	all := r.List()
	out := all[:0]
	for _, rec := range all {
		if rec.AccountName == account {
			out = append(out, rec)
		}
	}
	return out
}

// FindBySlug looks a device up by its Descriptor.Slug().
func (r *Registry) FindBySlug(slug string) (*Record, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, rec := range r.cache {
		if rec.Slug() == slug {
			return rec.DeepCopy(), nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices   int                  `json:"total_devices"`
	ByType         map[string]int       `json:"by_type"`
	ByAccount      map[string]int       `json:"by_account"`
	ByHealthStatus map[HealthStatus]int `json:"by_health_status"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices:   len(r.cache),
		ByType:         make(map[string]int),
		ByAccount:      make(map[string]int),
		ByHealthStatus: make(map[HealthStatus]int),
	}

	for _, rec := range r.cache {
		stats.ByType[rec.Type.Slug()]++
		stats.ByAccount[rec.AccountName]++
		stats.ByHealthStatus[rec.HealthStatus]++
	}

	return stats
}
