package snapshot

import (
	"context"
	"errors"
)

// Logger defines the logging interface used by Mirrored.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Mirrored writes to a primary store and copies every successful write to
// a secondary one. Reads come from the primary and fall back to the
// mirror on ErrNotFound.
type Mirrored struct {
	primary Store
	mirror  Store
	logger  Logger

	// OnMirrorError observes failed mirror writes.
	OnMirrorError func(key string, err error)
}

// NewMirrored layers mirror under primary. A nil logger discards warnings.
func NewMirrored(primary, mirror Store, logger Logger) *Mirrored {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Mirrored{primary: primary, mirror: mirror, logger: logger}
}

// Put stores the blob in the primary, then the mirror. Only primary
// failures are returned.
func (m *Mirrored) Put(ctx context.Context, key string, blob []byte) error {
	if err := m.primary.Put(ctx, key, blob); err != nil {
		return err
	}
	if err := m.mirror.Put(ctx, key, blob); err != nil {
		m.logger.Warn("snapshot mirror write failed", "key", key, "error", err)
		if m.OnMirrorError != nil {
			m.OnMirrorError(key, err)
		}
	}
	return nil
}

// Get reads the primary, then the mirror when the primary has no blob.
func (m *Mirrored) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := m.primary.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return m.mirror.Get(ctx, key)
	}
	return blob, err
}
