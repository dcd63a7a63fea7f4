package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/melcloud-bridge/internal/infrastructure/database"
)

// Store saves and loads raw blobs by key.
type Store interface {
	Put(ctx context.Context, key string, blob []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// AccountKey names the login response blob of an account.
func AccountKey(account string) string { return account + "_Account" }

// BuildingsKey names the device list blob of an account.
func BuildingsKey(account string) string { return account + "_Buildings" }

// DeviceKey names the list entry blob of one device.
func DeviceKey(account string, deviceID int) string {
	return account + "_Device_" + strconv.Itoa(deviceID)
}

// Entry is a stored blob's metadata.
type Entry struct {
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteStore keeps blobs in the snapshots table.
type SQLiteStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLiteStore returns a store on an opened and migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Put upserts the blob for key.
func (s *SQLiteStore) Put(ctx context.Context, key string, blob []byte) error {
	if key == "" {
		return fmt.Errorf("storing snapshot: empty key")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, body, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, key, blob, len(blob), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing snapshot %s: %w", key, err)
	}
	return nil
}

// Get returns the blob for key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM snapshots WHERE key = ?", key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return blob, nil
}

// List returns the metadata of every stored blob whose key starts with
// prefix, ordered by key.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, size, updated_at FROM snapshots WHERE substr(key, 1, ?) = ? ORDER BY key",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Key, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated) //nolint:errcheck // Written by Put
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return entries, nil
}
