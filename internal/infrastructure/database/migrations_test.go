package database

import (
	"context"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"20261014_120000_blobs.up.sql":   {Data: []byte("CREATE TABLE test_blobs (key TEXT PRIMARY KEY, body BLOB NOT NULL);")},
	"20261014_120000_blobs.down.sql": {Data: []byte("DROP TABLE test_blobs;")},
	"README.md":                      {Data: []byte("not a migration")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_blobs") {
		t.Fatal("table test_blobs not created")
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d, want 1, 0", len(applied), len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "test_blobs") {
		t.Error("table test_blobs should have been dropped")
	}

	applied, _, err := db.MigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %d after rollback, want 0", len(applied))
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, testMigrations); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(context.Background(), fstest.MapFS{}); err != nil {
		t.Fatalf("Migrate(empty) error = %v", err)
	}
}

func TestLoadMigrations_DownWithoutUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20261014_130000_orphan.down.sql": {Data: []byte("DROP TABLE x;")},
	}
	if _, err := LoadMigrations(fsys); err == nil {
		t.Error("LoadMigrations() should reject a down migration without up SQL")
	}
}

func TestLoadMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"20261015_000000_second.up.sql": {Data: []byte("SELECT 2;")},
		"20261014_000000_first.up.sql":  {Data: []byte("SELECT 1;")},
	}
	got, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "first" || got[1].Name != "second" {
		t.Errorf("LoadMigrations() = %+v, want first then second", got)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"up", "20261014_120000_snapshots.up.sql", "20261014_120000", true, true},
		{"down", "20261014_120000_snapshots.down.sql", "20261014_120000", false, true},
		{"not sql", "readme.txt", "", false, false},
		{"missing direction", "20261014_120000_snapshots.sql", "", false, false},
		{"no version", "invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("parseMigrationFilename(%q) = %q, %v, want %q, %v", tt.filename, version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261014_120000_snapshots.up.sql", "snapshots"},
		{"20261014_120000_snapshot_index.down.sql", "snapshot_index"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
