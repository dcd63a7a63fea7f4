// Package database provides the SQLite connection used for snapshot blobs.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded, versioned migrations
//   - Connection lifecycle and health checks
//
// Migrations are files named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each is applied in its own transaction and
// recorded in schema_migrations.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/melbridge.db", WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
