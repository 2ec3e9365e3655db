// Package db implements SQLite-backed storage for the sensor registry,
// raw readings and rollup caches.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB handle so storage methods hang off one type.
type DB struct {
	*sql.DB
	path string
}

// Open opens (or creates) the database at path and applies connection
// pragmas. It does not create or migrate the schema; see MigrateUp and
// EnsureSchema.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	// WAL keeps readers from blocking the ingest writers; the busy timeout
	// covers the brief writer contention that remains.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{DB: handle, path: path}, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string { return db.path }

// EnsureSchema opens the database and brings the schema to the latest
// migration version. This is the normal startup path; the migrate CLI offers
// finer control.
func EnsureSchema(path string) (*DB, error) {
	database, err := Open(path)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		database.Close()
		return nil, err
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return database, nil
}
