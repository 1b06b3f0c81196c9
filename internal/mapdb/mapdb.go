// Package mapdb stores grid snapshots and scan bookkeeping in SQLite.
package mapdb

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

// migrations holds the schema, applied with golang-migrate.
//
//go:embed migrations/*.sql
var migrationsEmbed embed.FS

// MigrationsFS returns the embedded migrations rooted at the migrations
// directory.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsEmbed, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// MapDB wraps the SQLite connection used for map persistence. It
// implements gridmap.SnapshotStore and mapper.ScanStore.
type MapDB struct {
	*sql.DB
	path string
}

// pragmas applied to every connection.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// OpenNoMigrate opens the database at path and applies connection pragmas
// without touching the schema.
func OpenNoMigrate(path string) (*MapDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas such as busy_timeout are per connection.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return &MapDB{DB: db, path: path}, nil
}

// Open opens the database at path and migrates it to the latest schema.
func Open(path string) (*MapDB, error) {
	db, err := OpenNoMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *MapDB) Path() string { return db.path }
