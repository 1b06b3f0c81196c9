package mapdb

import (
	"io/fs"
	"testing"

	"github.com/banshee-data/gridmap2d/internal/testutil"
)

func newTestDB(t *testing.T) *MapDB {
	t.Helper()
	db, err := Open(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *MapDB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func TestEmbeddedMigrationsFS(t *testing.T) {
	entries, err := fs.ReadDir(MigrationsFS(), ".")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 migration files, got %d", len(entries))
	}

	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("Expected latest version 2, got %d", latest)
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"map_snapshot", "map_scan", "schema_migrations"} {
		if !tableExists(t, db, name) {
			t.Errorf("Expected table %s to exist", name)
		}
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Expected version 2 clean, got %d dirty=%v", version, dirty)
	}

	// A second MigrateUp is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Errorf("Repeated MigrateUp failed: %v", err)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}
}

func TestOpenNoMigrate_LeavesSchemaEmpty(t *testing.T) {
	db, err := OpenNoMigrate(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("OpenNoMigrate failed: %v", err)
	}
	defer db.Close()

	if tableExists(t, db, "map_snapshot") {
		t.Error("OpenNoMigrate should not create map tables")
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected version 0 before migrating, got %d", version)
	}
}

func TestMigrateDownAndTo(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	if tableExists(t, db, "map_scan") {
		t.Error("Expected map_scan to be dropped after one step down")
	}
	if !tableExists(t, db, "map_snapshot") {
		t.Error("Expected map_snapshot to survive one step down")
	}
	version, _, _ := db.MigrateVersion()
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}

	if err := db.MigrateTo(2); err != nil {
		t.Fatalf("MigrateTo(2) failed: %v", err)
	}
	if !tableExists(t, db, "map_scan") {
		t.Error("Expected map_scan after migrating back to 2")
	}
}

func TestMigrateForce(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateForce(1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected forced version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestPath(t *testing.T) {
	path := testutil.TempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}
