package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.up.sql":      {Data: []byte("CREATE INDEX idx_t ON t (a);")},
		"001_initial_schema.up.sql": {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"README.md":                 {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "initial schema" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 {
		t.Errorf("expected version 2 second, got %d", migrations[1].Version)
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	migrations := []Migration{
		{Version: 1, Name: "initial", Up: "CREATE TABLE t (a INTEGER);"},
		{Version: 2, Name: "seed", Up: "INSERT INTO t (a) VALUES (7);"},
	}
	m := NewMigrator(db, migrations)

	applied, err := m.MigrateUp()
	if err != nil {
		t.Fatalf("first MigrateUp: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 applied, got %d", applied)
	}

	applied, err = m.MigrateUp()
	if err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected 0 applied on rerun, got %d", applied)
	}

	version, err := m.CurrentVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected seed row applied once, got %d rows", count)
	}
}
