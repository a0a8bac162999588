// Package migrate applies numbered SQL migrations to a database.
package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
}

var upRegex = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// LoadMigrations reads every NNN_name.up.sql file in the root of fsys
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := upRegex.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.ReplaceAll(matches[2], "_", " "),
			Up:      string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Migrator handles the execution of migrations
type Migrator struct {
	db             *sql.DB
	migrations     []Migration
	migrationTable string
}

// NewMigrator creates a new migrator for a SQLite database
func NewMigrator(db *sql.DB, migrations []Migration) *Migrator {
	return &Migrator{
		db:             db,
		migrations:     migrations,
		migrationTable: "schema_migrations",
	}
}

// MigrateUp runs all pending migrations and returns the number applied
func (m *Migrator) MigrateUp() (int, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}
		if err := m.apply(migration); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		applied++
	}

	return applied, nil
}

// CurrentVersion returns the highest applied migration version
func (m *Migrator) CurrentVersion() (int, error) {
	_, err := m.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, m.migrationTable))
	if err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}

	var version int
	err = m.db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.migrationTable)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

func (m *Migrator) apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)", m.migrationTable)
	if _, err := tx.Exec(query, migration.Version); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}

	return tx.Commit()
}
