package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/chrissnell/sensordash/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Migrate brings the configuration schema up to date
func (s *SQLiteProvider) Migrate() (int, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return 0, err
	}
	migrations, err := migrate.LoadMigrations(sub)
	if err != nil {
		return 0, err
	}
	return migrate.NewMigrator(s.db, migrations).MigrateUp()
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	datasets, err := s.GetDatasets()
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	config.Datasets = *datasets

	server, err := s.GetServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	config.Server = *server

	if err := s.loadReload(&config.Reload); err != nil {
		return nil, fmt.Errorf("failed to load reload config: %w", err)
	}
	if err := s.loadDashboard(&config.Dashboard); err != nil {
		return nil, fmt.Errorf("failed to load dashboard config: %w", err)
	}
	if err := s.loadLogging(&config.Logging); err != nil {
		return nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return config, nil
}

// GetDatasets returns both dataset sources from the database
func (s *SQLiteProvider) GetDatasets() (*DatasetsData, error) {
	rows, err := s.db.Query(`SELECT kind, type, location, delimiter, table_name, timeout_seconds FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := &DatasetsData{}
	for rows.Next() {
		var kind string
		var src SourceData
		var delimiter, table sql.NullString
		var timeout sql.NullInt64

		if err := rows.Scan(&kind, &src.Type, &src.Location, &delimiter, &table, &timeout); err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		if delimiter.Valid {
			src.Delimiter = delimiter.String
		}
		if table.Valid {
			src.Table = table.String
		}
		if timeout.Valid {
			src.TimeoutSeconds = int(timeout.Int64)
		}

		switch kind {
		case "normal":
			datasets.Normal = src
		case "anomalies":
			datasets.Anomalies = src
		}
	}

	return datasets, rows.Err()
}

// GetServerConfig returns the HTTP server configuration from the database
func (s *SQLiteProvider) GetServerConfig() (*ServerData, error) {
	server := &ServerData{}
	var listenAddr, cert, key, ttl sql.NullString
	var port sql.NullInt64

	err := s.db.QueryRow(`SELECT listen_addr, port, cert, key, session_ttl FROM server_config WHERE id = 1`).
		Scan(&listenAddr, &port, &cert, &key, &ttl)
	if errors.Is(err, sql.ErrNoRows) {
		return server, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server config: %w", err)
	}

	server.ListenAddr = listenAddr.String
	server.Port = int(port.Int64)
	server.Cert = cert.String
	server.Key = key.String
	if ttl.Valid && ttl.String != "" {
		d, err := time.ParseDuration(ttl.String)
		if err != nil {
			return nil, fmt.Errorf("invalid session_ttl %q: %w", ttl.String, err)
		}
		server.SessionTTL = d
	}

	return server, nil
}

func (s *SQLiteProvider) loadReload(r *ReloadData) error {
	var schedule sql.NullString
	var watch sql.NullInt64
	err := s.db.QueryRow(`SELECT schedule, watch_files FROM reload_config WHERE id = 1`).Scan(&schedule, &watch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	r.Schedule = schedule.String
	r.WatchFiles = watch.Int64 != 0
	return nil
}

func (s *SQLiteProvider) loadDashboard(d *DashboardData) error {
	var title, defaultDate, tz, layouts sql.NullString
	var topN sql.NullInt64
	err := s.db.QueryRow(`SELECT page_title, ranking_top_n, default_date, timezone, timestamp_layouts FROM dashboard_config WHERE id = 1`).
		Scan(&title, &topN, &defaultDate, &tz, &layouts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	d.PageTitle = title.String
	d.RankingTopN = int(topN.Int64)
	d.DefaultDate = defaultDate.String
	d.Timezone = tz.String
	if layouts.Valid && layouts.String != "" {
		d.TimestampLayouts = strings.Split(layouts.String, "\n")
	}
	return nil
}

func (s *SQLiteProvider) loadLogging(l *LoggingData) error {
	var file sql.NullString
	var size, backups, age sql.NullInt64
	err := s.db.QueryRow(`SELECT file, max_size_mb, max_backups, max_age_days FROM logging_config WHERE id = 1`).
		Scan(&file, &size, &backups, &age)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	l.File = file.String
	l.MaxSizeMB = int(size.Int64)
	l.MaxBackups = int(backups.Int64)
	l.MaxAgeDays = int(age.Int64)
	return nil
}

// IsReadOnly reports false; SaveConfig can write to the database
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM datasets",
		"DELETE FROM server_config",
		"DELETE FROM reload_config",
		"DELETE FROM dashboard_config",
		"DELETE FROM logging_config",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to clear existing config: %w", err)
		}
	}

	for kind, src := range map[string]SourceData{"normal": configData.Datasets.Normal, "anomalies": configData.Datasets.Anomalies} {
		if src.Location == "" {
			continue
		}
		_, err := tx.Exec(`INSERT INTO datasets (kind, type, location, delimiter, table_name, timeout_seconds) VALUES (?, ?, ?, ?, ?, ?)`,
			kind, src.Type, src.Location, nullString(src.Delimiter), nullString(src.Table), nullInt(src.TimeoutSeconds))
		if err != nil {
			return fmt.Errorf("failed to insert dataset %s: %w", kind, err)
		}
	}

	srv := configData.Server
	var ttl string
	if srv.SessionTTL > 0 {
		ttl = srv.SessionTTL.String()
	}
	if _, err := tx.Exec(`INSERT INTO server_config (id, listen_addr, port, cert, key, session_ttl) VALUES (1, ?, ?, ?, ?, ?)`,
		nullString(srv.ListenAddr), nullInt(srv.Port), nullString(srv.Cert), nullString(srv.Key), nullString(ttl)); err != nil {
		return fmt.Errorf("failed to insert server config: %w", err)
	}

	watch := 0
	if configData.Reload.WatchFiles {
		watch = 1
	}
	if _, err := tx.Exec(`INSERT INTO reload_config (id, schedule, watch_files) VALUES (1, ?, ?)`,
		nullString(configData.Reload.Schedule), watch); err != nil {
		return fmt.Errorf("failed to insert reload config: %w", err)
	}

	d := configData.Dashboard
	if _, err := tx.Exec(`INSERT INTO dashboard_config (id, page_title, ranking_top_n, default_date, timezone, timestamp_layouts) VALUES (1, ?, ?, ?, ?, ?)`,
		nullString(d.PageTitle), nullInt(d.RankingTopN), nullString(d.DefaultDate), nullString(d.Timezone),
		nullString(strings.Join(d.TimestampLayouts, "\n"))); err != nil {
		return fmt.Errorf("failed to insert dashboard config: %w", err)
	}

	l := configData.Logging
	if _, err := tx.Exec(`INSERT INTO logging_config (id, file, max_size_mb, max_backups, max_age_days) VALUES (1, ?, ?, ?, ?)`,
		nullString(l.File), nullInt(l.MaxSizeMB), nullInt(l.MaxBackups), nullInt(l.MaxAgeDays)); err != nil {
		return fmt.Errorf("failed to insert logging config: %w", err)
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}
