package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDatasets() (*DatasetsData, error)
	GetServerConfig() (*ServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Datasets  DatasetsData  `json:"datasets"`
	Server    ServerData    `json:"server"`
	Reload    ReloadData    `json:"reload"`
	Dashboard DashboardData `json:"dashboard"`
	Logging   LoggingData   `json:"logging"`
}

// DatasetsData holds the two dataset sources
type DatasetsData struct {
	Normal    SourceData `json:"normal"`
	Anomalies SourceData `json:"anomalies"`
}

// Source types
const (
	SourceHTTP        = "http"
	SourceFile        = "file"
	SourceTimescaleDB = "timescaledb"
)

// SourceData describes where one dataset is read from. For timescaledb
// sources Location holds the connection string and Table the table name.
type SourceData struct {
	Type           string `json:"type"`
	Location       string `json:"location"`
	Delimiter      string `json:"delimiter,omitempty"`
	Table          string `json:"table,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// ServerData holds the HTTP server configuration
type ServerData struct {
	ListenAddr string        `json:"listen_addr,omitempty"`
	Port       int           `json:"port,omitempty"`
	Cert       string        `json:"cert,omitempty"`
	Key        string        `json:"key,omitempty"`
	SessionTTL time.Duration `json:"session_ttl,omitempty"`
}

// ReloadData controls how datasets are refreshed after startup
type ReloadData struct {
	Schedule   string `json:"schedule,omitempty"`
	WatchFiles bool   `json:"watch_files"`
}

// DashboardData holds presentation settings
type DashboardData struct {
	PageTitle        string   `json:"page_title,omitempty"`
	RankingTopN      int      `json:"ranking_top_n,omitempty"`
	DefaultDate      string   `json:"default_date,omitempty"`
	Timezone         string   `json:"timezone,omitempty"`
	TimestampLayouts []string `json:"timestamp_layouts,omitempty"`
}

// LoggingData configures optional file logging
type LoggingData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// Defaults
const (
	DefaultListenAddr  = "0.0.0.0"
	DefaultPort        = 8080
	DefaultSessionTTL  = 12 * time.Hour
	DefaultPageTitle   = "Temperature, Humidity, Moisture & Gas Dashboard"
	DefaultRankingTopN = 20
	DefaultDate        = "2023-01-01"
	DefaultDelimiter   = ";"
	DefaultTimeout     = 30
)

// ApplyDefaults fills in every unset value
func (c *ConfigData) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Dashboard.PageTitle == "" {
		c.Dashboard.PageTitle = DefaultPageTitle
	}
	if c.Dashboard.RankingTopN <= 0 {
		c.Dashboard.RankingTopN = DefaultRankingTopN
	}
	if c.Dashboard.DefaultDate == "" {
		c.Dashboard.DefaultDate = DefaultDate
	}
	if c.Dashboard.Timezone == "" {
		c.Dashboard.Timezone = "UTC"
	}
	c.Datasets.Normal.applyDefaults()
	c.Datasets.Anomalies.applyDefaults()
}

func (s *SourceData) applyDefaults() {
	if s.Type == "" && s.Location != "" {
		s.Type = ParseSourceLocation(s.Location).Type
	}
	if s.Type == "https" {
		s.Type = SourceHTTP
	}
	if s.Delimiter == "" {
		s.Delimiter = DefaultDelimiter
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = DefaultTimeout
	}
}

// Validate checks the configuration for errors that would prevent startup
func (c *ConfigData) Validate() error {
	for name, src := range map[string]SourceData{"normal": c.Datasets.Normal, "anomalies": c.Datasets.Anomalies} {
		if src.Location == "" {
			return fmt.Errorf("datasets.%s.location is required", name)
		}
		switch src.Type {
		case SourceHTTP, SourceFile:
		case SourceTimescaleDB:
			if src.Table == "" {
				return fmt.Errorf("datasets.%s.table is required for timescaledb sources", name)
			}
		default:
			return fmt.Errorf("datasets.%s: unsupported source type %q", name, src.Type)
		}
		if len([]rune(src.Delimiter)) != 1 {
			return fmt.Errorf("datasets.%s: delimiter must be a single character", name)
		}
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	if _, err := time.Parse("2006-01-02", c.Dashboard.DefaultDate); err != nil {
		return fmt.Errorf("dashboard.default_date: %w", err)
	}
	return nil
}

// ParseSourceLocation infers a source type from a bare location string
func ParseSourceLocation(location string) SourceData {
	src := SourceData{Location: location}
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		src.Type = SourceHTTP
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		src.Type = SourceTimescaleDB
	default:
		src.Type = SourceFile
	}
	return src
}
