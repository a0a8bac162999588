package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// ConfigYAML mirrors ConfigData with the on-disk key names
type ConfigYAML struct {
	Datasets struct {
		Normal    SourceYAML `yaml:"normal"`
		Anomalies SourceYAML `yaml:"anomalies"`
	} `yaml:"datasets"`
	Server    ServerYAML    `yaml:"server,omitempty"`
	Reload    ReloadYAML    `yaml:"reload,omitempty"`
	Dashboard DashboardYAML `yaml:"dashboard,omitempty"`
	Logging   LoggingYAML   `yaml:"logging,omitempty"`
}

type SourceYAML struct {
	Type           string `yaml:"type,omitempty"`
	Location       string `yaml:"location"`
	Delimiter      string `yaml:"delimiter,omitempty"`
	Table          string `yaml:"table,omitempty"`
	TimeoutSeconds int    `yaml:"timeout-seconds,omitempty"`
}

type ServerYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	SessionTTL string `yaml:"session-ttl,omitempty"`
}

type ReloadYAML struct {
	Schedule   string `yaml:"schedule,omitempty"`
	WatchFiles bool   `yaml:"watch-files,omitempty"`
}

type DashboardYAML struct {
	PageTitle        string   `yaml:"page-title,omitempty"`
	RankingTopN      int      `yaml:"ranking-top-n,omitempty"`
	DefaultDate      string   `yaml:"default-date,omitempty"`
	Timezone         string   `yaml:"timezone,omitempty"`
	TimestampLayouts []string `yaml:"timestamp-layouts,omitempty"`
}

type LoggingYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig ConfigYAML
	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, err
	}

	config, err := yamlConfig.toConfigData()
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func (yc *ConfigYAML) toConfigData() (*ConfigData, error) {
	config := &ConfigData{
		Datasets: DatasetsData{
			Normal:    yc.Datasets.Normal.toSourceData(),
			Anomalies: yc.Datasets.Anomalies.toSourceData(),
		},
		Server: ServerData{
			ListenAddr: yc.Server.ListenAddr,
			Port:       yc.Server.Port,
			Cert:       yc.Server.Cert,
			Key:        yc.Server.Key,
		},
		Reload: ReloadData{
			Schedule:   yc.Reload.Schedule,
			WatchFiles: yc.Reload.WatchFiles,
		},
		Dashboard: DashboardData{
			PageTitle:        yc.Dashboard.PageTitle,
			RankingTopN:      yc.Dashboard.RankingTopN,
			DefaultDate:      yc.Dashboard.DefaultDate,
			Timezone:         yc.Dashboard.Timezone,
			TimestampLayouts: yc.Dashboard.TimestampLayouts,
		},
		Logging: LoggingData{
			File:       yc.Logging.File,
			MaxSizeMB:  yc.Logging.MaxSizeMB,
			MaxBackups: yc.Logging.MaxBackups,
			MaxAgeDays: yc.Logging.MaxAgeDays,
		},
	}

	if yc.Server.SessionTTL != "" {
		ttl, err := time.ParseDuration(yc.Server.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid server.session-ttl %q: %w", yc.Server.SessionTTL, err)
		}
		config.Server.SessionTTL = ttl
	}

	return config, nil
}

func (s SourceYAML) toSourceData() SourceData {
	return SourceData{
		Type:           s.Type,
		Location:       s.Location,
		Delimiter:      s.Delimiter,
		Table:          s.Table,
		TimeoutSeconds: s.TimeoutSeconds,
	}
}

// GetDatasets returns the dataset source configuration
func (y *YAMLProvider) GetDatasets() (*DatasetsData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Datasets, nil
}

// GetServerConfig returns the HTTP server configuration
func (y *YAMLProvider) GetServerConfig() (*ServerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Server, nil
}

// IsReadOnly returns true since YAML files are treated as read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
