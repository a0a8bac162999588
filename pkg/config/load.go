package config

import (
	"fmt"
	"path/filepath"
)

// Configuration backends
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// NewProvider opens the configuration source at path with the named backend
func NewProvider(path, backend string) (ConfigProvider, error) {
	filename, _ := filepath.Abs(path)

	switch backend {
	case BackendYAML, "":
		return NewYAMLProvider(filename), nil
	case BackendSQLite:
		provider, err := NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	}
	return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", backend)
}

// Load reads the configuration, applies environment overrides and defaults,
// and validates the result. It also returns the environment variables that
// were applied.
func Load(path, backend string) (*ConfigData, []string, error) {
	provider, err := NewProvider(path, backend)
	if err != nil {
		return nil, nil, err
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	applied, err := ApplyEnvOverrides(cfg)
	if err != nil {
		return nil, applied, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, applied, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, applied, nil
}
