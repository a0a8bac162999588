package config

import (
	"testing"
)

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleYAML)
	t.Setenv(EnvPort, "7070")

	cfg, applied, err := Load(path, BackendYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port override, got %d", cfg.Server.Port)
	}
	if cfg.Datasets.Normal.Type != SourceHTTP || cfg.Datasets.Normal.Delimiter != ";" {
		t.Errorf("expected defaults on normal source, got %+v", cfg.Datasets.Normal)
	}
	found := false
	for _, a := range applied {
		if a == EnvPort {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in applied overrides, got %v", EnvPort, applied)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, _, err := Load("config.toml", "toml"); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, _, err := Load("/nonexistent/config.yaml", BackendYAML); err == nil {
		t.Error("expected error for missing file")
	}

	invalid := writeFile(t, "config.yaml", "datasets:\n  normal:\n    location: x.csv\n")
	if _, _, err := Load(invalid, BackendYAML); err == nil {
		t.Error("expected validation error for missing anomalies source")
	}
}
