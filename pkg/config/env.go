package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration
const (
	EnvNormalSource    = "SENSORDASH_NORMAL_SOURCE"
	EnvAnomaliesSource = "SENSORDASH_ANOMALIES_SOURCE"
	EnvListenAddr      = "SENSORDASH_LISTEN_ADDR"
	EnvPort            = "SENSORDASH_PORT"
	EnvReloadSchedule  = "SENSORDASH_RELOAD_SCHEDULE"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error. Variables already set are left alone.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnvOverrides replaces configuration values with any set environment
// variables and returns the names of the variables that were applied.
func ApplyEnvOverrides(c *ConfigData) ([]string, error) {
	var applied []string

	if v := os.Getenv(EnvNormalSource); v != "" {
		c.Datasets.Normal = overrideSource(c.Datasets.Normal, v)
		applied = append(applied, EnvNormalSource)
	}
	if v := os.Getenv(EnvAnomaliesSource); v != "" {
		c.Datasets.Anomalies = overrideSource(c.Datasets.Anomalies, v)
		applied = append(applied, EnvAnomaliesSource)
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Server.ListenAddr = v
		applied = append(applied, EnvListenAddr)
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return applied, errors.New(EnvPort + " must be an integer")
		}
		c.Server.Port = port
		applied = append(applied, EnvPort)
	}
	if v, ok := os.LookupEnv(EnvReloadSchedule); ok {
		c.Reload.Schedule = v
		applied = append(applied, EnvReloadSchedule)
	}

	return applied, nil
}

func overrideSource(current SourceData, location string) SourceData {
	src := ParseSourceLocation(location)
	src.Delimiter = current.Delimiter
	src.TimeoutSeconds = current.TimeoutSeconds
	if src.Type == current.Type {
		src.Table = current.Table
	}
	return src
}
