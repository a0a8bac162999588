package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/sensordash/internal/app"
	"github.com/chrissnell/sensordash/internal/constants"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", config.BackendYAML, "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	envFile := flag.String("env", ".env", "Path to an optional .env file with SENSORDASH_* overrides")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", constants.AppName, constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Errorf("Failed to read %s: %v", *envFile, err)
		os.Exit(1)
	}

	// Load configuration
	cfgData, applied, err := config.Load(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	for _, name := range applied {
		log.Infof("configuration overridden by %s", name)
	}

	// Reopen the logger with a rotated file once we know where it goes
	if cfgData.Logging.File != "" {
		err := log.InitWithFile(*debug, log.FileOptions{
			Path:       cfgData.Logging.File,
			MaxSizeMB:  cfgData.Logging.MaxSizeMB,
			MaxBackups: cfgData.Logging.MaxBackups,
			MaxAgeDays: cfgData.Logging.MaxAgeDays,
		})
		if err != nil {
			log.Errorf("Failed to open log file: %v", err)
			os.Exit(1)
		}
	}

	// Create and run the application
	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
