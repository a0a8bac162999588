package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/sensordash/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	fmt.Printf("Loading YAML configuration...\n")
	configData, err := loadYAML(*yamlFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing database: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Creating SQLite database...\n")
	if err := writeSQLite(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	printConfigSummary(configData)
}

func loadYAML(path string) (*config.ConfigData, error) {
	provider := config.NewYAMLProvider(path)
	defer provider.Close()

	configData, err := provider.LoadConfig()
	if err != nil {
		return nil, err
	}
	configData.ApplyDefaults()
	if err := configData.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return configData, nil
}

func writeSQLite(path string, configData *config.ConfigData) error {
	provider, err := config.NewSQLiteProvider(path)
	if err != nil {
		return err
	}
	defer provider.Close()

	applied, err := provider.Migrate()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Printf("  Applied %d migrations\n", applied)

	if err := provider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Printf("\nConfiguration Summary:\n")
	fmt.Printf("  Datasets:\n")
	printSource("normal", c.Datasets.Normal)
	printSource("anomalies", c.Datasets.Anomalies)

	fmt.Printf("  Server: %s:%d", c.Server.ListenAddr, c.Server.Port)
	if c.Server.Cert != "" {
		fmt.Printf(" (TLS)")
	}
	fmt.Printf(", session TTL %s\n", c.Server.SessionTTL)

	if c.Reload.Schedule != "" {
		fmt.Printf("  Reload: schedule %q", c.Reload.Schedule)
	} else {
		fmt.Printf("  Reload: manual")
	}
	if c.Reload.WatchFiles {
		fmt.Printf(", watching files")
	}
	fmt.Println()

	fmt.Printf("  Dashboard: %q, default date %s\n", c.Dashboard.PageTitle, c.Dashboard.DefaultDate)
}

func printSource(name string, s config.SourceData) {
	if s.Location == "" {
		fmt.Printf("    - %s: (not configured)\n", name)
		return
	}
	fmt.Printf("    - %s: %s %s\n", name, s.Type, s.Location)
}
