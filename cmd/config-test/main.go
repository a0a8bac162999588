package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/sensordash/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	// Both sides are compared after defaults so an omitted YAML value
	// matches the default that config-convert stored.
	yamlConfig.ApplyDefaults()
	sqliteConfig.ApplyDefaults()

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	mismatches := 0
	check := func(name string, yaml, sqlite interface{}) {
		if reflect.DeepEqual(yaml, sqlite) {
			fmt.Printf("✓ %s matches\n", name)
			return
		}
		mismatches++
		fmt.Printf("✗ %s differs\n", name)
		fmt.Printf("  YAML:   %+v\n", yaml)
		fmt.Printf("  SQLite: %+v\n", sqlite)
	}

	check("Normal dataset", yamlConfig.Datasets.Normal, sqliteConfig.Datasets.Normal)
	check("Anomalies dataset", yamlConfig.Datasets.Anomalies, sqliteConfig.Datasets.Anomalies)
	check("Server", yamlConfig.Server, sqliteConfig.Server)
	check("Reload", yamlConfig.Reload, sqliteConfig.Reload)
	check("Dashboard", yamlConfig.Dashboard, sqliteConfig.Dashboard)
	check("Logging", yamlConfig.Logging, sqliteConfig.Logging)

	fmt.Println("\nTest completed!")
	if mismatches > 0 {
		os.Exit(1)
	}
}
