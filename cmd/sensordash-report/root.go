package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chrissnell/sensordash/internal/loader"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	debug   bool

	// Loaded settings
	settings *reportSettings
)

// reportSettings are the knobs shared by every subcommand. Precedence:
// flags > SENSORDASH_* env > config file > defaults.
type reportSettings struct {
	Delimiter        string   `mapstructure:"delimiter"`
	Timezone         string   `mapstructure:"timezone"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
	Table            string   `mapstructure:"table"`
	RankingTopN      int      `mapstructure:"ranking_top_n"`
	TimestampLayouts []string `mapstructure:"timestamp_layouts"`
}

var rootCmd = &cobra.Command{
	Use:           "sensordash-report",
	Short:         "Offline reports over sensor CSV datasets",
	Long:          `sensordash-report loads a sensor dataset from a file, URL or TimescaleDB and prints summaries, time series, exports and charts without running the dashboard server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.Init(debug); err != nil {
			return err
		}
		s, err := loadSettings(cfgFile, cmd)
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "optional YAML settings file")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.String("delimiter", config.DefaultDelimiter, "CSV field delimiter")
	f.String("timezone", "UTC", "timezone for timestamps without an offset")
	f.Int("timeout-seconds", config.DefaultTimeout, "load timeout in seconds")
	f.String("table", "", "table to read when the source is a postgres:// URL")
	f.Int("top", config.DefaultRankingTopN, "number of sensors in the ranking view")

	rootCmd.AddCommand(summaryCmd, timeseriesCmd, exportCmd, chartCmd)
}

func loadSettings(path string, cmd *cobra.Command) (*reportSettings, error) {
	v := viper.New()
	v.SetEnvPrefix("SENSORDASH")
	v.AutomaticEnv()

	v.SetDefault("delimiter", config.DefaultDelimiter)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("timeout_seconds", config.DefaultTimeout)
	v.SetDefault("table", "")
	v.SetDefault("ranking_top_n", config.DefaultRankingTopN)
	v.SetDefault("timestamp_layouts", []string{})

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if cmd != nil {
		f := cmd.Flags()
		for key, flag := range map[string]string{
			"delimiter":       "delimiter",
			"timezone":        "timezone",
			"timeout_seconds": "timeout-seconds",
			"table":           "table",
			"ranking_top_n":   "top",
		} {
			if fl := f.Lookup(flag); fl != nil && fl.Changed {
				if err := v.BindPFlag(key, fl); err != nil {
					return nil, err
				}
			}
		}
	}

	var s reportSettings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len([]rune(s.Delimiter)) != 1 {
		return nil, fmt.Errorf("delimiter must be a single character, got %q", s.Delimiter)
	}
	if s.RankingTopN <= 0 {
		s.RankingTopN = config.DefaultRankingTopN
	}
	return &s, nil
}

// source turns a bare location into a SourceData using the settings
func (s *reportSettings) source(location string) (config.SourceData, error) {
	src := config.ParseSourceLocation(location)
	src.Delimiter = s.Delimiter
	src.TimeoutSeconds = s.TimeoutSeconds
	src.Table = s.Table
	if src.Type == config.SourceTimescaleDB && src.Table == "" {
		return src, fmt.Errorf("--table is required for %s", location)
	}
	return src, nil
}

func (s *reportSettings) loader() (*loader.Loader, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	opts := []loader.Option{loader.WithLocation(loc)}
	if len(s.TimestampLayouts) > 0 {
		opts = append(opts, loader.WithLayouts(append(append([]string{}, s.TimestampLayouts...), loader.DefaultLayouts...)))
	}
	return loader.New(opts...), nil
}

func loadDataset(ctx context.Context, location string) (*types.Dataset, error) {
	src, err := settings.source(location)
	if err != nil {
		return nil, err
	}
	l, err := settings.loader()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, location, src)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns stdout for "" or "-", otherwise creates path
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
