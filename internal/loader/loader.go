// Package loader fetches sensor sources and turns them into Datasets.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/chrissnell/sensordash/internal/database"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
)

// Loader reads dataset sources
type Loader struct {
	client   *http.Client
	layouts  []string
	location *time.Location
}

// Option configures a Loader
type Option func(*Loader)

// WithHTTPClient replaces the client used for http sources
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithLayouts replaces the timestamp layouts
func WithLayouts(layouts []string) Option {
	return func(l *Loader) {
		if len(layouts) > 0 {
			l.layouts = layouts
		}
	}
}

// WithLocation sets the zone used for timestamps without an offset
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

// New creates a Loader
func New(opts ...Option) *Loader {
	l := &Loader{
		client:   &http.Client{},
		layouts:  DefaultLayouts,
		location: time.UTC,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load fetches src and parses it into a Dataset named name. Any error means
// no Dataset is available for this source.
func (l *Loader) Load(ctx context.Context, name string, src config.SourceData) (*types.Dataset, error) {
	delim := ';'
	if src.Delimiter != "" {
		delim = []rune(src.Delimiter)[0]
	}
	opts := ParseOptions{
		Name:      name,
		Source:    src.Location,
		Delimiter: delim,
		Layouts:   l.layouts,
		Location:  l.location,
	}

	timeout := time.Duration(src.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultTimeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		ds    *types.Dataset
		stats ParseStats
		err   error
	)

	switch src.Type {
	case config.SourceHTTP, "https":
		ds, stats, err = l.loadHTTP(ctx, src.Location, opts)
	case config.SourceFile, "":
		ds, stats, err = l.loadFile(src.Location, opts)
	case config.SourceTimescaleDB:
		ds, stats, err = l.loadTimescaleDB(ctx, src, opts)
	default:
		err = fmt.Errorf("unsupported source type %q", src.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	log.Infow("dataset loaded",
		"dataset", name,
		"source", src.Location,
		"readings", ds.Len(),
		"skipped_rows", stats.Skipped,
		"dropped_rows", stats.Dropped,
	)
	return ds, nil
}

func (l *Loader) loadFile(path string, opts ParseOptions) (*types.Dataset, ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseStats{}, err
	}
	defer f.Close()
	return Parse(f, opts)
}

func (l *Loader) loadHTTP(ctx context.Context, url string, opts ParseOptions) (*types.Dataset, ParseStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DownloadURL(url), nil)
	if err != nil {
		return nil, ParseStats{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, ParseStats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, ParseStats{}, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	return Parse(resp.Body, opts)
}

func (l *Loader) loadTimescaleDB(ctx context.Context, src config.SourceData, opts ParseOptions) (*types.Dataset, ParseStats, error) {
	client := database.NewClient(src.Location)
	if err := client.Connect(); err != nil {
		return nil, ParseStats{}, err
	}
	defer client.Close()

	rows, withGasLevel, err := client.FetchReadings(ctx, src.Table)
	if err != nil {
		return nil, ParseStats{}, err
	}

	header := []string{
		types.ColumnTimestamp,
		types.ColumnLocation,
		types.ColumnTemperature,
		types.ColumnHumidity,
		types.ColumnMoisture,
		types.ColumnGas,
	}
	if withGasLevel {
		header = append(header, types.ColumnGasLevel)
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, r := range rows {
		records = append(records, r.Record(withGasLevel))
	}

	opts.Source = src.Table
	opts.Layouts = append([]string{time.RFC3339Nano}, opts.Layouts...)
	return buildDataset(records, opts, ParseStats{Rows: len(rows)})
}

var driveFileLink = regexp.MustCompile(`^https://drive\.google\.com/file/d/([A-Za-z0-9_-]+)`)

// DownloadURL rewrites Google Drive file viewer links into direct download
// links. Other URLs are returned unchanged.
func DownloadURL(url string) string {
	if m := driveFileLink.FindStringSubmatch(url); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	return url
}
