package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/sensordash/internal/types"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrEmptySource is returned when a source has no header row
	ErrEmptySource = errors.New("source contains no header row")
	// ErrMissingColumn is returned when a required column is absent
	ErrMissingColumn = errors.New("required column missing")
)

// DefaultLayouts are tried in order when parsing timestamps
var DefaultLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2T15:04:05",
	time.RFC3339,
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-1-2",
}

// missingMarkers are cell values treated as missing, in addition to blanks
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

var requiredColumns = []string{
	types.ColumnLocation,
	types.ColumnTemperature,
	types.ColumnHumidity,
	types.ColumnMoisture,
	types.ColumnGas,
}

// ParseOptions controls how delimited text is turned into a Dataset
type ParseOptions struct {
	Name      string
	Source    string
	Delimiter rune
	Layouts   []string
	Location  *time.Location
}

// ParseStats reports what was discarded while parsing
type ParseStats struct {
	Rows    int // data rows read, including skipped ones
	Skipped int // rows that did not match the header structure
	Dropped int // well-formed rows removed for missing or invalid values
}

// Parse reads a delimited source with a header row and builds a Dataset
func Parse(r io.Reader, opts ParseOptions) (*types.Dataset, ParseStats, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	records, stats, err := readRecords(r, opts.Delimiter)
	if err != nil {
		return nil, stats, err
	}
	return buildDataset(records, opts, stats)
}

func readRecords(r io.Reader, comma rune) ([][]string, ParseStats, error) {
	var stats ParseStats

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && records != nil {
				stats.Rows++
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("error reading delimited text: %w", err)
		}

		if records == nil {
			records = append(records, normalizeHeader(rec))
			continue
		}

		stats.Rows++
		if len(rec) != len(records[0]) {
			stats.Skipped++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
			if _, na := missingMarkers[rec[i]]; na {
				rec[i] = ""
			}
		}
		records = append(records, rec)
	}

	if records == nil {
		return nil, stats, ErrEmptySource
	}
	return records, stats, nil
}

// normalizeHeader trims names and renames blank or duplicate ones so that
// every column name is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

func buildDataset(records [][]string, opts ParseOptions, stats ParseStats) (*types.Dataset, ParseStats, error) {
	header := records[0]
	has := make(map[string]bool, len(header))
	for _, h := range header {
		has[h] = true
	}

	for _, col := range requiredColumns {
		if !has[col] {
			return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	combine := has[types.ColumnDate] && has[types.ColumnTime]
	tsColumn := ""
	switch {
	case combine:
	case has[types.ColumnTimestamp]:
		tsColumn = types.ColumnTimestamp
	case has[types.ColumnDatetime]:
		tsColumn = types.ColumnDatetime
	default:
		return nil, stats, fmt.Errorf("%w: Date and Time, or Timestamp", ErrMissingColumn)
	}

	hasGasLevel := has[types.ColumnGasLevel]
	columns := []string{types.ColumnTimestamp}
	columns = append(columns, requiredColumns...)
	if hasGasLevel {
		columns = append(columns, types.ColumnGasLevel)
	}

	ds := &types.Dataset{
		Name:        opts.Name,
		Source:      opts.Source,
		Columns:     columns,
		HasGasLevel: hasGasLevel,
		LoadedAt:    time.Now(),
	}
	if len(records) == 1 {
		return ds, stats, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, stats, fmt.Errorf("error building table: %w", df.Err)
	}
	nrow := df.Nrow()

	layouts := opts.Layouts
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var raw []string
	if combine {
		dates := df.Col(types.ColumnDate).Records()
		times := df.Col(types.ColumnTime).Records()
		raw = make([]string, nrow)
		for i := range raw {
			if dates[i] != "" && times[i] != "" {
				raw[i] = dates[i] + " " + times[i]
			}
		}
	} else {
		raw = df.Col(tsColumn).Records()
	}

	stamps := make([]string, nrow)
	for i, s := range raw {
		if t, ok := ParseTimestamp(s, layouts, loc); ok {
			stamps[i] = t.Format(time.RFC3339Nano)
		}
	}
	df = df.Mutate(series.New(stamps, series.String, types.ColumnTimestamp))
	df = df.Select(columns)

	if hasGasLevel {
		var codes []int
		codes, ds.GasLevels = encodeCategories(df.Col(types.ColumnGasLevel).Records())
		df = df.Mutate(series.New(codes, series.Int, types.ColumnGasLevel))
		df = df.Filter(dataframe.F{Colname: types.ColumnGasLevel, Comparator: series.GreaterEq, Comparando: 0})
	}
	for _, col := range columns {
		if col == types.ColumnGasLevel {
			continue
		}
		df = df.Filter(dataframe.F{Colname: col, Comparator: series.Neq, Comparando: ""})
	}
	if df.Err != nil {
		return nil, stats, fmt.Errorf("error filtering table: %w", df.Err)
	}

	ds.Readings = materialize(df, hasGasLevel, loc)
	stats.Dropped = stats.Rows - stats.Skipped - len(ds.Readings)
	return ds, stats, nil
}

// materialize converts the filtered frame into Readings, dropping any row
// whose measurements do not parse as finite numbers.
func materialize(df dataframe.DataFrame, hasGasLevel bool, loc *time.Location) []types.Reading {
	n := df.Nrow()
	if n == 0 {
		return nil
	}

	stamps := df.Col(types.ColumnTimestamp).Records()
	locations := df.Col(types.ColumnLocation).Records()
	values := make(map[string][]string, len(types.Variables))
	for _, v := range types.Variables {
		values[v] = df.Col(v).Records()
	}
	var levels []string
	if hasGasLevel {
		levels = df.Col(types.ColumnGasLevel).Records()
	}

	readings := make([]types.Reading, 0, n)
rows:
	for i := 0; i < n; i++ {
		ts, err := time.Parse(time.RFC3339Nano, stamps[i])
		if err != nil {
			continue
		}
		r := types.Reading{Timestamp: ts.In(loc), Location: locations[i]}

		for _, v := range types.Variables {
			f, ok := parseNumber(values[v][i])
			if !ok {
				continue rows
			}
			switch v {
			case types.ColumnTemperature:
				r.Temperature = f
			case types.ColumnHumidity:
				r.Humidity = f
			case types.ColumnMoisture:
				r.Moisture = f
			case types.ColumnGas:
				r.Gas = f
			}
		}

		if hasGasLevel {
			code, err := strconv.Atoi(levels[i])
			if err != nil {
				continue
			}
			r.GasLevel = code
		}
		readings = append(readings, r)
	}
	return readings
}

// encodeCategories maps each distinct non-empty label to its index in the
// sorted label list. Empty labels get -1.
func encodeCategories(values []string) ([]int, []string) {
	distinct := make(map[string]struct{})
	for _, v := range values {
		if v != "" {
			distinct[v] = struct{}{}
		}
	}
	labels := make([]string, 0, len(distinct))
	for v := range distinct {
		labels = append(labels, v)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	codes := make([]int, len(values))
	for i, v := range values {
		if c, ok := index[v]; ok {
			codes[i] = c
		} else {
			codes[i] = -1
		}
	}
	return codes, labels
}

// ParseTimestamp tries each layout in turn. Values without an explicit
// offset are interpreted in loc.
func ParseTimestamp(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
