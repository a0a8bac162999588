// Package views computes the chart data behind every dashboard panel. Each
// function is a pure transform of a Dataset.
package views

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chrissnell/sensordash/internal/types"
	"gonum.org/v1/gonum/stat"
)

// DefaultTopN is the number of sensors kept by RankSensors
const DefaultTopN = 20

// Messages shown when no view has been chosen
const (
	TrendPrompt         = "Please select a trend type to display the chart."
	EnvironmentalPrompt = "Please select an environmental insight view."
)

// Category is one bar: a label and the mean of the rows in it. Value is nil
// when the category has no rows.
type Category struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
	Count int      `json:"count"`
	// CI95 is the half-width of a normal-approximation 95% confidence
	// interval around Value, when at least two rows contribute.
	CI95 *float64 `json:"ci95,omitempty"`
}

// BarChart is a titled list of categories
type BarChart struct {
	Title  string     `json:"title"`
	XLabel string     `json:"x_label"`
	YLabel string     `json:"y_label"`
	Bars   []Category `json:"bars"`
}

// MonthPoint is the mean of a variable over one calendar month
type MonthPoint struct {
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
}

// LineSeries is one named line of month points
type LineSeries struct {
	Name   string       `json:"name"`
	Points []MonthPoint `json:"points"`
}

// LineChart is a titled set of month-indexed lines
type LineChart struct {
	Title  string       `json:"title"`
	XLabel string       `json:"x_label"`
	YLabel string       `json:"y_label"`
	Series []LineSeries `json:"series"`
}

// RankEntry is one sensor location and its mean Gas level
type RankEntry struct {
	Location string  `json:"location"`
	Mean     float64 `json:"mean"`
	Count    int     `json:"count"`
}

// Ranking is the sensor-wise comparison
type Ranking struct {
	Title   string      `json:"title"`
	Entries []RankEntry `json:"entries"`
}

// CorrelationMatrix holds pairwise Pearson coefficients. Undefined
// coefficients are nil.
type CorrelationMatrix struct {
	Title   string       `json:"title"`
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// TrendResult is the output of one trend view
type TrendResult struct {
	View    TrendView  `json:"view"`
	Message string     `json:"message,omitempty"`
	Bars    *BarChart  `json:"bars,omitempty"`
	Line    *LineChart `json:"line,omitempty"`
	Ranking *Ranking   `json:"ranking,omitempty"`
}

// EnvironmentalResult is the output of one environmental view
type EnvironmentalResult struct {
	View        EnvironmentalView  `json:"view"`
	Message     string             `json:"message,omitempty"`
	Line        *LineChart         `json:"line,omitempty"`
	Panels      []BarChart         `json:"panels,omitempty"`
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
}

// Trend dispatches a trend view
func Trend(ds *types.Dataset, v TrendView, topN int) TrendResult {
	res := TrendResult{View: v}
	switch v {
	case SeasonalAverageView:
		b := SeasonalAverage(ds)
		res.Bars = &b
	case MonthlyTrendView:
		l := MonthlyTrend(ds)
		res.Line = &l
	case DayVsNightView:
		b := DayVsNight(ds)
		res.Bars = &b
	case SensorRankingView:
		r := RankSensors(ds, topN)
		res.Ranking = &r
	default:
		res.View = TrendNone
		res.Message = TrendPrompt
	}
	return res
}

// Environmental dispatches an environmental view
func Environmental(ds *types.Dataset, v EnvironmentalView) EnvironmentalResult {
	res := EnvironmentalResult{View: v}
	switch v {
	case MonthlyAllVariablesView:
		l := MonthlyAllVariables(ds)
		res.Line = &l
	case SeasonalEnvironmentalView:
		res.Panels = SeasonalEnvironmental(ds)
	case CorrelationMainView:
		c := Correlation(ds, false)
		res.Correlation = &c
	case CorrelationFullView:
		c := Correlation(ds, true)
		res.Correlation = &c
	default:
		res.View = EnvNone
		res.Message = EnvironmentalPrompt
	}
	return res
}

// groupMeans averages variable over the readings in each group, returning
// the categories in the order given by labels.
func groupMeans(ds *types.Dataset, variable string, labels []string, key func(*types.Reading) string) []Category {
	groups := make(map[string][]float64, len(labels))
	if ds != nil {
		for i := range ds.Readings {
			r := &ds.Readings[i]
			v, _ := r.Value(variable)
			k := key(r)
			groups[k] = append(groups[k], v)
		}
	}

	out := make([]Category, 0, len(labels))
	for _, l := range labels {
		vals := groups[l]
		c := Category{Label: l, Count: len(vals)}
		if len(vals) > 0 {
			c.Value = ptr(stat.Mean(vals, nil))
		}
		if len(vals) > 1 {
			c.CI95 = ptr(1.96 * stat.StdDev(vals, nil) / math.Sqrt(float64(len(vals))))
		}
		out = append(out, c)
	}
	return out
}

// SeasonalAverage is the mean Gas level per season
func SeasonalAverage(ds *types.Dataset) BarChart {
	return BarChart{
		Title:  "Average Gas Levels Across Seasons",
		XLabel: "Season",
		YLabel: "Average Gas Level",
		Bars: groupMeans(ds, types.ColumnGas, Seasons, func(r *types.Reading) string {
			return Season(r.Timestamp.Month())
		}),
	}
}

// DayVsNight is the mean Gas level for day and night hours
func DayVsNight(ds *types.Dataset) BarChart {
	return BarChart{
		Title:  "Gas Levels During Day vs Night",
		XLabel: "Time of Day",
		YLabel: "Average Gas Level",
		Bars: groupMeans(ds, types.ColumnGas, []string{DayLabel, NightLabel}, func(r *types.Reading) string {
			return TimeOfDay(r.Timestamp.Hour())
		}),
	}
}

// SeasonalEnvironmental is one seasonal bar chart per environmental variable
func SeasonalEnvironmental(ds *types.Dataset) []BarChart {
	vars := []string{types.ColumnTemperature, types.ColumnHumidity, types.ColumnMoisture}
	panels := make([]BarChart, 0, len(vars))
	for _, v := range vars {
		panels = append(panels, BarChart{
			Title:  v + " by Season",
			XLabel: "Season",
			YLabel: v,
			Bars: groupMeans(ds, v, Seasons, func(r *types.Reading) string {
				return Season(r.Timestamp.Month())
			}),
		})
	}
	return panels
}

// monthlySeries averages variable per calendar month, for months with data
func monthlySeries(ds *types.Dataset, variable string) LineSeries {
	var sums [13]float64
	var counts [13]int
	if ds != nil {
		for i := range ds.Readings {
			r := &ds.Readings[i]
			v, _ := r.Value(variable)
			m := r.Timestamp.Month()
			sums[m] += v
			counts[m]++
		}
	}

	s := LineSeries{Name: variable, Points: []MonthPoint{}}
	for m := time.January; m <= time.December; m++ {
		if counts[m] == 0 {
			continue
		}
		s.Points = append(s.Points, MonthPoint{Month: m, Label: MonthAbbrev(m), Value: sums[m] / float64(counts[m])})
	}
	return s
}

// MonthlyTrend is the mean Gas level per calendar month
func MonthlyTrend(ds *types.Dataset) LineChart {
	return LineChart{
		Title:  "Monthly Gas Level Trends",
		XLabel: "Month",
		YLabel: "Average Gas Level",
		Series: []LineSeries{monthlySeries(ds, types.ColumnGas)},
	}
}

// MonthlyAllVariables is the mean of every measured variable per month
func MonthlyAllVariables(ds *types.Dataset) LineChart {
	lc := LineChart{
		Title:  "Monthly Trends of Temperature, Humidity, Moisture & Gas",
		XLabel: "Month",
		YLabel: "Average Value",
	}
	for _, v := range types.Variables {
		lc.Series = append(lc.Series, monthlySeries(ds, v))
	}
	return lc
}

// RankSensors orders locations by mean Gas level, highest first, and keeps
// the top n. Locations start in ascending name order and the sort is stable,
// so equal means keep that order.
func RankSensors(ds *types.Dataset, n int) Ranking {
	if n <= 0 {
		n = DefaultTopN
	}
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	if ds != nil {
		for i := range ds.Readings {
			r := &ds.Readings[i]
			a, ok := groups[r.Location]
			if !ok {
				a = &acc{}
				groups[r.Location] = a
			}
			a.sum += r.Gas
			a.count++
		}
	}

	entries := make([]RankEntry, 0, len(groups))
	for loc, a := range groups {
		entries = append(entries, RankEntry{Location: loc, Mean: a.sum / float64(a.count), Count: a.count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Location < entries[j].Location })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Mean > entries[j].Mean })

	if len(entries) > n {
		entries = entries[:n]
	}
	return Ranking{
		Title:   fmt.Sprintf("Top %d Sensors by Average Gas Levels", n),
		Entries: entries,
	}
}

// Correlation computes the Pearson matrix over the four measured variables,
// or with full set over every numeric column plus Hour, DayOfWeek and Month.
func Correlation(ds *types.Dataset, full bool) CorrelationMatrix {
	columns := append([]string{}, types.Variables...)
	title := "Correlation Matrix of Temperature, Humidity, Moisture & Gas"
	if full {
		title = "Correlation Between Gas Leaks and Environmental Variables"
		if ds != nil && ds.HasGasLevel {
			columns = append(columns, types.ColumnGasLevel)
		}
		columns = append(columns, "Hour", "DayOfWeek", "Month")
	}

	data := make([][]float64, len(columns))
	for i, c := range columns {
		data[i] = numericColumn(ds, c)
	}

	values := make([][]*float64, len(columns))
	for i := range columns {
		values[i] = make([]*float64, len(columns))
		for j := range columns {
			if j < i {
				values[i][j] = values[j][i]
				continue
			}
			values[i][j] = pearson(data[i], data[j], i == j)
		}
	}

	return CorrelationMatrix{Title: title, Columns: columns, Values: values}
}

func numericColumn(ds *types.Dataset, column string) []float64 {
	if ds == nil {
		return nil
	}
	out := make([]float64, len(ds.Readings))
	for i := range ds.Readings {
		r := &ds.Readings[i]
		switch column {
		case "Hour":
			out[i] = float64(r.Timestamp.Hour())
		case "DayOfWeek":
			out[i] = float64(DayOfWeek(r.Timestamp))
		case "Month":
			out[i] = float64(r.Timestamp.Month())
		default:
			out[i], _ = r.Value(column)
		}
	}
	return out
}

// pearson returns nil when the coefficient is undefined: fewer than two
// rows or a constant column.
func pearson(x, y []float64, diagonal bool) *float64 {
	if len(x) < 2 || len(x) != len(y) {
		return nil
	}
	if stat.StdDev(x, nil) == 0 || stat.StdDev(y, nil) == 0 {
		return nil
	}
	if diagonal {
		return ptr(1)
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return nil
	}
	return ptr(c)
}

func ptr(f float64) *float64 {
	return &f
}
