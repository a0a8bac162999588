// Package charts renders dashboard data as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/views"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToRender is returned for empty results and unselected views
var ErrNothingToRender = errors.New("nothing to render")

const (
	defaultWidth  = 960
	defaultHeight = 420
)

var palette = []drawing.Color{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
}

func seriesStyle(i int) chart.Style {
	c := palette[i%len(palette)]
	return chart.Style{
		StrokeColor: c,
		StrokeWidth: 2,
		DotColor:    c,
		DotWidth:    3,
	}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

// paddedRange widens [lo, hi] so a flat series still has a drawable axis
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// TimeSeries draws an aggregation result as a line over its buckets
func TimeSeries(w io.Writer, res aggregate.Result) error {
	if res.Empty || len(res.Points) == 0 {
		return ErrNothingToRender
	}

	xs := make([]time.Time, len(res.Points))
	ys := make([]float64, len(res.Points))
	for i, p := range res.Points {
		xs[i] = p.Bucket
		ys[i] = p.Value
	}

	// Half a day either side keeps a single bucket away from the axis edges.
	pad := float64(12 * time.Hour)
	xr := &chart.ContinuousRange{
		Min: chart.TimeToFloat64(xs[0]) - pad,
		Max: chart.TimeToFloat64(xs[len(xs)-1]) + pad,
	}

	ch := chart.Chart{
		Title:      res.Title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: background(),
		XAxis: chart.XAxis{
			Name:           "Date",
			Range:          xr,
			ValueFormatter: chart.TimeValueFormatterWithFormat("01/02"),
		},
		YAxis: chart.YAxis{
			Name:  res.Variable,
			Range: paddedRange(res.Min, res.Max),
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: res.Variable, XValues: xs, YValues: ys, Style: seriesStyle(0)},
		},
	}
	return render(w, ch)
}

// Bars draws one bar per category that has a value
func Bars(w io.Writer, bc views.BarChart) error {
	var bars []chart.Value
	lo, hi := 0.0, 0.0
	for _, c := range bc.Bars {
		if c.Value == nil {
			continue
		}
		bars = append(bars, chart.Value{
			Label: c.Label,
			Value: *c.Value,
			Style: chart.Style{FillColor: palette[0], StrokeColor: palette[0]},
		})
		lo = math.Min(lo, *c.Value)
		hi = math.Max(hi, *c.Value)
	}
	if len(bars) == 0 {
		return ErrNothingToRender
	}
	return renderBars(w, bc.Title, bc.YLabel, bars, lo, hi)
}

// Ranking draws the ranked sensors as bars, highest mean first
func Ranking(w io.Writer, r views.Ranking) error {
	if len(r.Entries) == 0 {
		return ErrNothingToRender
	}
	bars := make([]chart.Value, 0, len(r.Entries))
	lo, hi := 0.0, 0.0
	for i, e := range r.Entries {
		c := palette[i%len(palette)]
		bars = append(bars, chart.Value{
			Label: e.Location,
			Value: e.Mean,
			Style: chart.Style{FillColor: c, StrokeColor: c},
		})
		lo = math.Min(lo, e.Mean)
		hi = math.Max(hi, e.Mean)
	}
	return renderBars(w, r.Title, "Average Gas Level", bars, lo, hi)
}

func renderBars(w io.Writer, title, ylabel string, bars []chart.Value, lo, hi float64) error {
	barWidth := (defaultWidth - 120) / (2 * len(bars))
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 8 {
		barWidth = 8
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		BarWidth:   barWidth,
		Background: background(),
		XAxis:      chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Name:  ylabel,
			Range: paddedRange(lo, hi),
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("error rendering bar chart: %w", err)
	}
	return nil
}

// Lines draws month-indexed line series with a legend when there is more
// than one series.
func Lines(w io.Writer, lc views.LineChart) error {
	var series []chart.Series
	first, last := 13, 0
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range lc.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		ys := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j] = float64(p.Month)
			ys[j] = p.Value
			first = min(first, int(p.Month))
			last = max(last, int(p.Month))
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
		series = append(series, chart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: ys, Style: seriesStyle(i)})
	}
	if len(series) == 0 {
		return ErrNothingToRender
	}

	ticks := make([]chart.Tick, 0, last-first+1)
	for m := first; m <= last; m++ {
		ticks = append(ticks, chart.Tick{Value: float64(m), Label: views.MonthAbbrev(time.Month(m))})
	}

	ch := chart.Chart{
		Title:      lc.Title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  lc.XLabel,
			Range: &chart.ContinuousRange{Min: float64(first) - 0.5, Max: float64(last) + 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  lc.YLabel,
			Range: paddedRange(lo, hi),
		},
		Series: series,
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return render(w, ch)
}

func render(w io.Writer, ch chart.Chart) error {
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("error rendering chart: %w", err)
	}
	return nil
}

// Trend renders whichever chart the trend view produced
func Trend(w io.Writer, res views.TrendResult) error {
	switch {
	case res.Bars != nil:
		return Bars(w, *res.Bars)
	case res.Line != nil:
		return Lines(w, *res.Line)
	case res.Ranking != nil:
		return Ranking(w, *res.Ranking)
	}
	return ErrNothingToRender
}

// Environmental renders whichever chart the environmental view produced.
// Seasonal views carry one bar chart per variable; panel picks which one.
func Environmental(w io.Writer, res views.EnvironmentalResult, panel int) error {
	switch {
	case res.Line != nil:
		return Lines(w, *res.Line)
	case res.Correlation != nil:
		return Heatmap(w, *res.Correlation)
	case len(res.Panels) > 0:
		if panel < 0 || panel >= len(res.Panels) {
			return fmt.Errorf("panel %d out of range (0-%d)", panel, len(res.Panels)-1)
		}
		return Bars(w, res.Panels[panel])
	}
	return ErrNothingToRender
}
