package charts

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/views"
)

func decodes(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	img, err := png.Decode(buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Fatalf("empty image bounds %v", b)
	}
}

func fp(f float64) *float64 { return &f }

func TestTimeSeries(t *testing.T) {
	day := time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		points []aggregate.Point
	}{
		{"single bucket", []aggregate.Point{{Bucket: day, Value: 4}}},
		{"flat", []aggregate.Point{{Bucket: day, Value: 4}, {Bucket: day.AddDate(0, 0, 1), Value: 4}}},
		{"week", []aggregate.Point{
			{Bucket: day, Value: 1},
			{Bucket: day.AddDate(0, 0, 1), Value: 3},
			{Bucket: day.AddDate(0, 0, 2), Value: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := aggregate.Result{Title: "Weekly Gas", Variable: "Gas", Points: tt.points}
			res.Min, res.Max = tt.points[0].Value, tt.points[0].Value
			for _, p := range tt.points {
				res.Min = min(res.Min, p.Value)
				res.Max = max(res.Max, p.Value)
			}
			var buf bytes.Buffer
			if err := TimeSeries(&buf, res); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			decodes(t, &buf)
		})
	}
}

func TestNothingToRender(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		name string
		fn   func() error
	}{
		{"empty result", func() error { return TimeSeries(&buf, aggregate.Result{Empty: true}) }},
		{"bars without values", func() error {
			return Bars(&buf, views.BarChart{Bars: []views.Category{{Label: "Spring"}}})
		}},
		{"empty ranking", func() error { return Ranking(&buf, views.Ranking{}) }},
		{"empty lines", func() error { return Lines(&buf, views.LineChart{Series: []views.LineSeries{{Name: "Gas"}}}) }},
		{"empty matrix", func() error { return Heatmap(&buf, views.CorrelationMatrix{}) }},
		{"no trend view", func() error { return Trend(&buf, views.TrendResult{Message: views.TrendPrompt}) }},
		{"no environmental view", func() error { return Environmental(&buf, views.EnvironmentalResult{}, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrNothingToRender) {
				t.Errorf("expected ErrNothingToRender, got %v", err)
			}
		})
	}
}

func TestBarsAndRanking(t *testing.T) {
	var buf bytes.Buffer
	bc := views.BarChart{
		Title:  "Gas Levels During Day vs Night",
		YLabel: "Average Gas Level",
		Bars: []views.Category{
			{Label: views.DayLabel, Value: fp(10)},
			{Label: views.NightLabel, Value: fp(20)},
		},
	}
	if err := Trend(&buf, views.TrendResult{Bars: &bc}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decodes(t, &buf)

	buf.Reset()
	r := views.Ranking{Title: "Top 2 Sensors by Average Gas Levels", Entries: []views.RankEntry{
		{Location: "A", Mean: 5},
		{Location: "B", Mean: 5},
	}}
	if err := Ranking(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decodes(t, &buf)
}

func TestLines(t *testing.T) {
	var buf bytes.Buffer
	lc := views.LineChart{
		Title: "Monthly Trends",
		Series: []views.LineSeries{
			{Name: "Gas", Points: []views.MonthPoint{{Month: time.January, Label: "Jan", Value: 2}, {Month: time.March, Label: "Mar", Value: 3}}},
			{Name: "Moisture", Points: []views.MonthPoint{{Month: time.January, Label: "Jan", Value: 7}}},
		},
	}
	if err := Lines(&buf, lc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decodes(t, &buf)
}

func TestEnvironmentalPanels(t *testing.T) {
	panels := []views.BarChart{
		{Title: "Temperature by Season", Bars: []views.Category{{Label: views.Winter, Value: fp(3)}}},
	}
	var buf bytes.Buffer
	if err := Environmental(&buf, views.EnvironmentalResult{Panels: panels}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decodes(t, &buf)

	if err := Environmental(&buf, views.EnvironmentalResult{Panels: panels}, 3); err == nil {
		t.Error("expected error for an out of range panel")
	}
}

func TestHeatmap(t *testing.T) {
	m := views.CorrelationMatrix{
		Title:   "Correlation",
		Columns: []string{"Temperature", "Moisture"},
		Values:  [][]*float64{{fp(1), nil}, {nil, nil}},
	}
	var buf bytes.Buffer
	if err := Heatmap(&buf, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	wantW := heatmapLeft + 2*heatmapCell + heatmapRight
	if img.Bounds().Dx() != wantW {
		t.Errorf("expected width %d, got %d", wantW, img.Bounds().Dx())
	}
}

func TestCoolwarm(t *testing.T) {
	tests := []struct {
		v    float64
		want [3]uint8
	}{
		{-1, [3]uint8{coolColor.R, coolColor.G, coolColor.B}},
		{0, [3]uint8{neutralColor.R, neutralColor.G, neutralColor.B}},
		{1, [3]uint8{warmColor.R, warmColor.G, warmColor.B}},
		{2, [3]uint8{warmColor.R, warmColor.G, warmColor.B}},
	}
	for _, tt := range tests {
		c := coolwarm(tt.v)
		if got := [3]uint8{c.R, c.G, c.B}; got != tt.want {
			t.Errorf("coolwarm(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
