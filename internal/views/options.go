package views

import "fmt"

// TrendView enumerates the gas level trend views
type TrendView int

const (
	TrendNone TrendView = iota
	SeasonalAverageView
	MonthlyTrendView
	DayVsNightView
	SensorRankingView
)

// TrendViews lists every trend view in selector order
var TrendViews = []TrendView{TrendNone, SeasonalAverageView, MonthlyTrendView, DayVsNightView, SensorRankingView}

var trendLabels = map[TrendView][2]string{
	TrendNone:           {"none", "Select an option"},
	SeasonalAverageView: {"seasonal-average", "Seasonal Average"},
	MonthlyTrendView:    {"monthly-trend", "Monthly Trend"},
	DayVsNightView:      {"day-vs-night", "Day vs Night Gas Levels"},
	SensorRankingView:   {"sensor-ranking", "Sensor-wise Comparison"},
}

func (v TrendView) String() string { return trendLabels[v][1] }

// Slug returns the URL form of the view
func (v TrendView) Slug() string { return trendLabels[v][0] }

func (v TrendView) MarshalText() ([]byte, error) { return []byte(v.Slug()), nil }

func (v *TrendView) UnmarshalText(b []byte) error {
	parsed, err := ParseTrendView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseTrendView accepts a slug or a display label; "" selects TrendNone
func ParseTrendView(s string) (TrendView, error) {
	if s == "" {
		return TrendNone, nil
	}
	for v, l := range trendLabels {
		if s == l[0] || s == l[1] {
			return v, nil
		}
	}
	return TrendNone, fmt.Errorf("unknown trend view %q", s)
}

// EnvironmentalView enumerates the environmental insight views
type EnvironmentalView int

const (
	EnvNone EnvironmentalView = iota
	MonthlyAllVariablesView
	SeasonalEnvironmentalView
	CorrelationMainView
	CorrelationFullView
)

// EnvironmentalViews lists every environmental view in selector order
var EnvironmentalViews = []EnvironmentalView{EnvNone, MonthlyAllVariablesView, SeasonalEnvironmentalView, CorrelationMainView, CorrelationFullView}

var envLabels = map[EnvironmentalView][2]string{
	EnvNone:                   {"none", "Select an option"},
	MonthlyAllVariablesView:   {"monthly-all", "Monthly Trends of All Variables"},
	SeasonalEnvironmentalView: {"seasonal-environment", "Seasonal Trends of Environmental Variables"},
	CorrelationMainView:       {"correlation-main", "Correlation Matrix (Main Vars)"},
	CorrelationFullView:       {"correlation-full", "Full Correlation Matrix (All Vars)"},
}

func (v EnvironmentalView) String() string { return envLabels[v][1] }

// Slug returns the URL form of the view
func (v EnvironmentalView) Slug() string { return envLabels[v][0] }

func (v EnvironmentalView) MarshalText() ([]byte, error) { return []byte(v.Slug()), nil }

func (v *EnvironmentalView) UnmarshalText(b []byte) error {
	parsed, err := ParseEnvironmentalView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseEnvironmentalView accepts a slug or a display label; "" selects EnvNone
func ParseEnvironmentalView(s string) (EnvironmentalView, error) {
	if s == "" {
		return EnvNone, nil
	}
	for v, l := range envLabels {
		if s == l[0] || s == l[1] {
			return v, nil
		}
	}
	return EnvNone, fmt.Errorf("unknown environmental view %q", s)
}
