package views

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chrissnell/sensordash/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SummaryColumns are the statistic names in display order
var SummaryColumns = []string{"Count", "Mean", "Std Dev", "Min", "25%", "Median", "75%", "Max"}

// SummaryRow holds descriptive statistics for one variable, rounded to two
// decimals. Statistics that are undefined for the row count are nil.
type SummaryRow struct {
	Variable string   `json:"variable"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min"`
	Q25      *float64 `json:"q25"`
	Median   *float64 `json:"median"`
	Q75      *float64 `json:"q75"`
	Max      *float64 `json:"max"`
}

// Cells returns the statistics in SummaryColumns order, formatted with two
// decimals. Undefined statistics are rendered as "NaN".
func (r SummaryRow) Cells() []string {
	cells := []string{strconv.FormatFloat(float64(r.Count), 'f', 2, 64)}
	for _, v := range []*float64{r.Mean, r.Std, r.Min, r.Q25, r.Median, r.Q75, r.Max} {
		if v == nil {
			cells = append(cells, "NaN")
			continue
		}
		cells = append(cells, strconv.FormatFloat(*v, 'f', 2, 64))
	}
	return cells
}

// Summary describes each measured variable of ds
func Summary(ds *types.Dataset) []SummaryRow {
	rows := make([]SummaryRow, 0, len(types.Variables))
	for _, v := range types.Variables {
		rows = append(rows, describe(v, ds.Values(v)))
	}
	return rows
}

func describe(variable string, values []float64) SummaryRow {
	row := SummaryRow{Variable: variable, Count: len(values)}
	if len(values) == 0 {
		return row
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	row.Mean = round2(stat.Mean(sorted, nil))
	if len(sorted) > 1 {
		row.Std = round2(stat.StdDev(sorted, nil))
	}
	row.Min = round2(floats.Min(sorted))
	row.Q25 = round2(quantile(sorted, 0.25))
	row.Median = round2(quantile(sorted, 0.5))
	row.Q75 = round2(quantile(sorted, 0.75))
	row.Max = round2(floats.Max(sorted))
	return row
}

// quantile interpolates linearly between the two closest ranks of an
// ascending slice, which matches the default of most dataframe libraries.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func round2(f float64) *float64 {
	r := math.Round(f*100) / 100
	return &r
}

// MetricCard is one headline value of the sensor overview
type MetricCard struct {
	Variable string `json:"variable"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Delta    string `json:"delta"`
}

var metricUnits = map[string]string{
	types.ColumnTemperature: " °C",
	types.ColumnHumidity:    " %",
}

// MetricCards renders the four headline values of a snapshot Reading
func MetricCards(r *types.Reading) []MetricCard {
	if r == nil {
		return nil
	}
	cards := make([]MetricCard, 0, len(types.Variables))
	for _, v := range types.Variables {
		val, _ := r.Value(v)
		cards = append(cards, MetricCard{
			Variable: v,
			Label:    v + ": " + r.Location,
			Value:    FormatRounded(val) + metricUnits[v],
			Delta:    "Last update",
		})
	}
	return cards
}

// FormatRounded rounds to two decimals and always keeps a fractional part
func FormatRounded(f float64) string {
	s := strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEN") {
		s += ".0"
	}
	return s
}
