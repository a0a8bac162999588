package main

import (
	"fmt"
	"io"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/charts"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
	"github.com/spf13/cobra"
)

const timeSeriesView = "timeseries"

var (
	chartFlags queryFlags
	chartView  string
	chartPanel int
	chartOut   string
)

var chartCmd = &cobra.Command{
	Use:   "chart <source>",
	Short: "Render a dashboard chart to PNG",
	Long: `Render a dashboard chart to PNG. --view is "timeseries", a trend view
(seasonal-average, monthly-trend, day-vs-night, sensor-ranking) or an
environmental view (monthly-all, seasonal-environment, correlation-main,
correlation-full).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := chartOut
		if out == "" {
			out = chartView + ".png"
		}
		w, err := openOutput(out, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := renderView(w, ds, chartView, chartPanel, &chartFlags, settings.RankingTopN); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	},
}

func init() {
	chartFlags.register(chartCmd)
	f := chartCmd.Flags()
	f.StringVar(&chartView, "view", timeSeriesView, "chart to render")
	f.IntVar(&chartPanel, "panel", 0, "panel index for seasonal-environment")
	f.StringVarP(&chartOut, "out", "o", "", "output path, - for stdout (default: <view>.png)")
}

func renderView(w io.Writer, ds *types.Dataset, view string, panel int, qf *queryFlags, topN int) error {
	if view == timeSeriesView {
		q, err := qf.query(ds)
		if err != nil {
			return err
		}
		res, err := aggregate.Aggregate(ds, q)
		if err != nil {
			return err
		}
		return charts.TimeSeries(w, res)
	}
	if tv, err := views.ParseTrendView(view); err == nil && tv != views.TrendNone {
		return charts.Trend(w, views.Trend(ds, tv, topN))
	}
	if ev, err := views.ParseEnvironmentalView(view); err == nil && ev != views.EnvNone {
		return charts.Environmental(w, views.Environmental(ds, ev), panel)
	}
	return fmt.Errorf("unknown view %q", view)
}
