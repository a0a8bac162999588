package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/pkg/config"
	"github.com/spf13/cobra"
)

// queryFlags are shared by timeseries and chart
type queryFlags struct {
	variable    string
	granularity string
	date        string
	month       string
	year        int
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&q.variable, "variable", types.ColumnTemperature, "variable to aggregate")
	f.StringVar(&q.granularity, "granularity", "daily", "daily, weekly, monthly or yearly")
	f.StringVar(&q.date, "date", config.DefaultDate, "anchor date (YYYY-MM-DD) for daily and weekly")
	f.StringVar(&q.month, "month", "January", "month name or number for monthly")
	f.IntVar(&q.year, "year", 0, "year for yearly (default: newest in the dataset)")
}

// query validates the flags against ds and builds an aggregate.Query
func (q *queryFlags) query(ds *types.Dataset) (aggregate.Query, error) {
	if !types.IsVariable(q.variable) {
		return aggregate.Query{}, fmt.Errorf("unknown variable %q (want one of %v)", q.variable, types.Variables)
	}
	g, err := aggregate.ParseGranularity(q.granularity)
	if err != nil {
		return aggregate.Query{}, err
	}
	date, err := time.Parse("2006-01-02", q.date)
	if err != nil {
		return aggregate.Query{}, fmt.Errorf("invalid --date: %w", err)
	}
	month, err := aggregate.ParseMonth(q.month)
	if err != nil {
		return aggregate.Query{}, err
	}
	year := q.year
	if year == 0 {
		if years := ds.Years(); len(years) > 0 {
			year = years[0]
		} else {
			year = date.Year()
		}
	}
	return aggregate.Query{
		Variable:    q.variable,
		Granularity: g,
		Date:        date,
		Month:       month,
		Year:        year,
	}, nil
}

var (
	tsFlags  queryFlags
	tsFormat string
)

var timeseriesCmd = &cobra.Command{
	Use:   "timeseries <source>",
	Short: "Print the bucketed means of one variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		q, err := tsFlags.query(ds)
		if err != nil {
			return err
		}
		res, err := aggregate.Aggregate(ds, q)
		if err != nil {
			return err
		}
		return writeTimeSeries(cmd.OutOrStdout(), res, tsFormat)
	},
}

func init() {
	tsFlags.register(timeseriesCmd)
	timeseriesCmd.Flags().StringVar(&tsFormat, "format", "text", "output format: text or json")
}

func writeTimeSeries(w io.Writer, res aggregate.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintln(w, res.Title)
	if res.Empty {
		fmt.Fprintln(w, res.Message)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Bucket\t%s\n", res.Variable)
	for _, p := range res.Points {
		fmt.Fprintf(tw, "%s\t%.2f\n", p.Bucket.Format("2006-01-02"), p.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nmin %.2f  max %.2f  mean %.2f\n", res.Min, res.Max, res.Mean)
	return nil
}
