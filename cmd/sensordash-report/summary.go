package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
	"github.com/spf13/cobra"
)

var summaryFormat string

var summaryCmd = &cobra.Command{
	Use:   "summary <source>",
	Short: "Print descriptive statistics for each variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeSummary(cmd.OutOrStdout(), ds, summaryFormat)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "text", "output format: text or json")
}

func writeSummary(w io.Writer, ds *types.Dataset, format string) error {
	rows := views.Summary(ds)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "%s: %d readings from %s\n\n", ds.Name, ds.Len(), ds.Source)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(views.SummaryColumns, "\t"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.Variable, strings.Join(r.Cells(), "\t"))
	}
	return tw.Flush()
}
