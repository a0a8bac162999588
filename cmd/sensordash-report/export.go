package main

import (
	"fmt"
	"io"

	"github.com/chrissnell/sensordash/internal/export"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <source>",
	Short: "Write the dataset as semicolon CSV or an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = defaultExportName(exportFormat)
		}
		w, err := openOutput(out, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := writeExport(w, ds, exportFormat); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path, - for stdout (default: sensor_data_report.csv or .xlsx)")
}

func defaultExportName(format string) string {
	if format == "xlsx" {
		return export.XLSXFilename
	}
	return export.CSVFilename
}

func writeExport(w io.Writer, ds *types.Dataset, format string) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, ds)
	case "xlsx":
		return export.WriteXLSX(w, ds)
	}
	return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
}
