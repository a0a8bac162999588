// Package export writes a Dataset as a downloadable report.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Download names and content types
const (
	CSVFilename     = "sensor_data_report.csv"
	XLSXFilename    = "sensor_data_report.xlsx"
	CSVContentType  = "text/csv"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Delimiter separates CSV fields, matching the sources the loader reads
const Delimiter = ';'

// TimestampLayout formats the Timestamp column
const TimestampLayout = "2006-01-02 15:04:05"

// Sheet names of the XLSX report
const (
	ReadingsSheet = "Readings"
	SummarySheet  = "Summary"
)

// Frame builds a table of ds in Dataset column order. Timestamp and Location
// are strings, Gas_Level is its category label and the measurements are
// floats.
func Frame(ds *types.Dataset) dataframe.DataFrame {
	if ds == nil {
		ds = &types.Dataset{}
	}
	columns := ds.Columns
	if len(columns) == 0 {
		columns = append([]string{types.ColumnTimestamp, types.ColumnLocation}, types.Variables...)
	}

	cols := make([]series.Series, 0, len(columns))
	for _, name := range columns {
		switch name {
		case types.ColumnTimestamp:
			vals := make([]string, len(ds.Readings))
			for i := range ds.Readings {
				vals[i] = ds.Readings[i].Timestamp.Format(TimestampLayout)
			}
			cols = append(cols, series.New(vals, series.String, name))
		case types.ColumnLocation:
			vals := make([]string, len(ds.Readings))
			for i := range ds.Readings {
				vals[i] = ds.Readings[i].Location
			}
			cols = append(cols, series.New(vals, series.String, name))
		case types.ColumnGasLevel:
			vals := make([]string, len(ds.Readings))
			for i := range ds.Readings {
				vals[i] = gasLevelLabel(ds, ds.Readings[i].GasLevel)
			}
			cols = append(cols, series.New(vals, series.String, name))
		default:
			cols = append(cols, series.New(ds.Values(name), series.Float, name))
		}
	}
	return dataframe.New(cols...)
}

// gasLevelLabel falls back to the code for Datasets built without labels
func gasLevelLabel(ds *types.Dataset, code int) string {
	if label := ds.GasLevelLabel(code); label != "" {
		return label
	}
	return strconv.Itoa(code)
}

func formatCell(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

// WriteCSV writes ds as semicolon-delimited CSV with a header row and no
// index column.
func WriteCSV(w io.Writer, ds *types.Dataset) error {
	df := Frame(ds)
	if df.Err != nil {
		return fmt.Errorf("error building table: %w", df.Err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	names := df.Names()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	row := make([]string, len(names))
	for r := 0; r < df.Nrow(); r++ {
		for c, name := range names {
			row[c] = formatCell(df.Col(name).Val(r))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes ds into a Readings sheet and its descriptive statistics
// into a Summary sheet.
func WriteXLSX(w io.Writer, ds *types.Dataset) error {
	df := Frame(ds)
	if df.Err != nil {
		return fmt.Errorf("error building table: %w", df.Err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReadingsSheet); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}

	names := df.Names()
	for i, name := range names {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ReadingsSheet, cell, name); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, name := range names {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(ReadingsSheet, cell, df.Col(name).Val(rowIdx)); err != nil {
				return fmt.Errorf("error writing cell %s: %w", cell, err)
			}
		}
	}

	if err := writeSummary(f, views.Summary(ds)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error encoding workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, rows []views.SummaryRow) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("error creating summary sheet: %w", err)
	}

	header := append([]interface{}{"Variable"}, toInterfaces(views.SummaryColumns)...)
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}

	for i, r := range rows {
		vals := []interface{}{r.Variable, r.Count}
		for _, v := range []*float64{r.Mean, r.Std, r.Min, r.Q25, r.Median, r.Q75, r.Max} {
			if v == nil {
				vals = append(vals, "NaN")
				continue
			}
			vals = append(vals, *v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SummarySheet, cell, &vals); err != nil {
			return fmt.Errorf("error writing summary row: %w", err)
		}
	}
	return nil
}

func toInterfaces(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
