package database

import (
	"database/sql"
	"strconv"
	"time"
)

// ReadingRow is one row of a sensor readings table. Measurement columns are
// nullable so incomplete rows can be dropped by the loader like any other
// missing value.
type ReadingRow struct {
	Time        time.Time       `gorm:"column:time"`
	Location    sql.NullString  `gorm:"column:location"`
	Temperature sql.NullFloat64 `gorm:"column:temperature"`
	Humidity    sql.NullFloat64 `gorm:"column:humidity"`
	Moisture    sql.NullFloat64 `gorm:"column:moisture"`
	Gas         sql.NullFloat64 `gorm:"column:gas"`
	GasLevel    sql.NullString  `gorm:"column:gas_level"`
}

// Record renders the row as delimited-text cells, with NULLs as empty cells
func (r ReadingRow) Record(withGasLevel bool) []string {
	rec := []string{
		r.Time.Format(time.RFC3339Nano),
		r.Location.String,
		formatNullFloat(r.Temperature),
		formatNullFloat(r.Humidity),
		formatNullFloat(r.Moisture),
		formatNullFloat(r.Gas),
	}
	if withGasLevel {
		rec = append(rec, r.GasLevel.String)
	}
	return rec
}

func formatNullFloat(f sql.NullFloat64) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}
