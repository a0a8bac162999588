package types

import (
	"sort"
	"time"
)

// Column names as they appear in source files and exports
const (
	ColumnTimestamp   = "Timestamp"
	ColumnDatetime    = "Datetime"
	ColumnDate        = "Date"
	ColumnTime        = "Time"
	ColumnLocation    = "Location"
	ColumnTemperature = "Temperature"
	ColumnHumidity    = "Humidity"
	ColumnMoisture    = "Moisture"
	ColumnGas         = "Gas"
	ColumnGasLevel    = "Gas_Level"
)

// Variables lists the four measured quantities in display order
var Variables = []string{ColumnTemperature, ColumnHumidity, ColumnMoisture, ColumnGas}

// IsVariable reports whether name is one of the measured quantities
func IsVariable(name string) bool {
	for _, v := range Variables {
		if v == name {
			return true
		}
	}
	return false
}

// Reading is one timestamped row of sensor measurements.
type Reading struct {
	Timestamp   time.Time `gorm:"column:time" json:"timestamp"`
	Location    string    `gorm:"column:location" json:"location"`
	Temperature float64   `gorm:"column:temperature" json:"temperature"`
	Humidity    float64   `gorm:"column:humidity" json:"humidity"`
	Moisture    float64   `gorm:"column:moisture" json:"moisture"`
	Gas         float64   `gorm:"column:gas" json:"gas"`
	// GasLevel is the category code of the Gas_Level column. It only carries
	// meaning when the owning Dataset has HasGasLevel set.
	GasLevel int `gorm:"-" json:"gas_level"`
}

// Value returns the named measurement
func (r *Reading) Value(variable string) (float64, bool) {
	switch variable {
	case ColumnTemperature:
		return r.Temperature, true
	case ColumnHumidity:
		return r.Humidity, true
	case ColumnMoisture:
		return r.Moisture, true
	case ColumnGas:
		return r.Gas, true
	case ColumnGasLevel:
		return float64(r.GasLevel), true
	}
	return 0, false
}

// Dataset is the full ordered collection of Readings loaded from one source.
// A Dataset is never modified after it has been built.
type Dataset struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Columns     []string  `json:"columns"`
	Readings    []Reading `json:"-"`
	HasGasLevel bool      `json:"has_gas_level"`
	// GasLevels holds the category labels; a Reading's GasLevel indexes into it.
	GasLevels []string  `json:"gas_levels,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Len returns the number of readings, treating a nil Dataset as empty
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Readings)
}

// Values returns the named measurement for every reading, in order
func (d *Dataset) Values(variable string) []float64 {
	if d == nil {
		return nil
	}
	out := make([]float64, 0, len(d.Readings))
	for i := range d.Readings {
		if v, ok := d.Readings[i].Value(variable); ok {
			out = append(out, v)
		}
	}
	return out
}

// Years returns the distinct years present in the Dataset, newest first
func (d *Dataset) Years() []int {
	if d == nil {
		return nil
	}
	seen := make(map[int]struct{})
	for i := range d.Readings {
		seen[d.Readings[i].Timestamp.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// GasLevelLabel returns the category label for a code, or "" when unknown
func (d *Dataset) GasLevelLabel(code int) string {
	if d == nil || code < 0 || code >= len(d.GasLevels) {
		return ""
	}
	return d.GasLevels[code]
}
