package aggregate

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Granularity is the time-bucket resolution of a time-series view
type Granularity int

const (
	Daily Granularity = iota
	Weekly
	Monthly
	Yearly
)

// Granularities lists every granularity in selector order
var Granularities = []Granularity{Daily, Weekly, Monthly, Yearly}

func (g Granularity) String() string {
	switch g {
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	case Yearly:
		return "Yearly"
	}
	return "Daily"
}

// ParseGranularity is case-insensitive
func ParseGranularity(s string) (Granularity, error) {
	for _, g := range Granularities {
		if strings.EqualFold(strings.TrimSpace(s), g.String()) {
			return g, nil
		}
	}
	return Daily, fmt.Errorf("unknown granularity %q", s)
}

// MarshalText encodes the granularity in lower case
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(g.String())), nil
}

// UnmarshalText decodes any case of a granularity name
func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

var titleCaser = cases.Title(language.English)

// ParseMonth accepts full or three-letter English month names in any case
func ParseMonth(s string) (time.Month, error) {
	name := titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
	for m := time.January; m <= time.December; m++ {
		full := m.String()
		if name == full || (len(name) == 3 && name == full[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// MonthNames returns January through December
func MonthNames() []string {
	names := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		names = append(names, m.String())
	}
	return names
}
