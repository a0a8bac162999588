// Package dataset selects which of the two loaded Datasets feeds the views.
package dataset

import (
	"fmt"
	"strings"

	"github.com/chrissnell/sensordash/internal/types"
)

// Choice identifies one of the two datasets
type Choice int

const (
	Normal Choice = iota
	Anomalies
)

// Display names
const (
	NormalName    = "Normal Readings"
	AnomaliesName = "Anomalies"
)

// Choices lists every dataset choice in display order
var Choices = []Choice{Normal, Anomalies}

func (c Choice) String() string {
	if c == Anomalies {
		return AnomaliesName
	}
	return NormalName
}

// Slug returns the short form used in URLs
func (c Choice) Slug() string {
	if c == Anomalies {
		return "anomalies"
	}
	return "normal"
}

// ParseChoice accepts a display name or a slug
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "normal readings":
		return Normal, nil
	case "anomalies", "anomaly":
		return Anomalies, nil
	}
	return Normal, fmt.Errorf("unknown dataset %q", s)
}

// MarshalText encodes the choice as its slug
func (c Choice) MarshalText() ([]byte, error) {
	return []byte(c.Slug()), nil
}

// UnmarshalText decodes a slug or display name
func (c *Choice) UnmarshalText(b []byte) error {
	parsed, err := ParseChoice(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Set holds the two in-memory Datasets. A nil entry means that source failed
// to load.
type Set struct {
	Normal    *types.Dataset
	Anomalies *types.Dataset
}

// Select returns the Dataset for the given choice. It never fetches.
func (s Set) Select(c Choice) *types.Dataset {
	if c == Anomalies {
		return s.Anomalies
	}
	return s.Normal
}
