package restserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/session"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
)

const dateLayout = "2006-01-02"

// selectionUpdate changes some of a session's selections. Nil fields are
// left as they are.
type selectionUpdate struct {
	Dataset     *string `json:"dataset"`
	ShowSummary *bool   `json:"show_summary"`
	TrendView   *string `json:"trend_view"`
	EnvView     *string `json:"env_view"`
	Variable    *string `json:"variable"`
	Granularity *string `json:"granularity"`
	Date        *string `json:"date"`
	Month       *string `json:"month"`
	Year        *int    `json:"year"`
}

// apply validates every field before changing st
func (u selectionUpdate) apply(st *session.State) error {
	next := *st

	if u.Dataset != nil {
		c, err := dataset.ParseChoice(*u.Dataset)
		if err != nil {
			return err
		}
		next.Dataset = c
	}
	if u.ShowSummary != nil {
		next.ShowSummary = *u.ShowSummary
	}
	if u.TrendView != nil {
		v, err := views.ParseTrendView(*u.TrendView)
		if err != nil {
			return err
		}
		next.TrendView = v
	}
	if u.EnvView != nil {
		v, err := views.ParseEnvironmentalView(*u.EnvView)
		if err != nil {
			return err
		}
		next.EnvView = v
	}
	if u.Variable != nil {
		if !types.IsVariable(*u.Variable) {
			return fmt.Errorf("unknown variable %q", *u.Variable)
		}
		next.Variable = *u.Variable
	}
	if u.Granularity != nil {
		g, err := aggregate.ParseGranularity(*u.Granularity)
		if err != nil {
			return err
		}
		next.Granularity = g
	}
	if u.Date != nil {
		d, err := time.Parse(dateLayout, strings.TrimSpace(*u.Date))
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", *u.Date)
		}
		next.Date = d
	}
	if u.Month != nil {
		m, err := parseMonth(*u.Month)
		if err != nil {
			return err
		}
		next.Month = m
	}
	if u.Year != nil {
		if *u.Year < 1 || *u.Year > 9999 {
			return fmt.Errorf("invalid year %d", *u.Year)
		}
		next.Year = *u.Year
	}

	*st = next
	return nil
}

// applyTo applies u to st. When u switches the dataset without naming a
// year, a year the new dataset does not cover is moved to its newest year.
func (u selectionUpdate) applyTo(st *session.State, years func(dataset.Choice) []int) error {
	if err := u.apply(st); err != nil {
		return err
	}
	if u.Dataset != nil && u.Year == nil && years != nil {
		st.Year = coveredYear(st.Year, years(st.Dataset))
	}
	return nil
}

// coveredYear returns year when years holds it, otherwise the newest of years
func coveredYear(year int, years []int) int {
	if len(years) == 0 {
		return year
	}
	for _, y := range years {
		if y == year {
			return year
		}
	}
	return years[0]
}

// parseMonth accepts a month name or its number
func parseMonth(s string) (time.Month, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("invalid month %d", n)
		}
		return time.Month(n), nil
	}
	return aggregate.ParseMonth(s)
}

// queryUpdate reads selection overrides from the query string. viewParam
// names the selection that the endpoint's "view" parameter overrides.
func queryUpdate(q url.Values, viewParam string) (selectionUpdate, error) {
	var u selectionUpdate
	str := func(key string) *string {
		if !q.Has(key) {
			return nil
		}
		v := q.Get(key)
		return &v
	}

	u.Dataset = str("dataset")
	u.Variable = str("variable")
	u.Granularity = str("granularity")
	u.Date = str("date")
	u.Month = str("month")
	u.TrendView = str("trend_view")
	u.EnvView = str("env_view")

	switch viewParam {
	case "trend":
		if v := str("view"); v != nil {
			u.TrendView = v
		}
	case "environment":
		if v := str("view"); v != nil {
			u.EnvView = v
		}
	}

	if q.Has("year") {
		y, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			return u, fmt.Errorf("invalid year %q", q.Get("year"))
		}
		u.Year = &y
	}
	if q.Has("show_summary") {
		b, err := strconv.ParseBool(q.Get("show_summary"))
		if err != nil {
			return u, fmt.Errorf("invalid show_summary %q", q.Get("show_summary"))
		}
		u.ShowSummary = &b
	}
	return u, nil
}
