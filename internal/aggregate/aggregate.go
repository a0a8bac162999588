// Package aggregate narrows a Dataset to a calendar window and resamples one
// variable into bucket means.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chrissnell/sensordash/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrNoDataset       = errors.New("no dataset available")
	ErrInvalidAnchor   = errors.New("invalid anchor for granularity")
)

// NoDataMessage is shown when a window contains no readings
const NoDataMessage = "No data found for the selected time range."

// Query selects a variable, a granularity and the anchor that granularity
// needs: Date for Daily and Weekly, Month for Monthly, Year for Yearly.
type Query struct {
	Variable    string
	Granularity Granularity
	Date        time.Time
	Month       time.Month
	Year        int
}

// Point is the mean of a variable over one bucket
type Point struct {
	Bucket time.Time `json:"bucket"`
	Value  float64   `json:"value"`
}

// Result is the bucketed series for a Query. Min, Max and Mean describe the
// bucket means, not the raw readings, and are zero when Empty is set.
type Result struct {
	Title       string      `json:"title"`
	Variable    string      `json:"variable"`
	Granularity Granularity `json:"granularity"`
	Points      []Point     `json:"points"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Mean        float64     `json:"mean"`
	Empty       bool        `json:"empty"`
	Message     string      `json:"message,omitempty"`
}

// window narrows readings and assigns each one to a bucket
type window struct {
	title  string
	keep   func(t time.Time) bool
	bucket func(t time.Time) time.Time
}

// Aggregate runs q against ds
func Aggregate(ds *types.Dataset, q Query) (Result, error) {
	if ds == nil {
		return Result{}, ErrNoDataset
	}
	if !types.IsVariable(q.Variable) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownVariable, q.Variable)
	}

	w, err := buildWindow(q)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Title:       w.title,
		Variable:    q.Variable,
		Granularity: q.Granularity,
		Points:      []Point{},
	}

	type acc struct {
		bucket time.Time
		sum    float64
		n      int
	}
	buckets := make(map[int64]*acc)
	for i := range ds.Readings {
		r := &ds.Readings[i]
		if !w.keep(r.Timestamp) {
			continue
		}
		v, _ := r.Value(q.Variable)
		b := w.bucket(r.Timestamp)
		a, ok := buckets[b.Unix()]
		if !ok {
			a = &acc{bucket: b}
			buckets[b.Unix()] = a
		}
		a.sum += v
		a.n++
	}

	if len(buckets) == 0 {
		res.Empty = true
		res.Message = NoDataMessage
		return res, nil
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	values := make([]float64, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		mean := a.sum / float64(a.n)
		res.Points = append(res.Points, Point{Bucket: a.bucket, Value: mean})
		values = append(values, mean)
	}

	res.Min = floats.Min(values)
	res.Max = floats.Max(values)
	res.Mean = stat.Mean(values, nil)
	return res, nil
}

func buildWindow(q Query) (window, error) {
	switch q.Granularity {
	case Daily:
		if q.Date.IsZero() {
			return window{}, fmt.Errorf("%w: daily view needs a date", ErrInvalidAnchor)
		}
		day := civilDate(q.Date)
		return window{
			title: fmt.Sprintf("%s - %s (Daily View)", q.Variable, q.Date.Format("January 02, 2006")),
			keep:  func(t time.Time) bool { return civilDate(t).Equal(day) },
			bucket: func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
			},
		}, nil

	case Weekly:
		if q.Date.IsZero() {
			return window{}, fmt.Errorf("%w: weekly view needs a date", ErrInvalidAnchor)
		}
		start, end := WeekBounds(q.Date)
		return window{
			title: fmt.Sprintf("%s - Week of %s (Weekly View)", q.Variable, start.Format("Jan 02")),
			keep: func(t time.Time) bool {
				d := civilDate(t)
				return !d.Before(start) && !d.After(end)
			},
			bucket: func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()-t.Hour()%6, 0, 0, 0, t.Location())
			},
		}, nil

	case Monthly:
		if q.Month < time.January || q.Month > time.December {
			return window{}, fmt.Errorf("%w: monthly view needs a month", ErrInvalidAnchor)
		}
		return window{
			title: fmt.Sprintf("%s - %s (Monthly View)", q.Variable, q.Month),
			keep:  func(t time.Time) bool { return t.Month() == q.Month },
			bucket: func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			},
		}, nil

	case Yearly:
		if q.Year == 0 {
			return window{}, fmt.Errorf("%w: yearly view needs a year", ErrInvalidAnchor)
		}
		return window{
			title: fmt.Sprintf("%s - %d (Yearly View)", q.Variable, q.Year),
			keep:  func(t time.Time) bool { return t.Year() == q.Year },
			// labelled by the last day of the month
			bucket: func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
			},
		}, nil
	}
	return window{}, fmt.Errorf("%w: %d", ErrInvalidAnchor, q.Granularity)
}

// WeekBounds returns the Monday and Sunday of the week containing d, as
// calendar dates.
func WeekBounds(d time.Time) (time.Time, time.Time) {
	day := civilDate(d)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// civilDate strips the clock and zone so calendar dates compare directly
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
