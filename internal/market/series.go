package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptySeries is returned when a lookup lands on a series with no points.
var ErrEmptySeries = errors.New("series is empty")

// Point is one dated observation in a market series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ordered sequence of observations for one market quantity
// such as index levels, dividend yields, or risk-free rates. Lookups resolve
// on calendar days: the observation at the greatest date on or before the
// requested date wins.
type Series struct {
	name   string
	points []Point
}

// NewSeries builds a series from unordered points. Dates are truncated to
// calendar days; when several points share a day the last one provided wins.
func NewSeries(name string, points []Point) (*Series, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptySeries)
	}

	normalized := make([]Point, len(points))
	for i, p := range points {
		normalized[i] = Point{Date: day(p.Date), Value: p.Value}
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Date.Before(normalized[j].Date)
	})

	deduped := normalized[:0]
	for _, p := range normalized {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(p.Date) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	return &Series{name: name, points: deduped}, nil
}

// Name reports the label the series was built with.
func (s *Series) Name() string { return s.name }

// Len reports the number of distinct observation days.
func (s *Series) Len() int { return len(s.points) }

// First returns the earliest observation.
func (s *Series) First() Point { return s.points[0] }

// Last returns the latest observation.
func (s *Series) Last() Point { return s.points[len(s.points)-1] }

// Covers reports whether date falls on or after the first observation,
// i.e. whether At can resolve it without clipping.
func (s *Series) Covers(date time.Time) bool {
	if len(s.points) == 0 {
		return false
	}
	return !day(date).Before(s.points[0].Date)
}

// At returns the value effective on date: the observation at the greatest
// recorded day on or before it. Dates before the first observation clip to
// that observation.
func (s *Series) At(date time.Time) (float64, error) {
	if len(s.points) == 0 {
		return 0, fmt.Errorf("%s: %w", s.name, ErrEmptySeries)
	}

	d := day(date)
	// Index of the first point strictly after d; the match is the one before.
	idx := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(d)
	})
	if idx == 0 {
		return s.points[0].Value, nil
	}
	return s.points[idx-1].Value, nil
}

// day truncates t to midnight UTC so lookups compare calendar days.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
