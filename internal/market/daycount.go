package market

import (
	"fmt"
	"strings"
	"time"
)

// DayCount selects the convention used to turn two dates into a year fraction.
type DayCount string

const (
	// ActualActualISDA splits the period at calendar-year boundaries and
	// divides each piece by the actual length of its year. This is the
	// default convention.
	ActualActualISDA DayCount = "actual_actual_isda"

	// Actual365Fixed divides actual elapsed days by a flat 365.
	Actual365Fixed DayCount = "actual_365_fixed"
)

// ParseDayCount resolves a configuration string to a day count convention.
func ParseDayCount(s string) (DayCount, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "/", "_")
	switch normalized {
	case "", "actual_actual_isda", "actual_actual", "act_act":
		return ActualActualISDA, nil
	case "actual_365_fixed", "actual_365", "act_365":
		return Actual365Fixed, nil
	default:
		return "", fmt.Errorf("unknown day count convention: %q", s)
	}
}

// YearFraction measures the time between two dates in years under the
// convention. An end before start yields the negated forward fraction.
// The zero value behaves as ActualActualISDA.
func (dc DayCount) YearFraction(start, end time.Time) float64 {
	s, e := day(start), day(end)
	if e.Before(s) {
		return -dc.YearFraction(end, start)
	}

	switch dc {
	case Actual365Fixed:
		return float64(daysBetween(s, e)) / 365.0
	default:
		return isdaFraction(s, e)
	}
}

// isdaFraction implements Actual/Actual ISDA on day-truncated UTC dates.
func isdaFraction(start, end time.Time) float64 {
	if start.Year() == end.Year() {
		return float64(daysBetween(start, end)) / yearLength(start.Year())
	}

	startNext := time.Date(start.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	endYear := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	frac := float64(daysBetween(start, startNext)) / yearLength(start.Year())
	frac += float64(end.Year() - start.Year() - 1)
	frac += float64(daysBetween(endYear, end)) / yearLength(end.Year())
	return frac
}

// daysBetween counts whole days between two day-truncated UTC instants.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func yearLength(year int) float64 {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
