package exporter

import (
	"fmt"
	"strconv"
	"time"
)

// formatFloat formats a float64 for CSV output using the shortest decimal
// representation that parses back to the same value. Exported files are read
// back by the surface-report tool, so precision must survive the round trip.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatVol formats an optional volatility. A nil value renders as an empty
// cell, matching the null cells of a sparse grid.
func formatVol(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

// formatDate formats a date for CSV output
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
