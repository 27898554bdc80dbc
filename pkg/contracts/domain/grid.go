package domain

import (
	"fmt"
	"sort"
)

// Cell provenance values.
const (
	ProvenanceObserved     = "observed"
	ProvenanceInterpolated = "interpolated"
	ProvenanceMissing      = "missing"
)

// GridCell is one grid entry: a volatility (null when missing), how it was
// obtained, and how many solved quotes backed it.
type GridCell struct {
	Vol        *float64 `json:"vol"`
	Provenance string   `json:"provenance,omitempty"`
	Count      int      `json:"count,omitempty"`
}

// GridReport summarizes how a grid was assembled.
type GridReport struct {
	QuotesIn        int       `json:"quotes_in"`
	QuotesUsed      int       `json:"quotes_used"`
	MinObservations int       `json:"min_observations"`
	PrunedStrikes   []float64 `json:"pruned_strikes,omitempty"`
	Observed        int       `json:"observed"`
	Interpolated    int       `json:"interpolated"`
	Missing         int       `json:"missing"`
}

// Grid is the wire representation of an expiration-by-strike volatility
// table. Rows are expirations ascending, columns are strikes ascending, and
// cells[i][j] belongs to expirations[i] and strikes[j]. Grid responses carry
// a report; grids posted back for surface meshing may omit it.
type Grid struct {
	ValuationDate string       `json:"valuation_date" validate:"required,iso8601"`
	Expirations   []string     `json:"expirations" validate:"required,min=1,dive,iso8601"`
	Strikes       []float64    `json:"strikes" validate:"required,min=2"`
	Cells         [][]GridCell `json:"cells" validate:"required,min=1"`
	Report        *GridReport  `json:"report,omitempty"`
}

// Validate checks the structural invariants a grid consumer relies on:
// parseable ascending dates, ascending strikes, and a cell matrix whose
// shape matches the axes.
func (g *Grid) Validate() error {
	valuation, err := ParseDate(g.ValuationDate)
	if err != nil {
		return fmt.Errorf("valuation_date: %w", err)
	}

	if len(g.Expirations) == 0 {
		return fmt.Errorf("grid needs at least one expiration")
	}
	prev := valuation
	for i, s := range g.Expirations {
		expiration, err := ParseDate(s)
		if err != nil {
			return fmt.Errorf("expirations[%d]: %w", i, err)
		}
		if !expiration.After(prev) {
			if i == 0 {
				return fmt.Errorf("expirations[0] %s must lie after valuation_date %s", s, g.ValuationDate)
			}
			return fmt.Errorf("expirations must ascend: %s does not follow %s", s, g.Expirations[i-1])
		}
		prev = expiration
	}

	if len(g.Strikes) < 2 {
		return fmt.Errorf("grid needs at least two strikes, got %d", len(g.Strikes))
	}
	if !sort.Float64sAreSorted(g.Strikes) {
		return fmt.Errorf("strikes must ascend")
	}
	for i := 1; i < len(g.Strikes); i++ {
		if g.Strikes[i] == g.Strikes[i-1] {
			return fmt.Errorf("duplicate strike %v", g.Strikes[i])
		}
	}

	if len(g.Cells) != len(g.Expirations) {
		return fmt.Errorf("cells has %d rows for %d expirations", len(g.Cells), len(g.Expirations))
	}
	for i, row := range g.Cells {
		if len(row) != len(g.Strikes) {
			return fmt.Errorf("cells[%d] has %d columns for %d strikes", i, len(row), len(g.Strikes))
		}
	}

	return nil
}

// IsComplete reports whether every cell carries a value.
func (g *Grid) IsComplete() bool {
	for i := range g.Cells {
		for j := range g.Cells[i] {
			if g.Cells[i][j].Vol == nil {
				return false
			}
		}
	}
	return true
}

// GridInsights summarizes the level and term structure of a grid.
type GridInsights struct {
	Expirations int `json:"expirations"`
	Strikes     int `json:"strikes"`

	Observed     int `json:"observed"`
	Interpolated int `json:"interpolated"`
	Missing      int `json:"missing"`

	MinVol  float64 `json:"min_vol"`
	MaxVol  float64 `json:"max_vol"`
	MeanVol float64 `json:"mean_vol"`
	StdDev  float64 `json:"std_dev"`

	TermStructure []TermPoint `json:"term_structure"`
}

// TermPoint is the average volatility of one expiration row.
type TermPoint struct {
	Expiration     string  `json:"expiration"`
	DaysToMaturity int     `json:"days_to_maturity"`
	MeanVol        float64 `json:"mean_vol"`
	Strikes        int     `json:"strikes"`
}
