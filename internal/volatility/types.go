package volatility

import (
	"fmt"
	"log/slog"
	"time"

	"volgrid/internal/quotes"
)

// Solver domain constants.
const (
	// VolLowerBound is the smallest volatility the solver searches.
	VolLowerBound = 1e-6
	// VolUpperBound is the largest volatility the solver searches.
	VolUpperBound = 5.0
	// DefaultTolerance is the absolute price tolerance for convergence.
	DefaultTolerance = 1e-6
	// DefaultMaxIterations bounds the Newton and bisection loops.
	DefaultMaxIterations = 100
	// vegaFloor is the smallest vega Newton divides by before handing the
	// search to bisection.
	vegaFloor = 1e-10
)

// Grid domain constants.
const (
	// DefaultObservationFraction derives the pruning threshold from the
	// number of expirations when MinObservations is left zero.
	DefaultObservationFraction = 0.75
	// DefaultCalculationTimeout bounds a batch solve.
	DefaultCalculationTimeout = 5 * time.Minute
)

// SolverConfig holds the numerical parameters of the implied volatility
// search. The zero value solves with the package defaults.
type SolverConfig struct {
	Tolerance     float64 `json:"tolerance"`      // absolute price tolerance
	MaxIterations int     `json:"max_iterations"` // per search stage
	LowerBound    float64 `json:"lower_bound"`    // volatility domain floor
	UpperBound    float64 `json:"upper_bound"`    // volatility domain ceiling
}

// DefaultSolverConfig returns the standard search parameters.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		LowerBound:    VolLowerBound,
		UpperBound:    VolUpperBound,
	}
}

// IsValid checks the configuration describes a usable search domain.
func (c SolverConfig) IsValid() bool {
	return c.Tolerance > 0 && c.MaxIterations > 0 &&
		c.LowerBound > 0 && c.UpperBound > c.LowerBound
}

// normalized fills zero fields with defaults.
func (c SolverConfig) normalized() SolverConfig {
	d := DefaultSolverConfig()
	if c.Tolerance > 0 {
		d.Tolerance = c.Tolerance
	}
	if c.MaxIterations > 0 {
		d.MaxIterations = c.MaxIterations
	}
	if c.LowerBound > 0 {
		d.LowerBound = c.LowerBound
	}
	if c.UpperBound > 0 {
		d.UpperBound = c.UpperBound
	}
	return d
}

// Terms are the resolved pricing inputs for one option: everything the
// Black-Scholes-Merton formula needs except the volatility.
type Terms struct {
	Spot          float64           `json:"spot"`
	Strike        float64           `json:"strike"`
	Tau           float64           `json:"tau"` // time to expiration in years
	Rate          float64           `json:"rate"`
	DividendYield float64           `json:"dividend_yield"`
	Type          quotes.OptionType `json:"type"`
}

// SolvedQuote is one quote annotated with its resolved market inputs and
// the outcome of the implied volatility solve. A nil ImpliedVol means the
// solve failed; FailureKind and FailureDetail say how.
type SolvedQuote struct {
	Quote quotes.Quote `json:"quote"`

	Spot          float64 `json:"spot"`
	DividendYield float64 `json:"dividend_yield"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	Tau           float64 `json:"tau"`

	ImpliedVol    *float64    `json:"implied_vol"`
	Iterations    int         `json:"iterations"`
	FailureKind   FailureKind `json:"failure_kind,omitempty"`
	FailureDetail string      `json:"failure_detail,omitempty"`
}

// Solved reports whether the solve produced a volatility.
func (sq SolvedQuote) Solved() bool {
	return sq.ImpliedVol != nil
}

// FilterType selects which side of the book a grid is built from.
type FilterType string

const (
	// FilterCalls keeps call quotes only. This is the default.
	FilterCalls FilterType = "calls"
	// FilterPuts keeps put quotes only.
	FilterPuts FilterType = "puts"
	// FilterBoth keeps the whole book.
	FilterBoth FilterType = "both"
)

// ParseFilterType resolves a configuration string to a book filter.
func ParseFilterType(s string) (FilterType, error) {
	switch s {
	case "", string(FilterCalls):
		return FilterCalls, nil
	case string(FilterPuts):
		return FilterPuts, nil
	case string(FilterBoth):
		return FilterBoth, nil
	default:
		return "", fmt.Errorf("unknown quote filter: %q", s)
	}
}

// keeps reports whether the filter admits quotes of type ot.
func (f FilterType) keeps(ot quotes.OptionType) bool {
	switch f {
	case FilterPuts:
		return ot == quotes.OptionPut
	case FilterBoth:
		return true
	default:
		return ot == quotes.OptionCall
	}
}

// AggregationMethod combines duplicate (expiration, strike) observations.
type AggregationMethod string

const (
	// AggregateMean averages duplicate observations. This is the default.
	AggregateMean AggregationMethod = "mean"
	// AggregateMedian takes the empirical median of duplicate observations.
	AggregateMedian AggregationMethod = "median"
)

// ParseAggregationMethod resolves a configuration string to an aggregation.
func ParseAggregationMethod(s string) (AggregationMethod, error) {
	switch s {
	case "", string(AggregateMean):
		return AggregateMean, nil
	case string(AggregateMedian):
		return AggregateMedian, nil
	default:
		return "", fmt.Errorf("unknown aggregation method: %q", s)
	}
}

// InterpolationMethod fills gaps in a pruned grid.
type InterpolationMethod string

const (
	// InterpolateLinear fills interior gaps linearly along strikes, then
	// along expirations. Cells outside the observed range stay null. This
	// is the default.
	InterpolateLinear InterpolationMethod = "linear"
	// InterpolateLinearClamp fills interior gaps linearly and additionally
	// carries the last observed value forward along expirations.
	InterpolateLinearClamp InterpolationMethod = "linear_clamp"
	// InterpolateNone leaves every gap null.
	InterpolateNone InterpolationMethod = "none"
)

// ParseInterpolationMethod resolves a configuration string to a gap policy.
func ParseInterpolationMethod(s string) (InterpolationMethod, error) {
	switch s {
	case "", string(InterpolateLinear):
		return InterpolateLinear, nil
	case string(InterpolateLinearClamp):
		return InterpolateLinearClamp, nil
	case string(InterpolateNone):
		return InterpolateNone, nil
	default:
		return "", fmt.Errorf("unknown interpolation method: %q", s)
	}
}

// GridConfig directs how solved quotes are pivoted into a grid. The zero
// value builds a call grid with mean aggregation, fraction-derived pruning,
// and linear gap filling.
type GridConfig struct {
	// Filter keeps one side of the book. Empty means calls.
	Filter FilterType `json:"filter"`

	// Aggregation combines duplicate (expiration, strike) observations.
	Aggregation AggregationMethod `json:"aggregation"`

	// MinObservations is the smallest number of populated expirations a
	// strike needs to survive pruning. Zero derives the threshold from
	// ObservationFraction; configured values must be at least 1.
	MinObservations int `json:"min_observations"`

	// ObservationFraction backs the derived pruning threshold when
	// MinObservations is zero. Zero means DefaultObservationFraction.
	ObservationFraction float64 `json:"observation_fraction"`

	// Interpolation fills gaps left after pruning.
	Interpolation InterpolationMethod `json:"interpolation"`

	Logger *slog.Logger `json:"-"`
}

// Validate checks the configuration is internally consistent.
func (c GridConfig) Validate() error {
	if c.MinObservations < 0 {
		return fmt.Errorf("min_observations must not be negative, got %d", c.MinObservations)
	}
	if c.ObservationFraction < 0 || c.ObservationFraction > 1 {
		return fmt.Errorf("observation_fraction must be in [0, 1], got %v", c.ObservationFraction)
	}
	if _, err := ParseFilterType(string(c.Filter)); err != nil {
		return err
	}
	if _, err := ParseAggregationMethod(string(c.Aggregation)); err != nil {
		return err
	}
	if _, err := ParseInterpolationMethod(string(c.Interpolation)); err != nil {
		return err
	}
	return nil
}

// normalized fills zero fields with defaults.
func (c GridConfig) normalized() GridConfig {
	if c.Filter == "" {
		c.Filter = FilterCalls
	}
	if c.Aggregation == "" {
		c.Aggregation = AggregateMean
	}
	if c.ObservationFraction == 0 {
		c.ObservationFraction = DefaultObservationFraction
	}
	if c.Interpolation == "" {
		c.Interpolation = InterpolateLinear
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Provenance states how a grid cell got its value.
type Provenance string

const (
	// ProvenanceObserved cells aggregate solved market quotes.
	ProvenanceObserved Provenance = "observed"
	// ProvenanceInterpolated cells were filled from neighbors.
	ProvenanceInterpolated Provenance = "interpolated"
	// ProvenanceMissing cells have no value.
	ProvenanceMissing Provenance = "missing"
)

// Cell is one grid entry: a volatility (nil when missing), how it was
// obtained, and how many solved quotes backed it.
type Cell struct {
	Vol        *float64   `json:"vol"`
	Provenance Provenance `json:"provenance"`
	Count      int        `json:"count,omitempty"`
}

// Grid is the expiration-by-strike volatility table produced by BuildGrid.
// Rows are expirations ascending, columns are strikes ascending, and
// Cells[i][j] belongs to Expirations[i] and Strikes[j].
type Grid struct {
	ValuationDate time.Time   `json:"valuation_date"`
	Expirations   []time.Time `json:"expirations"`
	Strikes       []float64   `json:"strikes"`
	Cells         [][]Cell    `json:"cells"`
	Report        GridReport  `json:"report"`
}

// GridReport summarizes how a grid was assembled.
type GridReport struct {
	QuotesIn        int       `json:"quotes_in"`        // solved quotes offered
	QuotesUsed      int       `json:"quotes_used"`      // surviving filter and solve checks
	MinObservations int       `json:"min_observations"` // effective pruning threshold
	PrunedStrikes   []float64 `json:"pruned_strikes,omitempty"`
	Observed        int       `json:"observed"`
	Interpolated    int       `json:"interpolated"`
	Missing         int       `json:"missing"`
}

// Rows reports the number of expirations.
func (g *Grid) Rows() int { return len(g.Expirations) }

// Cols reports the number of strikes.
func (g *Grid) Cols() int { return len(g.Strikes) }

// Vol returns the volatility at row i, column j when the cell is populated.
func (g *Grid) Vol(i, j int) (float64, bool) {
	c := g.Cells[i][j]
	if c.Vol == nil {
		return 0, false
	}
	return *c.Vol, true
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
