package volatility

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"volgrid/internal/market"
)

// ErrExtrapolation is returned for queries outside the fitted surface when
// extrapolation is not enabled.
var ErrExtrapolation = errors.New("query outside surface domain, extrapolation disabled")

// SurfaceMethod selects the interpolator a surface is fitted with.
type SurfaceMethod string

const (
	// SurfaceBilinear interpolates variance linearly in strike and time.
	// This is the default.
	SurfaceBilinear SurfaceMethod = "bilinear"
	// SurfaceBicubic fits natural cubic splines along strikes and time.
	SurfaceBicubic SurfaceMethod = "bicubic"
)

// ParseSurfaceMethod resolves a configuration string to a surface fit.
func ParseSurfaceMethod(s string) (SurfaceMethod, error) {
	switch s {
	case "", string(SurfaceBilinear):
		return SurfaceBilinear, nil
	case string(SurfaceBicubic):
		return SurfaceBicubic, nil
	default:
		return "", fmt.Errorf("unknown surface method: %q", s)
	}
}

// SurfaceOptions direct the surface fit.
type SurfaceOptions struct {
	// Method defaults to SurfaceBilinear.
	Method SurfaceMethod
	// AllowExtrapolation admits queries beyond the last expiration and
	// outside the strike range, extending edge behavior linearly.
	AllowExtrapolation bool
	// DayCount resolves expiration dates to year fractions. The zero value
	// is ActualActualISDA.
	DayCount market.DayCount
}

// Surface interpolates Black volatility in time and strike over a complete
// grid. It works on total variance, vol squared times tau, so that time
// interpolation between expirations stays consistent: a flat vol in implies
// a flat vol out. Queries before the first expiration blend toward zero
// variance at the valuation date, which keeps the short end at the first
// row's volatility.
type Surface struct {
	valuation   time.Time
	expirations []time.Time
	taus        []float64
	strikes     []float64
	variance    [][]float64 // [expiration][strike] total variance
	rows        []interp.Predictor
	method      SurfaceMethod
	extrapolate bool
	dayCount    market.DayCount
}

// NewSurface fits a surface to a complete grid. Grids with unfilled cells
// must be interpolated or reduced with Complete first.
func NewSurface(g *Grid, opts SurfaceOptions) (*Surface, error) {
	method, err := ParseSurfaceMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}
	if g == nil || g.Rows() == 0 || g.Cols() == 0 {
		return nil, fmt.Errorf("surface needs a non-empty grid")
	}
	if g.Cols() < 2 {
		return nil, fmt.Errorf("surface needs at least two strikes, got %d", g.Cols())
	}
	if !g.IsComplete() {
		return nil, fmt.Errorf("grid has unfilled cells; interpolate or call Complete first")
	}

	s := &Surface{
		valuation:   g.ValuationDate,
		expirations: append([]time.Time(nil), g.Expirations...),
		taus:        make([]float64, g.Rows()),
		strikes:     append([]float64(nil), g.Strikes...),
		variance:    make([][]float64, g.Rows()),
		rows:        make([]interp.Predictor, g.Rows()),
		method:      method,
		extrapolate: opts.AllowExtrapolation,
		dayCount:    opts.DayCount,
	}

	for i, expiration := range g.Expirations {
		tau := s.dayCount.YearFraction(g.ValuationDate, expiration)
		if tau <= 0 {
			return nil, fmt.Errorf("expiration %s does not lie after valuation date %s",
				expiration.Format("2006-01-02"), g.ValuationDate.Format("2006-01-02"))
		}
		s.taus[i] = tau

		row := make([]float64, g.Cols())
		for j := range g.Strikes {
			vol, _ := g.Vol(i, j)
			row[j] = vol * vol * tau
		}
		s.variance[i] = row

		fit := s.newRowFit()
		if err := fit.Fit(s.strikes, row); err != nil {
			return nil, fmt.Errorf("fit row %s: %w", expiration.Format("2006-01-02"), err)
		}
		s.rows[i] = fit
	}

	return s, nil
}

func (s *Surface) newRowFit() interp.FittablePredictor {
	if s.method == SurfaceBicubic {
		return &interp.NaturalCubic{}
	}
	return &interp.PiecewiseLinear{}
}

// ValuationDate returns the date the surface is anchored to.
func (s *Surface) ValuationDate() time.Time { return s.valuation }

// Expirations returns the fitted expiration dates in ascending order.
func (s *Surface) Expirations() []time.Time {
	return append([]time.Time(nil), s.expirations...)
}

// StrikeRange returns the smallest and largest fitted strike.
func (s *Surface) StrikeRange() (float64, float64) {
	return s.strikes[0], s.strikes[len(s.strikes)-1]
}

// TauRange returns the smallest and largest fitted year fraction.
func (s *Surface) TauRange() (float64, float64) {
	return s.taus[0], s.taus[len(s.taus)-1]
}

// BlackVol returns the volatility at (expiration, strike), resolving the
// expiration through the surface's day count.
func (s *Surface) BlackVol(expiration time.Time, strike float64) (float64, error) {
	return s.BlackVolTau(s.dayCount.YearFraction(s.valuation, expiration), strike)
}

// BlackVolTau returns the volatility at (tau, strike). Negative variance
// from cubic overshoot clamps to zero.
func (s *Surface) BlackVolTau(tau, strike float64) (float64, error) {
	v, err := s.Variance(tau, strike)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v / tau), nil
}

// Variance returns the total Black variance at (tau, strike).
func (s *Surface) Variance(tau, strike float64) (float64, error) {
	if math.IsNaN(tau) || tau <= 0 {
		return 0, fmt.Errorf("tau must be positive, got %v", tau)
	}

	last := len(s.taus) - 1
	if !s.extrapolate {
		if strike < s.strikes[0] || strike > s.strikes[len(s.strikes)-1] {
			return 0, fmt.Errorf("%w: strike %v outside [%v, %v]",
				ErrExtrapolation, strike, s.strikes[0], s.strikes[len(s.strikes)-1])
		}
		if tau > s.taus[last] {
			return 0, fmt.Errorf("%w: tau %v beyond last expiration %v",
				ErrExtrapolation, tau, s.taus[last])
		}
	}

	switch {
	case tau <= s.taus[0]:
		// Variance grows from zero at the valuation date to the first row.
		return s.rowVariance(0, strike) * tau / s.taus[0], nil
	case tau >= s.taus[last]:
		// Constant vol beyond the last expiration.
		return s.rowVariance(last, strike) * tau / s.taus[last], nil
	}

	if s.method == SurfaceBicubic {
		column := make([]float64, len(s.taus))
		for i := range s.taus {
			column[i] = s.rowVariance(i, strike)
		}
		var fit interp.NaturalCubic
		if err := fit.Fit(s.taus, column); err != nil {
			return 0, fmt.Errorf("fit time axis: %w", err)
		}
		return fit.Predict(tau), nil
	}

	hi := sort.SearchFloat64s(s.taus, tau)
	lo := hi - 1
	w := (tau - s.taus[lo]) / (s.taus[hi] - s.taus[lo])
	vLo := s.rowVariance(lo, strike)
	vHi := s.rowVariance(hi, strike)
	return vLo + w*(vHi-vLo), nil
}

// rowVariance evaluates one expiration row at strike. Outside the fitted
// strike range the edge segment continues linearly; the interpolant itself
// is only ever evaluated inside its domain.
func (s *Surface) rowVariance(i int, strike float64) float64 {
	m := len(s.strikes)
	switch {
	case strike < s.strikes[0]:
		slope := (s.variance[i][1] - s.variance[i][0]) / (s.strikes[1] - s.strikes[0])
		return s.variance[i][0] + slope*(strike-s.strikes[0])
	case strike > s.strikes[m-1]:
		slope := (s.variance[i][m-1] - s.variance[i][m-2]) / (s.strikes[m-1] - s.strikes[m-2])
		return s.variance[i][m-1] + slope*(strike-s.strikes[m-1])
	default:
		return s.rows[i].Predict(strike)
	}
}
