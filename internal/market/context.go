package market

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Compounding states how raw risk-free rate observations are quoted.
type Compounding string

const (
	// Continuous rates are used as-is.
	Continuous Compounding = "continuous"
	// Annual rates are converted to continuous via ln(1+r).
	Annual Compounding = "annual"
)

// ParseCompounding resolves a configuration string to a compounding basis.
func ParseCompounding(s string) (Compounding, error) {
	switch s {
	case "", string(Continuous):
		return Continuous, nil
	case string(Annual):
		return Annual, nil
	default:
		return "", fmt.Errorf("unknown compounding basis: %q", s)
	}
}

// Context bundles the market series a volatility solve draws on. IndexLevels
// is required for quotes that do not carry their own underlying level; the
// dividend and rate series may be nil, in which case they resolve to zero.
type Context struct {
	IndexLevels    *Series
	DividendYields *Series
	RiskFreeRates  *Series

	// DayCount defaults to ActualActualISDA when left zero.
	DayCount DayCount
	// Compounding defaults to Continuous when left zero.
	Compounding Compounding

	Logger *slog.Logger
}

// Snapshot holds the resolved inputs for pricing one quote.
type Snapshot struct {
	Spot          float64 `json:"spot"`
	DividendYield float64 `json:"dividend_yield"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	Tau           float64 `json:"tau"`
}

// Resolve produces the pricing snapshot for a quote: spot and dividend yield
// effective at the valuation date, risk-free rate effective at the expiration
// date, and the year fraction between the two.
func (c *Context) Resolve(valuation, expiration time.Time) (Snapshot, error) {
	spot, err := c.SpotAt(valuation)
	if err != nil {
		return Snapshot{}, err
	}
	dividend, err := c.DividendYieldAt(valuation)
	if err != nil {
		return Snapshot{}, err
	}
	rate, err := c.RiskFreeRateAt(expiration)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Spot:          spot,
		DividendYield: dividend,
		RiskFreeRate:  rate,
		Tau:           c.YearFraction(valuation, expiration),
	}, nil
}

// SpotAt returns the index level effective on date.
func (c *Context) SpotAt(date time.Time) (float64, error) {
	if c.IndexLevels == nil {
		return 0, fmt.Errorf("index levels: %w", ErrEmptySeries)
	}
	return c.lookup(c.IndexLevels, date)
}

// DividendYieldAt returns the dividend yield effective on date. A nil series
// resolves to zero.
func (c *Context) DividendYieldAt(date time.Time) (float64, error) {
	if c.DividendYields == nil {
		return 0, nil
	}
	return c.lookup(c.DividendYields, date)
}

// RiskFreeRateAt returns the continuously compounded rate effective on date,
// converting from the configured quoting basis. A nil series resolves to zero.
func (c *Context) RiskFreeRateAt(date time.Time) (float64, error) {
	if c.RiskFreeRates == nil {
		return 0, nil
	}
	raw, err := c.lookup(c.RiskFreeRates, date)
	if err != nil {
		return 0, err
	}
	return c.ToContinuous(raw)
}

// ToContinuous converts a raw rate observation to continuous compounding
// under the context's quoting basis.
func (c *Context) ToContinuous(rate float64) (float64, error) {
	switch c.Compounding {
	case Annual:
		if rate <= -1 {
			return 0, fmt.Errorf("annual rate %v has no continuous equivalent", rate)
		}
		return math.Log(1 + rate), nil
	default:
		return rate, nil
	}
}

// YearFraction measures valuation-to-expiration time under the context's
// day count convention.
func (c *Context) YearFraction(start, end time.Time) float64 {
	return c.DayCount.YearFraction(start, end)
}

func (c *Context) lookup(s *Series, date time.Time) (float64, error) {
	v, err := s.At(date)
	if err != nil {
		return 0, err
	}
	if !s.Covers(date) {
		c.logger().Warn("date precedes series, clipping to first observation",
			slog.String("series", s.Name()),
			slog.String("date", date.Format("2006-01-02")),
			slog.String("first", s.First().Date.Format("2006-01-02")))
	}
	return v, nil
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
