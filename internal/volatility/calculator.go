package volatility

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"volgrid/internal/market"
	"volgrid/internal/quotes"
)

// Calculator orchestrates implied volatility solves for batches of quotes
// against a market context.
type Calculator struct {
	solver SolverConfig
	market *market.Context
	logger *slog.Logger

	// Configuration options
	maxConcurrency     int
	calculationTimeout time.Duration
}

// NewCalculator creates a calculator with the specified solver parameters.
// The market context may be nil when every quote carries its own underlying
// level, dividend yield, and rate.
func NewCalculator(solver SolverConfig, mkt *market.Context, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Calculator{
		solver:             solver.normalized(),
		market:             mkt,
		logger:             logger,
		maxConcurrency:     runtime.GOMAXPROCS(0),
		calculationTimeout: DefaultCalculationTimeout,
	}
}

// SetConfiguration sets batch processing options. Non-positive values keep
// the current setting.
func (c *Calculator) SetConfiguration(maxConcurrency int, timeout time.Duration) {
	if maxConcurrency > 0 {
		c.maxConcurrency = maxConcurrency
	}
	if timeout > 0 {
		c.calculationTimeout = timeout
	}
}

// Calculate solves every quote and returns results in input order. Per-quote
// failures are recorded on the result row rather than failing the batch;
// only empty input or context cancellation abort the whole run.
func (c *Calculator) Calculate(ctx context.Context, qs []quotes.Quote) ([]SolvedQuote, error) {
	start := time.Now()

	c.logger.InfoContext(ctx, "starting implied volatility calculation",
		"quotes", len(qs),
		"max_concurrency", c.maxConcurrency,
		"timeout", c.calculationTimeout,
	)

	if len(qs) == 0 {
		return nil, fmt.Errorf("no quotes provided")
	}

	calcCtx, cancel := context.WithTimeout(ctx, c.calculationTimeout)
	defer cancel()

	// Each goroutine writes only its own slot, so results need no lock.
	results := make([]SolvedQuote, len(qs))
	g, gctx := errgroup.WithContext(calcCtx)
	g.SetLimit(c.maxConcurrency)

	for i := range qs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = c.solveOne(gctx, qs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.ErrorContext(ctx, "implied volatility calculation aborted", "error", err)
		return nil, fmt.Errorf("calculation aborted: %w", err)
	}

	solved := 0
	for i := range results {
		if results[i].Solved() {
			solved++
		}
	}

	c.logger.InfoContext(ctx, "implied volatility calculation completed",
		"duration", time.Since(start),
		"quotes", len(qs),
		"solved", solved,
		"failed", len(qs)-solved,
	)

	return results, nil
}

// solveOne resolves one quote against the market context and runs the
// solver. Failures are folded into the returned row.
func (c *Calculator) solveOne(ctx context.Context, q quotes.Quote) SolvedQuote {
	sq := SolvedQuote{Quote: q}

	if err := q.Validate(); err != nil {
		return c.fail(ctx, sq, invalidInput("quote", "%v", err))
	}

	terms, err := c.resolveTerms(q)
	if err != nil {
		return c.fail(ctx, sq, err)
	}
	sq.Spot = terms.Spot
	sq.DividendYield = terms.DividendYield
	sq.RiskFreeRate = terms.Rate
	sq.Tau = terms.Tau

	vol, iterations, err := ImpliedVol(terms, q.OptionPrice.InexactFloat64(), c.solver)
	sq.Iterations = iterations
	if err != nil {
		return c.fail(ctx, sq, err)
	}

	sq.ImpliedVol = &vol
	return sq
}

// resolveTerms merges quote-level overrides with the market context. A field
// carried on the quote wins; everything else resolves from the series.
func (c *Calculator) resolveTerms(q quotes.Quote) (Terms, error) {
	t := Terms{
		Strike: q.Strike.InexactFloat64(),
		Type:   q.OptionType,
		Tau:    c.yearFraction(q.ValuationDate, q.ExpirationDate),
	}

	switch {
	case q.UnderlyingLevel != nil:
		t.Spot = *q.UnderlyingLevel
	case c.market != nil:
		spot, err := c.market.SpotAt(q.ValuationDate)
		if err != nil {
			return Terms{}, insufficientData("underlying_level", err)
		}
		t.Spot = spot
	default:
		return Terms{}, insufficientData("underlying_level", fmt.Errorf("quote carries no level and no market context is set"))
	}

	switch {
	case q.DividendYield != nil:
		t.DividendYield = *q.DividendYield
	case c.market != nil:
		dividend, err := c.market.DividendYieldAt(q.ValuationDate)
		if err != nil {
			return Terms{}, insufficientData("dividend_yield", err)
		}
		t.DividendYield = dividend
	}

	switch {
	case q.RiskFreeRate != nil:
		rate, err := c.toContinuous(*q.RiskFreeRate)
		if err != nil {
			return Terms{}, insufficientData("risk_free_rate", err)
		}
		t.Rate = rate
	case c.market != nil:
		// The rate matches the term of the option, not the valuation day.
		rate, err := c.market.RiskFreeRateAt(q.ExpirationDate)
		if err != nil {
			return Terms{}, insufficientData("risk_free_rate", err)
		}
		t.Rate = rate
	}

	return t, nil
}

func (c *Calculator) yearFraction(start, end time.Time) float64 {
	if c.market != nil {
		return c.market.YearFraction(start, end)
	}
	return market.ActualActualISDA.YearFraction(start, end)
}

func (c *Calculator) toContinuous(rate float64) (float64, error) {
	if c.market != nil {
		return c.market.ToContinuous(rate)
	}
	return rate, nil
}

func (c *Calculator) fail(ctx context.Context, sq SolvedQuote, err error) SolvedQuote {
	sq.FailureKind = KindOf(err)
	sq.FailureDetail = err.Error()

	c.logger.DebugContext(ctx, "implied volatility solve failed",
		"strike", sq.Quote.StrikeLabel(),
		"expiration", sq.Quote.ExpirationDate.Format("2006-01-02"),
		"kind", string(sq.FailureKind),
		"error", err,
	)
	return sq
}
