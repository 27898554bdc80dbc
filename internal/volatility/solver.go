package volatility

import (
	"math"
)

// ImpliedVol inverts the Black-Scholes-Merton formula: it finds the
// volatility at which the option prices to price, within cfg.Tolerance.
// The second return is the number of pricing iterations spent. Failures
// carry a *SolveError classifying them; see FailureKind.
//
// The search runs Newton's method on vega first and falls back to bisection
// over the full [LowerBound, UpperBound] domain when Newton leaves the
// domain or meets a vanishing vega. Prices matching a domain boundary
// within tolerance return that boundary.
func ImpliedVol(t Terms, price float64, cfg SolverConfig) (float64, int, error) {
	cfg = cfg.normalized()

	if err := t.Validate(); err != nil {
		return 0, 0, err
	}
	if math.IsNaN(price) || price <= 0 {
		return 0, 0, invalidInput("price", "must be positive, got %v", price)
	}

	if intrinsic := t.Intrinsic(); price < intrinsic-cfg.Tolerance {
		return 0, 0, noSolution("price %v below discounted intrinsic value %v", price, intrinsic)
	}

	floor := t.Price(cfg.LowerBound)
	ceil := t.Price(cfg.UpperBound)
	switch {
	case math.Abs(price-floor) <= cfg.Tolerance:
		return cfg.LowerBound, 0, nil
	case math.Abs(price-ceil) <= cfg.Tolerance:
		return cfg.UpperBound, 0, nil
	case price < floor:
		return 0, 0, noSolution("price %v below attainable minimum %v at vol %v", price, floor, cfg.LowerBound)
	case price > ceil:
		return 0, 0, noSolution("price %v above attainable maximum %v at vol %v", price, ceil, cfg.UpperBound)
	}

	vol, iters, ok := newton(t, price, cfg)
	if ok {
		return vol, iters, nil
	}

	vol, biters, err := bisect(t, price, cfg)
	if err != nil {
		return 0, iters + biters, err
	}
	return vol, iters + biters, nil
}

// newton runs the Newton iteration from the Manaster-Koehler seed. It
// reports failure instead of an error so the caller can fall back to the
// bracketing search.
func newton(t Terms, price float64, cfg SolverConfig) (float64, int, bool) {
	vol := initialGuess(t, cfg)
	for i := 1; i <= cfg.MaxIterations; i++ {
		diff := t.Price(vol) - price
		if math.Abs(diff) <= cfg.Tolerance {
			return vol, i, true
		}

		vega := t.Vega(vol)
		if vega < vegaFloor {
			return 0, i, false
		}

		next := vol - diff/vega
		if next <= cfg.LowerBound || next >= cfg.UpperBound || math.IsNaN(next) {
			return 0, i, false
		}
		vol = next
	}
	return 0, cfg.MaxIterations, false
}

// initialGuess seeds Newton with the Manaster-Koehler point, clamped into
// the search domain. At-the-forward options degenerate to zero there, so
// those start from a flat 20%.
func initialGuess(t Terms, cfg SolverConfig) float64 {
	forward := math.Log(t.Spot/t.Strike) + (t.Rate-t.DividendYield)*t.Tau
	guess := math.Sqrt(2 * math.Abs(forward) / t.Tau)
	if guess == 0 || math.IsNaN(guess) {
		guess = 0.2
	}
	return math.Min(math.Max(guess, cfg.LowerBound), cfg.UpperBound)
}

// bisect runs the bracketing search over the full domain. The boundary
// checks in ImpliedVol guarantee the root is interior, and the price is
// strictly increasing in vol.
func bisect(t Terms, price float64, cfg SolverConfig) (float64, int, error) {
	lo, hi := cfg.LowerBound, cfg.UpperBound
	for i := 1; i <= cfg.MaxIterations; i++ {
		mid := 0.5 * (lo + hi)
		diff := t.Price(mid) - price
		if math.Abs(diff) <= cfg.Tolerance {
			return mid, i, nil
		}
		if diff < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, cfg.MaxIterations, nonConvergence(cfg.MaxIterations, cfg.Tolerance)
}
