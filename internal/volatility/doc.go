// Package volatility implements implied volatility solving and volatility
// grid construction for index option quotes.
//
// This package is the numerical core of the system: it inverts the
// Black-Scholes-Merton formula per quote, pivots the results into an
// expiration-by-strike grid, and fits that grid into a continuous variance
// surface that can be queried at any (expiration, strike) point.
//
// # Core Components
//
// The pipeline has three stages:
//
//  1. Solving: Newton's method on vega with a guaranteed bisection fallback
//     inverts the pricing formula for each quote independently
//  2. Gridding: solved quotes are filtered, aggregated, pruned, and
//     interpolated into a rectangular volatility table
//  3. Surface fitting: the grid's total variance is interpolated in strike
//     and time, bilinearly or with natural cubic splines
//
// # Architecture
//
// The package follows a clear separation of concerns:
//
//   - types.go: Configuration, quote results, and grid structures
//   - errors.go: Failure taxonomy and solve error classification
//   - bsm.go: Black-Scholes-Merton pricing, vega, and intrinsic value
//   - solver.go: The Newton plus bisection implied volatility search
//   - calculator.go: Batch orchestration against a market context
//   - grid.go: Pivot, aggregation, pruning, and gap interpolation
//   - surface.go: Total variance surface over a complete grid
//   - mesh.go: Regular lattice sampling of a surface for plotting
//   - insights.go: Summary statistics over a built grid
//
// # Usage Example
//
//	// Solve a batch of quotes against a market context
//	calculator := volatility.NewCalculator(
//	    volatility.DefaultSolverConfig(),
//	    marketContext,
//	    slog.Default(),
//	)
//	solved, err := calculator.Calculate(ctx, parsed.Quotes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Pivot into a grid and fit a surface
//	grid, err := volatility.BuildGrid(solved, volatility.GridConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	surface, err := volatility.NewSurface(grid.Complete(), volatility.SurfaceOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vol, err := surface.BlackVol(expiration, strike)
//
// # Failure Handling
//
// Solves fail per quote, never per batch. Each failed row keeps its quote,
// a nil implied volatility, and a FailureKind:
//
//   - invalid_input: the quote cannot be priced at all
//   - no_solution: no volatility in the search domain reproduces the price
//   - non_convergence: the iteration budget ran out
//   - insufficient_data: market context could not be resolved
//
// Grid construction has exactly two terminal errors: ErrNoObservations when
// nothing survives filtering, and ErrNoSurvivingStrikes when pruning removes
// every column.
//
// # Mathematical Foundation
//
// Prices follow Black-Scholes-Merton with a continuous dividend yield q:
//
//	call = S e^(-q tau) N(d1) - K e^(-r tau) N(d2)
//	put  = K e^(-r tau) N(-d2) - S e^(-q tau) N(-d1)
//	d1   = (ln(S/K) + (r - q + sigma^2/2) tau) / (sigma sqrt(tau))
//	d2   = d1 - sigma sqrt(tau)
//
// The solve searches sigma in [1e-6, 5.0] for the price match. Because the
// price is strictly increasing in sigma, bisection over that domain always
// converges when a solution exists; Newton merely gets there faster.
//
// The surface interpolates total variance w(K, t) = sigma^2(K, t) t rather
// than volatility, so time interpolation is linear in the quantity that
// actually accumulates.
//
// # Determinism
//
// Building a grid twice from the same solved quotes yields identical
// output. All map iteration is funneled through sorted slices, duplicate
// aggregation sorts its inputs, and concurrency never reorders results.
package volatility
