// Package market carries the observable inputs an implied volatility solve
// depends on.
//
// This package contains three main components:
//
// Series: A date-ordered sequence of observations for one market quantity
// (index levels, dividend yields, or risk-free rates). Lookups resolve on
// calendar days with on-or-before semantics, so weekend and holiday gaps
// fall back to the last trading day. Series can be loaded from CSV files
// with a header row or from JSON arrays of date/value pairs; rate files
// that carry several quoting bases side by side select one by column name.
//
// Context: Bundles the three series with a day count convention and a rate
// compounding basis, and resolves them into the per-quote Snapshot the
// solver consumes. Spot and dividend yield are taken at the valuation date
// while the risk-free rate is taken at the expiration date, matching the
// term of the option being priced.
//
// DayCount: Year fraction conventions. Actual/Actual ISDA is the default;
// it splits periods at calendar-year boundaries and divides each piece by
// the actual length of its year, so leap years are handled exactly.
//
// Example usage:
//
//	levels, err := market.LoadSeriesCSV("levels.csv", market.LoadOptions{Name: "index_levels"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rates, err := market.LoadSeriesCSV("rates.csv", market.LoadOptions{ValueColumn: "spot_rate_eff_ann"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := &market.Context{IndexLevels: levels, RiskFreeRates: rates}
//	snap, err := ctx.Resolve(valuationDate, expirationDate)
//	// snap.Spot, snap.DividendYield, snap.RiskFreeRate, snap.Tau
package market
