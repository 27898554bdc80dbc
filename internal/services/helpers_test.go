package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"volgrid/internal/config"
	"volgrid/internal/quotes"
	"volgrid/internal/volatility"
)

// Shared fixture dates. The year span 2025-01-01 to 2026-01-01 is exactly
// 1.0 under ACT/ACT ISDA, which keeps hand-priced expectations simple.
var (
	fixtureValuation = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	fixtureExpiry1Y  = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return config.Default()
}

// fixtureQuote builds a self-contained quote: it carries its own underlying
// level, dividend yield, and rate so no market context is needed.
func fixtureQuote(strike, price float64, ot quotes.OptionType, expiry time.Time) quotes.Quote {
	spot := 100.0
	dividend := 0.0
	rate := 0.05

	return quotes.Quote{
		ValuationDate:   fixtureValuation,
		ExpirationDate:  expiry,
		Strike:          decimal.NewFromFloat(strike),
		OptionPrice:     decimal.NewFromFloat(price),
		OptionType:      ot,
		UnderlyingLevel: &spot,
		DividendYield:   &dividend,
		RiskFreeRate:    &rate,
	}
}

// priceAt reprices a fixture quote's terms at the given vol.
func priceAt(strike, tau, vol float64, ot quotes.OptionType) float64 {
	terms := volatility.Terms{
		Spot:   100,
		Strike: strike,
		Tau:    tau,
		Rate:   0.05,
		Type:   ot,
	}
	return terms.Price(vol)
}

// fixtureSolved builds an already-solved quote row for grid tests.
func fixtureSolved(expiry time.Time, strike, vol float64) volatility.SolvedQuote {
	v := vol
	return volatility.SolvedQuote{
		Quote: quotes.Quote{
			ValuationDate:  fixtureValuation,
			ExpirationDate: expiry,
			Strike:         decimal.NewFromFloat(strike),
			OptionPrice:    decimal.NewFromFloat(1),
			OptionType:     quotes.OptionCall,
		},
		Spot:       100,
		Tau:        expiry.Sub(fixtureValuation).Hours() / 24 / 365,
		ImpliedVol: &v,
	}
}
