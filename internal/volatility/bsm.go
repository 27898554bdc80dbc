package volatility

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"volgrid/internal/quotes"
)

// unitNormal backs the N(d1), N(d2) terms and the density in vega.
var unitNormal = distuv.UnitNormal

// Validate checks the terms describe a priceable option.
func (t Terms) Validate() error {
	switch {
	case math.IsNaN(t.Spot) || t.Spot <= 0:
		return invalidInput("spot", "must be positive, got %v", t.Spot)
	case math.IsNaN(t.Strike) || t.Strike <= 0:
		return invalidInput("strike", "must be positive, got %v", t.Strike)
	case math.IsNaN(t.Tau) || t.Tau <= 0:
		return invalidInput("tau", "expiration must lie after the valuation date, got %v years", t.Tau)
	case !t.Type.IsValid():
		return invalidInput("option_type", "must be C or P, got %q", string(t.Type))
	}
	return nil
}

// Price returns the Black-Scholes-Merton value of the option at vol. The
// price is strictly increasing in vol, which the solver relies on.
func (t Terms) Price(vol float64) float64 {
	d1, d2 := t.d1d2(vol)
	discSpot := t.Spot * math.Exp(-t.DividendYield*t.Tau)
	discStrike := t.Strike * math.Exp(-t.Rate*t.Tau)

	if t.Type == quotes.OptionPut {
		return discStrike*unitNormal.CDF(-d2) - discSpot*unitNormal.CDF(-d1)
	}
	return discSpot*unitNormal.CDF(d1) - discStrike*unitNormal.CDF(d2)
}

// Vega returns the derivative of the price with respect to vol. Calls and
// puts share the same vega.
func (t Terms) Vega(vol float64) float64 {
	d1, _ := t.d1d2(vol)
	return t.Spot * math.Exp(-t.DividendYield*t.Tau) * unitNormal.Prob(d1) * math.Sqrt(t.Tau)
}

// Intrinsic returns the discounted intrinsic value, the price floor the
// option approaches as vol goes to zero.
func (t Terms) Intrinsic() float64 {
	discSpot := t.Spot * math.Exp(-t.DividendYield*t.Tau)
	discStrike := t.Strike * math.Exp(-t.Rate*t.Tau)

	if t.Type == quotes.OptionPut {
		return math.Max(0, discStrike-discSpot)
	}
	return math.Max(0, discSpot-discStrike)
}

func (t Terms) d1d2(vol float64) (float64, float64) {
	sqrtTau := math.Sqrt(t.Tau)
	d1 := (math.Log(t.Spot/t.Strike) + (t.Rate-t.DividendYield+0.5*vol*vol)*t.Tau) / (vol * sqrtTau)
	return d1, d1 - vol*sqrtTau
}
