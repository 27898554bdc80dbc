package volatility

import (
	"fmt"
	"math"
	"time"
)

// Default mesh lattice steps.
const (
	DefaultStrikeStep = 100.0
	DefaultDateStep   = 7
)

// MeshConfig directs how a surface is sampled into a plotting mesh.
type MeshConfig struct {
	// StrikeStep is the lattice spacing along strikes. Zero means
	// DefaultStrikeStep.
	StrikeStep float64 `json:"strike_step"`

	// DateStep is the lattice spacing along dates in calendar days. Zero
	// means DefaultDateStep.
	DateStep int `json:"date_step"`
}

// MeshPoint is one sampled surface node.
type MeshPoint struct {
	ExpirationDate time.Time `json:"expiration_date"`
	DaysToMaturity int       `json:"days_to_maturity"`
	Tau            float64   `json:"tau"`
	Strike         float64   `json:"strike"`
	Moneyness      float64   `json:"moneyness"` // strike over spot
	Vol            float64   `json:"vol"`
}

// BuildMesh samples the surface on a regular strike and date lattice
// between the valuation date and the last fitted expiration. Strikes snap
// to multiples of the strike step inside the fitted range, so the lattice
// never needs extrapolation. The valuation date itself is excluded: a tau
// of zero carries no volatility.
func BuildMesh(s *Surface, spot float64, cfg MeshConfig) ([]MeshPoint, error) {
	if s == nil {
		return nil, fmt.Errorf("mesh needs a fitted surface")
	}
	if math.IsNaN(spot) || spot <= 0 {
		return nil, fmt.Errorf("spot must be positive, got %v", spot)
	}

	strikeStep := cfg.StrikeStep
	if strikeStep <= 0 {
		strikeStep = DefaultStrikeStep
	}
	dateStep := cfg.DateStep
	if dateStep <= 0 {
		dateStep = DefaultDateStep
	}

	minStrike, maxStrike := s.StrikeRange()
	start := math.Ceil(minStrike/strikeStep) * strikeStep
	var strikes []float64
	for m := 0; ; m++ {
		k := start + float64(m)*strikeStep
		if k > maxStrike {
			break
		}
		strikes = append(strikes, k)
	}
	if len(strikes) == 0 {
		return nil, fmt.Errorf("strike step %v leaves no lattice points in [%v, %v]",
			strikeStep, minStrike, maxStrike)
	}

	valuation := s.ValuationDate()
	expirations := s.Expirations()
	lastExpiration := expirations[len(expirations)-1]

	var points []MeshPoint
	for date := valuation.AddDate(0, 0, dateStep); !date.After(lastExpiration); date = date.AddDate(0, 0, dateStep) {
		tau := s.dayCount.YearFraction(valuation, date)
		days := int(date.Sub(valuation).Hours() / 24)

		for _, strike := range strikes {
			vol, err := s.BlackVolTau(tau, strike)
			if err != nil {
				return nil, fmt.Errorf("sample (%s, %v): %w", date.Format("2006-01-02"), strike, err)
			}
			points = append(points, MeshPoint{
				ExpirationDate: date,
				DaysToMaturity: days,
				Tau:            tau,
				Strike:         strike,
				Moneyness:      strike / spot,
				Vol:            vol,
			})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("date step %d leaves no lattice dates on or before %s",
			dateStep, lastExpiration.Format("2006-01-02"))
	}

	return points, nil
}
