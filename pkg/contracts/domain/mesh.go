package domain

// MeshPoint is one sampled surface node: a (date, strike) lattice point with
// the interpolated Black volatility and its moneyness relative to spot.
type MeshPoint struct {
	ExpirationDate string  `json:"expiration_date"`
	DaysToMaturity int     `json:"days_to_maturity"`
	Tau            float64 `json:"tau"`
	Strike         float64 `json:"strike"`
	Moneyness      float64 `json:"moneyness"`
	Vol            float64 `json:"vol"`
}
