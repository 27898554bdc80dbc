package domain

// SolvedRow is one quote annotated with the resolved market inputs and the
// outcome of the implied volatility solve. It appears in solve responses and
// is accepted back as grid input, so a solve response body can be posted to
// the grid endpoint unchanged. A null implied_vol means the solve failed;
// failure_kind and failure_detail say how.
type SolvedRow struct {
	ExpirationDate string  `json:"expiration_date" validate:"required,iso8601"`
	Strike         float64 `json:"strike" validate:"required,gt=0"`
	OptionType     string  `json:"option_type" validate:"required,optiontype"`
	OptionPrice    float64 `json:"option_price,omitempty"`

	// Resolved pricing inputs.
	Spot          float64 `json:"spot,omitempty"`
	DividendYield float64 `json:"dividend_yield,omitempty"`
	RiskFreeRate  float64 `json:"risk_free_rate,omitempty"`
	Tau           float64 `json:"tau,omitempty"`

	// Solve outcome.
	ImpliedVol    *float64 `json:"implied_vol"`
	Iterations    int      `json:"iterations,omitempty"`
	FailureKind   string   `json:"failure_kind,omitempty"`
	FailureDetail string   `json:"failure_detail,omitempty"`
}

// Solved reports whether the row carries a volatility.
func (r *SolvedRow) Solved() bool {
	return r.ImpliedVol != nil
}

// SolveSummary aggregates the outcome of one solve batch by failure kind.
type SolveSummary struct {
	Total    int            `json:"total"`
	Solved   int            `json:"solved"`
	Failed   int            `json:"failed"`
	Failures map[string]int `json:"failures,omitempty"`
}
