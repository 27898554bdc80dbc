package domain

import "fmt"

// SeriesPoint is one dated observation in an inline market series.
type SeriesPoint struct {
	Date  string  `json:"date" validate:"required,iso8601"`
	Value float64 `json:"value"`
}

// Market carries inline market series and the conventions that interpret
// them. Series lookups resolve on calendar days, latest observation on or
// before the requested date. Any series may be omitted when every quote
// carries the corresponding override.
type Market struct {
	// IndexLevels are underlying index closes by date.
	IndexLevels []SeriesPoint `json:"index_levels,omitempty" validate:"omitempty,min=1,dive"`

	// DividendYields are annualized dividend yields by date.
	DividendYields []SeriesPoint `json:"dividend_yields,omitempty" validate:"omitempty,min=1,dive"`

	// RiskFreeRates are risk-free rates by date, on the compounding basis
	// declared below.
	RiskFreeRates []SeriesPoint `json:"risk_free_rates,omitempty" validate:"omitempty,min=1,dive"`

	// DayCount names the year-fraction convention. Empty means ACT/ACT ISDA.
	DayCount string `json:"day_count,omitempty" validate:"omitempty,oneof=actual_actual_isda actual_365_fixed"`

	// RateCompounding names the basis the rates are quoted on. Annual rates
	// are converted to continuous before pricing. Empty means continuous.
	RateCompounding string `json:"rate_compounding,omitempty" validate:"omitempty,oneof=continuous annual"`
}

// CheckDates verifies every series date parses to a real calendar day.
func (m *Market) CheckDates() error {
	for name, series := range map[string][]SeriesPoint{
		"index_levels":    m.IndexLevels,
		"dividend_yields": m.DividendYields,
		"risk_free_rates": m.RiskFreeRates,
	} {
		for i, p := range series {
			if _, err := ParseDate(p.Date); err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}
