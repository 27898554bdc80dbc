package quotes

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType identifies the side of an option quote.
type OptionType string

const (
	// OptionCall is a call option
	OptionCall OptionType = "C"
	// OptionPut is a put option
	OptionPut OptionType = "P"
)

// ParseOptionType normalizes the spellings found in vendor files ("C", "call",
// "Calls", "p", ...) into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call", "calls":
		return OptionCall, nil
	case "p", "put", "puts":
		return OptionPut, nil
	default:
		return "", fmt.Errorf("unrecognized option type %q", s)
	}
}

// String returns the canonical single-letter code
func (ot OptionType) String() string {
	return string(ot)
}

// IsValid checks if the option type is one of the known codes
func (ot OptionType) IsValid() bool {
	return ot == OptionCall || ot == OptionPut
}

// Canonical field names used by the column mapping. Input files may use any
// header names as long as the mapping resolves them to these.
const (
	FieldQuoteDate       = "quote_date"
	FieldExpirationDate  = "expiration_date"
	FieldStrike          = "strike"
	FieldOptionPrice     = "option_price"
	FieldOptionType      = "option_type"
	FieldUnderlyingLevel = "underlying_level"
	FieldDividendYield   = "dividend_yield"
	FieldRiskFreeRate    = "risk_free_rate"
)

// requiredFields must all be present in a header row for parsing to proceed.
var requiredFields = []string{
	FieldExpirationDate,
	FieldStrike,
	FieldOptionPrice,
	FieldOptionType,
}

// canonicalFields is the full set of recognized targets for a column mapping.
var canonicalFields = map[string]bool{
	FieldQuoteDate:       true,
	FieldExpirationDate:  true,
	FieldStrike:          true,
	FieldOptionPrice:     true,
	FieldOptionType:      true,
	FieldUnderlyingLevel: true,
	FieldDividendYield:   true,
	FieldRiskFreeRate:    true,
}

// ColumnMapping maps arbitrary input column names to canonical Quote field
// names. Lookup is case-insensitive and ignores surrounding whitespace.
// Canonical names always resolve to themselves, so a mapping only needs
// entries for columns whose names differ.
type ColumnMapping map[string]string

// Canonical resolves an input header to its canonical field name. The second
// return value reports whether the header maps to a recognized field.
func (cm ColumnMapping) Canonical(header string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(header))
	for from, to := range cm {
		if strings.ToLower(strings.TrimSpace(from)) == key {
			return to, canonicalFields[to]
		}
	}
	if canonicalFields[key] {
		return key, true
	}
	return "", false
}

// Validate checks that every mapping target is a canonical field name and
// that no two source columns collide after normalization.
func (cm ColumnMapping) Validate() error {
	seen := make(map[string]string, len(cm))
	for from, to := range cm {
		if !canonicalFields[to] {
			return fmt.Errorf("column mapping %q -> %q: unknown canonical field %q", from, to, to)
		}
		key := strings.ToLower(strings.TrimSpace(from))
		if prev, ok := seen[key]; ok && prev != to {
			return fmt.Errorf("column mapping %q resolves to both %q and %q", from, prev, to)
		}
		seen[key] = to
	}
	return nil
}

// Quote is a single option observation in canonical form. Strike and price
// stay decimal through ingestion and are converted to float64 once, at the
// solver boundary.
type Quote struct {
	ValuationDate  time.Time       `json:"valuation_date"`
	QuoteDate      time.Time       `json:"quote_date,omitempty"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Strike         decimal.Decimal `json:"strike"`
	OptionPrice    decimal.Decimal `json:"option_price"`
	OptionType     OptionType      `json:"option_type"`

	// Per-quote market overrides. When nil the value is resolved from the
	// market context instead.
	UnderlyingLevel *float64 `json:"underlying_level,omitempty"`
	DividendYield   *float64 `json:"dividend_yield,omitempty"`
	RiskFreeRate    *float64 `json:"risk_free_rate,omitempty"`
}

// IsValid reports whether the quote satisfies the structural invariants:
// positive strike and price, a known option type, and an expiration strictly
// after the valuation date.
func (q Quote) IsValid() bool {
	return q.Strike.IsPositive() &&
		q.OptionPrice.IsPositive() &&
		q.OptionType.IsValid() &&
		!q.ValuationDate.IsZero() &&
		!q.ExpirationDate.IsZero() &&
		q.ExpirationDate.After(q.ValuationDate)
}

// Validate returns a descriptive error for the first violated invariant.
func (q Quote) Validate() error {
	if q.ValuationDate.IsZero() {
		return fmt.Errorf("valuation date is not set")
	}
	if q.ExpirationDate.IsZero() {
		return fmt.Errorf("expiration date is not set")
	}
	if !q.Strike.IsPositive() {
		return fmt.Errorf("strike must be positive, got %s", q.Strike)
	}
	if !q.OptionPrice.IsPositive() {
		return fmt.Errorf("option price must be positive, got %s", q.OptionPrice)
	}
	if !q.OptionType.IsValid() {
		return fmt.Errorf("option type must be C or P, got %q", q.OptionType)
	}
	if !q.ExpirationDate.After(q.ValuationDate) {
		return fmt.Errorf("expiration %s is not after valuation date %s",
			q.ExpirationDate.Format("2006-01-02"), q.ValuationDate.Format("2006-01-02"))
	}
	return nil
}

// StrikeLabel renders the strike without trailing zeros, for use as a stable
// grid column label ("1500", "1500.5").
func (q Quote) StrikeLabel() string {
	return q.Strike.String()
}
