// Package domain defines the wire representations of the volatility API.
// These types are the authoritative JSON shapes exchanged over HTTP: requests
// carry them in, responses carry them out, and round-tripping a response body
// back into a request is always valid. Internal packages keep their own
// richer types; conversion lives at the transport boundary.
package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used throughout the API.
const DateLayout = "2006-01-02"

// Quote is the wire representation of one option quote. Dates travel as
// ISO 8601 calendar dates; option types accept any spelling the ingest
// parser understands ("C", "call", "Puts", ...). The pointer fields are
// per-quote market overrides: when absent, the value is resolved from the
// market series instead.
type Quote struct {
	// ExpirationDate is the option expiry, "2006-01-02".
	ExpirationDate string `json:"expiration_date" validate:"required,iso8601"`

	// Strike is the exercise price. Must be positive.
	Strike float64 `json:"strike" validate:"required,gt=0"`

	// OptionType is the side of the book: a call/put code such as C or P.
	OptionType string `json:"option_type" validate:"required,optiontype"`

	// OptionPrice is the observed premium. Must be positive.
	OptionPrice float64 `json:"option_price" validate:"required,gt=0"`

	// QuoteDate records when the price was observed. Optional.
	QuoteDate string `json:"quote_date,omitempty" validate:"omitempty,iso8601"`

	// UnderlyingLevel overrides the index level for this quote.
	UnderlyingLevel *float64 `json:"underlying_level,omitempty" validate:"omitempty,gt=0"`

	// DividendYield overrides the dividend yield for this quote.
	DividendYield *float64 `json:"dividend_yield,omitempty"`

	// RiskFreeRate overrides the continuously compounded risk-free rate
	// for this quote.
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
}

// ParseDate resolves an API date string to a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be formatted %s", s, DateLayout)
	}
	return t, nil
}

// FormatDate renders a time as an API date string.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CheckDates verifies every date string on the quote parses. Tag validation
// only checks the shape; this catches impossible calendar dates.
func (q *Quote) CheckDates() error {
	if q.ExpirationDate != "" {
		if _, err := ParseDate(q.ExpirationDate); err != nil {
			return fmt.Errorf("expiration_date: %w", err)
		}
	}
	if q.QuoteDate != "" {
		if _, err := ParseDate(q.QuoteDate); err != nil {
			return fmt.Errorf("quote_date: %w", err)
		}
	}
	return nil
}
