package volatility

import (
	"errors"
	"fmt"

	"volgrid/internal/market"
)

// FailureKind classifies why a solve produced no volatility.
type FailureKind string

const (
	// FailureInvalidInput marks quotes whose inputs cannot be priced at all:
	// non-positive price, strike, or spot, or an expiration that does not
	// lie after the valuation date.
	FailureInvalidInput FailureKind = "invalid_input"
	// FailureNoSolution marks prices no volatility in the search domain can
	// reproduce, such as prices below discounted intrinsic value.
	FailureNoSolution FailureKind = "no_solution"
	// FailureNonConvergence marks solves that exhausted their iteration
	// budget without meeting the price tolerance.
	FailureNonConvergence FailureKind = "non_convergence"
	// FailureInsufficientData marks quotes whose market context could not
	// be resolved.
	FailureInsufficientData FailureKind = "insufficient_data"
)

// Sentinel errors for terminal grid conditions.
var (
	// ErrNoObservations means no solved quote survived filtering, so there
	// is nothing to pivot.
	ErrNoObservations = errors.New("no solved observations to build a grid from")
	// ErrNoSurvivingStrikes means pruning removed every strike column.
	ErrNoSurvivingStrikes = errors.New("no strikes survive observation pruning")
)

// SolveError describes one failed implied volatility solve.
type SolveError struct {
	Kind    FailureKind
	Field   string
	Message string
	Err     error
}

func (e *SolveError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *SolveError) Unwrap() error {
	return e.Err
}

func invalidInput(field, format string, args ...any) *SolveError {
	return &SolveError{Kind: FailureInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

func noSolution(format string, args ...any) *SolveError {
	return &SolveError{Kind: FailureNoSolution, Message: fmt.Sprintf(format, args...)}
}

func nonConvergence(iterations int, tolerance float64) *SolveError {
	return &SolveError{
		Kind:    FailureNonConvergence,
		Message: fmt.Sprintf("no convergence within %d iterations at tolerance %g", iterations, tolerance),
	}
}

func insufficientData(field string, err error) *SolveError {
	return &SolveError{Kind: FailureInsufficientData, Field: field, Message: "market context unresolved", Err: err}
}

// KindOf extracts the failure classification from an error chain. Errors
// outside the taxonomy classify as invalid input; nil has no kind.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var se *SolveError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, market.ErrEmptySeries) {
		return FailureInsufficientData
	}
	return FailureInvalidInput
}
