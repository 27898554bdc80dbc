// Package api contains the API contract definitions for the volatility grid
// service. Version v1 represents the current stable API version.
//
// Request types implement render.Binder: Bind performs the cross-field checks
// that struct tags cannot express, while field-level rules live in validate
// tags and run through the validation middleware before any numerical work.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"volgrid/pkg/contracts/domain"
)

// SolverOptions overrides the configured implied volatility search
// parameters for one request.
type SolverOptions struct {
	// Tolerance is the absolute price tolerance for convergence.
	Tolerance float64 `json:"tolerance,omitempty" validate:"omitempty,gt=0"`

	// MaxIterations bounds the Newton and bisection loops.
	MaxIterations int `json:"max_iterations,omitempty" validate:"omitempty,min=1"`

	// MaxVol is the volatility domain ceiling.
	MaxVol float64 `json:"max_vol,omitempty" validate:"omitempty,gt=0"`
}

// GridOptions overrides the configured grid construction parameters for one
// request.
type GridOptions struct {
	// Filter keeps one side of the book. Empty means calls.
	Filter string `json:"filter,omitempty" validate:"omitempty,oneof=calls puts both"`

	// Aggregation combines duplicate (expiration, strike) observations.
	Aggregation string `json:"aggregation,omitempty" validate:"omitempty,oneof=mean median"`

	// MinObservations is the smallest number of populated expirations a
	// strike needs to survive pruning. Zero derives the threshold from
	// ObservationFraction.
	MinObservations int `json:"min_observations,omitempty" validate:"omitempty,min=1"`

	// ObservationFraction backs the derived pruning threshold.
	ObservationFraction float64 `json:"observation_fraction,omitempty" validate:"omitempty,gt=0,lte=1"`

	// Interpolation fills gaps left after pruning.
	Interpolation string `json:"interpolation,omitempty" validate:"omitempty,oneof=linear linear_clamp none"`
}

// SurfaceOptions directs the surface fit for meshing.
type SurfaceOptions struct {
	// Method selects the interpolator. Empty means bilinear.
	Method string `json:"method,omitempty" validate:"omitempty,oneof=bilinear bicubic"`

	// AllowExtrapolation admits queries beyond the fitted domain.
	AllowExtrapolation bool `json:"allow_extrapolation,omitempty"`

	// DayCount resolves dates to year fractions. Empty means ACT/ACT ISDA.
	DayCount string `json:"day_count,omitempty" validate:"omitempty,oneof=actual_actual_isda actual_365_fixed"`
}

// MeshOptions directs how the fitted surface is sampled.
type MeshOptions struct {
	// StrikeStep is the lattice spacing along strikes.
	StrikeStep float64 `json:"strike_step,omitempty" validate:"omitempty,gt=0"`

	// DateStep is the lattice spacing along dates in calendar days.
	DateStep int `json:"date_step,omitempty" validate:"omitempty,min=1"`
}

// SolveRequest asks for implied volatilities on a batch of quotes.
type SolveRequest struct {
	// ValuationDate anchors year fractions and series lookups.
	ValuationDate string `json:"valuation_date" validate:"required,iso8601"`

	// Quotes is the batch to solve. Per-quote failures land on the result
	// rows; they never abort the batch.
	Quotes []domain.Quote `json:"quotes" validate:"required,min=1,dive"`

	// Market supplies the series quotes resolve against. Optional when
	// every quote carries its own overrides.
	Market *domain.Market `json:"market,omitempty"`

	// Solver overrides the configured search parameters.
	Solver *SolverOptions `json:"solver,omitempty"`
}

// Bind implements render.Binder.
func (r *SolveRequest) Bind(req *http.Request) error {
	if r.ValuationDate != "" {
		if _, err := domain.ParseDate(r.ValuationDate); err != nil {
			return fmt.Errorf("valuation_date: %w", err)
		}
	}
	for i := range r.Quotes {
		if err := r.Quotes[i].CheckDates(); err != nil {
			return fmt.Errorf("quotes[%d]: %w", i, err)
		}
	}
	if r.Market != nil {
		if err := r.Market.CheckDates(); err != nil {
			return fmt.Errorf("market: %w", err)
		}
	}
	return nil
}

// GridRequest asks for a volatility grid. The caller supplies either rows
// from a previous solve or raw quotes with market data to solve first.
type GridRequest struct {
	// ValuationDate anchors the grid.
	ValuationDate string `json:"valuation_date" validate:"required,iso8601"`

	// Solved are rows from a previous solve response.
	Solved []domain.SolvedRow `json:"solved,omitempty" validate:"omitempty,min=1,dive"`

	// Quotes are solved first when no pre-solved rows are given.
	Quotes []domain.Quote `json:"quotes,omitempty" validate:"omitempty,min=1,dive"`

	// Market supplies the series for the solve path.
	Market *domain.Market `json:"market,omitempty"`

	// Solver overrides the configured search parameters on the solve path.
	Solver *SolverOptions `json:"solver,omitempty"`

	// Grid overrides the configured grid parameters.
	Grid *GridOptions `json:"grid,omitempty"`
}

// Bind implements render.Binder.
func (r *GridRequest) Bind(req *http.Request) error {
	if len(r.Solved) == 0 && len(r.Quotes) == 0 {
		return errors.New("either solved rows or quotes are required")
	}
	if len(r.Solved) > 0 && len(r.Quotes) > 0 {
		return errors.New("solved rows and quotes are mutually exclusive")
	}

	if r.ValuationDate != "" {
		if _, err := domain.ParseDate(r.ValuationDate); err != nil {
			return fmt.Errorf("valuation_date: %w", err)
		}
	}
	for i := range r.Solved {
		if r.Solved[i].ExpirationDate == "" {
			continue
		}
		if _, err := domain.ParseDate(r.Solved[i].ExpirationDate); err != nil {
			return fmt.Errorf("solved[%d]: expiration_date: %w", i, err)
		}
	}
	for i := range r.Quotes {
		if err := r.Quotes[i].CheckDates(); err != nil {
			return fmt.Errorf("quotes[%d]: %w", i, err)
		}
	}
	if r.Market != nil {
		if err := r.Market.CheckDates(); err != nil {
			return fmt.Errorf("market: %w", err)
		}
	}
	return nil
}

// MeshRequest asks for a surface mesh sampled over a grid.
type MeshRequest struct {
	// Grid is the volatility grid to fit, typically a grid response body.
	// Grids with unfilled cells are reduced to their complete sub-grid.
	Grid *domain.Grid `json:"grid" validate:"required"`

	// Spot anchors the moneyness column.
	Spot float64 `json:"spot" validate:"required,gt=0"`

	// Surface directs the fit.
	Surface *SurfaceOptions `json:"surface,omitempty"`

	// Mesh directs the sampling lattice.
	Mesh *MeshOptions `json:"mesh,omitempty"`
}

// Bind implements render.Binder.
func (r *MeshRequest) Bind(req *http.Request) error {
	if r.Grid == nil {
		return errors.New("grid is required")
	}
	if err := r.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	return nil
}
