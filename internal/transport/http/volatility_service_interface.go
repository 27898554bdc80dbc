package http

import (
	"context"
	"net/http"

	"volgrid/internal/market"
	"volgrid/internal/quotes"
	"volgrid/internal/services"
	"volgrid/internal/volatility"
)

// VolatilityServiceInterface defines the calculation operations the handlers
// depend on. The concrete implementation is services.VolatilityService.
type VolatilityServiceInterface interface {
	SolveBatch(ctx context.Context, qs []quotes.Quote, mkt *market.Context, override *volatility.SolverConfig) (*services.SolveResult, error)
	BuildGrid(ctx context.Context, solved []volatility.SolvedQuote, override *volatility.GridConfig) (*services.GridResult, error)
	BuildMesh(ctx context.Context, grid *volatility.Grid, spot float64, opts volatility.SurfaceOptions, mesh volatility.MeshConfig) (*services.MeshResult, error)
}

// ResultsServiceInterface defines the exported-file operations
type ResultsServiceInterface interface {
	ListResults(ctx context.Context) ([]services.ResultFile, error)
	ServeResult(ctx context.Context, w http.ResponseWriter, r *http.Request, filename string) error
}
