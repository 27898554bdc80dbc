package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"volgrid/internal/config"
	"volgrid/internal/infrastructure"
	"volgrid/internal/market"
	"volgrid/internal/quotes"
	"volgrid/internal/volatility"
)

// VolatilityService orchestrates the solve pipeline: ingest quotes and
// market series, resolve per-quote inputs, run the parallel implied vol
// solve, assemble the grid, and sample the surface. Each batch gets a run
// ID that threads through logs and metrics.
type VolatilityService struct {
	cfg     *config.Config
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewVolatilityService creates a volatility service without metrics.
func NewVolatilityService(cfg *config.Config, logger *slog.Logger) *VolatilityService {
	return NewVolatilityServiceWithMetrics(cfg, nil, logger)
}

// NewVolatilityServiceWithMetrics creates a volatility service that records
// business metrics. A nil metrics instance disables recording.
func NewVolatilityServiceWithMetrics(cfg *config.Config, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *VolatilityService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("VolatilityService initialized",
		slog.Int("solver_workers", cfg.Solver.Workers),
		slog.String("grid_filter", cfg.Grid.Filter),
		slog.String("grid_interpolation", cfg.Grid.Interpolation))

	return &VolatilityService{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "volatility_service")),
	}
}

// SolveSummary aggregates the outcome of one solve batch.
type SolveSummary struct {
	Total    int            `json:"total"`
	Solved   int            `json:"solved"`
	Failed   int            `json:"failed"`
	Failures map[string]int `json:"failures,omitempty"` // failure kind -> count
}

// SolveResult is the outcome of SolveBatch.
type SolveResult struct {
	RunID   string                   `json:"run_id"`
	Solved  []volatility.SolvedQuote `json:"solved"`
	Summary SolveSummary             `json:"summary"`
	Elapsed time.Duration            `json:"elapsed"`
}

// GridResult is the outcome of BuildGrid.
type GridResult struct {
	RunID    string                  `json:"run_id"`
	Grid     *volatility.Grid        `json:"grid"`
	Insights volatility.GridInsights `json:"insights"`
	Elapsed  time.Duration           `json:"elapsed"`
}

// MeshResult is the outcome of BuildMesh.
type MeshResult struct {
	RunID   string                 `json:"run_id"`
	Points  []volatility.MeshPoint `json:"points"`
	Elapsed time.Duration          `json:"elapsed"`
}

// LoadQuotes ingests an option quote table from a CSV or XLSX file, applying
// the configured column mapping. The valuation date is stamped on every row.
func (s *VolatilityService) LoadQuotes(ctx context.Context, path string, valuation time.Time) (*quotes.ParseResult, error) {
	opts := quotes.ParseOptions{
		Mapping:       quotes.ColumnMapping(s.cfg.Mapping),
		ValuationDate: valuation,
		Logger:        s.logger,
	}

	var (
		res *quotes.ParseResult
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		res, err = quotes.ParseXLSXFile(path, opts)
	case ".csv", ".txt":
		res, err = quotes.ParseCSVFile(path, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported quotes format %q", ErrInvalidInput, filepath.Ext(path))
	}
	if err != nil {
		logServiceError(ctx, "load_quotes", "quote ingestion failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "quotes loaded",
		slog.String("path", path),
		slog.Int("quotes", len(res.Quotes)),
		slog.Int("rows_read", res.RowsRead),
		slog.Int("rows_skipped", res.RowsSkipped))

	return res, nil
}

// LoadMarket assembles a market context from series files. Paths left empty
// leave the corresponding series nil; day count, compounding basis, and the
// rate column selector come from configuration.
func (s *VolatilityService) LoadMarket(ctx context.Context, levelsPath, dividendsPath, ratesPath string) (*market.Context, error) {
	dayCount, err := market.ParseDayCount(s.cfg.Market.DayCount)
	if err != nil {
		return nil, fmt.Errorf("market config: %w", err)
	}
	compounding, err := market.ParseCompounding(s.cfg.Market.RateCompounding)
	if err != nil {
		return nil, fmt.Errorf("market config: %w", err)
	}

	mkt := &market.Context{
		DayCount:    dayCount,
		Compounding: compounding,
		Logger:      s.logger,
	}

	if levelsPath != "" {
		mkt.IndexLevels, err = s.loadSeries(levelsPath, market.LoadOptions{Name: "index_levels"})
		if err != nil {
			return nil, fmt.Errorf("load index levels: %w", err)
		}
	}
	if dividendsPath != "" {
		mkt.DividendYields, err = s.loadSeries(dividendsPath, market.LoadOptions{Name: "dividend_yields"})
		if err != nil {
			return nil, fmt.Errorf("load dividend yields: %w", err)
		}
	}
	if ratesPath != "" {
		mkt.RiskFreeRates, err = s.loadSeries(ratesPath, market.LoadOptions{
			Name:        "risk_free_rates",
			ValueColumn: s.cfg.Market.RateColumn,
		})
		if err != nil {
			return nil, fmt.Errorf("load risk-free rates: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "market context loaded",
		slog.Bool("levels", mkt.IndexLevels != nil),
		slog.Bool("dividends", mkt.DividendYields != nil),
		slog.Bool("rates", mkt.RiskFreeRates != nil),
		slog.String("day_count", string(dayCount)),
		slog.String("compounding", string(compounding)))

	return mkt, nil
}

func (s *VolatilityService) loadSeries(path string, opts market.LoadOptions) (*market.Series, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return market.LoadSeriesJSON(path, opts.Name)
	}
	return market.LoadSeriesCSV(path, opts)
}

// SolveBatch solves implied volatility for every quote against the market
// context. Per-quote failures land on the result rows; only an empty batch
// or cancellation fails the call. A non-nil override adjusts the configured
// solver parameters for this batch only.
func (s *VolatilityService) SolveBatch(ctx context.Context, qs []quotes.Quote, mkt *market.Context, override *volatility.SolverConfig) (*SolveResult, error) {
	if len(qs) == 0 {
		return nil, ErrNoQuotes
	}

	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID))
	start := time.Now()

	calc := volatility.NewCalculator(s.solverConfig(override), mkt, logger)
	calc.SetConfiguration(s.cfg.Solver.Workers, s.cfg.Server.SolveTimeout)

	infrastructure.RecordActiveSolveChange(ctx, s.metrics, 1)
	defer infrastructure.RecordActiveSolveChange(ctx, s.metrics, -1)

	solved, err := calc.Calculate(ctx, qs)
	elapsed := time.Since(start)
	if err != nil {
		infrastructure.RecordSolveMetrics(ctx, s.metrics, runID, elapsed, 0, int64(len(qs)), err)
		logServiceError(ctx, "solve_batch", "implied volatility batch failed",
			slog.String("run_id", runID),
			slog.Int("quotes", len(qs)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("solve batch %s: %w", runID, err)
	}

	summary := summarizeSolve(solved)
	for i := range solved {
		if solved[i].Solved() {
			infrastructure.RecordSolveIterations(ctx, s.metrics, int64(solved[i].Iterations))
		}
	}
	infrastructure.RecordSolveMetrics(ctx, s.metrics, runID, elapsed, int64(summary.Solved), int64(summary.Failed), nil)

	logger.InfoContext(ctx, "solve batch completed",
		slog.Int("total", summary.Total),
		slog.Int("solved", summary.Solved),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", elapsed))

	return &SolveResult{
		RunID:   runID,
		Solved:  solved,
		Summary: summary,
		Elapsed: elapsed,
	}, nil
}

// BuildGrid pivots solved quotes into an expiration-by-strike grid with
// pruning and interpolation per configuration, and computes grid insights.
// A non-nil override adjusts the configured grid parameters for this call.
func (s *VolatilityService) BuildGrid(ctx context.Context, solved []volatility.SolvedQuote, override *volatility.GridConfig) (*GridResult, error) {
	if len(solved) == 0 {
		return nil, ErrNoSolvedQuotes
	}

	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID))
	start := time.Now()

	cfg := s.gridConfig(override)
	cfg.Logger = logger

	grid, err := volatility.BuildGrid(solved, cfg)
	elapsed := time.Since(start)
	if err != nil {
		logServiceError(ctx, "build_grid", "grid construction failed",
			slog.String("run_id", runID),
			slog.Int("solved_quotes", len(solved)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("build grid %s: %w", runID, err)
	}

	insights := volatility.Insights(grid)
	infrastructure.RecordGridMetrics(ctx, s.metrics, runID, elapsed,
		int64(grid.Report.Observed), int64(grid.Report.Interpolated), int64(grid.Report.Missing))

	logger.InfoContext(ctx, "grid built",
		slog.Int("expirations", grid.Rows()),
		slog.Int("strikes", grid.Cols()),
		slog.Int("observed", grid.Report.Observed),
		slog.Int("interpolated", grid.Report.Interpolated),
		slog.Int("missing", grid.Report.Missing),
		slog.Duration("elapsed", elapsed))

	return &GridResult{
		RunID:    runID,
		Grid:     grid,
		Insights: insights,
		Elapsed:  elapsed,
	}, nil
}

// BuildMesh fits a variance surface over the grid and samples it on a
// regular strike and date lattice. Incomplete grids are reduced to their
// complete sub-grid first. Spot anchors the moneyness column.
func (s *VolatilityService) BuildMesh(ctx context.Context, grid *volatility.Grid, spot float64, opts volatility.SurfaceOptions, mesh volatility.MeshConfig) (*MeshResult, error) {
	if grid == nil || grid.Rows() == 0 {
		return nil, ErrNoGrid
	}

	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID))
	start := time.Now()

	base := grid
	if !grid.IsComplete() {
		base = grid.Complete()
		logger.InfoContext(ctx, "grid reduced to complete sub-grid",
			slog.Int("strikes_in", grid.Cols()),
			slog.Int("strikes_kept", base.Cols()))
	}

	surface, err := volatility.NewSurface(base, opts)
	if err != nil {
		logServiceError(ctx, "build_mesh", "surface fit failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("fit surface %s: %w", runID, err)
	}

	points, err := volatility.BuildMesh(surface, spot, mesh)
	elapsed := time.Since(start)
	if err != nil {
		logServiceError(ctx, "build_mesh", "mesh sampling failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("build mesh %s: %w", runID, err)
	}

	infrastructure.RecordMeshMetrics(ctx, s.metrics, runID, int64(len(points)))

	logger.InfoContext(ctx, "surface mesh built",
		slog.Int("points", len(points)),
		slog.Duration("elapsed", elapsed))

	return &MeshResult{
		RunID:   runID,
		Points:  points,
		Elapsed: elapsed,
	}, nil
}

// solverConfig merges package defaults, file configuration, and a per-call
// override, in that order.
func (s *VolatilityService) solverConfig(override *volatility.SolverConfig) volatility.SolverConfig {
	cfg := volatility.DefaultSolverConfig()
	if s.cfg.Solver.Tolerance > 0 {
		cfg.Tolerance = s.cfg.Solver.Tolerance
	}
	if s.cfg.Solver.MaxIterations > 0 {
		cfg.MaxIterations = s.cfg.Solver.MaxIterations
	}
	if s.cfg.Solver.MaxVol > 0 {
		cfg.UpperBound = s.cfg.Solver.MaxVol
	}
	if override != nil {
		if override.Tolerance > 0 {
			cfg.Tolerance = override.Tolerance
		}
		if override.MaxIterations > 0 {
			cfg.MaxIterations = override.MaxIterations
		}
		if override.LowerBound > 0 {
			cfg.LowerBound = override.LowerBound
		}
		if override.UpperBound > 0 {
			cfg.UpperBound = override.UpperBound
		}
	}
	return cfg
}

// gridConfig merges file configuration with a per-call override.
func (s *VolatilityService) gridConfig(override *volatility.GridConfig) volatility.GridConfig {
	cfg := volatility.GridConfig{
		Filter:              volatility.FilterType(s.cfg.Grid.Filter),
		Aggregation:         volatility.AggregationMethod(s.cfg.Grid.Aggregation),
		MinObservations:     s.cfg.Grid.MinObservations,
		ObservationFraction: s.cfg.Grid.ObservationFraction,
		Interpolation:       volatility.InterpolationMethod(s.cfg.Grid.Interpolation),
	}
	if override != nil {
		if override.Filter != "" {
			cfg.Filter = override.Filter
		}
		if override.Aggregation != "" {
			cfg.Aggregation = override.Aggregation
		}
		if override.MinObservations > 0 {
			cfg.MinObservations = override.MinObservations
		}
		if override.ObservationFraction > 0 {
			cfg.ObservationFraction = override.ObservationFraction
		}
		if override.Interpolation != "" {
			cfg.Interpolation = override.Interpolation
		}
	}
	return cfg
}

// summarizeSolve tallies batch outcomes by failure kind.
func summarizeSolve(solved []volatility.SolvedQuote) SolveSummary {
	summary := SolveSummary{Total: len(solved)}
	for i := range solved {
		if solved[i].Solved() {
			summary.Solved++
			continue
		}
		summary.Failed++
		if summary.Failures == nil {
			summary.Failures = make(map[string]int)
		}
		summary.Failures[string(solved[i].FailureKind)]++
	}
	return summary
}
