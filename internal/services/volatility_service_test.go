package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volgrid/internal/quotes"
	"volgrid/internal/volatility"
)

func newTestService() *VolatilityService {
	return NewVolatilityService(testConfig(), testLogger())
}

func TestSolveBatchRoundTrip(t *testing.T) {
	svc := newTestService()

	// Three strikes priced at a known vol; the batch must solve them back.
	const wantVol = 0.20
	strikes := []float64{90, 100, 110}

	var qs []quotes.Quote
	for _, k := range strikes {
		price := priceAt(k, 1.0, wantVol, quotes.OptionCall)
		qs = append(qs, fixtureQuote(k, price, quotes.OptionCall, fixtureExpiry1Y))
	}

	result, err := svc.SolveBatch(context.Background(), qs, nil, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err, "run ID should be a UUID")

	assert.Equal(t, len(strikes), result.Summary.Total)
	assert.Equal(t, len(strikes), result.Summary.Solved)
	assert.Zero(t, result.Summary.Failed)
	assert.Empty(t, result.Summary.Failures)

	for i, sq := range result.Solved {
		require.True(t, sq.Solved(), "strike %v should solve", strikes[i])
		assert.InDelta(t, wantVol, *sq.ImpliedVol, 1e-4)
		assert.Greater(t, sq.Iterations, 0)
		assert.InDelta(t, 1.0, sq.Tau, 1e-9)
	}
}

func TestSolveBatchEmptyInput(t *testing.T) {
	svc := newTestService()

	_, err := svc.SolveBatch(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoQuotes)
}

func TestSolveBatchFailuresDoNotAbort(t *testing.T) {
	svc := newTestService()

	good := fixtureQuote(100, priceAt(100, 1.0, 0.20, quotes.OptionCall), quotes.OptionCall, fixtureExpiry1Y)
	// Priced below discounted intrinsic: no volatility reproduces it.
	belowIntrinsic := fixtureQuote(50, 30, quotes.OptionCall, fixtureExpiry1Y)
	// Expired relative to the valuation date.
	expired := fixtureQuote(100, 5, quotes.OptionCall, fixtureValuation.AddDate(0, -1, 0))

	result, err := svc.SolveBatch(context.Background(), []quotes.Quote{good, belowIntrinsic, expired}, nil, nil)
	require.NoError(t, err, "per-quote failures must not abort the batch")

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Solved)
	assert.Equal(t, 2, result.Summary.Failed)
	assert.Equal(t, 1, result.Summary.Failures[string(volatility.FailureNoSolution)])
	assert.Equal(t, 1, result.Summary.Failures[string(volatility.FailureInvalidInput)])

	assert.True(t, result.Solved[0].Solved())
	assert.Equal(t, volatility.FailureNoSolution, result.Solved[1].FailureKind)
	assert.Nil(t, result.Solved[1].ImpliedVol)
	assert.Equal(t, volatility.FailureInvalidInput, result.Solved[2].FailureKind)
}

func TestSolverConfigMerge(t *testing.T) {
	cfg := testConfig()
	cfg.Solver.Tolerance = 1e-8
	cfg.Solver.MaxVol = 3.0
	svc := NewVolatilityService(cfg, testLogger())

	t.Run("file_config_applies", func(t *testing.T) {
		merged := svc.solverConfig(nil)
		assert.Equal(t, 1e-8, merged.Tolerance)
		assert.Equal(t, 3.0, merged.UpperBound)
		assert.Equal(t, volatility.DefaultMaxIterations, merged.MaxIterations)
	})

	t.Run("override_wins", func(t *testing.T) {
		merged := svc.solverConfig(&volatility.SolverConfig{Tolerance: 1e-4, MaxIterations: 50})
		assert.Equal(t, 1e-4, merged.Tolerance)
		assert.Equal(t, 50, merged.MaxIterations)
		assert.Equal(t, 3.0, merged.UpperBound, "unset override fields keep file values")
	})
}

func TestGridConfigMerge(t *testing.T) {
	cfg := testConfig()
	cfg.Grid.Filter = "puts"
	cfg.Grid.MinObservations = 2
	svc := NewVolatilityService(cfg, testLogger())

	merged := svc.gridConfig(&volatility.GridConfig{Aggregation: volatility.AggregateMedian})
	assert.Equal(t, volatility.FilterPuts, merged.Filter)
	assert.Equal(t, 2, merged.MinObservations)
	assert.Equal(t, volatility.AggregateMedian, merged.Aggregation)
	assert.Equal(t, volatility.InterpolateLinear, merged.Interpolation)
}

func TestBuildGrid(t *testing.T) {
	svc := newTestService()

	expiries := []time.Time{
		fixtureValuation.AddDate(0, 1, 0),
		fixtureValuation.AddDate(0, 2, 0),
		fixtureValuation.AddDate(0, 3, 0),
	}
	strikes := []float64{90, 100, 110}

	var solved []volatility.SolvedQuote
	for i, exp := range expiries {
		for j, k := range strikes {
			solved = append(solved, fixtureSolved(exp, k, 0.18+0.01*float64(i+j)))
		}
	}
	// A strike observed only once gets pruned at min_observations 2.
	solved = append(solved, fixtureSolved(expiries[0], 250, 0.40))

	result, err := svc.BuildGrid(context.Background(), solved, &volatility.GridConfig{MinObservations: 2})
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)

	grid := result.Grid
	assert.Equal(t, 3, grid.Rows())
	assert.Equal(t, 3, grid.Cols(), "sparse strike should be pruned")
	assert.Contains(t, grid.Report.PrunedStrikes, 250.0)
	assert.Equal(t, 9, grid.Report.Observed)
	assert.True(t, grid.IsComplete())

	assert.Equal(t, 3, result.Insights.Expirations)
	assert.Equal(t, 9, result.Insights.Observed)
	assert.InDelta(t, 0.18, result.Insights.MinVol, 1e-12)
	assert.InDelta(t, 0.22, result.Insights.MaxVol, 1e-12)
	assert.Len(t, result.Insights.TermStructure, 3)
}

func TestBuildGridEmptyInput(t *testing.T) {
	svc := newTestService()

	_, err := svc.BuildGrid(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoSolvedQuotes)
}

func TestBuildGridNoObservations(t *testing.T) {
	svc := newTestService()

	// Every row failed to solve; there is nothing to pivot.
	failed := fixtureSolved(fixtureExpiry1Y, 100, 0)
	failed.ImpliedVol = nil
	failed.FailureKind = volatility.FailureNoSolution

	_, err := svc.BuildGrid(context.Background(), []volatility.SolvedQuote{failed}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, volatility.ErrNoObservations)
}

func TestBuildMesh(t *testing.T) {
	svc := newTestService()

	expiries := []time.Time{
		fixtureValuation.AddDate(0, 1, 0),
		fixtureValuation.AddDate(0, 3, 0),
	}
	var solved []volatility.SolvedQuote
	for _, exp := range expiries {
		for _, k := range []float64{90, 100, 110} {
			solved = append(solved, fixtureSolved(exp, k, 0.20))
		}
	}

	gridResult, err := svc.BuildGrid(context.Background(), solved, nil)
	require.NoError(t, err)

	result, err := svc.BuildMesh(context.Background(), gridResult.Grid, 100,
		volatility.SurfaceOptions{}, volatility.MeshConfig{StrikeStep: 5, DateStep: 7})
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)
	require.NotEmpty(t, result.Points)

	for _, p := range result.Points {
		assert.Greater(t, p.Tau, 0.0)
		assert.GreaterOrEqual(t, p.Strike, 90.0)
		assert.LessOrEqual(t, p.Strike, 110.0)
		assert.InDelta(t, p.Strike/100, p.Moneyness, 1e-12)
		// Flat 20-vol grid: every sampled point stays at 20 vol.
		assert.InDelta(t, 0.20, p.Vol, 1e-9)
	}
}

func TestBuildMeshNilGrid(t *testing.T) {
	svc := newTestService()

	_, err := svc.BuildMesh(context.Background(), nil, 100, volatility.SurfaceOptions{}, volatility.MeshConfig{})
	assert.ErrorIs(t, err, ErrNoGrid)
}

func TestLoadQuotes(t *testing.T) {
	svc := newTestService()
	dir := t.TempDir()

	path := filepath.Join(dir, "quotes.csv")
	data := "strike,option_price,option_type,expiration_date\n" +
		"100,10.45,C,2026-01-02\n" +
		"110,5.50,C,2026-01-02\n" +
		"garbage,row,skipped,here\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	res, err := svc.LoadQuotes(context.Background(), path, fixtureValuation)
	require.NoError(t, err)
	assert.Len(t, res.Quotes, 2)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Equal(t, fixtureValuation, res.Quotes[0].ValuationDate)
}

func TestLoadQuotesUnsupportedFormat(t *testing.T) {
	svc := newTestService()

	_, err := svc.LoadQuotes(context.Background(), "quotes.parquet", fixtureValuation)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoadMarket(t *testing.T) {
	svc := newTestService()
	dir := t.TempDir()

	levels := filepath.Join(dir, "levels.csv")
	require.NoError(t, os.WriteFile(levels, []byte("date,level\n2025-01-02,1500\n2025-01-03,1510\n"), 0644))

	rates := filepath.Join(dir, "rates.csv")
	// Multiple candidate rate columns; the configured selector must pick one.
	require.NoError(t, os.WriteFile(rates, []byte(
		"date,spot_rate_eff_ann,other_rate\n2025-01-02,0.05,0.99\n"), 0644))

	mkt, err := svc.LoadMarket(context.Background(), levels, "", rates)
	require.NoError(t, err)
	require.NotNil(t, mkt.IndexLevels)
	assert.Nil(t, mkt.DividendYields)
	require.NotNil(t, mkt.RiskFreeRates)

	spot, err := mkt.SpotAt(fixtureValuation)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, spot)

	rate, err := mkt.RiskFreeRateAt(fixtureValuation)
	require.NoError(t, err)
	assert.Equal(t, 0.05, rate, "selector should pick the configured column")
}

func TestSummarizeSolve(t *testing.T) {
	v := 0.2
	solved := []volatility.SolvedQuote{
		{ImpliedVol: &v},
		{FailureKind: volatility.FailureNoSolution},
		{FailureKind: volatility.FailureNoSolution},
		{FailureKind: volatility.FailureInvalidInput},
	}

	summary := summarizeSolve(solved)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Solved)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, 2, summary.Failures["no_solution"])
	assert.Equal(t, 1, summary.Failures["invalid_input"])
}
