package volatility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volgrid/internal/quotes"
)

func TestGridInsights(t *testing.T) {
	apr, may := expDay(time.April, 19), expDay(time.May, 17)
	solved := []SolvedQuote{
		gridQuote(apr, 4800, 0.20, quotes.OptionCall),
		gridQuote(apr, 5000, 0.22, quotes.OptionCall),
		gridQuote(may, 4800, 0.24, quotes.OptionCall),
	}

	g, err := BuildGrid(solved, GridConfig{MinObservations: 1, Interpolation: InterpolateNone})
	require.NoError(t, err)

	ins := Insights(g)
	assert.Equal(t, 2, ins.Expirations)
	assert.Equal(t, 2, ins.Strikes)
	assert.Equal(t, 3, ins.Observed)
	assert.Zero(t, ins.Interpolated)
	assert.Equal(t, 1, ins.Missing)

	assert.InDelta(t, 0.20, ins.MinVol, 1e-12)
	assert.InDelta(t, 0.24, ins.MaxVol, 1e-12)
	assert.InDelta(t, 0.22, ins.MeanVol, 1e-12)
	assert.InDelta(t, 0.02, ins.StdDev, 1e-12)

	require.Len(t, ins.TermStructure, 2)
	assert.Equal(t, apr, ins.TermStructure[0].Expiration)
	assert.Equal(t, 35, ins.TermStructure[0].DaysToMaturity)
	assert.InDelta(t, 0.21, ins.TermStructure[0].MeanVol, 1e-12)
	assert.Equal(t, 2, ins.TermStructure[0].Strikes)

	assert.Equal(t, may, ins.TermStructure[1].Expiration)
	assert.Equal(t, 63, ins.TermStructure[1].DaysToMaturity)
	assert.InDelta(t, 0.24, ins.TermStructure[1].MeanVol, 1e-12)
	assert.Equal(t, 1, ins.TermStructure[1].Strikes)
}

func TestGridInsightsEmptyGrid(t *testing.T) {
	g := &Grid{
		ValuationDate: testValuation,
		Expirations:   []time.Time{expDay(time.April, 19)},
		Strikes:       []float64{5000},
		Cells:         [][]Cell{{{Provenance: ProvenanceMissing}}},
	}

	ins := Insights(g)
	assert.Equal(t, 1, ins.Missing)
	assert.Zero(t, ins.MinVol)
	assert.Zero(t, ins.MaxVol)
	assert.Zero(t, ins.MeanVol)
	assert.Zero(t, ins.StdDev)
	require.Len(t, ins.TermStructure, 1)
	assert.Zero(t, ins.TermStructure[0].Strikes)
}
