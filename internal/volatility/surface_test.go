package volatility

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volgrid/internal/market"
)

func surfaceGrid(t *testing.T, expirations []time.Time, strikes []float64, vols [][]float64) *Grid {
	t.Helper()
	require.Len(t, vols, len(expirations))

	cells := make([][]Cell, len(expirations))
	for i := range expirations {
		require.Len(t, vols[i], len(strikes))
		cells[i] = make([]Cell, len(strikes))
		for j := range strikes {
			v := vols[i][j]
			cells[i][j] = Cell{Vol: &v, Provenance: ProvenanceObserved, Count: 1}
		}
	}
	return &Grid{
		ValuationDate: testValuation,
		Expirations:   expirations,
		Strikes:       strikes,
		Cells:         cells,
	}
}

func TestSurfaceRecoversGridNodes(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.May, 17), expDay(time.June, 21)}
	strikes := []float64{4800, 5000, 5200}
	vols := [][]float64{
		{0.26, 0.22, 0.21},
		{0.25, 0.23, 0.22},
		{0.25, 0.24, 0.23},
	}

	for _, method := range []SurfaceMethod{SurfaceBilinear, SurfaceBicubic} {
		t.Run(string(method), func(t *testing.T) {
			s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{Method: method})
			require.NoError(t, err)

			for i, expiration := range expirations {
				for j, strike := range strikes {
					got, err := s.BlackVol(expiration, strike)
					require.NoError(t, err)
					assert.InDelta(t, vols[i][j], got, 1e-9,
						"node (%s, %v)", expiration.Format("2006-01-02"), strike)
				}
			}
		})
	}
}

func TestSurfaceFlatGridStaysFlat(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.25, 0.25}, {0.25, 0.25}}

	for _, method := range []SurfaceMethod{SurfaceBilinear, SurfaceBicubic} {
		t.Run(string(method), func(t *testing.T) {
			s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{
				Method:             method,
				AllowExtrapolation: true,
			})
			require.NoError(t, err)

			t1, t2 := s.TauRange()
			queries := []struct {
				name   string
				tau    float64
				strike float64
			}{
				{"short end", t1 / 2, 5000},
				{"between expirations", (t1 + t2) / 2, 5000},
				{"beyond last expiration", t2 * 1.5, 5000},
				{"below strike range", t1, 4500},
				{"above strike range", t2, 5500},
			}
			for _, q := range queries {
				got, err := s.BlackVolTau(q.tau, q.strike)
				require.NoError(t, err, q.name)
				assert.InDelta(t, 0.25, got, 1e-12, q.name)
			}
		})
	}
}

func TestSurfaceTimeInterpolationIsLinearInVariance(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.20, 0.20}, {0.30, 0.30}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{})
	require.NoError(t, err)

	t1, t2 := s.TauRange()
	mid := (t1 + t2) / 2
	wantVariance := 0.04*t1 + 0.5*(0.09*t2-0.04*t1)
	want := math.Sqrt(wantVariance / mid)

	got, err := s.BlackVolTau(mid, 5000)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	// Interpolating the vols directly would give 0.25; total variance is the
	// quantity that blends linearly.
	assert.Greater(t, math.Abs(got-0.25), 1e-4)
}

func TestSurfaceShortEndHoldsFirstRowVol(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.20, 0.30}, {0.22, 0.32}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{})
	require.NoError(t, err)

	// Variance scales toward zero at the valuation date, so the vol at any
	// tau below the first expiration matches the first row.
	t1, _ := s.TauRange()
	want := math.Sqrt((0.04 + 0.09) / 2)
	for _, tau := range []float64{t1, t1 / 2, t1 / 10} {
		got, err := s.BlackVolTau(tau, 5000)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12, "tau %v", tau)
	}
}

func TestSurfaceStrikeExtrapolationExtendsEdgeSegment(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19)}
	strikes := []float64{4800, 5000, 5200}
	vols := [][]float64{{0.20, 0.22, 0.26}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{
		AllowExtrapolation: true,
	})
	require.NoError(t, err)
	t1, _ := s.TauRange()

	// One segment width beyond each edge the variance continues on the edge
	// segment's slope: v(5400) = 2 v(5200) - v(5000).
	above, err := s.BlackVolTau(t1, 5400)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2*0.26*0.26-0.22*0.22), above, 1e-12)

	below, err := s.BlackVolTau(t1, 4600)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2*0.20*0.20-0.22*0.22), below, 1e-12)
}

func TestSurfaceExtrapolationGate(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.22, 0.23}, {0.24, 0.25}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{})
	require.NoError(t, err)
	t1, t2 := s.TauRange()

	_, err = s.BlackVolTau(t2*1.1, 5000)
	assert.ErrorIs(t, err, ErrExtrapolation, "tau beyond last expiration")

	_, err = s.BlackVolTau(t1, 4500)
	assert.ErrorIs(t, err, ErrExtrapolation, "strike below range")

	_, err = s.BlackVolTau(t1, 5500)
	assert.ErrorIs(t, err, ErrExtrapolation, "strike above range")

	// The short end is interior, not extrapolation.
	_, err = s.BlackVolTau(t1/2, 5000)
	assert.NoError(t, err)

	_, err = s.BlackVolTau(0, 5000)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExtrapolation, "non-positive tau is invalid input")
}

func TestSurfaceBicubicInterior(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.May, 17), expDay(time.June, 21)}
	strikes := []float64{4800, 5000, 5200}
	vols := [][]float64{
		{0.28, 0.22, 0.20},
		{0.27, 0.23, 0.21},
		{0.26, 0.24, 0.22},
	}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{Method: SurfaceBicubic})
	require.NoError(t, err)
	t1, t2 := s.TauRange()

	got, err := s.BlackVolTau((t1+t2)/2, 4900)
	require.NoError(t, err)
	assert.Greater(t, got, 0.18)
	assert.Less(t, got, 0.30)
}

func TestSurfaceBlackVolUsesDayCount(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.20, 0.22}, {0.24, 0.26}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{
		DayCount: market.Actual365Fixed,
	})
	require.NoError(t, err)

	tau := market.Actual365Fixed.YearFraction(testValuation, expDay(time.May, 17))
	fromDate, err := s.BlackVol(expDay(time.May, 17), 5000)
	require.NoError(t, err)
	fromTau, err := s.BlackVolTau(tau, 5000)
	require.NoError(t, err)
	assert.InDelta(t, fromTau, fromDate, 1e-15)
}

func TestSurfaceValidation(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19)}
	strikes := []float64{4800, 5200}

	t.Run("nil grid", func(t *testing.T) {
		_, err := NewSurface(nil, SurfaceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-empty")
	})

	t.Run("single strike", func(t *testing.T) {
		g := surfaceGrid(t, expirations, []float64{5000}, [][]float64{{0.22}})
		_, err := NewSurface(g, SurfaceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least two strikes")
	})

	t.Run("unfilled cells", func(t *testing.T) {
		g := surfaceGrid(t, expirations, strikes, [][]float64{{0.22, 0.23}})
		g.Cells[0][1] = Cell{Provenance: ProvenanceMissing}
		_, err := NewSurface(g, SurfaceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unfilled")
	})

	t.Run("expiration not after valuation", func(t *testing.T) {
		g := surfaceGrid(t, []time.Time{testValuation}, strikes, [][]float64{{0.22, 0.23}})
		_, err := NewSurface(g, SurfaceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not lie after")
	})

	t.Run("unknown method", func(t *testing.T) {
		g := surfaceGrid(t, expirations, strikes, [][]float64{{0.22, 0.23}})
		_, err := NewSurface(g, SurfaceOptions{Method: "biquadratic"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "surface method")
	})
}

func TestSurfaceAccessors(t *testing.T) {
	expirations := []time.Time{expDay(time.April, 19), expDay(time.June, 21)}
	strikes := []float64{4800, 5200}
	vols := [][]float64{{0.20, 0.22}, {0.24, 0.26}}

	s, err := NewSurface(surfaceGrid(t, expirations, strikes, vols), SurfaceOptions{})
	require.NoError(t, err)

	assert.Equal(t, testValuation, s.ValuationDate())

	got := s.Expirations()
	require.Equal(t, expirations, got)
	got[0] = time.Time{}
	assert.Equal(t, expirations, s.Expirations(), "returned slice is a copy")

	lo, hi := s.StrikeRange()
	assert.Equal(t, 4800.0, lo)
	assert.Equal(t, 5200.0, hi)

	t1, t2 := s.TauRange()
	assert.InDelta(t, market.ActualActualISDA.YearFraction(testValuation, expirations[0]), t1, 1e-15)
	assert.InDelta(t, market.ActualActualISDA.YearFraction(testValuation, expirations[1]), t2, 1e-15)
}
