package volatility

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

type gridKey struct {
	expiration time.Time
	strike     float64
}

// BuildGrid pivots solved quotes into an expiration-by-strike volatility
// grid: filter one side of the book, aggregate duplicate observations,
// prune thinly quoted strikes, then fill gaps per the configured
// interpolation. Rows whose expiration does not lie after the valuation
// date never enter the pivot.
//
// Quotes that failed to solve contribute nothing; only a fully empty pivot
// (ErrNoObservations) or pruning every strike (ErrNoSurvivingStrikes) is
// an error.
func BuildGrid(solved []SolvedQuote, cfg GridConfig) (*Grid, error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("grid config: %w", err)
	}

	report := GridReport{QuotesIn: len(solved)}

	var valuation time.Time
	obs := make(map[gridKey][]float64)
	expSet := make(map[time.Time]struct{})
	strikeSet := make(map[float64]struct{})

	for _, sq := range solved {
		if !sq.Solved() || !cfg.Filter.keeps(sq.Quote.OptionType) {
			continue
		}
		if *sq.ImpliedVol <= 0 {
			continue
		}

		vd := dayOf(sq.Quote.ValuationDate)
		if valuation.IsZero() {
			valuation = vd
		} else if !valuation.Equal(vd) {
			return nil, fmt.Errorf("mixed valuation dates: %s and %s",
				valuation.Format("2006-01-02"), vd.Format("2006-01-02"))
		}

		expiration := dayOf(sq.Quote.ExpirationDate)
		if !expiration.After(valuation) {
			continue
		}

		strike := sq.Quote.Strike.InexactFloat64()
		key := gridKey{expiration: expiration, strike: strike}
		obs[key] = append(obs[key], *sq.ImpliedVol)
		expSet[expiration] = struct{}{}
		strikeSet[strike] = struct{}{}
		report.QuotesUsed++
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: %d quotes offered", ErrNoObservations, len(solved))
	}

	expirations := sortedTimes(expSet)
	strikes := sortedFloats(strikeSet)

	minObs := cfg.MinObservations
	if minObs == 0 {
		minObs = int(math.Round(float64(len(expirations)) * cfg.ObservationFraction))
		if minObs < 1 {
			minObs = 1
		}
	}
	report.MinObservations = minObs

	kept := make([]float64, 0, len(strikes))
	for _, strike := range strikes {
		populated := 0
		for _, expiration := range expirations {
			if len(obs[gridKey{expiration: expiration, strike: strike}]) > 0 {
				populated++
			}
		}
		if populated >= minObs {
			kept = append(kept, strike)
		} else {
			report.PrunedStrikes = append(report.PrunedStrikes, strike)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: threshold %d over %d expirations",
			ErrNoSurvivingStrikes, minObs, len(expirations))
	}
	if len(report.PrunedStrikes) > 0 {
		cfg.Logger.Debug("pruned thinly quoted strikes",
			"pruned", len(report.PrunedStrikes),
			"kept", len(kept),
			"min_observations", minObs,
		)
	}

	cells := make([][]Cell, len(expirations))
	for i, expiration := range expirations {
		cells[i] = make([]Cell, len(kept))
		for j, strike := range kept {
			vols := obs[gridKey{expiration: expiration, strike: strike}]
			if len(vols) == 0 {
				cells[i][j] = Cell{Provenance: ProvenanceMissing}
				continue
			}
			v := aggregate(vols, cfg.Aggregation)
			cells[i][j] = Cell{Vol: &v, Provenance: ProvenanceObserved, Count: len(vols)}
		}
	}

	g := &Grid{
		ValuationDate: valuation,
		Expirations:   expirations,
		Strikes:       kept,
		Cells:         cells,
		Report:        report,
	}

	if cfg.Interpolation != InterpolateNone {
		interpolateGrid(g, cfg.Interpolation == InterpolateLinearClamp)
	}
	g.Report.Observed, g.Report.Interpolated, g.Report.Missing = g.provenanceCounts()

	cfg.Logger.Info("volatility grid built",
		"expirations", len(g.Expirations),
		"strikes", len(g.Strikes),
		"observed", g.Report.Observed,
		"interpolated", g.Report.Interpolated,
		"missing", g.Report.Missing,
	)

	return g, nil
}

// aggregate combines duplicate observations for one cell. Values are sorted
// first so the result does not depend on quote order.
func aggregate(vols []float64, method AggregationMethod) float64 {
	if len(vols) == 1 {
		return vols[0]
	}
	sorted := append([]float64(nil), vols...)
	sort.Float64s(sorted)
	if method == AggregateMedian {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return stat.Mean(sorted, nil)
}

// interpolateGrid fills gaps in place: first along each expiration row
// across strikes, then along each strike column across expirations. The
// column pass treats values filled by the row pass as known.
func interpolateGrid(g *Grid, clampForward bool) {
	for i := range g.Cells {
		row := g.Cells[i]
		interpolateLine(len(row), g.Strikes,
			func(k int) *Cell { return &row[k] }, false)
	}

	days := make([]float64, len(g.Expirations))
	for i, expiration := range g.Expirations {
		days[i] = expiration.Sub(g.ValuationDate).Hours() / 24
	}
	for j := range g.Strikes {
		interpolateLine(len(g.Expirations), days,
			func(k int) *Cell { return &g.Cells[k][j] }, clampForward)
	}
}

// interpolateLine linearly fills interior gaps of one grid line against the
// axis coordinates in xs. Cells before the first known value always stay
// missing; cells after the last known value are carried forward only when
// clampForward is set.
func interpolateLine(n int, xs []float64, at func(int) *Cell, clampForward bool) {
	prev := -1
	for k := 0; k < n; k++ {
		if at(k).Vol == nil {
			continue
		}
		if prev >= 0 && k-prev > 1 {
			fillSegment(xs, at, prev, k)
		}
		prev = k
	}

	if clampForward && prev >= 0 && prev < n-1 {
		last := *at(prev).Vol
		for k := prev + 1; k < n; k++ {
			v := last
			cell := at(k)
			cell.Vol = &v
			cell.Provenance = ProvenanceInterpolated
		}
	}
}

// fillSegment writes the linear blend between the known cells at lo and hi.
func fillSegment(xs []float64, at func(int) *Cell, lo, hi int) {
	loVol, hiVol := *at(lo).Vol, *at(hi).Vol
	for k := lo + 1; k < hi; k++ {
		w := (xs[k] - xs[lo]) / (xs[hi] - xs[lo])
		v := loVol + w*(hiVol-loVol)
		cell := at(k)
		cell.Vol = &v
		cell.Provenance = ProvenanceInterpolated
	}
}

// Complete returns a copy of the grid keeping only fully populated strike
// columns, the shape a surface fit requires. Dropped columns are recorded
// on the copy's report alongside the strikes pruned earlier.
func (g *Grid) Complete() *Grid {
	keep := make([]int, 0, len(g.Strikes))
	for j := range g.Strikes {
		full := true
		for i := range g.Expirations {
			if g.Cells[i][j].Vol == nil {
				full = false
				break
			}
		}
		if full {
			keep = append(keep, j)
		}
	}

	out := &Grid{
		ValuationDate: g.ValuationDate,
		Expirations:   append([]time.Time(nil), g.Expirations...),
		Strikes:       make([]float64, 0, len(keep)),
		Cells:         make([][]Cell, len(g.Expirations)),
		Report:        g.Report,
	}
	out.Report.PrunedStrikes = append([]float64(nil), g.Report.PrunedStrikes...)

	keptSet := make(map[int]bool, len(keep))
	for _, j := range keep {
		keptSet[j] = true
		out.Strikes = append(out.Strikes, g.Strikes[j])
	}
	for j := range g.Strikes {
		if !keptSet[j] {
			out.Report.PrunedStrikes = append(out.Report.PrunedStrikes, g.Strikes[j])
		}
	}
	sort.Float64s(out.Report.PrunedStrikes)

	for i := range g.Expirations {
		out.Cells[i] = make([]Cell, len(keep))
		for jj, j := range keep {
			src := g.Cells[i][j]
			v := *src.Vol
			out.Cells[i][jj] = Cell{Vol: &v, Provenance: src.Provenance, Count: src.Count}
		}
	}

	out.Report.Observed, out.Report.Interpolated, out.Report.Missing = out.provenanceCounts()
	return out
}

func (g *Grid) provenanceCounts() (observed, interpolated, missing int) {
	for i := range g.Cells {
		for j := range g.Cells[i] {
			switch g.Cells[i][j].Provenance {
			case ProvenanceObserved:
				observed++
			case ProvenanceInterpolated:
				interpolated++
			default:
				missing++
			}
		}
	}
	return observed, interpolated, missing
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortedTimes(set map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sortedFloats(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
