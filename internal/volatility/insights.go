package volatility

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridInsights summarizes the level and term structure of a grid for
// reporting.
type GridInsights struct {
	Expirations int `json:"expirations"`
	Strikes     int `json:"strikes"`

	Observed     int `json:"observed"`
	Interpolated int `json:"interpolated"`
	Missing      int `json:"missing"`

	MinVol  float64 `json:"min_vol"`
	MaxVol  float64 `json:"max_vol"`
	MeanVol float64 `json:"mean_vol"`
	StdDev  float64 `json:"std_dev"`

	TermStructure []TermPoint `json:"term_structure"`
}

// TermPoint is the average volatility of one expiration row.
type TermPoint struct {
	Expiration     time.Time `json:"expiration"`
	DaysToMaturity int       `json:"days_to_maturity"`
	MeanVol        float64   `json:"mean_vol"`
	Strikes        int       `json:"strikes"` // populated cells behind the mean
}

// Insights summarizes a grid: population counts, volatility level, and the
// per-expiration term structure.
func Insights(g *Grid) GridInsights {
	ins := GridInsights{
		Expirations: g.Rows(),
		Strikes:     g.Cols(),
	}
	ins.Observed, ins.Interpolated, ins.Missing = g.provenanceCounts()

	var all []float64
	for i := range g.Cells {
		var row []float64
		for j := range g.Cells[i] {
			if v, ok := g.Vol(i, j); ok {
				row = append(row, v)
				all = append(all, v)
			}
		}

		tp := TermPoint{
			Expiration:     g.Expirations[i],
			DaysToMaturity: int(g.Expirations[i].Sub(g.ValuationDate).Hours() / 24),
			Strikes:        len(row),
		}
		if len(row) > 0 {
			tp.MeanVol = stat.Mean(row, nil)
		}
		ins.TermStructure = append(ins.TermStructure, tp)
	}

	if len(all) > 0 {
		ins.MinVol = floats.Min(all)
		ins.MaxVol = floats.Max(all)
		ins.MeanVol = stat.Mean(all, nil)
	}
	if len(all) > 1 {
		ins.StdDev = stat.StdDev(all, nil)
	}

	return ins
}
