package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"volgrid/internal/market"
	"volgrid/internal/quotes"
	"volgrid/internal/services"
	"volgrid/internal/volatility"
	api "volgrid/pkg/contracts/api/v1"
	"volgrid/pkg/contracts/domain"
)

// Conversions between the wire types in pkg/contracts and the internal
// calculation types. Requests have passed tag and Bind validation before they
// reach these, so date strings parse; option type spellings are the one field
// still rejected here because the ingest parser owns the accepted set.

func toQuotes(in []domain.Quote, valuation time.Time) ([]quotes.Quote, error) {
	out := make([]quotes.Quote, 0, len(in))
	for i, wq := range in {
		optionType, err := quotes.ParseOptionType(wq.OptionType)
		if err != nil {
			return nil, fmt.Errorf("quotes[%d].option_type: %w", i, err)
		}
		expiration, err := domain.ParseDate(wq.ExpirationDate)
		if err != nil {
			return nil, fmt.Errorf("quotes[%d].expiration_date: %w", i, err)
		}

		q := quotes.Quote{
			ValuationDate:  valuation,
			ExpirationDate: expiration,
			Strike:         decimal.NewFromFloat(wq.Strike),
			OptionPrice:    decimal.NewFromFloat(wq.OptionPrice),
			OptionType:     optionType,
		}
		if wq.QuoteDate != "" {
			quoteDate, err := domain.ParseDate(wq.QuoteDate)
			if err != nil {
				return nil, fmt.Errorf("quotes[%d].quote_date: %w", i, err)
			}
			q.QuoteDate = quoteDate
		}
		q.UnderlyingLevel = copyFloat(wq.UnderlyingLevel)
		q.DividendYield = copyFloat(wq.DividendYield)
		q.RiskFreeRate = copyFloat(wq.RiskFreeRate)

		out = append(out, q)
	}
	return out, nil
}

// toMarket builds a market context from inline series. A nil market is
// allowed: quotes must then carry their own levels, and rows that do not
// fail individually.
func toMarket(in *domain.Market) (*market.Context, error) {
	if in == nil {
		return nil, nil
	}

	dayCount, err := market.ParseDayCount(in.DayCount)
	if err != nil {
		return nil, fmt.Errorf("market.day_count: %w", err)
	}
	compounding, err := market.ParseCompounding(in.RateCompounding)
	if err != nil {
		return nil, fmt.Errorf("market.rate_compounding: %w", err)
	}

	mkt := &market.Context{DayCount: dayCount, Compounding: compounding}
	if mkt.IndexLevels, err = toSeries("index_levels", in.IndexLevels); err != nil {
		return nil, err
	}
	if mkt.DividendYields, err = toSeries("dividend_yields", in.DividendYields); err != nil {
		return nil, err
	}
	if mkt.RiskFreeRates, err = toSeries("risk_free_rates", in.RiskFreeRates); err != nil {
		return nil, err
	}
	return mkt, nil
}

func toSeries(name string, in []domain.SeriesPoint) (*market.Series, error) {
	if len(in) == 0 {
		return nil, nil
	}
	points := make([]market.Point, 0, len(in))
	for i, p := range in {
		date, err := domain.ParseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("market.%s[%d].date: %w", name, i, err)
		}
		points = append(points, market.Point{Date: date, Value: p.Value})
	}
	series, err := market.NewSeries(name, points)
	if err != nil {
		return nil, fmt.Errorf("market.%s: %w", name, err)
	}
	return series, nil
}

func toSolverConfig(in *api.SolverOptions) *volatility.SolverConfig {
	if in == nil {
		return nil
	}
	return &volatility.SolverConfig{
		Tolerance:     in.Tolerance,
		MaxIterations: in.MaxIterations,
		UpperBound:    in.MaxVol,
	}
}

func toGridConfig(in *api.GridOptions) *volatility.GridConfig {
	if in == nil {
		return nil
	}
	return &volatility.GridConfig{
		Filter:              volatility.FilterType(in.Filter),
		Aggregation:         volatility.AggregationMethod(in.Aggregation),
		MinObservations:     in.MinObservations,
		ObservationFraction: in.ObservationFraction,
		Interpolation:       volatility.InterpolationMethod(in.Interpolation),
	}
}

func toSurfaceOptions(in *api.SurfaceOptions) (volatility.SurfaceOptions, error) {
	var opts volatility.SurfaceOptions
	if in == nil {
		return opts, nil
	}
	method, err := volatility.ParseSurfaceMethod(in.Method)
	if err != nil {
		return opts, fmt.Errorf("surface.method: %w", err)
	}
	dayCount, err := market.ParseDayCount(in.DayCount)
	if err != nil {
		return opts, fmt.Errorf("surface.day_count: %w", err)
	}
	opts.Method = method
	opts.AllowExtrapolation = in.AllowExtrapolation
	opts.DayCount = dayCount
	return opts, nil
}

func toMeshConfig(in *api.MeshOptions) volatility.MeshConfig {
	if in == nil {
		return volatility.MeshConfig{}
	}
	return volatility.MeshConfig{
		StrikeStep: in.StrikeStep,
		DateStep:   in.DateStep,
	}
}

// toSolvedQuotes rebuilds solver output rows from their wire form so a solve
// response can feed the grid endpoint directly. Only the fields the grid
// builder reads are populated.
func toSolvedQuotes(in []domain.SolvedRow, valuation time.Time) ([]volatility.SolvedQuote, error) {
	out := make([]volatility.SolvedQuote, 0, len(in))
	for i, row := range in {
		optionType, err := quotes.ParseOptionType(row.OptionType)
		if err != nil {
			return nil, fmt.Errorf("solved[%d].option_type: %w", i, err)
		}
		expiration, err := domain.ParseDate(row.ExpirationDate)
		if err != nil {
			return nil, fmt.Errorf("solved[%d].expiration_date: %w", i, err)
		}

		out = append(out, volatility.SolvedQuote{
			Quote: quotes.Quote{
				ValuationDate:  valuation,
				ExpirationDate: expiration,
				Strike:         decimal.NewFromFloat(row.Strike),
				OptionPrice:    decimal.NewFromFloat(row.OptionPrice),
				OptionType:     optionType,
			},
			Spot:          row.Spot,
			DividendYield: row.DividendYield,
			RiskFreeRate:  row.RiskFreeRate,
			Tau:           row.Tau,
			ImpliedVol:    copyFloat(row.ImpliedVol),
			Iterations:    row.Iterations,
			FailureKind:   volatility.FailureKind(row.FailureKind),
			FailureDetail: row.FailureDetail,
		})
	}
	return out, nil
}

// toGrid rebuilds a volatility grid from its wire form. The wire grid has
// passed Validate, so dates parse and the cell matrix matches the axes.
// Cells without a provenance are labeled by whether they carry a value.
func toGrid(in *domain.Grid) (*volatility.Grid, error) {
	valuation, err := domain.ParseDate(in.ValuationDate)
	if err != nil {
		return nil, fmt.Errorf("grid.valuation_date: %w", err)
	}

	expirations := make([]time.Time, len(in.Expirations))
	for i, s := range in.Expirations {
		if expirations[i], err = domain.ParseDate(s); err != nil {
			return nil, fmt.Errorf("grid.expirations[%d]: %w", i, err)
		}
	}

	cells := make([][]volatility.Cell, len(in.Cells))
	for i, row := range in.Cells {
		cells[i] = make([]volatility.Cell, len(row))
		for j, c := range row {
			cell := volatility.Cell{
				Vol:        copyFloat(c.Vol),
				Provenance: volatility.Provenance(c.Provenance),
				Count:      c.Count,
			}
			if cell.Provenance == "" {
				if cell.Vol != nil {
					cell.Provenance = volatility.ProvenanceObserved
				} else {
					cell.Provenance = volatility.ProvenanceMissing
				}
			}
			cells[i][j] = cell
		}
	}

	g := &volatility.Grid{
		ValuationDate: valuation,
		Expirations:   expirations,
		Strikes:       append([]float64(nil), in.Strikes...),
		Cells:         cells,
	}
	if in.Report != nil {
		g.Report = volatility.GridReport{
			QuotesIn:        in.Report.QuotesIn,
			QuotesUsed:      in.Report.QuotesUsed,
			MinObservations: in.Report.MinObservations,
			PrunedStrikes:   append([]float64(nil), in.Report.PrunedStrikes...),
			Observed:        in.Report.Observed,
			Interpolated:    in.Report.Interpolated,
			Missing:         in.Report.Missing,
		}
	}
	return g, nil
}

func fromSolved(in []volatility.SolvedQuote) []domain.SolvedRow {
	out := make([]domain.SolvedRow, 0, len(in))
	for _, sq := range in {
		out = append(out, domain.SolvedRow{
			ExpirationDate: domain.FormatDate(sq.Quote.ExpirationDate),
			Strike:         sq.Quote.Strike.InexactFloat64(),
			OptionType:     string(sq.Quote.OptionType),
			OptionPrice:    sq.Quote.OptionPrice.InexactFloat64(),
			Spot:           sq.Spot,
			DividendYield:  sq.DividendYield,
			RiskFreeRate:   sq.RiskFreeRate,
			Tau:            sq.Tau,
			ImpliedVol:     copyFloat(sq.ImpliedVol),
			Iterations:     sq.Iterations,
			FailureKind:    string(sq.FailureKind),
			FailureDetail:  sq.FailureDetail,
		})
	}
	return out
}

func fromSummary(in services.SolveSummary) domain.SolveSummary {
	return domain.SolveSummary{
		Total:    in.Total,
		Solved:   in.Solved,
		Failed:   in.Failed,
		Failures: in.Failures,
	}
}

func fromGrid(g *volatility.Grid) domain.Grid {
	expirations := make([]string, len(g.Expirations))
	for i, t := range g.Expirations {
		expirations[i] = domain.FormatDate(t)
	}

	cells := make([][]domain.GridCell, len(g.Cells))
	for i, row := range g.Cells {
		cells[i] = make([]domain.GridCell, len(row))
		for j, c := range row {
			cells[i][j] = domain.GridCell{
				Vol:        copyFloat(c.Vol),
				Provenance: string(c.Provenance),
				Count:      c.Count,
			}
		}
	}

	return domain.Grid{
		ValuationDate: domain.FormatDate(g.ValuationDate),
		Expirations:   expirations,
		Strikes:       append([]float64(nil), g.Strikes...),
		Cells:         cells,
		Report: &domain.GridReport{
			QuotesIn:        g.Report.QuotesIn,
			QuotesUsed:      g.Report.QuotesUsed,
			MinObservations: g.Report.MinObservations,
			PrunedStrikes:   append([]float64(nil), g.Report.PrunedStrikes...),
			Observed:        g.Report.Observed,
			Interpolated:    g.Report.Interpolated,
			Missing:         g.Report.Missing,
		},
	}
}

func fromInsights(in volatility.GridInsights) domain.GridInsights {
	term := make([]domain.TermPoint, 0, len(in.TermStructure))
	for _, tp := range in.TermStructure {
		term = append(term, domain.TermPoint{
			Expiration:     domain.FormatDate(tp.Expiration),
			DaysToMaturity: tp.DaysToMaturity,
			MeanVol:        tp.MeanVol,
			Strikes:        tp.Strikes,
		})
	}
	return domain.GridInsights{
		Expirations:   in.Expirations,
		Strikes:       in.Strikes,
		Observed:      in.Observed,
		Interpolated:  in.Interpolated,
		Missing:       in.Missing,
		MinVol:        in.MinVol,
		MaxVol:        in.MaxVol,
		MeanVol:       in.MeanVol,
		StdDev:        in.StdDev,
		TermStructure: term,
	}
}

func fromMesh(in []volatility.MeshPoint) []domain.MeshPoint {
	out := make([]domain.MeshPoint, 0, len(in))
	for _, p := range in {
		out = append(out, domain.MeshPoint{
			ExpirationDate: domain.FormatDate(p.ExpirationDate),
			DaysToMaturity: p.DaysToMaturity,
			Tau:            p.Tau,
			Strike:         p.Strike,
			Moneyness:      p.Moneyness,
			Vol:            p.Vol,
		})
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
