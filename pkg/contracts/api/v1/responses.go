package api

import "volgrid/pkg/contracts/domain"

// StatusSuccess marks a completed request.
const StatusSuccess = "success"

// SolveResponse carries the outcome of one solve batch. Rows preserve the
// request order; failed rows carry a null implied_vol and a failure kind.
type SolveResponse struct {
	Status        string              `json:"status"`
	RunID         string              `json:"run_id"`
	ValuationDate string              `json:"valuation_date"`
	Rows          []domain.SolvedRow  `json:"rows"`
	Summary       domain.SolveSummary `json:"summary"`
	ElapsedMS     int64               `json:"elapsed_ms"`
}

// GridResponse carries an assembled volatility grid with its insights. The
// grid's report records pruning and interpolation decisions.
type GridResponse struct {
	Status    string              `json:"status"`
	RunID     string              `json:"run_id"`
	Grid      domain.Grid         `json:"grid"`
	Insights  domain.GridInsights `json:"insights"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

// MeshResponse carries the sampled surface lattice.
type MeshResponse struct {
	Status    string             `json:"status"`
	RunID     string             `json:"run_id"`
	Count     int                `json:"count"`
	Points    []domain.MeshPoint `json:"points"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

// ResultFile describes one exported artifact in the output directory.
type ResultFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Modified  string `json:"modified"`
}

// ResultsResponse lists exported artifacts available for download.
type ResultsResponse struct {
	Status string       `json:"status"`
	Files  []ResultFile `json:"files"`
	Count  int          `json:"count"`
}
