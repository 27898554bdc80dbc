package config

import "time"

// Application constants - all hardcoded values for the volgrid system
const (
	// Application Info
	AppName    = "volgrid"
	AppVersion = "1.0.0"

	// Output File Naming
	// Dated outputs carry the valuation date: vol_grid_20240315.csv
	SolvedQuotesPrefix = "solved_quotes_"
	GridFilePrefix     = "vol_grid_"
	MeshFilePrefix     = "vol_mesh_"
	DateStampLayout    = "20060102"

	// Market Series Defaults
	// Rate files commonly carry several quoting bases side by side; this
	// column is the one solved against unless configured otherwise.
	DefaultRateColumn     = "spot_rate_eff_ann"
	IndexLevelsFileName   = "index_levels.csv"
	DividendYieldFileName = "dividend_yields.csv"
	RiskFreeRateFileName  = "risk_free_rates.csv"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir   = "data"
	DefaultQuotesDir = "data/quotes"
	DefaultSeriesDir = "data/series"
	DefaultOutDir    = "out"
	DefaultLogsDir   = "logs"

	// Operation Timeouts
	DefaultSolveTimeout = 5 * time.Minute
	GridBuildTimeout    = 1 * time.Minute
	ExportTimeout       = 2 * time.Minute

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true
	FeatureRateLimitEnabled   = true
	FeatureXLSXExportEnabled  = true
	FeatureMeshEnabled        = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureVerboseModeEnabled  = false
)

// URLs and Endpoints
const (
	// API Endpoints (internal)
	APIBasePath       = "/api"
	SolveEndpoint     = "/api/volatility/solve"
	GridEndpoint      = "/api/volatility/grid"
	MeshEndpoint      = "/api/volatility/surface/mesh"
	HealthEndpoint    = "/api/health"
	ReadinessEndpoint = "/api/health/ready"
	MetricsEndpoint   = "/metrics"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "rate_limiting":
		return FeatureRateLimitEnabled
	case "xlsx_export":
		return FeatureXLSXExportEnabled
	case "mesh":
		return FeatureMeshEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "verbose_mode":
		return FeatureVerboseModeEnabled
	default:
		return false
	}
}
