// Package config provides centralized configuration management for the
// volgrid system. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern VOLGRID_* for namespacing:
//
//	VOLGRID_SERVER_PORT=8080
//	VOLGRID_LOGGING_LEVEL=info
//	VOLGRID_SOLVER_MAX_ITERATIONS=200
//	VOLGRID_GRID_FILTER=both
//	VOLGRID_MARKET_RATE_COLUMN=spot_rate_eff_ann
//
// # Configuration Structure
//
// The configuration is organized into sections mirroring the processing
// pipeline: server (HTTP), paths, logging, solver (implied volatility
// search), grid (surface construction), market (series resolution), and
// mapping (input column names to canonical quote fields).
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	quotePath := paths.GetQuotePath("quotes_20240315.csv")
//	gridPath := paths.GetGridCSVPath(valuationDate)
//
// # Validation
//
// All configuration is validated at load time with validator struct tags
// plus cross-field checks:
//
//	- Numeric values are within acceptable ranges
//	- Enumerated fields name a known policy (aggregation, interpolation, ...)
//	- Dependent fields are consistent (file logging needs a file path)
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load(configFlag)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
