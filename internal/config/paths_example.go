// +build example

package config

import (
	"log/slog"
	"os"
	"time"
)

// ExampleUsage demonstrates how to use the paths package throughout the application
func ExampleUsage() {
	// Always get paths from the centralized GetPaths() function
	paths, err := GetPaths()
	if err != nil {
		slog.Error("Failed to get paths", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure all directories exist at startup
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to ensure directories", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Log all resolved paths for debugging
	paths.LogPathResolution()

	// Example 1: Locating a quote input file dropped into data/quotes
	quotePath := paths.GetQuotePath("spx_quotes_20240315.csv")
	slog.Info("Quote file resolved", slog.String("path", quotePath))

	// Example 2: Market series files loaded at startup
	slog.Info("Market series resolved",
		slog.String("index_levels", paths.GetIndexLevelsPath()),
		slog.String("dividend_yields", paths.GetDividendYieldsPath()),
		slog.String("risk_free_rates", paths.GetRiskFreeRatesPath()))

	// Example 3: Date-stamped outputs for a valuation date
	valuation := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	slog.Info("Outputs resolved",
		slog.String("solved_quotes", paths.GetSolvedQuotesCSVPath(valuation)),
		slog.String("grid_csv", paths.GetGridCSVPath(valuation)),
		slog.String("grid_workbook", paths.GetGridWorkbookPath(valuation)),
		slog.String("mesh_csv", paths.GetMeshCSVPath(valuation)))

	// Example 4: Column mapping file next to the executable
	mappingPath := paths.GetMappingPath()
	slog.Info("Column mapping resolved", slog.String("path", mappingPath))

	// Example 5: Log files
	logPath := paths.GetLogPath("volgrid.log")
	slog.Info("Log file resolved", slog.String("path", logPath))
}

// Migration Guide:
//
// OLD CODE (problematic):
//   quotePath := filepath.Join(os.Getwd(), "quotes.csv")
//   gridPath := "out/vol_grid.csv"
//
// NEW CODE (correct):
//   paths, _ := config.GetPaths()
//   quotePath := paths.GetQuotePath("quotes.csv")
//   gridPath := paths.GetGridCSVPath(valuationDate)
//
// Benefits:
// 1. All paths relative to executable, not working directory
// 2. Consistent across all components
// 3. Cross-platform path handling
// 4. Centralized logging and debugging
// 5. Easy to test and mock
