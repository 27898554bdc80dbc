// Command surface-report rebuilds the grid and surface reports from a
// solved-quote file, without re-running the solver. It reads a
// solved_quotes_*.csv produced by volgrid, assembles the volatility grid,
// fits a surface, samples a dense mesh, and writes the grid CSV and mesh
// CSV into the output directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"volgrid/internal/config"
	"volgrid/internal/exporter"
	"volgrid/internal/infrastructure"
	"volgrid/internal/market"
	"volgrid/internal/services"
	"volgrid/internal/volatility"
	"volgrid/pkg/contracts"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file")
	solvedPath := flag.String("solved", "", "solved-quote CSV to report on (default: newest in the output directory)")
	valuationFlag := flag.String("valuation", "", "valuation date as YYYY-MM-DD (default: parsed from the file name)")
	outDir := flag.String("out", "", "output directory override")
	methodFlag := flag.String("method", "", "surface fit: bilinear or bicubic")
	strikeStep := flag.Float64("strike-step", 0, "mesh strike spacing, 0 uses the package default")
	dateStep := flag.Int("date-step", 0, "mesh date spacing in calendar days, 0 uses the package default")
	spotFlag := flag.Float64("spot", 0, "spot level for mesh moneyness (default: taken from the solved quotes)")
	filterFlag := flag.String("filter", "", "grid side: calls, puts, or both")
	logLevel := flag.String("log-level", "", "log level override: debug, info, warn, or error")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return exitOK
	}

	// Environment overrides may live in a .env next to the binary.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", slog.String("error", err.Error()))
	}

	method, err := volatility.ParseSurfaceMethod(*methodFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	if *filterFlag != "" {
		switch *filterFlag {
		case "calls", "puts", "both":
			cfg.Grid.Filter = *filterFlag
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid -filter %q (want calls, puts, or both)\n", *filterFlag)
			return exitUsage
		}
	}
	if *logLevel != "" {
		switch *logLevel {
		case "debug", "info", "warn", "error":
			cfg.Logging.Level = *logLevel
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid -log-level %q (want debug, info, warn, or error)\n", *logLevel)
			return exitUsage
		}
	}
	if *outDir != "" {
		cfg.Paths.OutDir = *outDir
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create directories: %v\n", err)
		return exitError
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	paths, err := config.GetPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve paths: %v\n", err)
		return exitError
	}
	// Output helpers emit into the resolved directory, overrides included.
	paths.OutDir = cfg.GetOutDir()

	input, err := resolveSolvedInput(*solvedPath, paths.OutDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run volgrid first to produce a solved-quote file, or pass one with -solved.")
		return exitError
	}

	valuation, err := resolveValuation(*valuationFlag, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	dayCount, err := market.ParseDayCount(cfg.Market.DayCount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	solved, err := exporter.ReadSolvedQuotes(input, valuation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	fmt.Printf("Loaded %d solved quotes from %s\n", len(solved), input)

	spot := *spotFlag
	if spot == 0 {
		spot = spotFromSolved(solved)
	}
	if spot <= 0 {
		fmt.Fprintln(os.Stderr, "Error: no positive spot level in the file; pass one with -spot")
		return exitUsage
	}

	ctx := context.Background()
	svc := services.NewVolatilityService(cfg, logger)

	grid, err := svc.BuildGrid(ctx, solved, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, volatility.ErrNoObservations) || errors.Is(err, volatility.ErrNoSurvivingStrikes) {
			fmt.Fprintln(os.Stderr, "Loosen the grid filters in the configuration and retry.")
		}
		return exitError
	}

	mesh, err := svc.BuildMesh(ctx, grid.Grid, spot,
		volatility.SurfaceOptions{Method: method, DayCount: dayCount},
		volatility.MeshConfig{StrikeStep: *strikeStep, DateStep: *dateStep})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	gridPath := paths.GetGridCSVPath(valuation)
	if err := exporter.NewGridExporter(paths).ExportGridCSV(grid.Grid, gridPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write grid CSV: %v\n", err)
		return exitError
	}
	fmt.Printf("Grid written to %s\n", gridPath)

	meshPath := paths.GetMeshCSVPath(valuation)
	if err := exporter.NewMeshExporter(paths).ExportMeshCSV(mesh.Points, meshPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write mesh CSV: %v\n", err)
		return exitError
	}
	fmt.Printf("Mesh written to %s (%d points)\n", meshPath, len(mesh.Points))

	printSurfaceSummary(grid.Insights, mesh.Points, spot)

	logger.Info("surface report complete",
		slog.String("input", input),
		slog.String("grid_run_id", grid.RunID),
		slog.String("mesh_run_id", mesh.RunID),
		slog.String("valuation", valuation.Format("2006-01-02")))
	return exitOK
}

// resolveSolvedInput returns the explicit path when one is given, otherwise
// the newest dated solved-quote file in the output directory. Date-stamped
// names sort chronologically, so the lexicographic maximum is the latest.
func resolveSolvedInput(explicit, outDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("solved quotes file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	matches, err := filepath.Glob(filepath.Join(outDir, config.SolvedQuotesPrefix+"*.csv"))
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", outDir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s*.csv files in %s", config.SolvedQuotesPrefix, outDir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// resolveValuation parses the explicit YYYY-MM-DD value when one is given,
// otherwise recovers the date stamp embedded in the input file name.
func resolveValuation(explicit, input string) (time.Time, error) {
	if explicit != "" {
		v, err := time.Parse("2006-01-02", explicit)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -valuation %q (want YYYY-MM-DD)", explicit)
		}
		return v, nil
	}

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stamp := strings.TrimPrefix(name, config.SolvedQuotesPrefix)
	v, err := time.Parse(config.DateStampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot read a valuation date from %s; pass one with -valuation", filepath.Base(input))
	}
	return v, nil
}

// spotFromSolved returns the first positive spot level in the file. Every
// row of a single run shares the valuation-date spot.
func spotFromSolved(solved []volatility.SolvedQuote) float64 {
	for _, sq := range solved {
		if sq.Spot > 0 {
			return sq.Spot
		}
	}
	return 0
}

func printSurfaceSummary(ins volatility.GridInsights, points []volatility.MeshPoint, spot float64) {
	if len(ins.TermStructure) > 0 {
		fmt.Println("\n=== VOLATILITY TERM STRUCTURE ===")
		fmt.Println("Expiration | Days | Mean Vol | Strikes")
		fmt.Println("-----------|------|----------|--------")
		for _, tp := range ins.TermStructure {
			fmt.Printf("%-10s | %4d | %8.4f | %7d\n",
				tp.Expiration.Format("2006-01-02"), tp.DaysToMaturity, tp.MeanVol, tp.Strikes)
		}
	}

	fmt.Println("\n=== SURFACE SUMMARY ===")
	fmt.Printf("Grid cells:  %d observed, %d interpolated, %d missing\n",
		ins.Observed, ins.Interpolated, ins.Missing)
	fmt.Printf("Vol range:   %.4f .. %.4f (mean %.4f, stddev %.4f)\n",
		ins.MinVol, ins.MaxVol, ins.MeanVol, ins.StdDev)
	fmt.Printf("Mesh points: %d at spot %.2f\n", len(points), spot)
}
