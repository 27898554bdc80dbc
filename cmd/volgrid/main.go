package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"volgrid/internal/config"
	"volgrid/internal/exporter"
	"volgrid/internal/infrastructure"
	"volgrid/internal/quotes"
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
	configPath := flag.String("config", "", "YAML configuration file (defaults to well-known locations)")
	quotesPath := flag.String("quotes", "", "option quote file, CSV or XLSX (defaults to the newest file in data/quotes)")
	levelsPath := flag.String("levels", "", "index level series file (defaults to data/series/index_levels.csv)")
	dividendsPath := flag.String("dividends", "", "dividend yield series file (defaults to data/series/dividend_yields.csv)")
	ratesPath := flag.String("rates", "", "risk-free rate series file (defaults to data/series/risk_free_rates.csv)")
	mappingPath := flag.String("mapping", "", "YAML column-mapping file (defaults to mapping.yaml next to the executable)")
	valuationStr := flag.String("valuation", "", "valuation date, YYYY-MM-DD (defaults to today)")
	outDir := flag.String("out", "", "output directory (defaults to out/ next to the executable)")
	format := flag.String("format", "csv", "grid output format: csv, xlsx or both")
	filter := flag.String("filter", "", "option type filter: calls, puts or both (overrides configuration)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error (overrides configuration)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return exitOK
	}

	// .env feeds the environment before envconfig reads it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	switch *format {
	case "csv", "xlsx", "both":
	default:
		fmt.Fprintf(os.Stderr, "invalid -format %q: must be csv, xlsx or both\n", *format)
		return exitUsage
	}

	valuation, err := resolveValuation(*valuationStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -valuation %q: %v\n", *valuationStr, err)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return exitUsage
	}

	if *filter != "" {
		switch *filter {
		case "calls", "puts", "both":
			cfg.Grid.Filter = *filter
		default:
			fmt.Fprintf(os.Stderr, "invalid -filter %q: must be calls, puts or both\n", *filter)
			return exitUsage
		}
	}
	if *logLevel != "" {
		switch *logLevel {
		case "debug", "info", "warn", "error":
			cfg.Logging.Level = *logLevel
		default:
			fmt.Fprintf(os.Stderr, "invalid -log-level %q: must be debug, info, warn or error\n", *logLevel)
			return exitUsage
		}
	}
	if *outDir != "" {
		cfg.Paths.OutDir = *outDir
	}

	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		return exitError
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	paths, err := config.GetPaths()
	if err != nil {
		logger.Error("Failed to initialize paths", slog.String("error", err.Error()))
		return exitError
	}
	// Output helpers emit into the resolved directory, overrides included.
	paths.OutDir = cfg.GetOutDir()

	if err := applyColumnMapping(cfg, paths, *mappingPath); err != nil {
		logger.Error("Failed to load column mapping", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "invalid -mapping: %v\n", err)
		return exitUsage
	}

	quoteFile, err := resolveQuoteInput(*quotesPath, cfg)
	if err != nil {
		logger.Error("No quote input available", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "no quote input: %v\n", err)
		return exitError
	}

	seriesDir := filepath.Join(cfg.GetDataDir(), "series")
	levels := resolveSeriesInput(*levelsPath, filepath.Join(seriesDir, config.IndexLevelsFileName), logger)
	dividends := resolveSeriesInput(*dividendsPath, filepath.Join(seriesDir, config.DividendYieldFileName), logger)
	rates := resolveSeriesInput(*ratesPath, filepath.Join(seriesDir, config.RiskFreeRateFileName), logger)

	logger.Info("Starting volatility run",
		slog.String("quotes", quoteFile),
		slog.String("valuation", valuation.Format("2006-01-02")),
		slog.String("out_dir", paths.OutDir),
		slog.String("format", *format),
		slog.String("filter", cfg.Grid.Filter))

	ctx := context.Background()
	svc := services.NewVolatilityService(cfg, logger)

	parsed, err := svc.LoadQuotes(ctx, quoteFile, valuation)
	if err != nil {
		logger.Error("Quote ingestion failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "quote ingestion failed: %v\n", err)
		return exitError
	}
	fmt.Printf("Loaded %d quotes from %s (%d rows skipped)\n",
		len(parsed.Quotes), filepath.Base(quoteFile), parsed.RowsSkipped)
	for _, reason := range parsed.SkipReasons {
		logger.Warn("Skipped quote row", slog.String("reason", reason))
	}

	mkt, err := svc.LoadMarket(ctx, levels, dividends, rates)
	if err != nil {
		logger.Error("Market data load failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "market data load failed: %v\n", err)
		return exitError
	}

	solveRes, err := svc.SolveBatch(ctx, parsed.Quotes, mkt, nil)
	if err != nil {
		logger.Error("Solve failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "solve failed: %v\n", err)
		return exitError
	}
	fmt.Printf("Solved %d of %d quotes (%d failed) in %s\n",
		solveRes.Summary.Solved, solveRes.Summary.Total,
		solveRes.Summary.Failed, solveRes.Elapsed.Round(time.Millisecond))
	for kind, count := range solveRes.Summary.Failures {
		fmt.Printf("  %s: %d\n", kind, count)
	}

	solvedPath := paths.GetSolvedQuotesCSVPath(valuation)
	solvedExporter := exporter.NewSolvedQuoteExporter(paths)
	if err := solvedExporter.ExportSolvedQuotes(solveRes.Solved, solvedPath); err != nil {
		logger.Error("Failed to write solved quotes", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "failed to write solved quotes: %v\n", err)
		return exitError
	}
	fmt.Printf("Wrote solved quotes: %s\n", solvedPath)

	gridRes, err := svc.BuildGrid(ctx, solveRes.Solved, nil)
	if err != nil {
		logger.Error("Grid construction failed", slog.String("error", err.Error()))
		if errors.Is(err, volatility.ErrNoObservations) || errors.Is(err, volatility.ErrNoSurvivingStrikes) {
			fmt.Fprintf(os.Stderr, "grid construction failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "the solved quote file was still written; loosen the grid filters to retry")
		} else {
			fmt.Fprintf(os.Stderr, "grid construction failed: %v\n", err)
		}
		return exitError
	}

	gridExporter := exporter.NewGridExporter(paths)
	if *format == "csv" || *format == "both" {
		gridPath := paths.GetGridCSVPath(valuation)
		if err := gridExporter.ExportGridCSV(gridRes.Grid, gridPath); err != nil {
			logger.Error("Failed to write grid CSV", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "failed to write grid CSV: %v\n", err)
			return exitError
		}
		fmt.Printf("Wrote volatility grid: %s\n", gridPath)
	}
	if *format == "xlsx" || *format == "both" {
		workbookPath := paths.GetGridWorkbookPath(valuation)
		if err := gridExporter.ExportGridWorkbook(gridRes.Grid, workbookPath); err != nil {
			logger.Error("Failed to write grid workbook", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "failed to write grid workbook: %v\n", err)
			return exitError
		}
		fmt.Printf("Wrote grid workbook: %s\n", workbookPath)
	}

	ins := gridRes.Insights
	fmt.Printf("Grid: %d expirations x %d strikes (%d observed, %d interpolated, %d missing)\n",
		ins.Expirations, ins.Strikes, ins.Observed, ins.Interpolated, ins.Missing)
	if ins.Observed+ins.Interpolated > 0 {
		fmt.Printf("Vol range: %.4f .. %.4f (mean %.4f)\n", ins.MinVol, ins.MaxVol, ins.MeanVol)
	}

	logger.Info("Volatility run complete",
		slog.String("run_id", gridRes.RunID),
		slog.Int("solved", solveRes.Summary.Solved),
		slog.Int("failed", solveRes.Summary.Failed),
		slog.Int("observed_cells", ins.Observed))

	return exitOK
}

// resolveValuation parses the valuation date flag, defaulting to today.
func resolveValuation(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", s)
}

// resolveQuoteInput returns the explicit quote file, or discovers the most
// recent input in the configured quotes directory.
func resolveQuoteInput(explicit string, cfg *config.Config) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("quote file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	quotesDir := filepath.Join(cfg.GetDataDir(), "quotes")
	latest, err := quotes.LatestInput(quotesDir)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

// applyColumnMapping merges a YAML mapping file over the configured column
// mapping, file entries winning. An explicit path must load; the well-known
// location next to the executable is optional.
func applyColumnMapping(cfg *config.Config, paths *config.Paths, explicit string) error {
	path := explicit
	if path == "" {
		path = paths.GetMappingPath()
		if !config.FileExists(path) {
			return nil
		}
	}

	mapping, err := quotes.LoadColumnMapping(path)
	if err != nil {
		return err
	}
	if cfg.Mapping == nil {
		cfg.Mapping = make(map[string]string, len(mapping))
	}
	for from, to := range mapping {
		cfg.Mapping[from] = to
	}
	return nil
}

// resolveSeriesInput returns the explicit series file, or the well-known
// default when it exists. A missing default is skipped with a warning since
// the corresponding series resolves to zero; explicit paths go to the loader
// as given so a typo surfaces as an error.
func resolveSeriesInput(explicit, fallback string, logger *slog.Logger) string {
	if explicit != "" {
		return explicit
	}
	if config.FileExists(fallback) {
		return fallback
	}
	logger.Warn("Series file not found, series will resolve to zero",
		slog.String("path", fallback))
	return ""
}
