package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	DataDir       string
	QuotesDir     string
	SeriesDir     string
	OutDir        string
	LogsDir       string

	// Config files
	ConfigFile  string
	MappingFile string

	// Well-known market series inputs
	IndexLevelsCSV    string
	DividendYieldsCSV string
	RiskFreeRatesCSV  string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)

	// Directory structure:
	// dist/
	//   ├── config.yaml
	//   ├── mapping.yaml         (column-name mapping, optional)
	//   ├── data/
	//   │   ├── quotes/          (option quote files, CSV/XLSX)
	//   │   └── series/          (index levels, dividend yields, rates)
	//   ├── out/                 (solved quotes, grids, workbooks, meshes)
	//   └── logs/                (application logs)

	dataDir := filepath.Join(exeDir, "data")
	seriesDir := filepath.Join(dataDir, "series")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		QuotesDir:     filepath.Join(dataDir, "quotes"),
		SeriesDir:     seriesDir,
		OutDir:        filepath.Join(exeDir, "out"),
		LogsDir:       filepath.Join(exeDir, "logs"),

		// Configuration files (root of executable directory)
		ConfigFile:  filepath.Join(exeDir, "config.yaml"),
		MappingFile: filepath.Join(exeDir, "mapping.yaml"),

		// Well-known series inputs
		IndexLevelsCSV:    filepath.Join(seriesDir, IndexLevelsFileName),
		DividendYieldsCSV: filepath.Join(seriesDir, DividendYieldFileName),
		RiskFreeRatesCSV:  filepath.Join(seriesDir, RiskFreeRateFileName),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.QuotesDir,
		p.SeriesDir,
		p.OutDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetQuotePath returns the path for a quote input file
func (p *Paths) GetQuotePath(filename string) string {
	return filepath.Join(p.QuotesDir, filename)
}

// GetSeriesPath returns the path for a market series file
func (p *Paths) GetSeriesPath(filename string) string {
	return filepath.Join(p.SeriesDir, filename)
}

// GetOutputPath returns the path for an output file
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetSolvedQuotesCSVPath returns the path for a dated solved-quotes CSV
// (e.g. solved_quotes_20240315.csv)
func (p *Paths) GetSolvedQuotesCSVPath(valuation time.Time) string {
	filename := fmt.Sprintf("%s%s.csv", SolvedQuotesPrefix, valuation.Format(DateStampLayout))
	return filepath.Join(p.OutDir, filename)
}

// GetGridCSVPath returns the path for a dated volatility grid CSV
// (e.g. vol_grid_20240315.csv)
func (p *Paths) GetGridCSVPath(valuation time.Time) string {
	filename := fmt.Sprintf("%s%s.csv", GridFilePrefix, valuation.Format(DateStampLayout))
	return filepath.Join(p.OutDir, filename)
}

// GetGridWorkbookPath returns the path for a dated volatility workbook
// (e.g. vol_grid_20240315.xlsx)
func (p *Paths) GetGridWorkbookPath(valuation time.Time) string {
	filename := fmt.Sprintf("%s%s.xlsx", GridFilePrefix, valuation.Format(DateStampLayout))
	return filepath.Join(p.OutDir, filename)
}

// GetMeshCSVPath returns the path for a dated surface mesh CSV
// (e.g. vol_mesh_20240315.csv)
func (p *Paths) GetMeshCSVPath(valuation time.Time) string {
	filename := fmt.Sprintf("%s%s.csv", MeshFilePrefix, valuation.Format(DateStampLayout))
	return filepath.Join(p.OutDir, filename)
}

// GetIndexLevelsPath returns the path for the index levels series file
func (p *Paths) GetIndexLevelsPath() string {
	return p.IndexLevelsCSV
}

// GetDividendYieldsPath returns the path for the dividend yields series file
func (p *Paths) GetDividendYieldsPath() string {
	return p.DividendYieldsCSV
}

// GetRiskFreeRatesPath returns the path for the risk-free rates series file
func (p *Paths) GetRiskFreeRatesPath() string {
	return p.RiskFreeRatesCSV
}

// GetMappingPath returns the column-mapping file path, with existence logged
// for debugging
func (p *Paths) GetMappingPath() string {
	path := p.MappingFile
	logger := slog.Default()
	if logger != nil {
		logger.Debug("Mapping path resolved",
			slog.String("path", path),
			slog.Bool("exists", FileExists(path)))
	}
	return path
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("quotes", p.QuotesDir),
			slog.String("series", p.SeriesDir),
			slog.String("out", p.OutDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("config_files",
			slog.String("config", p.ConfigFile),
			slog.String("mapping", p.MappingFile),
		),
		slog.Group("series_files",
			slog.String("index_levels", p.IndexLevelsCSV),
			slog.String("dividend_yields", p.DividendYieldsCSV),
			slog.String("risk_free_rates", p.RiskFreeRatesCSV),
		))
}
