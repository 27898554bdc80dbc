package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Solver  SolverConfig  `yaml:"solver" envconfig:"SOLVER"`
	Grid    GridConfig    `yaml:"grid" envconfig:"GRID"`
	Market  MarketConfig  `yaml:"market" envconfig:"MARKET"`

	// Mapping translates input column headers to canonical quote fields
	// (strike, option_price, expiration_date, ...). Canonical names resolve
	// to themselves, so only renamed columns need entries.
	Mapping map[string]string `yaml:"mapping" envconfig:"MAPPING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int             `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	SolveTimeout    time.Duration   `yaml:"solve_timeout" envconfig:"SOLVE_TIMEOUT"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	EnableCORS      bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"omitempty,gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"omitempty,min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	OutDir        string `yaml:"out_dir" envconfig:"OUT_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SolverConfig contains implied volatility search parameters. Zero values
// defer to the solver package defaults.
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"omitempty,gt=0"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"omitempty,min=1"`
	MaxVol        float64 `yaml:"max_vol" envconfig:"MAX_VOL" validate:"omitempty,gt=0"`
	Workers       int     `yaml:"workers" envconfig:"WORKERS" validate:"omitempty,min=1"`
}

// GridConfig contains volatility grid construction parameters
type GridConfig struct {
	MinObservations     int     `yaml:"min_observations" envconfig:"MIN_OBSERVATIONS" validate:"min=0"`
	ObservationFraction float64 `yaml:"observation_fraction" envconfig:"OBSERVATION_FRACTION" validate:"omitempty,gt=0,lte=1"`
	Aggregation         string  `yaml:"aggregation" envconfig:"AGGREGATION" validate:"omitempty,oneof=mean median"`
	Interpolation       string  `yaml:"interpolation" envconfig:"INTERPOLATION" validate:"omitempty,oneof=linear linear_clamp none"`
	Filter              string  `yaml:"filter" envconfig:"FILTER" validate:"omitempty,oneof=calls puts both"`
}

// MarketConfig contains market data resolution parameters
type MarketConfig struct {
	RateColumn      string `yaml:"rate_column" envconfig:"RATE_COLUMN"`
	RateCompounding string `yaml:"rate_compounding" envconfig:"RATE_COMPOUNDING" validate:"omitempty,oneof=continuous annual"`
	DayCount        string `yaml:"day_count" envconfig:"DAY_COUNT" validate:"omitempty,oneof=actual_actual_isda actual_365_fixed"`
}

var structValidator = validator.New()

// Load loads configuration from defaults, an optional YAML file, and
// environment variables, in that order of precedence (environment wins).
// An empty path searches the well-known config file locations.
func Load(path string) (*Config, error) {
	cfg := *Default()

	explicit := path != ""
	if !explicit {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := mergeFromFile(path, &cfg); err != nil {
			// A missing discovered file is fine; a missing explicit one is not.
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	// Environment overrides. Fields without a matching variable keep their
	// file or default values.
	if err := envconfig.Process("VOLGRID", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// mergeFromFile overlays YAML file values onto cfg. Keys absent from the
// file leave the current values untouched.
func mergeFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadFromFile loads configuration from a YAML file into a zero config
func loadFromFile(filePath string) (*Config, error) {
	var cfg Config
	if err := mergeFromFile(filePath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths sets up the executable directory from the centralized paths system
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	c.Paths.ExecutableDir = paths.ExecutableDir
	return nil
}

// EnsureDirectories creates the data, output, and logs directories,
// honoring any configured overrides.
func (c *Config) EnsureDirectories() error {
	dataDir := c.GetDataDir()
	p := &Paths{
		DataDir:   dataDir,
		QuotesDir: filepath.Join(dataDir, "quotes"),
		SeriesDir: filepath.Join(dataDir, "series"),
		OutDir:    c.GetOutDir(),
		LogsDir:   c.GetLogsDir(),
	}
	return p.EnsureDirectories()
}

// GetDataDir returns the resolved data directory path
func (c *Config) GetDataDir() string {
	return c.resolveDir(c.Paths.DataDir, func(p *Paths) string { return p.DataDir })
}

// GetOutDir returns the resolved output directory path
func (c *Config) GetOutDir() string {
	return c.resolveDir(c.Paths.OutDir, func(p *Paths) string { return p.OutDir })
}

// GetLogsDir returns the resolved logs directory path
func (c *Config) GetLogsDir() string {
	return c.resolveDir(c.Paths.LogsDir, func(p *Paths) string { return p.LogsDir })
}

// resolveDir resolves a configured directory. Absolute values pass through,
// relative values resolve against the executable directory, and empty values
// take the centralized default.
func (c *Config) resolveDir(configured string, pick func(*Paths) string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	paths, err := GetPaths()
	if err != nil {
		return filepath.Join(c.Paths.ExecutableDir, configured)
	}
	if configured == "" {
		return pick(paths)
	}
	return filepath.Join(paths.ExecutableDir, configured)
}

// validate checks struct tags and cross-field constraints
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive when rate limiting is enabled")
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive when rate limiting is enabled")
		}
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file_path is required for output %q", c.Logging.Output)
	}

	for from, to := range c.Mapping {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("column mapping entries must name both a source column and a canonical field")
		}
	}

	return nil
}

// describeFieldError renders one validator failure as a readable message
func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			SolveTimeout:    DefaultSolveTimeout,
			AllowedOrigins:  []string{"http://localhost:8080"},
			EnableCORS:      true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			OutDir:  DefaultOutDir,
			LogsDir: DefaultLogsDir,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "both",
			FilePath: "logs/volgrid.log",
		},
		Solver: SolverConfig{
			Tolerance:     1e-6,
			MaxIterations: 100,
			MaxVol:        5.0,
			Workers:       0, // number of CPUs
		},
		Grid: GridConfig{
			MinObservations:     0, // derived from observation_fraction
			ObservationFraction: 0.75,
			Aggregation:         "mean",
			Interpolation:       "linear",
			Filter:              "calls",
		},
		Market: MarketConfig{
			RateColumn:      DefaultRateColumn,
			RateCompounding: "continuous",
			DayCount:        "actual_actual_isda",
		},
	}
}
