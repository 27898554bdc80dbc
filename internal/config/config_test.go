package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// volgridEnvVars are all environment variables touched by these tests.
var volgridEnvVars = []string{
	"VOLGRID_SERVER_PORT", "VOLGRID_SERVER_READ_TIMEOUT", "VOLGRID_SERVER_WRITE_TIMEOUT",
	"VOLGRID_SERVER_SOLVE_TIMEOUT", "VOLGRID_SERVER_ALLOWED_ORIGINS", "VOLGRID_SERVER_ENABLE_CORS",
	"VOLGRID_SERVER_RATE_LIMIT_RPS",
	"VOLGRID_LOGGING_LEVEL", "VOLGRID_LOGGING_FORMAT", "VOLGRID_LOGGING_OUTPUT",
	"VOLGRID_SOLVER_TOLERANCE", "VOLGRID_SOLVER_MAX_ITERATIONS", "VOLGRID_SOLVER_WORKERS",
	"VOLGRID_GRID_FILTER", "VOLGRID_GRID_AGGREGATION", "VOLGRID_GRID_OBSERVATION_FRACTION",
	"VOLGRID_MARKET_DAY_COUNT", "VOLGRID_MARKET_RATE_COLUMN",
	"VOLGRID_MAPPING",
}

// saveEnv snapshots the volgrid environment and returns a restore function.
func saveEnv() func() {
	original := make(map[string]string)
	for _, envVar := range volgridEnvVars {
		original[envVar] = os.Getenv(envVar)
	}
	return func() {
		for _, envVar := range volgridEnvVars {
			if val := original[envVar]; val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}
}

func clearEnv() {
	for _, envVar := range volgridEnvVars {
		os.Unsetenv(envVar)
	}
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	defer saveEnv()()

	tests := []struct {
		name        string
		setupEnv    func()
		setupFile   func(t *testing.T) string // returns config file path
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Server.AllowedOrigins)
				assert.True(t, cfg.Server.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Server.RateLimit.RPS)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)

				assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
				assert.Equal(t, 100, cfg.Solver.MaxIterations)
				assert.Equal(t, 5.0, cfg.Solver.MaxVol)

				assert.Equal(t, 0, cfg.Grid.MinObservations)
				assert.Equal(t, 0.75, cfg.Grid.ObservationFraction)
				assert.Equal(t, "mean", cfg.Grid.Aggregation)
				assert.Equal(t, "linear", cfg.Grid.Interpolation)
				assert.Equal(t, "calls", cfg.Grid.Filter)

				assert.Equal(t, "spot_rate_eff_ann", cfg.Market.RateColumn)
				assert.Equal(t, "continuous", cfg.Market.RateCompounding)
				assert.Equal(t, "actual_actual_isda", cfg.Market.DayCount)

				assert.NotEmpty(t, cfg.Paths.ExecutableDir)
			},
		},
		{
			name: "custom environment variables",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_PORT", "9090")
				os.Setenv("VOLGRID_SERVER_READ_TIMEOUT", "30s")
				os.Setenv("VOLGRID_LOGGING_LEVEL", "debug")
				os.Setenv("VOLGRID_SOLVER_MAX_ITERATIONS", "200")
				os.Setenv("VOLGRID_GRID_FILTER", "both")
				os.Setenv("VOLGRID_MARKET_DAY_COUNT", "actual_365_fixed")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 200, cfg.Solver.MaxIterations)
				assert.Equal(t, "both", cfg.Grid.Filter)
				assert.Equal(t, "actual_365_fixed", cfg.Market.DayCount)

				// Untouched sections keep their defaults
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "mean", cfg.Grid.Aggregation)
			},
		},
		{
			name: "invalid port number",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_PORT", "99999")
			},
			wantErr: true,
		},
		{
			name: "zero port number",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_PORT", "0")
			},
			wantErr: true,
		},
		{
			name: "negative timeout",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_READ_TIMEOUT", "-5s")
			},
			wantErr: true,
		},
		{
			name: "unknown grid filter",
			setupEnv: func() {
				os.Setenv("VOLGRID_GRID_FILTER", "straddles")
			},
			wantErr: true,
		},
		{
			name: "observation fraction above one",
			setupEnv: func() {
				os.Setenv("VOLGRID_GRID_OBSERVATION_FRACTION", "1.5")
			},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_PORT", "7070")
				os.Setenv("VOLGRID_LOGGING_LEVEL", "warn")
			},
			setupFile: func(t *testing.T) string {
				configFile := filepath.Join(t.TempDir(), "config.yaml")
				configContent := `
server:
  port: 6060
logging:
  level: error
grid:
  aggregation: median
  min_observations: 3
market:
  rate_column: spot_rate_cont
mapping:
  mid_eod: option_price
`
				require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))
				return configFile
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				// Environment overrides file
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)

				// File overrides defaults
				assert.Equal(t, "median", cfg.Grid.Aggregation)
				assert.Equal(t, 3, cfg.Grid.MinObservations)
				assert.Equal(t, "spot_rate_cont", cfg.Market.RateColumn)
				assert.Equal(t, map[string]string{"mid_eod": "option_price"}, cfg.Mapping)

				// Defaults survive for untouched keys
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "explicit config file does not exist",
			setupFile: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			var path string
			if tt.setupFile != nil {
				path = tt.setupFile(t)
			}

			cfg, err := Load(path)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

// TestLoadFromFile tests the loadFromFile function
func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "valid YAML config",
			fileContent: `
server:
  port: 9000
  read_timeout: 25s
logging:
  level: debug
  format: text
solver:
  tolerance: 1e-8
  max_iterations: 250
grid:
  filter: puts
  interpolation: linear_clamp
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 25*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.Equal(t, 1e-8, cfg.Solver.Tolerance)
				assert.Equal(t, 250, cfg.Solver.MaxIterations)
				assert.Equal(t, "puts", cfg.Grid.Filter)
				assert.Equal(t, "linear_clamp", cfg.Grid.Interpolation)
			},
		},
		{
			name:        "invalid YAML syntax",
			fileContent: "invalid: yaml: content: [unclosed",
			wantErr:     true,
		},
		{
			name: "partial config",
			fileContent: `
server:
  port: 8888
logging:
  level: error
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8888, cfg.Server.Port)
				assert.Equal(t, "error", cfg.Logging.Level)
				// Other fields should be zero values
				assert.Equal(t, time.Duration(0), cfg.Server.ReadTimeout)
				assert.Empty(t, cfg.Grid.Aggregation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))

			cfg, err := loadFromFile(configFile)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}

	t.Run("non-existent file", func(t *testing.T) {
		_, err := loadFromFile("/non/existent/file.yaml")
		assert.Error(t, err)
	})
}

// TestValidate tests the validate function
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
			errMsg:  "Server.Port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: true,
			errMsg:  "Server.Port must be at most 65535",
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantErr: true,
			errMsg:  "Server.ReadTimeout must be greater than 0",
		},
		{
			name:    "no allowed origins",
			mutate:  func(c *Config) { c.Server.AllowedOrigins = nil },
			wantErr: true,
			errMsg:  "Server.AllowedOrigins",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: true,
			errMsg:  "Logging.Level must be one of: debug, info, warn, error",
		},
		{
			name:    "unknown aggregation method",
			mutate:  func(c *Config) { c.Grid.Aggregation = "mode" },
			wantErr: true,
			errMsg:  "Grid.Aggregation must be one of: mean, median",
		},
		{
			name:    "unknown interpolation method",
			mutate:  func(c *Config) { c.Grid.Interpolation = "cubic" },
			wantErr: true,
			errMsg:  "Grid.Interpolation",
		},
		{
			name:    "unknown filter",
			mutate:  func(c *Config) { c.Grid.Filter = "straddles" },
			wantErr: true,
			errMsg:  "Grid.Filter",
		},
		{
			name:    "observation fraction above one",
			mutate:  func(c *Config) { c.Grid.ObservationFraction = 1.5 },
			wantErr: true,
			errMsg:  "Grid.ObservationFraction must be at most 1",
		},
		{
			name:    "negative min observations",
			mutate:  func(c *Config) { c.Grid.MinObservations = -1 },
			wantErr: true,
			errMsg:  "Grid.MinObservations must be at least 0",
		},
		{
			name:    "negative solver tolerance",
			mutate:  func(c *Config) { c.Solver.Tolerance = -1e-6 },
			wantErr: true,
			errMsg:  "Solver.Tolerance must be greater than 0",
		},
		{
			name:    "unknown day count",
			mutate:  func(c *Config) { c.Market.DayCount = "thirty_360" },
			wantErr: true,
			errMsg:  "Market.DayCount",
		},
		{
			name:    "unknown compounding",
			mutate:  func(c *Config) { c.Market.RateCompounding = "quarterly" },
			wantErr: true,
			errMsg:  "Market.RateCompounding",
		},
		{
			name:    "rate limit enabled without rps",
			mutate:  func(c *Config) { c.Server.RateLimit.RPS = 0 },
			wantErr: true,
			errMsg:  "rate limit rps must be positive",
		},
		{
			name:    "rate limit enabled without burst",
			mutate:  func(c *Config) { c.Server.RateLimit.Burst = 0 },
			wantErr: true,
			errMsg:  "rate limit burst must be positive",
		},
		{
			name:    "file logging without a file path",
			mutate:  func(c *Config) { c.Logging.FilePath = "" },
			wantErr: true,
			errMsg:  "file_path is required",
		},
		{
			name: "stdout logging needs no file path",
			mutate: func(c *Config) {
				c.Logging.Output = "stdout"
				c.Logging.FilePath = ""
			},
		},
		{
			name:    "mapping with blank source column",
			mutate:  func(c *Config) { c.Mapping = map[string]string{" ": "strike"} },
			wantErr: true,
			errMsg:  "column mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			assert.NoError(t, err)
		})
	}
}

// TestDefault tests the Default function
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 1<<20, cfg.Server.MaxHeaderBytes) // 1MB
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultSolveTimeout, cfg.Server.SolveTimeout)
	assert.True(t, cfg.Server.EnableCORS)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, float64(DefaultRateLimit), cfg.Server.RateLimit.RPS)
	assert.Equal(t, DefaultBurstSize, cfg.Server.RateLimit.Burst)

	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "out", cfg.Paths.OutDir)
	assert.Equal(t, "logs", cfg.Paths.LogsDir)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/volgrid.log", cfg.Logging.FilePath)

	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 100, cfg.Solver.MaxIterations)
	assert.Equal(t, 5.0, cfg.Solver.MaxVol)
	assert.Zero(t, cfg.Solver.Workers)

	assert.Zero(t, cfg.Grid.MinObservations)
	assert.Equal(t, 0.75, cfg.Grid.ObservationFraction)
	assert.Equal(t, "mean", cfg.Grid.Aggregation)
	assert.Equal(t, "linear", cfg.Grid.Interpolation)
	assert.Equal(t, "calls", cfg.Grid.Filter)

	assert.Equal(t, "spot_rate_eff_ann", cfg.Market.RateColumn)

	// The default configuration must validate cleanly
	assert.NoError(t, cfg.validate())
}

// TestServerConfigAddr tests the listen address helper
func TestServerConfigAddr(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{Port: 8080}.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

// TestEnvironmentVariableParsing tests environment variable parsing edge cases
func TestEnvironmentVariableParsing(t *testing.T) {
	defer saveEnv()()

	tests := []struct {
		name     string
		setupEnv func()
		wantErr  bool
		validate func(*testing.T, *Config)
	}{
		{
			name: "comma-separated origins",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_ALLOWED_ORIGINS", "http://localhost:3000,https://app.example.com")
			},
			validate: func(t *testing.T, cfg *Config) {
				expected := []string{"http://localhost:3000", "https://app.example.com"}
				assert.Equal(t, expected, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "float rate limit",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_RATE_LIMIT_RPS", "150.75")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 150.75, cfg.Server.RateLimit.RPS)
			},
		},
		{
			name: "duration parsing",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_SOLVE_TIMEOUT", "2m30s")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Minute+30*time.Second, cfg.Server.SolveTimeout)
			},
		},
		{
			name: "boolean parsing",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_ENABLE_CORS", "false")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Server.EnableCORS)
			},
		},
		{
			name: "column mapping as key:value pairs",
			setupEnv: func() {
				os.Setenv("VOLGRID_MAPPING", "mid_eod:option_price,cp_flag:option_type")
			},
			validate: func(t *testing.T, cfg *Config) {
				expected := map[string]string{
					"mid_eod": "option_price",
					"cp_flag": "option_type",
				}
				assert.Equal(t, expected, cfg.Mapping)
			},
		},
		{
			name: "malformed duration",
			setupEnv: func() {
				os.Setenv("VOLGRID_SERVER_READ_TIMEOUT", "invalid-duration")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			cfg, err := Load("")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to load config from env")
				return
			}

			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

// TestLoadErrorCases tests error scenarios for the Load function
func TestLoadErrorCases(t *testing.T) {
	defer saveEnv()()
	clearEnv()

	t.Run("malformed explicit config file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		badYAML := `
server:
  port: not-a-number
  invalid_yaml: [unclosed bracket
`
		require.NoError(t, os.WriteFile(configFile, []byte(badYAML), 0644))

		_, err := Load(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config from file")
	})

	t.Run("file values still subject to validation", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		content := `
grid:
  aggregation: harmonic
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

		_, err := Load(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}

// TestGetConfigFilePath tests the getConfigFilePath function
func TestGetConfigFilePath(t *testing.T) {
	t.Run("no config file exists", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		path := getConfigFilePath()
		assert.Empty(t, path)
	})

	t.Run("config file in current directory", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		configFile := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("test"), 0644))

		path := getConfigFilePath()
		assert.Equal(t, "config.yaml", path)
	})

	t.Run("config file in configs directory", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		configsDir := filepath.Join(tempDir, "configs")
		require.NoError(t, os.MkdirAll(configsDir, 0755))
		configFile := filepath.Join(configsDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("test"), 0644))

		path := getConfigFilePath()
		assert.Equal(t, "configs/config.yaml", path)
	})
}

// TestGetFeatureFlag tests compile-time feature flag lookup
func TestGetFeatureFlag(t *testing.T) {
	tests := []struct {
		flag string
		want bool
	}{
		{"metrics", true},
		{"health_check", true},
		{"rate_limiting", true},
		{"xlsx_export", true},
		{"mesh", true},
		{"debug_logging", false},
		{"verbose_mode", false},
		{"unknown_flag", false},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, GetFeatureFlag(tt.flag))
		})
	}
}
