package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"volgrid/internal/config"
	"volgrid/internal/infrastructure"
	"volgrid/internal/quotes"
	"volgrid/internal/volatility"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     config.PathsConfig
	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds  float64                `json:"uptime_seconds"`
	DataFiles      int                    `json:"data_files"`
	DataSizeBytes  int64                  `json:"data_size_bytes"`
	OutFiles       int                    `json:"out_files"`
	OutSizeBytes   int64                  `json:"out_size_bytes"`
	GoVersion      string                 `json:"go_version"`
	OS             string                 `json:"os"`
	Arch           string                 `json:"arch"`
	RuntimeDetails map[string]interface{} `json:"runtime,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, paths config.PathsConfig, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, "", "", paths, nil, logger)
}

// NewHealthServiceWithBuildInfo creates a health service carrying build
// information and an optional system metrics collector.
func NewHealthServiceWithBuildInfo(version, buildTime, buildID string, paths config.PathsConfig, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		collector: collector,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["solver"] = hs.checkSolverHealth()
	status.Services["data"] = hs.checkDataHealth()
	status.Services["output"] = hs.checkOutputHealth()

	allReady := true
	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			allReady = false
			break
		}
	}

	if !allReady {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	dataFiles, dataSize := countTree(hs.paths.DataDir)
	outFiles, outSize := countTree(hs.paths.OutDir)

	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		DataFiles:     dataFiles,
		DataSizeBytes: dataSize,
		OutFiles:      outFiles,
		OutSizeBytes:  outSize,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.collector != nil {
		stats.RuntimeDetails = hs.collector.GetCurrentStats(ctx).FormatStats()
	}

	return stats, nil
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
}

// checkSolverHealth exercises the numerical core on a known-value problem.
// An ATM call priced at twenty vol must solve back to twenty vol, or
// readiness fails.
func (hs *HealthService) checkSolverHealth() ServiceHealth {
	terms := volatility.Terms{
		Spot:   100,
		Strike: 100,
		Tau:    1,
		Rate:   0.05,
		Type:   quotes.OptionCall,
	}

	price := terms.Price(0.20)
	vol, _, err := volatility.ImpliedVol(terms, price, volatility.DefaultSolverConfig())
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("solver self-check failed: %v", err),
		}
	}
	if math.Abs(vol-0.20) > 1e-4 {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("solver self-check drifted: got %.6f, want 0.20", vol),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "solver is healthy",
	}
}

// checkDataHealth checks that the data directory exists
func (hs *HealthService) checkDataHealth() ServiceHealth {
	dataDir := hs.paths.DataDir
	if dataDir == "" {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "data directory not configured",
		}
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("data directory not found: %s", dataDir),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "data directory is accessible",
	}
}

// checkOutputHealth checks that the output directory is writable
func (hs *HealthService) checkOutputHealth() ServiceHealth {
	outDir := hs.paths.OutDir
	if outDir == "" {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "output directory not configured",
		}
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("cannot create output directory: %v", err),
		}
	}

	probe := filepath.Join(outDir, ".health_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("cannot write to output directory: %v", err),
		}
	}
	os.Remove(probe)

	return ServiceHealth{
		Status:  "ready",
		Message: "output directory is writable",
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// countTree walks a directory counting regular files and their total size.
// A missing or unreadable tree counts as empty.
func countTree(dir string) (int, int64) {
	var files int
	var size int64

	if dir == "" {
		return 0, 0
	}
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files++
			size += info.Size()
		}
		return nil
	})

	return files, size
}
