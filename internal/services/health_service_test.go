package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volgrid/internal/config"
)

func testPaths(t *testing.T) config.PathsConfig {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	outDir := filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.MkdirAll(outDir, 0755))
	return config.PathsConfig{DataDir: dataDir, OutDir: outDir}
}

func TestHealthCheck(t *testing.T) {
	hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "v1.2.0", status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestReadinessCheck(t *testing.T) {
	t.Run("all_ready", func(t *testing.T) {
		hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "ready", status.Status)

		for _, name := range []string{"solver", "data", "output"} {
			sh, ok := status.Services[name].(ServiceHealth)
			require.True(t, ok, "service %s should be reported", name)
			assert.Equal(t, "ready", sh.Status, "service %s: %s", name, sh.Message)
		}
	})

	t.Run("missing_data_dir", func(t *testing.T) {
		paths := testPaths(t)
		paths.DataDir = filepath.Join(paths.DataDir, "does-not-exist")
		hs := NewHealthService("v1.2.0", paths, testLogger())

		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "not_ready", status.Status)

		sh := status.Services["data"].(ServiceHealth)
		assert.Equal(t, "not_ready", sh.Status)
		assert.Contains(t, sh.Message, "not found")
	})

	t.Run("unconfigured_output_dir", func(t *testing.T) {
		paths := testPaths(t)
		paths.OutDir = ""
		hs := NewHealthService("v1.2.0", paths, testLogger())

		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "not_ready", status.Status)
	})
}

func TestSolverSelfCheck(t *testing.T) {
	hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

	sh := hs.checkSolverHealth()
	assert.Equal(t, "ready", sh.Status, sh.Message)
}

func TestLivenessCheck(t *testing.T) {
	hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

	status := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	require.NotNil(t, status.Runtime)
	assert.Contains(t, status.Runtime, "goroutines")
	assert.Contains(t, status.Runtime, "go_version")
}

func TestVersionInfo(t *testing.T) {
	t.Run("without_build_info", func(t *testing.T) {
		hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

		info := hs.Version()
		assert.Equal(t, "v1.2.0", info["version"])
		assert.Contains(t, info, "go_version")
		assert.Contains(t, info, "start_time")
		assert.NotContains(t, info, "build_time")
	})

	t.Run("with_build_info", func(t *testing.T) {
		hs := NewHealthServiceWithBuildInfo("v1.2.0", "2026-08-25T10:00:00Z", "abc123", testPaths(t), nil, testLogger())

		info := hs.Version()
		assert.Equal(t, "2026-08-25T10:00:00Z", info["build_time"])
		assert.Equal(t, "abc123", info["build_id"])
	})
}

func TestHealthSystemStats(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.WriteFile(filepath.Join(paths.DataDir, "quotes.csv"), []byte("strike\n100\n"), 0644))
	hs := NewHealthService("v1.2.0", paths, testLogger())

	stats, err := hs.SystemStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DataFiles)
	assert.Greater(t, stats.DataSizeBytes, int64(0))
	assert.Zero(t, stats.OutFiles)
	assert.NotEmpty(t, stats.GoVersion)
	assert.Nil(t, stats.RuntimeDetails, "no collector attached")
}

func TestGetDetailedHealth(t *testing.T) {
	hs := NewHealthService("v1.2.0", testPaths(t), testLogger())

	detailed := hs.GetDetailedHealth(context.Background())
	for _, key := range []string{"health", "readiness", "liveness", "stats"} {
		assert.Contains(t, detailed, key)
	}
}
