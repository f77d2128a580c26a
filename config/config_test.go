package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.Path)
	assert.Equal(t, "spaceclouds_analytics", cfg.Storage.Key)
	assert.Equal(t, int64(5<<20), cfg.Storage.QuotaBytes)
	assert.Equal(t, 10000, cfg.Tracking.MaxEvents)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.HeartbeatInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 24*time.Hour, cfg.Dashboard.TokenTTL)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("MAX_EVENTS", "500")
	t.Setenv("HEARTBEAT_INTERVAL", "30s")
	t.Setenv("STORAGE_QUOTA_BYTES", "0")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "data/analytics.db", cfg.Storage.Path)
	assert.Equal(t, 500, cfg.Tracking.MaxEvents)
	assert.Equal(t, 30*time.Second, cfg.Tracking.HeartbeatInterval)
	assert.Zero(t, cfg.Storage.QuotaBytes)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"zero max events", map[string]string{"MAX_EVENTS": "0"}},
		{"negative heartbeat", map[string]string{"HEARTBEAT_INTERVAL": "-1m"}},
		{"not a number", map[string]string{"MAX_EVENTS": "many"}},
		{"negative quota", map[string]string{"STORAGE_QUOTA_BYTES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_BACKEND=memory\nSTORAGE_KEY=test_key\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_BACKEND")
		os.Unsetenv("STORAGE_KEY")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "test_key", cfg.Storage.Key)
	assert.Empty(t, cfg.Storage.Path)
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
