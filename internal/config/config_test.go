package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"ERRAND_LISTEN_ADDR",
	"ERRAND_LOG_LEVEL",
	"ERRAND_RUN_TIMEOUT",
	"ERRAND_WORKER_BIN",
	"ERRAND_MAX_BACKGROUND_JOBS",
	"ERRAND_STORE_DRIVER",
	"ERRAND_STORE_DIR",
	"ERRAND_STORE_SQLITE_PATH",
	"ERRAND_STORE_REDIS_ADDR",
	"ERRAND_STORE_REDIS_PASSWORD",
	"ERRAND_STORE_REDIS_DB",
	"ERRAND_ENGINE_KIND",
	"ERRAND_ENGINE_COMMAND",
	"ERRAND_ENGINE_ARGS",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func missingDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingDotEnv(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, 10*time.Minute, cfg.RunTimeout)
	assert.Empty(t, cfg.WorkerBin)
	assert.Equal(t, 4, cfg.MaxBackgroundJobs)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "search_results", cfg.Store.Dir)
	assert.Equal(t, "errand.db", cfg.Store.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, EngineCommand, cfg.Engine.Kind)
	assert.Equal(t, "browser-agent", cfg.Engine.Command)
	assert.Empty(t, cfg.Engine.Args)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ERRAND_LISTEN_ADDR", ":9090")
	t.Setenv("ERRAND_LOG_LEVEL", "debug")
	t.Setenv("ERRAND_RUN_TIMEOUT", "90s")
	t.Setenv("ERRAND_MAX_BACKGROUND_JOBS", "8")
	t.Setenv("ERRAND_STORE_DRIVER", "SQLite")
	t.Setenv("ERRAND_STORE_SQLITE_PATH", "/tmp/test.db")
	t.Setenv("ERRAND_STORE_REDIS_DB", "3")
	t.Setenv("ERRAND_ENGINE_KIND", "scripted")
	t.Setenv("ERRAND_ENGINE_ARGS", "--headless,--model=gpt-4o")

	cfg, err := Load(missingDotEnv(t))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, 8, cfg.MaxBackgroundJobs)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Store.SQLitePath)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, EngineScripted, cfg.Engine.Kind)
	assert.Equal(t, []string{"--headless", "--model=gpt-4o"}, cfg.Engine.Args)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ERRAND_LISTEN_ADDR", ":7070")

	path := filepath.Join(t.TempDir(), ".env")
	content := "ERRAND_LISTEN_ADDR=:6060\nERRAND_ENGINE_COMMAND=/opt/agent/run\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "/opt/agent/run", cfg.Engine.Command)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("ERRAND_STORE_DRIVER", "postgres")

	_, err := Load(missingDotEnv(t))
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	clearEnv(t)
	t.Setenv("ERRAND_ENGINE_KIND", "selenium")

	_, err := Load(missingDotEnv(t))
	assert.ErrorContains(t, err, "unknown engine kind")
}

func TestSanitize(t *testing.T) {
	cfg := Config{RunTimeout: -1, MaxBackgroundJobs: 0}
	cfg.Sanitize()

	assert.Equal(t, defaultRunTimeout, cfg.RunTimeout)
	assert.Equal(t, defaultMaxBackgroundJobs, cfg.MaxBackgroundJobs)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.input), "ParseLogLevel(%q)", tt.input)
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())

	for _, key := range []string{"time", "level", "msg"} {
		assert.Contains(t, entry, key)
	}
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}
