package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"achievekit/config"
)

func TestBuildAppDefaults(t *testing.T) {
	t.Setenv("ACHIEVEKIT_LOG_OUTPUT", "stderr")
	app, cleanup, err := BuildApp(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, ":8080", app.Server.Addr)
	assert.Equal(t, 7, app.Engine.Catalogue().Len())

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/achievements/first-visit/unlock", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, app.Engine.IsUnlocked("first-visit"))
}

func TestBuildAppRejectsBadCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.yaml")
	require.NoError(t, os.WriteFile(path, []byte("achievements:\n  - id: a\n  - id: a\n"), 0o644))
	t.Setenv("ACHIEVEKIT_CATALOG_PATH", path)
	t.Setenv("ACHIEVEKIT_LOG_OUTPUT", "stderr")

	_, _, err := BuildApp(context.Background())
	require.Error(t, err)
}

func TestProvideHandlerHealthUsesStorePing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "redis"
	cfg.Storage.Redis.Addr = mr.Addr()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	store, cleanup, err := provideStorage(cfg, logger)
	require.NoError(t, err)
	defer cleanup()
	cat, err := provideCatalogue(cfg)
	require.NoError(t, err)
	hasher, err := provideHasher(cfg)
	require.NoError(t, err)
	hub, counter := provideHub(), provideCounter()
	eng, closeEngine := provideEngine(cfg, logger, cat, store, hasher, hub, counter)
	defer closeEngine()

	handler := provideHandler(eng, hub, counter, store, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Output = "stderr"
	cfg.Logging.Attributes = map[string]string{"service": "achievekit", "region": "eu"}

	var stdout, stderr bytes.Buffer
	logger := setupLogging(cfg, &stdout, &stderr)
	logger.Info("dropped")
	logger.Warn("kept", "id", "first-visit")

	assert.Empty(t, stdout.String())
	var line map[string]any
	require.NoError(t, json.Unmarshal(stderr.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "achievekit", line["service"])
	assert.Equal(t, "eu", line["region"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestConvertAttributesSorted(t *testing.T) {
	attrs := convertAttributes(map[string]string{"b": "2", "a": "1"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "a", attrs[0].Key)
	assert.Equal(t, "b", attrs[1].Key)
}
