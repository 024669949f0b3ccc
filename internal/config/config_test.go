package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"xssdawn/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, []string{"waybackurls", "crawler"}, cfg.Collect.Sources)
	require.Equal(t, []string{"xss"}, cfg.Filter.Patterns)
	require.Equal(t, 100, cfg.Crawler.MaxPages)
	require.Equal(t, 10*time.Second, cfg.Crawler.Timeout)
	require.Equal(t, 3, cfg.Queue.MaxAttempts)
	require.Equal(t, time.Hour, cfg.Queue.JobTimeout)
	require.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0)
	require.Empty(t, cfg.Tracing.Endpoint)
	require.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("COLLECT_SOURCES", "gau,katana")
	t.Setenv("CRAWLER_MAX_PAGES", "7")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"gau", "katana"}, cfg.Collect.Sources)
	require.Equal(t, 7, cfg.Crawler.MaxPages)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
logLevel: debug
tools:
  paths:
    gf: /opt/gf/gf
  timeout: 5m
collect:
  sources: [paramspider, crawler]
filter:
  patternsDir: /opt/gf-patterns
queue:
  maxWorkers: 8
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/opt/gf/gf", cfg.Tools.Paths["gf"])
	require.Equal(t, 5*time.Minute, cfg.Tools.Timeout)
	require.Equal(t, []string{"paramspider", "crawler"}, cfg.Collect.Sources)
	require.Equal(t, "/opt/gf-patterns", cfg.Filter.PatternsDir)
	require.Equal(t, 8, cfg.Queue.MaxWorkers)
	// untouched sections keep their defaults
	require.Equal(t, 100, cfg.Crawler.MaxPages)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("crawler: [unterminated"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
