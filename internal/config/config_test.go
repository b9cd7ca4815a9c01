package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"RULES_FILE", "DATA_PROVIDER", "POLYGON_API_KEY", "DISCORD_WEBHOOK_URL", "HTTPS_PROXY",
		"SQLITE_PATH", "LOG_LEVEL", "CRON_SCHEDULE", "METRICS_ADDR", "FETCH_CONCURRENCY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "config.json", cfg.RulesFile)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "2y", cfg.DataSource.Range)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Notify.Retries)
	assert.Equal(t, "0 30 16 * * 1-5", cfg.Schedule.Cron)
	assert.Empty(t, cfg.Database.SQLitePath)
	assert.Empty(t, cfg.Metrics.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
rules_file: rules/alerts.json
data_source:
  provider: polygon
  api_key: from-file
  range: 1y
fetch:
  concurrency: 8
  timeout: 5s
schedule:
  cron: "0 0 22 * * 1-5"
database:
  sqlite_path: data/history.db
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("POLYGON_API_KEY", "from-env")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules/alerts.json", cfg.RulesFile)
	assert.Equal(t, "polygon", cfg.DataSource.Provider)
	assert.Equal(t, "from-env", cfg.DataSource.APIKey)
	assert.Equal(t, "1y", cfg.DataSource.Range)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "0 0 22 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, "data/history.db", cfg.Database.SQLitePath)
	assert.Equal(t, "https://discord.com/api/webhooks/1/x", cfg.Notify.WebhookURL)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"polygon without key", func(c *Config) { c.DataSource.Provider = "polygon" }, "api_key is required"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "not supported"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every day" }, "schedule.cron"},
		{"five field cron", func(c *Config) { c.Schedule.Cron = "30 16 * * 1-5" }, "schedule.cron"},
		{"descriptor cron", func(c *Config) { c.Schedule.Cron = "@daily" }, ""},
		{"negative retries", func(c *Config) { c.Notify.Retries = -1 }, "notify.retries"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
