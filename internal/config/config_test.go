package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/bullfrog/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "bullfrog.db", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, 30*time.Minute, cfg.Alerts.Cooldown)
	assert.True(t, cfg.Alerts.Webex.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Alerts.Webex.Timeout)
	assert.False(t, cfg.Alerts.Slack.Enabled)
	assert.Equal(t, "#license-alerts", cfg.Alerts.Slack.Channel)
	assert.Equal(t, "https://webexapis.com/v1", cfg.Webex.APIBase)
	assert.Equal(t, 30*time.Second, cfg.Webex.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Evaluator.HeartbeatInterval)
	assert.Equal(t, time.Hour, cfg.Evaluator.EvaluateInterval)
	assert.Zero(t, cfg.Evaluator.PullInterval)
	assert.Equal(t, 4, cfg.Evaluator.Parallelism)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
alerts:
  cooldown: 45m
  webex:
    webhook_url: https://webexapis.com/v1/webhooks/incoming/abc
webex:
  org_id: org-42
  client_id: cid
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, 45*time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, "https://webexapis.com/v1/webhooks/incoming/abc", cfg.Alerts.Webex.WebhookURL)
	assert.Equal(t, "org-42", cfg.Webex.OrgID)
	assert.Equal(t, "cid", cfg.Webex.ClientID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BULLFROG_LOGGING_LEVEL", "error")
	t.Setenv("BULLFROG_ALERTS_COOLDOWN", "5m")
	t.Setenv("BULLFROG_WEBEX_REFRESH_TOKEN", "rt-1")
	t.Setenv("BULLFROG_SERVER_LISTEN", ":7070")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, "rt-1", cfg.Webex.RefreshToken)
	assert.Equal(t, ":7070", cfg.Server.Listen)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown driver", "storage:\n  driver: mysql\n", "storage.driver"},
		{"postgres without dsn", "storage:\n  driver: postgres\n", "storage.dsn"},
		{"zero parallelism", "evaluator:\n  parallelism: 0\n", "parallelism"},
		{"negative cooldown", "alerts:\n  cooldown: -1m\n", "cooldown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.yaml), 0o644))

			_, err := config.Load(cfgPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWebexConfig_UsesRefreshGrant(t *testing.T) {
	assert.True(t, config.WebexConfig{}.UsesRefreshGrant())
	assert.False(t, config.WebexConfig{AccessToken: "pat"}.UsesRefreshGrant())
	assert.True(t, config.WebexConfig{AccessToken: "pat", RefreshToken: "rt"}.UsesRefreshGrant())
}
