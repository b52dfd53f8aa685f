// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/kulkue", cfg.Store.Path)
	assert.Equal(t, 10*time.Minute, cfg.Store.GCInterval)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.True(t, cfg.Server.RateLimit)
	assert.Equal(t, 587, cfg.Mailer.Port)
	assert.Equal(t, "Kulkue", cfg.Mailer.FromName)
	assert.Equal(t, "http://localhost:8080", cfg.Notify.BaseURL)
	assert.Empty(t, cfg.Notify.AdminRecipients)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.ExpandInterval)
	assert.Equal(t, time.Minute, cfg.Jobs.DispatchInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"fi", "sv", "en"}, cfg.Locale.Available)
	assert.Equal(t, "fi", cfg.Locale.Default)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/kulkue-test")
	t.Setenv("HTTP_LISTEN", ":9090")
	t.Setenv("ENFORCE_LIMITS", "false")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("JOB_ROLLUP_INTERVAL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEFAULT_LOCALE", "sv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/kulkue-test", cfg.Store.Path)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.False(t, cfg.Server.RateLimit)
	assert.Equal(t, "smtp.example.org", cfg.Mailer.Host)
	assert.Equal(t, 2525, cfg.Mailer.Port)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.RollupInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sv", cfg.Locale.Default)
}

func TestLoadSplitsCommaSeparatedSlices(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("ADMIN_RECIPIENTS", "mod@example.org, toinen@example.org ,")
	t.Setenv("ALLOWED_ORIGINS", "https://kulkue.fi,https://www.kulkue.fi")
	t.Setenv("LOCALES", "fi,en")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"mod@example.org", "toinen@example.org"}, cfg.Notify.AdminRecipients)
	assert.Equal(t, []string{"https://kulkue.fi", "https://www.kulkue.fi"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"fi", "en"}, cfg.Locale.Available)
}

func TestLoadIgnoresUnmappedEnvVars(t *testing.T) {
	t.Setenv("STORE", "should-not-land-anywhere")
	t.Setenv("SERVER_LISTEN", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  path: /var/lib/kulkue
server:
  listen: ":8888"
logging:
  level: warn
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/kulkue", cfg.Store.Path)
	assert.Equal(t, ":8888", cfg.Server.Listen)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 587, cfg.Mailer.Port)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":8888\"\n"), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_LISTEN", ":9999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "empty listen",
			mutate:  func(c *Config) { c.Server.Listen = "" },
			wantErr: "server.listen",
		},
		{
			name:    "non-positive interval",
			mutate:  func(c *Config) { c.Jobs.DispatchInterval = 0 },
			wantErr: "job intervals",
		},
		{
			name: "admin recipients without mailer host",
			mutate: func(c *Config) {
				c.Notify.AdminRecipients = []string{"mod@example.org"}
			},
			wantErr: "mailer.host",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("ADMIN_RECIPIENTS", "mod@example.org")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailer.host")
}
