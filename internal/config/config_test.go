package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportviewer/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reportviewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 500*time.Millisecond, cfg.Viewer.ValidationDelay)
	assert.True(t, cfg.Viewer.Paginated)
	assert.Equal(t, AuthModeNone, cfg.Service.Auth.Mode)
	assert.Equal(t, "127.0.0.1:8095", cfg.Mock.Address())
	assert.Equal(t, "reportviewer", cfg.Telemetry.ServiceName)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_RV_URL", "http://reports.local:5000")
	path := writeConfig(t, `
service:
  url: ${TEST_RV_URL}
  timeout: 30s
  culture: de-DE
viewer:
  validation_delay: 250ms
journal:
  path: ${TEST_RV_MISSING:-/tmp/journal.db}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://reports.local:5000", cfg.Service.URL)
	assert.Equal(t, 30*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Viewer.ValidationDelay)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	// untouched defaults survive
	assert.Equal(t, time.Second, cfg.Viewer.PollInterval)
	assert.Equal(t, "http://reports.local:5000/api/oauth/token", cfg.Service.TokenEndpoint())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigNotFound))

	_, err = Load(writeConfig(t, "service: [unclosed"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigParse))
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("RV_SERVICE_URL", "http://env.local")
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.local", cfg.Service.URL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RV_SERVICE_TOKEN", "secret-token")
	t.Setenv("RV_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "service:\n  url: http://x.local\n"))
	require.NoError(t, err)
	assert.Equal(t, AuthModeToken, cfg.Service.Auth.Mode)
	assert.Equal(t, "secret-token", cfg.Service.Auth.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.Service.URL = "" }, true},
		{"relative url", func(c *Config) { c.Service.URL = "reports/api" }, true},
		{"token without value", func(c *Config) { c.Service.Auth.Mode = AuthModeToken }, true},
		{"client credentials incomplete", func(c *Config) {
			c.Service.Auth.Mode = AuthModeClientCredentials
			c.Service.Auth.ClientID = "viewer"
		}, true},
		{"unknown auth mode", func(c *Config) { c.Service.Auth.Mode = "kerberos" }, true},
		{"negative delay", func(c *Config) { c.Viewer.ValidationDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Service.URL = "http://reports.local"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Service.URL = "http://reports.local"
	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Service.URL, loaded.Service.URL)
	assert.Equal(t, cfg.Viewer, loaded.Viewer)
}
