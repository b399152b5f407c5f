package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
database:
  backend: memory
tokens:
  secret: ${TEST_TOKEN_SECRET}
integrations:
  smtp:
    host: smtp.example.com
providers:
  - credential: key-one
  - name: backup
    credential: key-two
    model: small-model
    timeout: 1000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_DefaultsAndProviders(t *testing.T) {
	t.Setenv("TEST_TOKEN_SECRET", "0123456789abcdef0123")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef0123", cfg.Tokens.Secret)
	assert.Equal(t, 604800, cfg.Tokens.TTLSeconds)
	assert.Equal(t, 2500, cfg.Analysis.MaxTokens)
	assert.Equal(t, 45000, cfg.Analysis.Timeout)
	assert.Equal(t, RendererAuto, cfg.Reports.Renderer)
	assert.Equal(t, DispatchInProcess, cfg.Dispatch.Mode)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "provider-1", cfg.Providers[0].Name)
	assert.Equal(t, cfg.Analysis.DefaultModel, cfg.Providers[0].Model)
	assert.Equal(t, 45000, cfg.Providers[0].Timeout)
	assert.Equal(t, "backup", cfg.Providers[1].Name)
	assert.Equal(t, "small-model", cfg.Providers[1].Model)
	assert.Equal(t, 1000, cfg.Providers[1].Timeout)
}

func TestLoadFromFile_AdminNotificationToggle(t *testing.T) {
	t.Setenv("TEST_TOKEN_SECRET", "0123456789abcdef0123")

	tests := []struct {
		name     string
		extra    string
		expected bool
	}{
		{name: "absent key means enabled", extra: "", expected: true},
		{name: "explicit true", extra: "notifications:\n  admin_enabled: true\n", expected: true},
		{name: "explicit false", extra: "notifications:\n  admin_enabled: false\n", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, baseYAML+tt.extra))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Notifications.AdminNotificationsEnabled())
		})
	}
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing secret",
			body:    "database:\n  backend: memory\nintegrations:\n  smtp:\n    host: h\n",
			wantErr: "tokens.secret",
		},
		{
			name:    "unknown backend",
			body:    "database:\n  backend: mongo\ntokens:\n  secret: 0123456789abcdef\nintegrations:\n  smtp:\n    host: h\n",
			wantErr: "database.backend",
		},
		{
			name:    "postgres without host",
			body:    "tokens:\n  secret: 0123456789abcdef\nintegrations:\n  smtp:\n    host: h\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "unknown renderer",
			body:    "database:\n  backend: memory\ntokens:\n  secret: 0123456789abcdef\nreports:\n  renderer: docx\nintegrations:\n  smtp:\n    host: h\n",
			wantErr: "reports.renderer",
		},
		{
			name:    "camunda without broker",
			body:    "database:\n  backend: memory\ntokens:\n  secret: 0123456789abcdef\ndispatch:\n  mode: camunda\nintegrations:\n  smtp:\n    host: h\n",
			wantErr: "camunda.broker_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_UnsetPlaceholderIsEmpty(t *testing.T) {
	t.Setenv("TEST_TOKEN_SECRET", "")
	t.Setenv("ASSESSMENT_TOKEN_SECRET", "")

	_, err := LoadFromFile(writeConfig(t, baseYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens.secret")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, "45s", GetDuration(45000).String())
}
