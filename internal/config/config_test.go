package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leadpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, DefaultSchema(), cfg.Schema)
				assert.Equal(t, "xlsx", cfg.Export.DefaultFormat)
				assert.True(t, cfg.Export.BOM)
				assert.True(t, cfg.Security.RateLimit.Enabled)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9090
  read_timeout: 5s
schema:
  attribution_column: tracking
  attribution_prefix: tracking_
  join_column: registered_at
export:
  default_format: csv
  bom: false
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "tracking", cfg.Schema.AttributionColumn)
				assert.Equal(t, "tracking_", cfg.Schema.AttributionPrefix)
				assert.Equal(t, "registered_at", cfg.Schema.JoinColumn)
				assert.Equal(t, "deposits_total_in_usd", cfg.Schema.DepositColumn)
				assert.Equal(t, "csv", cfg.Export.DefaultFormat)
				assert.False(t, cfg.Export.BOM)
			},
		},
		{
			name: "env overrides file",
			file: "server:\n  port: 9090\n",
			env: map[string]string{
				"LEADPULSE_SERVER_PORT":           "7070",
				"LEADPULSE_LOGGING_LEVEL":         "debug",
				"LEADPULSE_SCHEMA_DEPOSIT_COLUMN": "deposit_usd",
				"LEADPULSE_SECURITY_ALLOWED_ORIGINS": "http://a.test,http://b.test",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "deposit_usd", cfg.Schema.DepositColumn)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
			},
		},
		{
			name: "unknown logging output falls back to console",
			env:  map[string]string{"LEADPULSE_LOGGING_OUTPUT": "syslog"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "console", cfg.Logging.Output)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"LEADPULSE_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unsupported export format",
			file:    "export:\n  default_format: parquet\n",
			wantErr: true,
		},
		{
			name:    "empty schema binding",
			file:    "schema:\n  deposit_column: \"\"\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_ShippedExample(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join("..", "..", "configs", "leadpulse.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSchema(), cfg.Schema)
	assert.Equal(t, "production", cfg.Telemetry.Environment)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestGetConfigFilePath_Env(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8181\n")
	t.Setenv("LEADPULSE_CONFIG_FILE", path)

	assert.Equal(t, path, getConfigFilePath())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestSchemaConfig_Validate(t *testing.T) {
	schema := DefaultSchema()
	assert.NoError(t, schema.Validate())

	schema.Sentinel = "  "
	assert.Error(t, schema.Validate())
}
