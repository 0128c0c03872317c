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
	path := filepath.Join(t.TempDir(), "feeddiff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "reports", cfg.Paths.ReportsDir)
				assert.Equal(t, "diff_report.csv", cfg.Report.FileName)
				assert.Equal(t, "csv", cfg.Report.Format)
				assert.Equal(t, DefaultRunCapacity, cfg.Runs.Capacity)
				assert.Equal(t, AppName, cfg.Telemetry.ServiceName)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"FEEDDIFF_SERVER_PORT":             "9090",
				"FEEDDIFF_SERVER_READ_TIMEOUT":     "5s",
				"FEEDDIFF_LOGGING_LEVEL":           "DEBUG",
				"FEEDDIFF_REPORT_FORMAT":           "xlsx",
				"FEEDDIFF_REPORT_BOM_PREFIX":       "true",
				"FEEDDIFF_RUNS_CAPACITY":           "5",
				"FEEDDIFF_SECURITY_RATE_LIMIT_RPS": "2.5",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "xlsx", cfg.Report.Format)
				assert.True(t, cfg.Report.BOMPrefix)
				assert.Equal(t, 5, cfg.Runs.Capacity)
				assert.Equal(t, 2.5, cfg.Security.RateLimit.RPS)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 7000
  write_timeout: 1m
report:
  file_name: compare.csv
paths:
  reports_dir: out
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
				assert.Equal(t, time.Minute, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "compare.csv", cfg.Report.FileName)
				assert.Equal(t, "out", cfg.Paths.ReportsDir)
			},
		},
		{
			name: "environment overrides file",
			file: "server:\n  port: 7000\n",
			env:  map[string]string{"FEEDDIFF_SERVER_PORT": "7001"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7001, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"FEEDDIFF_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unknown report format",
			env:     map[string]string{"FEEDDIFF_REPORT_FORMAT": "pdf"},
			wantErr: true,
		},
		{
			name:    "unparsable env value",
			env:     map[string]string{"FEEDDIFF_RUNS_CAPACITY": "many"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FEEDDIFF_CONFIG", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				t.Setenv("FEEDDIFF_CONFIG", writeConfigFile(t, tt.file))
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("FEEDDIFF_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "unknown log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: true,
		},
		{
			name:    "zero run capacity",
			mutate:  func(c *Config) { c.Runs.Capacity = 0 },
			wantErr: true,
		},
		{
			name: "cors without origins",
			mutate: func(c *Config) {
				c.Security.EnableCORS = true
				c.Security.AllowedOrigins = nil
			},
			wantErr: true,
		},
		{
			name: "file output gets a default path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.FilePath = ""
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultLogFile, c.Logging.FilePath)
			},
		},
		{
			name:   "level and format are normalized",
			mutate: func(c *Config) { c.Logging.Level = "WARN"; c.Report.Format = "JSON" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "warn", c.Logging.Level)
				assert.Equal(t, "json", c.Report.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestGetConfigFilePath(t *testing.T) {
	t.Run("explicit env var wins", func(t *testing.T) {
		t.Setenv("FEEDDIFF_CONFIG", "/etc/feeddiff/custom.yaml")
		assert.Equal(t, "/etc/feeddiff/custom.yaml", getConfigFilePath())
	})

	t.Run("found in working directory", func(t *testing.T) {
		t.Setenv("FEEDDIFF_CONFIG", "")
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "feeddiff.yaml"), []byte("{}"), 0644))

		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { os.Chdir(wd) })

		assert.Equal(t, "feeddiff.yaml", getConfigFilePath())
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("FEEDDIFF_CONFIG", "")

		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { os.Chdir(wd) })

		assert.Empty(t, getConfigFilePath())
	})
}
