package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every EMP_* variable the tests touch and restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"EMP_CONFIG", "EMP_SERVER_PORT", "EMP_STORE_DRIVER", "EMP_STORE_DSN",
		"EMP_STORE_COMPRESS", "EMP_REPORT_TOP_N", "EMP_LOGGING_LEVEL",
		"EMP_LOGGING_FORMAT", "EMP_INGEST_SOURCE_FILE",
	}
	for _, envVar := range envVars {
		if val, ok := os.LookupEnv(envVar); ok {
			t.Cleanup(func() { os.Setenv(envVar, val) })
		} else {
			t.Cleanup(func() { os.Unsetenv(envVar) })
		}
		os.Unsetenv(envVar)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "memory", cfg.Store.Driver)
				assert.Equal(t, "employment_raw", cfg.Store.RawCollection)
				assert.Equal(t, "employment_clean", cfg.Store.CleanCollection)
				assert.Equal(t, "Business&Eco.csv", cfg.Ingest.SourceFile)
				assert.Equal(t, "outputs", cfg.Report.OutputDir)
				assert.Equal(t, 3, cfg.Report.TopN)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, 10*time.Second, cfg.Store.PingTimeout)
			},
		},
		{
			name: "environment overrides",
			setupEnv: func(t *testing.T) {
				os.Setenv("EMP_SERVER_PORT", "9000")
				os.Setenv("EMP_REPORT_TOP_N", "5")
				os.Setenv("EMP_STORE_COMPRESS", "true")
				os.Setenv("EMP_LOGGING_FORMAT", "text")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 5, cfg.Report.TopN)
				assert.True(t, cfg.Store.Compress)
				assert.Equal(t, "json", cfg.Logging.Format, "format is forced to json")
			},
		},
		{
			name: "file overlay keeps unspecified defaults",
			file: `
store:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/dublin_employment"
report:
  output_dir: /tmp/reports
server:
  read_timeout: 5s
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.Store.Driver)
				assert.Equal(t, "user:pass@tcp(localhost:3306)/dublin_employment", cfg.Store.DSN)
				assert.Equal(t, "/tmp/reports", cfg.Report.OutputDir)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "employment_raw", cfg.Store.RawCollection)
			},
		},
		{
			name: "environment beats file",
			setupEnv: func(t *testing.T) {
				os.Setenv("EMP_INGEST_SOURCE_FILE", "env.xlsx")
			},
			file: "ingest:\n  source_file: file.csv\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env.xlsx", cfg.Ingest.SourceFile)
			},
		},
		{
			name: "mysql without dsn",
			setupEnv: func(t *testing.T) {
				os.Setenv("EMP_STORE_DRIVER", "mysql")
			},
			wantErr: true,
		},
		{
			name: "unknown driver",
			setupEnv: func(t *testing.T) {
				os.Setenv("EMP_STORE_DRIVER", "mongo")
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			setupEnv: func(t *testing.T) {
				os.Setenv("EMP_SERVER_PORT", "70000")
			},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}

			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			} else {
				// point at an empty file so a stray config.yaml in the cwd is ignored
				path = writeConfig(t, "")
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_SameCollections(t *testing.T) {
	cfg := Default()
	cfg.Store.CleanCollection = cfg.Store.RawCollection
	assert.Error(t, cfg.Validate())
}
