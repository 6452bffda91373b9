package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"data_dir":              "/var/lib/notes",
		"local_db_file":         "n.db",
		"remote_dsn":            "postgres://u@h/db",
		"remote_migrate":        true,
		"access_token":          "tok",
		"health_endpoint":       "h:50051",
		"online_check_interval": "10s",
		"log_level":             "debug",
		"metrics_addr":          ":9100",
		"backup": map[string]any{
			"enabled":       true,
			"schedule":      "@hourly",
			"passphrase":    "pw",
			"s3_endpoint":   "http://minio:9000",
			"s3_region":     "eu-west-1",
			"s3_bucket":     "notes",
			"s3_access_key": "ak",
			"s3_secret_key": "sk",
			"s3_prefix":     "p",
		},
	})

	t.Run("loads every field", func(t *testing.T) {
		withArgs(t, "-config", full)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg))

		want := &Config{
			DataDir:             "/var/lib/notes",
			LocalDBFile:         "n.db",
			RemoteDSN:           "postgres://u@h/db",
			RemoteMigrate:       true,
			AccessToken:         "tok",
			HealthEndpoint:      "h:50051",
			OnlineCheckInterval: 10 * time.Second,
			LogLevel:            "debug",
			MetricsAddr:         ":9100",
			Backup: Backup{
				Enabled: true, Schedule: "@hourly", Passphrase: "pw",
				S3Endpoint: "http://minio:9000", S3Region: "eu-west-1", S3Bucket: "notes",
				S3AccessKey: "ak", S3SecretKey: "sk", S3Prefix: "p",
			},
		}
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "error"})
		withArgs(t, "-c", partial)

		var cfg, want Config
		cfg.LoadDefaults()
		want.LoadDefaults()
		want.LogLevel = "error"

		require.NoError(t, parseJson(&cfg))
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("path from environment", func(t *testing.T) {
		withArgs(t)
		t.Setenv(flagx.ConfigEnvVar, full)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg))
		assert.Equal(t, "postgres://u@h/db", cfg.RemoteDSN)
	})

	t.Run("no config → no changes", func(t *testing.T) {
		withArgs(t)
		t.Setenv(flagx.ConfigEnvVar, "")

		cfg := &Config{RemoteDSN: "defaults", OnlineCheckInterval: 42 * time.Second}
		require.NoError(t, parseJson(cfg))
		assert.Equal(t, "defaults", cfg.RemoteDSN)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		withArgs(t, "-config", bad)

		require.Error(t, parseJson(&Config{}))
	})

	t.Run("missing file → error", func(t *testing.T) {
		withArgs(t, "-c", filepath.Join(dir, "absent.json"))
		require.Error(t, parseJson(&Config{}))
	})
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "/tmp/n", "-db", "x.db", "-r", "postgres://h", "-m", "-t", "tok",
				"-g", "h:1", "-i", "10", "-l", "warn", "-metrics", ":9100", "-backup", "@daily"},
			expected: &Config{
				DataDir: "/tmp/n", LocalDBFile: "x.db", RemoteDSN: "postgres://h", RemoteMigrate: true,
				AccessToken: "tok", HealthEndpoint: "h:1", OnlineCheckInterval: 10 * time.Second,
				LogLevel: "warn", MetricsAddr: ":9100",
				Backup: Backup{Enabled: true, Schedule: "@daily"},
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-x", "1", "-i", "5", "--verbose"},
			expected: &Config{OnlineCheckInterval: 5 * time.Second},
		},
		{
			name:    "incorrect check interval",
			args:    []string{"-i", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)

			cfg := &Config{}
			err := parseFlags(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
