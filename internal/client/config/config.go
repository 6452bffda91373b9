package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/remote"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
)

// Backup configures encrypted snapshots of the local store.
type Backup struct {
	Enabled    bool
	Schedule   string
	Passphrase string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

// Config holds runtime settings for the GophNotes client.
type Config struct {
	DataDir     string
	LocalDBFile string

	RemoteDSN     string
	RemoteMigrate bool
	AccessToken   string

	HealthEndpoint      string
	OnlineCheckInterval time.Duration

	LogLevel    string
	MetricsAddr string

	Backup Backup
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = filex.DefaultDataDir()
	c.LocalDBFile = "gophnotes.db"
	c.RemoteDSN = remote.MemoryDSN
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
	c.Backup.Schedule = "0 3 * * *"
	c.Backup.S3Region = "us-east-1"
	c.Backup.S3Prefix = "backups"
}

// LocalDBPath resolves LocalDBFile against DataDir. Absolute paths and
// ":memory:" are returned as is.
func (c *Config) LocalDBPath() string {
	if c.LocalDBFile == ":memory:" || filepath.IsAbs(c.LocalDBFile) {
		return c.LocalDBFile
	}
	return filepath.Join(c.DataDir, c.LocalDBFile)
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online check interval must be positive"))
	}
	if c.RemoteDSN == "" {
		errs = append(errs, errors.New("remote DSN is empty"))
	}
	if c.Backup.Enabled {
		if c.Backup.Passphrase == "" {
			errs = append(errs, errors.New("backup enabled without a passphrase"))
		}
		if c.Backup.S3Bucket == "" {
			errs = append(errs, errors.New("backup enabled without an S3 bucket"))
		}
		if c.Backup.Schedule == "" {
			errs = append(errs, errors.New("backup enabled without a schedule"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
