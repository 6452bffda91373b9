package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

type jsonBackup struct {
	Enabled     bool   `json:"enabled"`
	Schedule    string `json:"schedule"`
	Passphrase  string `json:"passphrase"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3Bucket    string `json:"s3_bucket"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3Prefix    string `json:"s3_prefix"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It is seeded
// from the current Config so that keys absent from the file keep their value.
type JsonConfig struct {
	DataDir             string         `json:"data_dir"`
	LocalDBFile         string         `json:"local_db_file"`
	RemoteDSN           string         `json:"remote_dsn"`
	RemoteMigrate       bool           `json:"remote_migrate"`
	AccessToken         string         `json:"access_token"`
	HealthEndpoint      string         `json:"health_endpoint"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LogLevel            string         `json:"log_level"`
	MetricsAddr         string         `json:"metrics_addr"`
	Backup              jsonBackup     `json:"backup"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		DataDir:             c.DataDir,
		LocalDBFile:         c.LocalDBFile,
		RemoteDSN:           c.RemoteDSN,
		RemoteMigrate:       c.RemoteMigrate,
		AccessToken:         c.AccessToken,
		HealthEndpoint:      c.HealthEndpoint,
		OnlineCheckInterval: timex.Duration{Duration: c.OnlineCheckInterval},
		LogLevel:            c.LogLevel,
		MetricsAddr:         c.MetricsAddr,
		Backup:              jsonBackup(c.Backup),
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.DataDir = jc.DataDir
	c.LocalDBFile = jc.LocalDBFile
	c.RemoteDSN = jc.RemoteDSN
	c.RemoteMigrate = jc.RemoteMigrate
	c.AccessToken = jc.AccessToken
	c.HealthEndpoint = jc.HealthEndpoint
	c.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	c.LogLevel = jc.LogLevel
	c.MetricsAddr = jc.MetricsAddr
	c.Backup = Backup(jc.Backup)
}

// parseJson overlays cfg with the JSON file named by -c / -config or
// $GOPHNOTES_CONFIG. No file configured means no changes.
func parseJson(cfg *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
