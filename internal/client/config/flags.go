package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
)

var ownFlags = []string{"-d", "-db", "-r", "-m", "-t", "-g", "-i", "-l", "-metrics", "-backup"}

// parseFlags populates Config fields from command-line flags. os.Args is
// filtered through flagx.FilterArgs first so flags owned by other components
// do not trip the parser.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("gophnotes", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LocalDBFile, "db", cfg.LocalDBFile, "local database file")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote backend DSN")
	fs.BoolVar(&cfg.RemoteMigrate, "m", cfg.RemoteMigrate, "apply remote schema migrations")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "session access token")
	fs.StringVar(&cfg.HealthEndpoint, "g", cfg.HealthEndpoint, "gRPC health endpoint")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "metrics listen address")
	schedule := fs.String("backup", "", "backup cron schedule")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	if *schedule != "" {
		cfg.Backup.Enabled = true
		cfg.Backup.Schedule = *schedule
	}
	return nil
}
