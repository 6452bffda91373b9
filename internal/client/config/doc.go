// Package config loads runtime configuration for the GophNotes client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config or $GOPHNOTES_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string        data directory
//	-db string       local database file, relative to the data directory
//	-r string        remote backend DSN (postgres://... or memory://)
//	-m               apply remote schema migrations on start
//	-t string        session access token (JWT)
//	-g string        optional gRPC health endpoint used as the online probe
//	-i int           online status check interval (seconds)
//	-l string        log level: debug, info, warn, error
//	-metrics string  address for the Prometheus /metrics endpoint
//	-backup string   cron schedule for encrypted backups; enables backups
//
// # JSON schema
//
// Durations use timex.Duration, so "3s" and integer nanoseconds both work.
// Keys missing from the file keep their current value.
//
//	{
//	  "data_dir": "/home/me/.gophnotes",
//	  "local_db_file": "notes.db",
//	  "remote_dsn": "postgres://notes@localhost/notes",
//	  "remote_migrate": false,
//	  "access_token": "eyJ...",
//	  "health_endpoint": "",
//	  "online_check_interval": "3s",
//	  "log_level": "info",
//	  "metrics_addr": "",
//	  "backup": {
//	    "enabled": true,
//	    "schedule": "0 3 * * *",
//	    "passphrase": "...",
//	    "s3_endpoint": "http://localhost:9000",
//	    "s3_region": "us-east-1",
//	    "s3_bucket": "gophnotes",
//	    "s3_access_key": "...",
//	    "s3_secret_key": "...",
//	    "s3_prefix": "backups"
//	  }
//	}
package config
