// Package config assembles the runtime settings of the t3vo CLI.
//
// Values are layered: defaults, then an optional JSON or TOML file given with
// -c/--config, then command-line flags. Later sources win; keys missing from
// the file keep their previous value.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/backup"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/logging"
)

const (
	defaultAutoLockTimeout = 15 * time.Minute
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxFiles     = 5
	defaultS3Region        = "us-east-1"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings.
//
// AutoLockTimeout is the idle time after which the session key is wiped;
// zero disables auto-lock.
type Config struct {
	DataDir         string
	AutoLockTimeout time.Duration
	KDF             cryptox.KDFParams
	Log             logging.Options
	Backup          BackupConfig
}

type BackupConfig struct {
	// Dir defaults to <DataDir>/backups.
	Dir string
	S3  backup.S3Config
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.AutoLockTimeout = defaultAutoLockTimeout
	c.KDF = cryptox.DefaultKDFParams()
	c.Log = logging.Options{
		Level:     defaultLogLevel,
		Format:    defaultLogFormat,
		MaxSizeMB: defaultLogMaxSizeMB,
		MaxFiles:  defaultLogMaxFiles,
	}
	c.Backup = BackupConfig{S3: backup.S3Config{Region: defaultS3Region}}
}

// Load builds a Config from defaults, the config file named in args and the
// flags in args. args is usually os.Args[1:]; unrelated arguments are
// ignored.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = filepath.Join(cfg.DataDir, "backups")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir must not be empty", ErrInvalidConfig)
	}
	if c.AutoLockTimeout < 0 {
		return fmt.Errorf("%w: auto-lock timeout must not be negative", ErrInvalidConfig)
	}
	if err := c.KDF.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "t3vo")
	}
	return ".t3vo"
}
