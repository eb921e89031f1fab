package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/t3vo/internal/flagx"
	"github.com/dmitrijs2005/t3vo/internal/timex"
	toml "github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk shape shared by JSON and TOML files. It is
// seeded with the current values before decoding, so absent keys keep them.
type fileConfig struct {
	DataDir         string         `json:"data_dir" toml:"data_dir"`
	AutoLockTimeout timex.Duration `json:"auto_lock_timeout" toml:"auto_lock_timeout"`
	KDF             fileKDF        `json:"kdf" toml:"kdf"`
	Log             fileLog        `json:"log" toml:"log"`
	Backup          fileBackup     `json:"backup" toml:"backup"`
}

type fileKDF struct {
	MemoryKiB   uint32 `json:"memory_kib" toml:"memory_kib"`
	Iterations  uint32 `json:"iterations" toml:"iterations"`
	Parallelism uint8  `json:"parallelism" toml:"parallelism"`
}

type fileLog struct {
	Level     string `json:"level" toml:"level"`
	Format    string `json:"format" toml:"format"`
	File      string `json:"file" toml:"file"`
	MaxSizeMB int    `json:"max_size_mb" toml:"max_size_mb"`
	MaxFiles  int    `json:"max_files" toml:"max_files"`
}

type fileBackup struct {
	Dir string `json:"dir" toml:"dir"`
	S3  fileS3 `json:"s3" toml:"s3"`
}

type fileS3 struct {
	Bucket    string `json:"bucket" toml:"bucket"`
	Region    string `json:"region" toml:"region"`
	Endpoint  string `json:"endpoint" toml:"endpoint"`
	AccessKey string `json:"access_key" toml:"access_key"`
	SecretKey string `json:"secret_key" toml:"secret_key"`
	Prefix    string `json:"prefix" toml:"prefix"`
}

// parseFile overlays cfg with the file named by -c/--config, if any.
// Files ending in .toml are decoded as TOML, everything else as JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := toFile(cfg)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}

	fromFile(cfg, fc)
	return nil
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		DataDir:         c.DataDir,
		AutoLockTimeout: timex.Duration{Duration: c.AutoLockTimeout},
		KDF:             fileKDF(c.KDF),
		Log: fileLog{
			Level:     c.Log.Level,
			Format:    c.Log.Format,
			File:      c.Log.File,
			MaxSizeMB: c.Log.MaxSizeMB,
			MaxFiles:  c.Log.MaxFiles,
		},
		Backup: fileBackup{Dir: c.Backup.Dir, S3: fileS3(c.Backup.S3)},
	}
}

func fromFile(c *Config, fc fileConfig) {
	c.DataDir = fc.DataDir
	c.AutoLockTimeout = fc.AutoLockTimeout.Duration
	c.KDF.MemoryKiB = fc.KDF.MemoryKiB
	c.KDF.Iterations = fc.KDF.Iterations
	c.KDF.Parallelism = fc.KDF.Parallelism
	c.Log.Level = fc.Log.Level
	c.Log.Format = fc.Log.Format
	c.Log.File = fc.Log.File
	c.Log.MaxSizeMB = fc.Log.MaxSizeMB
	c.Log.MaxFiles = fc.Log.MaxFiles
	c.Backup.Dir = fc.Backup.Dir
	c.Backup.S3.Bucket = fc.Backup.S3.Bucket
	c.Backup.S3.Region = fc.Backup.S3.Region
	c.Backup.S3.Endpoint = fc.Backup.S3.Endpoint
	c.Backup.S3.AccessKey = fc.Backup.S3.AccessKey
	c.Backup.S3.SecretKey = fc.Backup.S3.SecretKey
	c.Backup.S3.Prefix = fc.Backup.S3.Prefix
}
