package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/flagx"
)

// Flags read by parseFlags. The CLI declares the same names so they show up
// in its help output.
var ownFlags = []string{
	"-d", "--data-dir",
	"-l", "--autolock",
	"--log-level",
}

// parseFlags populates selected Config fields from command-line flags.
//
//	-d, --data-dir string  directory holding the vault databases
//	-l, --autolock int     auto-lock timeout in seconds, 0 disables
//	--log-level string     debug, info, warn or error
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("t3vo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	var autolock int
	fs.IntVar(&autolock, "l", 0, "auto-lock timeout (in seconds)")
	fs.IntVar(&autolock, "autolock", 0, "auto-lock timeout (in seconds)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// Only an explicit flag overrides the timeout; file values may be
	// sub-second.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "l" || f.Name == "autolock" {
			cfg.AutoLockTimeout = time.Duration(autolock) * time.Second
		}
	})
	return nil
}
