package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/backup"
	"github.com/dmitrijs2005/t3vo/internal/config"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/logging"
	"github.com/dmitrijs2005/t3vo/internal/registry"
	"github.com/dmitrijs2005/t3vo/internal/services"
	"github.com/dmitrijs2005/t3vo/internal/session"
)

// PassphraseEnv names the environment variable consulted before prompting.
const PassphraseEnv = "T3VO_PASSPHRASE"

type App struct {
	config   *config.Config
	logger   logging.Logger
	session  *session.Session
	registry *registry.Registry
	codec    *cryptox.Codec

	db      *registry.Database
	records *services.RecordService

	reader *bufio.Reader
	out    io.Writer

	getenv    func(string) string
	now       func() time.Time
	newS3Sink func(ctx context.Context, cfg backup.S3Config) (backup.Sink, error)
}

// NewApp wires the session, registry and codec from c. The returned App is
// locked until Unlock succeeds.
func NewApp(c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	codec, err := cryptox.NewCodec(c.KDF)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   c,
		logger:   logger,
		session:  session.New(session.WithAutoLock(c.AutoLockTimeout)),
		registry: registry.New(c.DataDir, logger),
		codec:    codec,
		reader:   bufio.NewReader(in),
		out:      out,
		getenv:   os.Getenv,
		now:      time.Now,
		newS3Sink: func(ctx context.Context, cfg backup.S3Config) (backup.Sink, error) {
			return backup.NewS3SinkFromConfig(ctx, cfg)
		},
	}, nil
}

// Close wipes the session key and closes every open database.
func (a *App) Close() error {
	a.session.Lock()
	a.db, a.records = nil, nil
	return a.registry.Close()
}

// Unlocked reports whether a key is held and a database is selected.
func (a *App) Unlocked() bool {
	return a.db != nil && a.session.Unlocked()
}

// Unlock reads the passphrase and opens the database it selects.
func (a *App) Unlock(ctx context.Context) error {
	pass, err := a.passphrase()
	if err != nil {
		return err
	}
	if err := a.session.Unlock(pass); err != nil {
		return err
	}

	exists, err := a.registry.Exists(a.session)
	if err != nil {
		a.session.Lock()
		return err
	}

	db, err := a.registry.Open(ctx, a.session)
	if err != nil {
		a.session.Lock()
		a.logger.Error(ctx, "cannot open database", "error", err)
		return err
	}

	a.db = db
	a.records = services.NewRecordService(db, a.codec, a.logger)

	if exists {
		fmt.Fprintf(a.out, "Opened database %s\n", db.Name())
	} else {
		fmt.Fprintf(a.out, "Created new database %s\n", db.Name())
	}
	return nil
}

// Lock wipes the session key. The database stays open in the registry.
func (a *App) Lock(ctx context.Context) error {
	a.session.Lock()
	a.db, a.records = nil, nil
	a.logger.Info(ctx, "session locked")
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// ensureUnlocked prompts again when the session was never unlocked or the
// key has expired.
func (a *App) ensureUnlocked(ctx context.Context) error {
	if a.Unlocked() {
		return nil
	}
	a.db, a.records = nil, nil
	return a.Unlock(ctx)
}

func (a *App) passphrase() ([]byte, error) {
	if v := a.getenv(PassphraseEnv); v != "" {
		return []byte(v), nil
	}
	pass, err := GetPassword("Passphrase", a.out)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}
