// Package registry maps a session key to its physical database.
//
// Every distinct passphrase gets its own SQLite file named
// T3VO-<fingerprint>.db under the data directory, where the fingerprint is
// the hex SHA-256 of the passphrase. A passphrase that has never been used
// therefore opens a fresh, empty database instead of failing; there is no
// separate "wrong password" state.
//
// Open handles are cached per fingerprint so concurrent callers using the
// same key share one *sql.DB.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/filex"
	"github.com/dmitrijs2005/t3vo/internal/logging"
	"github.com/dmitrijs2005/t3vo/internal/migrations"
	"github.com/dmitrijs2005/t3vo/internal/repositories/metadata"

	_ "modernc.org/sqlite"
)

const (
	fileExt = ".db"

	// applied to every pooled connection by the driver
	pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
)

type Registry struct {
	dir    string
	logger logging.Logger
	now    func() time.Time

	mu  sync.Mutex
	dbs map[string]*Database
}

func New(dir string, logger logging.Logger) *Registry {
	return &Registry{
		dir:    dir,
		logger: logger,
		now:    time.Now,
		dbs:    make(map[string]*Database),
	}
}

// Dir returns the data directory.
func (r *Registry) Dir() string {
	return r.dir
}

// PathFor returns the database file for a fingerprint.
func (r *Registry) PathFor(fingerprint string) string {
	return filepath.Join(r.dir, cryptox.DatabaseName(fingerprint)+fileExt)
}

// Exists reports whether a database file already exists for the key.
func (r *Registry) Exists(keys cryptox.KeySource) (bool, error) {
	fp, err := cryptox.Fingerprint(keys)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(r.PathFor(fp))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat database: %w", common.ErrStorageFailure, err)
	}
	return true, nil
}

// Open returns the database bound to the current session key, creating and
// migrating it when needed. It fails with common.ErrKeyUnavailable when the
// session is locked.
func (r *Registry) Open(ctx context.Context, keys cryptox.KeySource) (*Database, error) {
	fp, err := cryptox.Fingerprint(keys)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.dbs[fp]; ok {
		return d, nil
	}

	d, err := r.open(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	r.dbs[fp] = d
	return d, nil
}

func (r *Registry) open(ctx context.Context, fp string) (*Database, error) {
	dir, err := filex.EnsureDir(r.dir)
	if err != nil {
		return nil, err
	}

	name := cryptox.DatabaseName(fp)
	path := filepath.Join(dir, name+fileExt)
	if err := filex.EnsureFile(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := filex.Restrict(path, path+"-wal", path+"-shm"); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &Database{
		reg:  r,
		fp:   fp,
		name: name,
		path: path,
		db:   db,
		meta: metadata.NewSQLiteRepository(db),
	}

	created, err := d.stamp(ctx, r.now())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	v, err := d.SchemaVersion(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	r.logger.Info(ctx, "database opened", "name", name, "schema_version", v, "created", created)

	return d, nil
}

// Close closes every cached handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for fp, d := range r.dbs {
		errs = append(errs, d.db.Close())
		delete(r.dbs, fp)
	}
	return errors.Join(errs...)
}

func (r *Registry) forget(fp string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dbs, fp)
}

func formatTime(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UTC().UnixMilli(), 10))
}

// ParseTime decodes a timestamp stored in metadata.
func ParseTime(b []byte) (time.Time, error) {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse metadata time: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
