package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/migrations"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/repositories/metadata"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
)

// Database is an open vault database.
type Database struct {
	reg  *Registry
	fp   string
	name string
	path string
	db   *sql.DB
	meta *metadata.SQLiteRepository
}

// Name returns the physical database name, T3VO-<fingerprint>.
func (d *Database) Name() string { return d.name }

func (d *Database) Path() string { return d.path }

func (d *Database) DB() *sql.DB { return d.db }

func (d *Database) Metadata() metadata.Repository { return d.meta }

// Collection returns the repository of collection c.
func (d *Database) Collection(c models.Collection) (records.Repository, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownCollection, c)
	}
	return records.NewSQLiteRepository(d.db, c), nil
}

// SchemaVersion returns the applied migration version.
func (d *Database) SchemaVersion(ctx context.Context) (int64, error) {
	v, err := migrations.Version(ctx, d.db)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return v, nil
}

// CreatedAt returns the time the database was first opened.
func (d *Database) CreatedAt(ctx context.Context) (time.Time, error) {
	b, err := d.meta.Get(ctx, metadata.KeyCreatedAt)
	if err != nil {
		return time.Time{}, err
	}
	if b == nil {
		return time.Time{}, common.ErrorNotFound
	}
	return ParseTime(b)
}

// Close closes the handle and drops it from the registry cache.
func (d *Database) Close() error {
	d.reg.forget(d.fp)
	return d.db.Close()
}

// stamp records the name and creation time on first open.
func (d *Database) stamp(ctx context.Context, now time.Time) (bool, error) {
	if err := d.meta.Set(ctx, metadata.KeyName, []byte(d.name)); err != nil {
		return false, err
	}
	return d.meta.SetIfAbsent(ctx, metadata.KeyCreatedAt, formatTime(now))
}
