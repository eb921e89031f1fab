// Package metadata stores per-database key/value facts such as the database
// name, its creation time and the time of the last backup.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyName         = "name"
	KeyCreatedAt    = "created_at"
	KeyLastBackupAt = "last_backup_at"
	KeyLastImportAt = "last_import_at"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes value only when key has no value yet and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// List returns every key/value pair in one query.
	List(ctx context.Context) (map[string][]byte, error)
}
