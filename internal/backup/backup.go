// Package backup exports a whole vault database into a single encrypted
// archive and imports it back.
//
// The archive holds every row of every collection (payloads stay encrypted
// per record) and is then encrypted once more as a whole with the session
// key, so titles are not exposed either. Only the database name and the
// envelope version are readable without the passphrase.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/dbx"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/repositories/metadata"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
)

const (
	Version = 1
	Ext     = ".t3vo.json"
)

var ErrUnsupportedVersion = errors.New("unsupported backup version")

// Database is the part of registry.Database used here.
type Database interface {
	Name() string
	DB() *sql.DB
}

// Cipher encrypts the archive.
type Cipher interface {
	Encrypt(keys cryptox.KeySource, payload any) (string, error)
	Decrypt(keys cryptox.KeySource, ciphertext string) (json.RawMessage, error)
}

// Envelope is the stored form of a backup.
type Envelope struct {
	Version  int    `json:"version"`
	Database string `json:"database"`
	Data     string `json:"data"`
}

// Archive is the decrypted content of Envelope.Data.
type Archive struct {
	Version     int                                `json:"version"`
	Database    string                             `json:"database"`
	CreatedAt   int64                              `json:"created_at"`
	Collections map[models.Collection][]models.Row `json:"collections"`
}

// Stats counts imported or exported rows per collection.
type Stats struct {
	Name        string
	Collections map[models.Collection]int
}

func (s Stats) Total() int {
	n := 0
	for _, v := range s.Collections {
		n += v
	}
	return n
}

// DefaultName builds a timestamped backup name for db.
func DefaultName(db Database, now time.Time) string {
	return db.Name() + "-" + now.UTC().Format("20060102T150405Z")
}

func objectName(name string) string {
	if strings.HasSuffix(name, Ext) {
		return name
	}
	return name + Ext
}

// Export writes an encrypted archive of db through sink.
func Export(ctx context.Context, db Database, codec Cipher, keys cryptox.KeySource, sink Sink, name string, now time.Time) (Stats, error) {
	archive := Archive{
		Version:     Version,
		Database:    db.Name(),
		CreatedAt:   models.Millis(now),
		Collections: make(map[models.Collection][]models.Row, len(models.Collections)),
	}
	stats := Stats{Name: objectName(name), Collections: make(map[models.Collection]int)}

	for _, c := range models.Collections {
		rows := []models.Row{}
		for row, err := range records.NewSQLiteRepository(db.DB(), c).List(ctx, records.OrderByID) {
			if err != nil {
				return Stats{}, err
			}
			rows = append(rows, row)
		}
		archive.Collections[c] = rows
		stats.Collections[c] = len(rows)
	}

	data, err := codec.Encrypt(keys, archive)
	if err != nil {
		return Stats{}, fmt.Errorf("encrypt archive: %w", err)
	}

	body, err := json.Marshal(Envelope{Version: Version, Database: db.Name(), Data: data})
	if err != nil {
		return Stats{}, fmt.Errorf("marshal envelope: %w", err)
	}

	if err := sink.Write(ctx, stats.Name, body); err != nil {
		return Stats{}, fmt.Errorf("write backup %s: %w", stats.Name, err)
	}

	meta := metadata.NewSQLiteRepository(db.DB())
	if err := meta.Set(ctx, metadata.KeyLastBackupAt, []byte(strconv.FormatInt(archive.CreatedAt, 10))); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Import restores an archive into db. Rows are upserted in one transaction,
// so existing records with the same id are overwritten and others are kept.
func Import(ctx context.Context, db Database, codec Cipher, keys cryptox.KeySource, sink Sink, name string, now time.Time) (Stats, error) {
	stats := Stats{Name: objectName(name), Collections: make(map[models.Collection]int)}

	body, err := sink.Read(ctx, stats.Name)
	if err != nil {
		return Stats{}, fmt.Errorf("read backup %s: %w", stats.Name, err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Stats{}, fmt.Errorf("%w: malformed backup envelope: %w", common.ErrDecryptionFailure, err)
	}
	if env.Version != Version {
		return Stats{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if env.Database != db.Name() {
		return Stats{}, fmt.Errorf("%w: %s", common.ErrBackupMismatch, env.Database)
	}

	plain, err := codec.Decrypt(keys, env.Data)
	if err != nil {
		return Stats{}, err
	}

	var archive Archive
	if err := json.Unmarshal(plain, &archive); err != nil {
		return Stats{}, fmt.Errorf("%w: malformed archive: %w", common.ErrDecryptionFailure, err)
	}
	if archive.Database != db.Name() {
		return Stats{}, fmt.Errorf("%w: %s", common.ErrBackupMismatch, archive.Database)
	}
	for c := range archive.Collections {
		if !c.Valid() {
			return Stats{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, c)
		}
	}

	err = dbx.WithTx(ctx, db.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, c := range models.Collections {
			repo := records.NewSQLiteRepository(tx, c)
			for _, row := range archive.Collections[c] {
				if row.ID == "" {
					return fmt.Errorf("%s row without id", c)
				}
				if err := repo.Put(ctx, row); err != nil {
					return err
				}
				stats.Collections[c]++
			}
		}
		meta := metadata.NewSQLiteRepository(tx)
		return meta.Set(ctx, metadata.KeyLastImportAt, []byte(strconv.FormatInt(models.Millis(now), 10)))
	})
	if err != nil {
		return Stats{}, fmt.Errorf("import %s: %w", stats.Name, err)
	}
	return stats, nil
}
