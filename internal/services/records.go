// Package services orchestrates encryption and storage of vault records.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/cryptox"
	"github.com/dmitrijs2005/t3vo/internal/logging"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
	"github.com/google/uuid"
)

// Collections resolves a collection to its repository. *registry.Database
// implements it.
type Collections interface {
	Collection(c models.Collection) (records.Repository, error)
}

// Cipher is the payload codec used by the service.
type Cipher interface {
	Encrypt(keys cryptox.KeySource, payload any) (string, error)
	Decrypt(keys cryptox.KeySource, ciphertext string) (json.RawMessage, error)
}

// RecordService is the record store: every write encrypts the payload with
// the session key before it reaches the repository, every read decrypts it.
// Titles and timestamps stay in plaintext for listing.
type RecordService struct {
	store  Collections
	codec  Cipher
	logger logging.Logger
	now    func() time.Time
}

func NewRecordService(store Collections, codec Cipher, logger logging.Logger) *RecordService {
	return &RecordService{store: store, codec: codec, logger: logger, now: time.Now}
}

// Create stores a new record and returns it with its assigned id.
func (s *RecordService) Create(ctx context.Context, keys cryptox.KeySource, c models.Collection, title string, payload any) (*models.Record, error) {
	repo, err := s.store.Collection(c)
	if err != nil {
		return nil, err
	}

	row, plain, err := s.seal(keys, uuid.NewString(), title, payload)
	if err != nil {
		return nil, err
	}
	if err := repo.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("create %s record: %w", c, err)
	}

	s.logger.Debug(ctx, "record created", "collection", c, "id", row.ID)
	return toRecord(c, row, plain), nil
}

// Update replaces title and payload of an existing record.
func (s *RecordService) Update(ctx context.Context, keys cryptox.KeySource, c models.Collection, id, title string, payload any) (*models.Record, error) {
	repo, err := s.store.Collection(c)
	if err != nil {
		return nil, err
	}

	row, plain, err := s.seal(keys, id, title, payload)
	if err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, row); err != nil {
		return nil, fmt.Errorf("update %s record %s: %w", c, id, err)
	}

	s.logger.Debug(ctx, "record updated", "collection", c, "id", id)
	return toRecord(c, row, plain), nil
}

// Read returns the decrypted record. A payload that cannot be decrypted is
// not an error: the record comes back with Unreadable set and no payload.
func (s *RecordService) Read(ctx context.Context, keys cryptox.KeySource, c models.Collection, id string) (*models.Record, error) {
	repo, err := s.store.Collection(c)
	if err != nil {
		return nil, err
	}

	row, err := repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read %s record %s: %w", c, id, err)
	}

	plain, err := s.codec.Decrypt(keys, row.Payload)
	switch {
	case err == nil:
		return toRecord(c, *row, plain), nil
	case errors.Is(err, common.ErrDecryptionFailure):
		s.logger.Warn(ctx, "record payload cannot be decrypted", "collection", c, "id", id, "error", err)
		rec := toRecord(c, *row, nil)
		rec.Unreadable = true
		return rec, nil
	default:
		return nil, err
	}
}

// Delete removes the record permanently.
func (s *RecordService) Delete(ctx context.Context, c models.Collection, id string) error {
	repo, err := s.store.Collection(c)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s record %s: %w", c, id, err)
	}
	s.logger.Debug(ctx, "record deleted", "collection", c, "id", id)
	return nil
}

// List streams id, title and update time of every record. Payloads are not
// decrypted.
func (s *RecordService) List(ctx context.Context, c models.Collection, order records.Order) iter.Seq2[models.Meta, error] {
	return func(yield func(models.Meta, error) bool) {
		repo, err := s.store.Collection(c)
		if err != nil {
			yield(models.Meta{}, err)
			return
		}
		for row, err := range repo.List(ctx, order) {
			if err != nil {
				yield(models.Meta{}, err)
				return
			}
			meta := models.Meta{ID: row.ID, Title: row.Title, UpdatedAt: models.FromMillis(row.UpdatedAt)}
			if !yield(meta, nil) {
				return
			}
		}
	}
}

// Count returns the number of records in c.
func (s *RecordService) Count(ctx context.Context, c models.Collection) (int, error) {
	repo, err := s.store.Collection(c)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

func (s *RecordService) seal(keys cryptox.KeySource, id, title string, payload any) (models.Row, json.RawMessage, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return models.Row{}, nil, fmt.Errorf("marshal payload: %w", err)
	}
	ct, err := s.codec.Encrypt(keys, json.RawMessage(plain))
	if err != nil {
		return models.Row{}, nil, err
	}
	return models.Row{
		ID:        id,
		Title:     title,
		UpdatedAt: models.Millis(s.now()),
		Payload:   ct,
	}, plain, nil
}

func toRecord(c models.Collection, row models.Row, plain json.RawMessage) *models.Record {
	return &models.Record{
		ID:         row.ID,
		Collection: c,
		Title:      row.Title,
		UpdatedAt:  models.FromMillis(row.UpdatedAt),
		Payload:    plain,
	}
}
