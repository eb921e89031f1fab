package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/dmitrijs2005/t3vo/internal/common"
	"github.com/dmitrijs2005/t3vo/internal/dbx"
	"github.com/dmitrijs2005/t3vo/internal/models"
)

// SQLiteRepository implements Repository for one collection over a DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db    dbx.DBTX
	table string
	c     models.Collection
}

// NewSQLiteRepository binds a repository to the table of collection c.
// The collection must be valid; see models.ParseCollection.
func NewSQLiteRepository(db dbx.DBTX, c models.Collection) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: string(c), c: c}
}

func (r *SQLiteRepository) Collection() models.Collection {
	return r.c
}

func (r *SQLiteRepository) Insert(ctx context.Context, row models.Row) error {
	query := `INSERT INTO ` + r.table + ` (id, title, updated_at, payload) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, row.ID, row.Title, row.UpdatedAt, row.Payload); err != nil {
		return r.fail("insert", err)
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, row models.Row) error {
	query := `INSERT INTO ` + r.table + ` (id, title, updated_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			payload = excluded.payload`
	if _, err := r.db.ExecContext(ctx, query, row.ID, row.Title, row.UpdatedAt, row.Payload); err != nil {
		return r.fail("upsert", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, row models.Row) error {
	query := `UPDATE ` + r.table + ` SET title = ?, updated_at = ?, payload = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, row.Title, row.UpdatedAt, row.Payload, row.ID)
	if err != nil {
		return r.fail("update", err)
	}
	return r.expectOne(res, "update")
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Row, error) {
	query := `SELECT id, title, updated_at, payload FROM ` + r.table + ` WHERE id = ?`
	row, err := scanRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, r.fail("get", err)
	}
	return &row, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = ?`, id)
	if err != nil {
		return r.fail("delete", err)
	}
	return r.expectOne(res, "delete")
}

func (r *SQLiteRepository) List(ctx context.Context, order Order) iter.Seq2[models.Row, error] {
	query := `SELECT id, title, updated_at, payload FROM ` + r.table + ` ORDER BY ` + orderClause(order)

	return func(yield func(models.Row, error) bool) {
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			yield(models.Row{}, r.fail("list", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanRow(rows)
			if err != nil {
				yield(models.Row{}, r.fail("scan", err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Row{}, r.fail("iterate", err))
		}
	}
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+r.table).Scan(&n); err != nil {
		return 0, r.fail("count", err)
	}
	return n, nil
}

func (r *SQLiteRepository) expectOne(res sql.Result, op string) error {
	err := dbx.ExpectOne(res)
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return r.fail(op, err)
}

func (r *SQLiteRepository) fail(op string, err error) error {
	return fmt.Errorf("%w: failed to %s %s: %w", common.ErrStorageFailure, op, r.table, err)
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRow tolerates NULL title and payload, which rows created before the
// payload column existed may carry.
func scanRow(s scanner) (models.Row, error) {
	var (
		row     models.Row
		title   sql.NullString
		payload sql.NullString
		updated sql.NullInt64
	)
	if err := s.Scan(&row.ID, &title, &updated, &payload); err != nil {
		return models.Row{}, err
	}
	row.Title = title.String
	row.UpdatedAt = updated.Int64
	row.Payload = payload.String
	return row, nil
}

func orderClause(o Order) string {
	switch o {
	case OrderByTitle:
		return "title, id"
	case OrderByUpdated:
		return "updated_at DESC, id"
	default:
		return "id"
	}
}
