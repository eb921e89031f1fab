package records

import (
	"context"
	"iter"

	"github.com/dmitrijs2005/t3vo/internal/models"
)

// Order selects the sort key of List.
type Order int

const (
	// OrderByID sorts by primary key. It is the default.
	OrderByID Order = iota
	// OrderByTitle sorts by title, then id.
	OrderByTitle
	// OrderByUpdated sorts most recently updated first.
	OrderByUpdated
)

// Repository describes the CRUD operations of one collection.
type Repository interface {
	// Collection returns the collection served by the repository.
	Collection() models.Collection

	// Insert adds a new row; an existing id is an error.
	Insert(ctx context.Context, row models.Row) error

	// Put inserts the row or replaces the row with the same id.
	Put(ctx context.Context, row models.Row) error

	// Update replaces an existing row, common.ErrorNotFound otherwise.
	Update(ctx context.Context, row models.Row) error

	// Get returns the row with the given id.
	Get(ctx context.Context, id string) (*models.Row, error)

	// Delete removes the row with the given id.
	Delete(ctx context.Context, id string) error

	// List streams all rows in the requested order. Iteration stops at the
	// first error.
	List(ctx context.Context, order Order) iter.Seq2[models.Row, error]

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}
