// Package records provides the persistence layer for the vault collections.
//
// Each collection (notes, bookmarks, passwords) lives in its own SQLite table
// with the same core columns: id, title, updated_at and payload. Payload holds
// the ciphertext produced by cryptox.Codec; the repository never sees
// plaintext. The remaining columns of each table are kept for compatibility
// with the original schema and are written as NULL.
//
// Typical usage
//
//	repo := records.NewSQLiteRepository(db, models.Notes)
//	_ = repo.Insert(ctx, row)
//	got, _ := repo.Get(ctx, row.ID)
//	for row, err := range repo.List(ctx, records.OrderByTitle) {
//	    ...
//	}
//
// Errors from the driver are wrapped with common.ErrStorageFailure; missing
// rows are reported as common.ErrorNotFound.
package records
