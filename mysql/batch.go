package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/velmie/joboutbox"
)

type batch struct {
	tx      *sql.Tx
	store   *Store
	records []joboutbox.Record
}

// Records returns the records fetched for this batch.
func (b *batch) Records() []joboutbox.Record {
	return b.records
}

// Save writes the dispatch outcome of the provided records within the batch transaction.
func (b *batch) Save(ctx context.Context, records []joboutbox.Record) error {
	return b.store.save(ctx, b.tx, records)
}

// Commit finalizes the batch transaction.
func (b *batch) Commit() error {
	return b.tx.Commit()
}

// Rollback releases row locks without applying any changes.
func (b *batch) Rollback() error {
	err := b.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}
