// Package actions declares the repository contract for the action ledger.
// The ledger is append-only: there are no update or delete operations.
package actions

import (
	"context"
	"time"

	"github.com/vyapaars/syncledger/internal/server/models"
)

// Repository defines storage operations for action records.
type Repository interface {
	// InsertIfAbsent atomically persists the record unless a row with the same
	// client id already exists. When the uniqueness constraint rejects the
	// insert (a concurrent writer won the race) it returns
	// common.ErrorAlreadyExists; callers treat that as an expected outcome,
	// not a failure.
	InsertIfAbsent(ctx context.Context, record *models.ActionRecord) error

	// FindByClientID returns the persisted record for the given client id,
	// or common.ErrorNotFound.
	FindByClientID(ctx context.Context, clientID string) (*models.ActionRecord, error)

	// SelectSince returns records first received at or after the given time,
	// ordered by receipt time. Used by the export pipeline.
	SelectSince(ctx context.Context, since time.Time) ([]*models.ActionRecord, error)
}
