// Package identities declares the server-side repository contract for
// identity (merchant account) persistence.
package identities

import (
	"context"

	"github.com/vyapaars/syncledger/internal/server/models"
)

// Repository defines storage operations for identities.
type Repository interface {
	// Create inserts a new identity. If the phone (identity key) is already
	// registered it returns common.ErrorAlreadyExists and writes nothing.
	Create(ctx context.Context, identity *models.Identity) (*models.Identity, error)

	// GetByPhone looks up an identity by its identity key.
	// Returns common.ErrorNotFound when absent.
	GetByPhone(ctx context.Context, phone string) (*models.Identity, error)

	// GetByID looks up an identity by its server-assigned id.
	// Returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Identity, error)
}
