package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/dbx"
	"github.com/vyapaars/syncledger/internal/server/models"
)

// PostgresRepository implements identity storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the identity. The unique index on phone arbitrates duplicate
// registrations: a conflicting insert affects zero rows and is reported as
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	query := `
		INSERT INTO identities (id, phone, full_name, password_hash, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Phone, identity.FullName, identity.PasswordHash, identity.Verified, identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrorAlreadyExists
	}
	return identity, nil
}

// GetByPhone returns the identity for the given identity key.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	query := `
		SELECT id, phone, full_name, password_hash, verified, created_at
		FROM identities
		WHERE phone = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, phone))
}

// GetByID returns the identity for the given server-assigned id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `
		SELECT id, phone, full_name, password_hash, verified, created_at
		FROM identities
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(
		&identity.ID, &identity.Phone, &identity.FullName, &identity.PasswordHash, &identity.Verified, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return identity, nil
}
