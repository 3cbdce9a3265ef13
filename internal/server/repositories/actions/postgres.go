package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/dbx"
	"github.com/vyapaars/syncledger/internal/server/models"
)

// PostgresRepository implements ledger storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertIfAbsent relies on the unique index on client_id: under concurrent
// duplicate delivery exactly one insert affects a row, every other writer
// observes zero rows and gets common.ErrorAlreadyExists.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, record *models.ActionRecord) error {
	query := `
		INSERT INTO actions (id, client_id, identity_id, action_type, payload, client_timestamp, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		record.ID, record.ClientID, record.IdentityID, record.Type,
		[]byte(record.Payload), record.ClientTimestamp, record.ReceivedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// FindByClientID returns the record persisted for clientID, if any.
func (r *PostgresRepository) FindByClientID(ctx context.Context, clientID string) (*models.ActionRecord, error) {
	query := `
		SELECT id, client_id, identity_id, action_type, payload, client_timestamp, received_at
		FROM actions
		WHERE client_id = $1
	`
	record := &models.ActionRecord{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(
		&record.ID, &record.ClientID, &record.IdentityID, &record.Type,
		&payload, &record.ClientTimestamp, &record.ReceivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	record.Payload = payload
	return record, nil
}

// SelectSince returns all records received at or after since, oldest first.
func (r *PostgresRepository) SelectSince(ctx context.Context, since time.Time) ([]*models.ActionRecord, error) {
	query := `
		SELECT id, client_id, identity_id, action_type, payload, client_timestamp, received_at
		FROM actions
		WHERE received_at >= $1
		ORDER BY received_at
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()

	var result []*models.ActionRecord
	for rows.Next() {
		var item models.ActionRecord
		var payload []byte
		if err := rows.Scan(
			&item.ID, &item.ClientID, &item.IdentityID, &item.Type,
			&payload, &item.ClientTimestamp, &item.ReceivedAt,
		); err != nil {
			return nil, err
		}
		item.Payload = payload
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
