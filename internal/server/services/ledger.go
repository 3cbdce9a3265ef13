// This file implements LedgerService, the batch reconciliation engine: it
// accepts a validated batch and guarantees at-most-once durable persistence
// per client-generated id, under concurrent and repeated delivery.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/logging"
	"github.com/vyapaars/syncledger/internal/server/models"
	"github.com/vyapaars/syncledger/internal/server/repositories/repomanager"
)

// LedgerService reconciles submitted batches against the action ledger.
type LedgerService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger

	// now is a seam for tests.
	now func() time.Time
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *LedgerService {
	return &LedgerService{
		db:     db,
		repos:  m,
		logger: logger.With("module", "ledger"),
		now:    time.Now,
	}
}

// SyncBatch validates the batch and reconciles each action in submission
// order, returning an outcome for exactly the set of submitted client ids.
//
// Each action is one independent unit of work: an insert either fully commits
// or leaves no trace, and a duplicate never aborts its siblings. The lookup
// before the insert is only a fast path; the authoritative at-most-once
// guarantee is the store's uniqueness constraint on client_id, surfaced by
// InsertIfAbsent. Losing that race is an expected outcome (duplicate), not an
// error.
//
// A *ValidationError rejects the whole batch before any store access. Every
// other error is a transient store failure wrapped in common.ErrorUnavailable;
// the client may safely retry the entire batch because the write path is
// idempotent.
func (s *LedgerService) SyncBatch(ctx context.Context, caller *models.Identity, batch *Batch) (map[string]ActionOutcome, error) {
	if verr := ValidateBatch(batch); verr != nil {
		return nil, verr
	}

	s.logger.Info(ctx, "batch accepted for reconciliation",
		"identity", caller.Phone, "device_id", batch.DeviceID,
		"app_version", batch.AppVersion, "actions", len(batch.Actions))

	repo := s.repos.Actions(s.db)
	outcomes := make(map[string]ActionOutcome, len(batch.Actions))

	for _, action := range batch.Actions {
		existing, err := repo.FindByClientID(ctx, action.ClientID)
		switch {
		case err == nil:
			// Already persisted, possibly by an earlier retry of this very
			// batch or by another device.
			outcomes[action.ClientID] = s.duplicateOutcome(ctx, caller, existing)
			continue
		case !errors.Is(err, common.ErrorNotFound):
			return nil, fmt.Errorf("%w: lookup %s: %w", common.ErrorUnavailable, action.ClientID, err)
		}

		record := &models.ActionRecord{
			ID:              uuid.NewString(),
			ClientID:        action.ClientID,
			IdentityID:      caller.ID,
			Type:            action.Type,
			Payload:         action.Payload,
			ClientTimestamp: action.Timestamp,
			ReceivedAt:      s.now().UTC(),
		}

		err = repo.InsertIfAbsent(ctx, record)
		switch {
		case err == nil:
			outcomes[action.ClientID] = ActionOutcome{Status: OutcomeProcessed, ServerID: record.ID}
		case errors.Is(err, common.ErrorAlreadyExists):
			// A concurrent writer won between our lookup and our insert. The
			// constraint, not the lookup, closes this race: fetch the winner
			// and report its server id.
			winner, ferr := repo.FindByClientID(ctx, action.ClientID)
			if ferr != nil {
				return nil, fmt.Errorf("%w: refetch %s: %w", common.ErrorUnavailable, action.ClientID, ferr)
			}
			outcomes[action.ClientID] = s.duplicateOutcome(ctx, caller, winner)
		default:
			return nil, fmt.Errorf("%w: insert %s: %w", common.ErrorUnavailable, action.ClientID, err)
		}
	}

	return outcomes, nil
}

// duplicateOutcome reports an already-persisted record. Ownership is never
// reassigned: a resubmission under a different identity is answered with the
// original owner's server id and logged as suspicious.
func (s *LedgerService) duplicateOutcome(ctx context.Context, caller *models.Identity, existing *models.ActionRecord) ActionOutcome {
	if existing.IdentityID != caller.ID {
		s.logger.Warn(ctx, "client_id resubmitted by a different identity",
			"client_id", existing.ClientID,
			"owner_identity", existing.IdentityID,
			"caller_identity", caller.ID)
	}
	return ActionOutcome{Status: OutcomeDuplicate, ServerID: existing.ID}
}
