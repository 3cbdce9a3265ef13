package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyapaars/syncledger/internal/common"
	"github.com/vyapaars/syncledger/internal/dbx"
	"github.com/vyapaars/syncledger/internal/logging"
	"github.com/vyapaars/syncledger/internal/server/models"
	"github.com/vyapaars/syncledger/internal/server/repositories/actions"
	"github.com/vyapaars/syncledger/internal/server/repositories/identities"
	"github.com/vyapaars/syncledger/internal/server/repositories/refreshtokens"
	"github.com/vyapaars/syncledger/internal/server/repositories/repomanager"
	"github.com/vyapaars/syncledger/internal/server/testdb"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func newLedgerService(t *testing.T) (*LedgerService, *sql.DB) {
	t.Helper()
	db := testdb.New(t)
	return NewLedgerService(db, repomanager.NewPostgresRepositoryManager(), discardLogger()), db
}

func seedIdentity(t *testing.T, db *sql.DB, phone string) *models.Identity {
	t.Helper()
	identity := &models.Identity{
		ID:           uuid.NewString(),
		Phone:        phone,
		FullName:     "Test Merchant",
		PasswordHash: "irrelevant",
		Verified:     true,
		CreatedAt:    time.Now().UTC(),
	}
	m := repomanager.NewPostgresRepositoryManager()
	_, err := m.Identities(db).Create(context.Background(), identity)
	require.NoError(t, err)
	return identity
}

func testBatch(n int) *Batch {
	b := &Batch{DeviceID: "device-1", AppVersion: "2.3.1"}
	for i := 0; i < n; i++ {
		b.Actions = append(b.Actions, ClientAction{
			ClientID:  uuid.NewString(),
			Type:      "CREATE_INVOICE",
			Payload:   json.RawMessage(`{"amount":100}`),
			Timestamp: time.Now().UTC(),
		})
	}
	return b
}

func countActions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM actions`).Scan(&n))
	return n
}

func TestSyncBatch_AllNew(t *testing.T) {
	svc, db := newLedgerService(t)
	caller := seedIdentity(t, db, "+911111111111")

	batch := testBatch(3)
	outcomes, err := svc.SyncBatch(context.Background(), caller, batch)
	require.NoError(t, err)

	// One outcome per submitted client id, every one processed.
	require.Len(t, outcomes, 3)
	for _, a := range batch.Actions {
		outcome, ok := outcomes[a.ClientID]
		require.True(t, ok, "missing outcome for %s", a.ClientID)
		assert.Equal(t, OutcomeProcessed, outcome.Status)
		assert.NotEmpty(t, outcome.ServerID)
	}
	assert.Equal(t, 3, countActions(t, db))
}

func TestSyncBatch_RetryIsIdempotent(t *testing.T) {
	svc, db := newLedgerService(t)
	caller := seedIdentity(t, db, "+911111111111")

	batch := testBatch(5)
	first, err := svc.SyncBatch(context.Background(), caller, batch)
	require.NoError(t, err)

	// The whole batch delivered again, e.g. after a lost response.
	second, err := svc.SyncBatch(context.Background(), caller, batch)
	require.NoError(t, err)

	require.Len(t, second, 5)
	for clientID, outcome := range second {
		assert.Equal(t, OutcomeDuplicate, outcome.Status)
		// The duplicate reports the originally assigned server id.
		assert.Equal(t, first[clientID].ServerID, outcome.ServerID)
	}
	assert.Equal(t, 5, countActions(t, db))
}

func TestSyncBatch_PartialOverlap(t *testing.T) {
	svc, db := newLedgerService(t)
	caller := seedIdentity(t, db, "+911111111111")
	ctx := context.Background()

	first := testBatch(2)
	firstOutcomes, err := svc.SyncBatch(ctx, caller, first)
	require.NoError(t, err)

	// Second batch resubmits one old action alongside two new ones. The
	// duplicate must not disturb its siblings.
	second := testBatch(2)
	second.Actions = append(second.Actions, first.Actions[0])

	outcomes, err := svc.SyncBatch(ctx, caller, second)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	dup := outcomes[first.Actions[0].ClientID]
	assert.Equal(t, OutcomeDuplicate, dup.Status)
	assert.Equal(t, firstOutcomes[first.Actions[0].ClientID].ServerID, dup.ServerID)

	for _, a := range second.Actions[:2] {
		assert.Equal(t, OutcomeProcessed, outcomes[a.ClientID].Status)
	}
	assert.Equal(t, 4, countActions(t, db))
}

func TestSyncBatch_ValidationRejectsWholeBatch(t *testing.T) {
	svc, db := newLedgerService(t)
	caller := seedIdentity(t, db, "+911111111111")

	batch := testBatch(1)
	batch.DeviceID = ""
	batch.Actions = append(batch.Actions, ClientAction{
		ClientID:  "not-a-uuid",
		Type:      "",
		Payload:   json.RawMessage(`null`),
		Timestamp: time.Time{},
	})

	_, err := svc.SyncBatch(context.Background(), caller, batch)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got := map[string]bool{}
	for _, f := range verr.Fields {
		got[f.Field] = true
	}
	assert.True(t, got["device_id"])
	assert.True(t, got["client_id"])
	assert.True(t, got["type"])
	assert.True(t, got["payload"])
	assert.True(t, got["timestamp"])

	// Nothing persisted, including the valid first action.
	assert.Equal(t, 0, countActions(t, db))
}

func TestSyncBatch_CrossIdentityResubmitKeepsOwner(t *testing.T) {
	svc, db := newLedgerService(t)
	owner := seedIdentity(t, db, "+911111111111")
	intruder := seedIdentity(t, db, "+912222222222")
	ctx := context.Background()

	batch := testBatch(1)
	ownerOutcomes, err := svc.SyncBatch(ctx, owner, batch)
	require.NoError(t, err)

	outcomes, err := svc.SyncBatch(ctx, intruder, batch)
	require.NoError(t, err)

	clientID := batch.Actions[0].ClientID
	assert.Equal(t, OutcomeDuplicate, outcomes[clientID].Status)
	assert.Equal(t, ownerOutcomes[clientID].ServerID, outcomes[clientID].ServerID)

	// The stored row still belongs to the original owner.
	var identityID string
	require.NoError(t, db.QueryRow(
		`SELECT identity_id FROM actions WHERE client_id = $1`, clientID).Scan(&identityID))
	assert.Equal(t, owner.ID, identityID)
}

func TestSyncBatch_ConcurrentDelivery(t *testing.T) {
	svc, db := newLedgerService(t)
	caller := seedIdentity(t, db, "+911111111111")

	// The same single-action batch delivered by two devices at once. The
	// uniqueness constraint must let exactly one insert through.
	batch := testBatch(1)
	clientID := batch.Actions[0].ClientID

	var wg sync.WaitGroup
	results := make([]map[string]ActionOutcome, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SyncBatch(context.Background(), caller, batch)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Exactly one row made it to the ledger.
	assert.Equal(t, 1, countActions(t, db))

	// Both submissions agree on the server id, and at most one of them
	// observed the processed outcome.
	a, b := results[0][clientID], results[1][clientID]
	assert.Equal(t, a.ServerID, b.ServerID)
	processed := 0
	for _, o := range []ActionOutcome{a, b} {
		if o.Status == OutcomeProcessed {
			processed++
		}
	}
	assert.Equal(t, 1, processed)
}

// racingActionsRepo forces the lookup/insert race deterministically: the fast
// path sees nothing, the insert loses to a phantom concurrent writer, and the
// re-fetch finds the winner.
type racingActionsRepo struct {
	winner *models.ActionRecord
	lookup int
}

func (r *racingActionsRepo) InsertIfAbsent(ctx context.Context, record *models.ActionRecord) error {
	return common.ErrorAlreadyExists
}

func (r *racingActionsRepo) FindByClientID(ctx context.Context, clientID string) (*models.ActionRecord, error) {
	r.lookup++
	if r.lookup == 1 {
		return nil, common.ErrorNotFound
	}
	return r.winner, nil
}

func (r *racingActionsRepo) SelectSince(ctx context.Context, since time.Time) ([]*models.ActionRecord, error) {
	return nil, nil
}

// stubRepoManager vends a fixed actions repository.
type stubRepoManager struct {
	actionsRepo actions.Repository
}

func (m *stubRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *stubRepoManager) Identities(db dbx.DBTX) identities.Repository        { return nil }
func (m *stubRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository  { return nil }
func (m *stubRepoManager) Actions(db dbx.DBTX) actions.Repository              { return m.actionsRepo }

func TestSyncBatch_LostRaceIsReportedAsDuplicate(t *testing.T) {
	batch := testBatch(1)
	winner := &models.ActionRecord{
		ID:         "winner-server-id",
		ClientID:   batch.Actions[0].ClientID,
		IdentityID: "caller-id",
	}
	svc := NewLedgerService(nil, &stubRepoManager{actionsRepo: &racingActionsRepo{winner: winner}}, discardLogger())

	caller := &models.Identity{ID: "caller-id", Phone: "+911111111111"}
	outcomes, err := svc.SyncBatch(context.Background(), caller, batch)
	require.NoError(t, err)

	outcome := outcomes[batch.Actions[0].ClientID]
	assert.Equal(t, OutcomeDuplicate, outcome.Status)
	assert.Equal(t, "winner-server-id", outcome.ServerID)
}

// failingActionsRepo simulates the store being down.
type failingActionsRepo struct{}

func (failingActionsRepo) InsertIfAbsent(ctx context.Context, record *models.ActionRecord) error {
	return errors.New("connection refused")
}

func (failingActionsRepo) FindByClientID(ctx context.Context, clientID string) (*models.ActionRecord, error) {
	return nil, errors.New("connection refused")
}

func (failingActionsRepo) SelectSince(ctx context.Context, since time.Time) ([]*models.ActionRecord, error) {
	return nil, errors.New("connection refused")
}

func TestSyncBatch_StoreFailureIsUnavailable(t *testing.T) {
	svc := NewLedgerService(nil, &stubRepoManager{actionsRepo: failingActionsRepo{}}, discardLogger())

	caller := &models.Identity{ID: "caller-id", Phone: "+911111111111"}
	_, err := svc.SyncBatch(context.Background(), caller, testBatch(1))
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

func TestValidateBatch_OK(t *testing.T) {
	assert.Nil(t, ValidateBatch(testBatch(2)))
}

func TestValidationError_Message(t *testing.T) {
	verr := &ValidationError{Fields: []FieldError{
		{Index: -1, Field: "device_id", Reason: "must not be empty"},
		{Index: 1, Field: "client_id", Reason: "must be a valid UUID"},
	}}
	msg := verr.Error()
	assert.Contains(t, msg, "device_id")
	assert.Contains(t, msg, "client_actions[1].client_id")
}
