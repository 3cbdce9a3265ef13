// Package export serializes the action ledger to JSONL and ships it to a
// destination such as S3-compatible object storage. The ledger is append-only,
// so repeated exports of the same window are byte-stable except for newly
// received records.
package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vyapaars/syncledger/internal/logging"
	"github.com/vyapaars/syncledger/internal/server/repositories/repomanager"
)

// Destination receives one serialized ledger snapshot.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// Exporter reads the ledger and writes it as JSONL, one action per line.
type Exporter struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

// NewExporter constructs an Exporter.
func NewExporter(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *Exporter {
	return &Exporter{db: db, repos: m, logger: l.With("module", "export")}
}

// exportRecord is the JSONL line format. Payload is embedded verbatim.
type exportRecord struct {
	ServerID        string          `json:"server_id"`
	ClientID        string          `json:"client_id"`
	IdentityID      string          `json:"identity_id"`
	Type            string          `json:"type"`
	Payload         json.RawMessage `json:"payload"`
	ClientTimestamp time.Time       `json:"client_timestamp"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// Export serializes every action received at or after since and writes the
// result to dest. Returns the number of exported records.
func (e *Exporter) Export(ctx context.Context, since time.Time, dest Destination) (int, error) {
	records, err := e.repos.Actions(e.db).SelectSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("select actions: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		line := exportRecord{
			ServerID:        r.ID,
			ClientID:        r.ClientID,
			IdentityID:      r.IdentityID,
			Type:            r.Type,
			Payload:         r.Payload,
			ClientTimestamp: r.ClientTimestamp,
			ReceivedAt:      r.ReceivedAt,
		}
		if err := enc.Encode(line); err != nil {
			return 0, fmt.Errorf("encode action %s: %w", r.ClientID, err)
		}
	}

	if err := dest.Write(ctx, buf.Bytes()); err != nil {
		return 0, err
	}

	e.logger.Info(ctx, "ledger exported", "records", len(records), "since", since)
	return len(records), nil
}
