package models

import (
	"encoding/json"
	"time"
)

// ActionRecord is the unit of the ledger: one client-generated business event,
// persisted at most once and never mutated afterwards.
type ActionRecord struct {
	// ID is the server-assigned identifier, set at persist time.
	ID string
	// ClientID is assigned by the originating client before transmission and
	// is the sole idempotency key. Unique across the whole ledger, for all time.
	ClientID string
	// IdentityID is the identity that authenticated the batch containing this
	// action. Bound exactly once; retransmission under a different identity
	// never reassigns it.
	IdentityID string
	// Type names the kind of business event. Opaque to the ledger.
	Type string
	// Payload is an opaque structured blob, stored verbatim.
	Payload json.RawMessage
	// ClientTimestamp is the time claimed by the client. Untrusted.
	ClientTimestamp time.Time
	// ReceivedAt is when the ledger first durably accepted this record.
	ReceivedAt time.Time
}
