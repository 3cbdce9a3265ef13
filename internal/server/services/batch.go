package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Batch is the transient envelope for one sync submission. It is never
// persisted as an entity; only the actions it carries are.
type Batch struct {
	DeviceID   string
	AppVersion string
	Actions    []ClientAction
}

// ClientAction is one candidate action as submitted by the client.
type ClientAction struct {
	ClientID  string
	Type      string
	Payload   json.RawMessage
	Timestamp time.Time
}

// Per-action statuses reported back to the client.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
)

// ActionOutcome is the reconciliation result for one submitted client id.
type ActionOutcome struct {
	Status   string `json:"status"`
	ServerID string `json:"server_id"`
}

// FieldError names one offending entry in a rejected batch. Index is the
// position within client_actions, or -1 for envelope-level fields.
type FieldError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError rejects a structurally invalid batch as a whole. No partial
// acceptance: the caller fixes the named entries and resubmits everything.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("batch validation failed")
	for _, f := range e.Fields {
		if f.Index < 0 {
			fmt.Fprintf(&b, "; %s: %s", f.Field, f.Reason)
		} else {
			fmt.Fprintf(&b, "; client_actions[%d].%s: %s", f.Index, f.Field, f.Reason)
		}
	}
	return b.String()
}

var jsonNull = []byte("null")

// ValidateBatch structurally checks the envelope and every candidate action.
// It is a pure check: no store access, no side effects. Any violation fails
// the entire batch.
func ValidateBatch(batch *Batch) *ValidationError {
	var fields []FieldError

	if batch.DeviceID == "" {
		fields = append(fields, FieldError{Index: -1, Field: "device_id", Reason: "must not be empty"})
	}
	if batch.AppVersion == "" {
		fields = append(fields, FieldError{Index: -1, Field: "app_version", Reason: "must not be empty"})
	}

	for i, a := range batch.Actions {
		if _, err := uuid.Parse(a.ClientID); err != nil {
			fields = append(fields, FieldError{Index: i, Field: "client_id", Reason: "must be a valid UUID"})
		}
		if a.Type == "" {
			fields = append(fields, FieldError{Index: i, Field: "type", Reason: "must not be empty"})
		}
		if len(a.Payload) == 0 || bytes.Equal(bytes.TrimSpace(a.Payload), jsonNull) {
			fields = append(fields, FieldError{Index: i, Field: "payload", Reason: "must be present"})
		}
		if a.Timestamp.IsZero() {
			fields = append(fields, FieldError{Index: i, Field: "timestamp", Reason: "must be set"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
