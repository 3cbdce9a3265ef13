package models

import "time"

// RefreshToken is a server-stored opaque token that lets an offline-tolerant
// client obtain a new access token without re-entering credentials.
type RefreshToken struct {
	IdentityID string
	Token      string
	Expires    time.Time
	CreatedAt  time.Time
}
