// Package models defines server-side data models persisted in the database.
package models

import "time"

// Identity is an authenticated principal (a merchant account). Phone is the
// identity key: globally unique and carried as the token subject.
type Identity struct {
	ID           string
	Phone        string
	FullName     string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}
