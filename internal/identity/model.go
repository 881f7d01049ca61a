package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the email is already registered. FindOrCreate
	// resolves the race by re-reading.
	ErrUserExists = errors.New("user already exists")
)

// User represents a registered wallet owner. Accounts are provisioned on
// first login; there is no separate signup step.
type User struct {
	ID        string
	Email     string
	GoogleID  string
	Name      string
	CreatedAt time.Time
}
