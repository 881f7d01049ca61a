package apikey

import (
	"errors"
	"time"
)

var (
	// ErrKeyNotFound indicates no stored key matches the presented secret.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyExpired indicates the key matched but is past its expiry.
	ErrKeyExpired = errors.New("api key expired")

	// ErrPermissionDenied indicates the key lacks the required permission.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrKeyNotExpired rejects rollover of a key that is still live.
	ErrKeyNotExpired = errors.New("api key is not expired yet")

	// ErrTooManyKeys enforces the active-key ceiling per owner.
	ErrTooManyKeys = errors.New("too many active api keys")

	// ErrInvalidExpiry indicates an unparsable expiry option.
	ErrInvalidExpiry = errors.New("invalid expiry option")

	// ErrInvalidPermission indicates an unknown or empty permission set.
	ErrInvalidPermission = errors.New("invalid permission")
)

// Permissions an API key may carry. JWT principals implicitly hold all three.
const (
	PermissionDeposit  = "deposit"
	PermissionTransfer = "transfer"
	PermissionRead     = "read"
)

// APIKey is the stored form of a key. The raw secret is never stored: Prefix
// narrows the candidate set and SecretHash is a bcrypt hash of the full raw
// key.
type APIKey struct {
	ID          string
	OwnerID     string
	Name        string
	Prefix      string
	SecretHash  []byte
	Permissions []string
	ExpiresAt   time.Time
	RolledFrom  string
	CreatedAt   time.Time
}

// Expired reports whether the key is past its expiry at the given instant.
func (k APIKey) Expired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// Has reports whether the key carries the permission.
func (k APIKey) Has(permission string) bool {
	for _, p := range k.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func normalizePermissions(perms []string) ([]string, error) {
	if len(perms) == 0 {
		return nil, ErrInvalidPermission
	}
	seen := make(map[string]bool, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		switch p {
		case PermissionDeposit, PermissionTransfer, PermissionRead:
		default:
			return nil, ErrInvalidPermission
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
