package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	rawKeyPrefix = "sk_live_"
	prefixLength = 16
	secretBytes  = 32

	// DefaultMaxActiveKeys caps live keys per owner unless configured
	// otherwise.
	DefaultMaxActiveKeys = 5
)

// Service issues and verifies API keys. The raw secret leaves the service
// exactly once, on Create or Rollover.
type Service struct {
	repo      Repository
	maxActive int
}

// NewService builds a key service. maxActive <= 0 falls back to
// DefaultMaxActiveKeys.
func NewService(repo Repository, maxActive int) *Service {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveKeys
	}
	return &Service{repo: repo, maxActive: maxActive}
}

// Create mints a key for the owner. Returns the stored key and the raw
// secret, which is not recoverable afterwards.
func (s *Service) Create(ctx context.Context, ownerID, name string, permissions []string, expiry string) (APIKey, string, error) {
	perms, err := normalizePermissions(permissions)
	if err != nil {
		return APIKey{}, "", err
	}
	ttl, err := ParseExpiry(expiry)
	if err != nil {
		return APIKey{}, "", err
	}

	now := time.Now().UTC()
	active, err := s.repo.CountActive(ctx, ownerID, now)
	if err != nil {
		return APIKey{}, "", err
	}
	if active >= s.maxActive {
		return APIKey{}, "", ErrTooManyKeys
	}

	return s.mint(ctx, ownerID, name, perms, ttl, "", now)
}

// Authorize resolves a raw key to its owner, enforcing expiry and the
// required permission. An empty permission checks presence only.
func (s *Service) Authorize(ctx context.Context, rawKey, permission string) (string, error) {
	rawKey = strings.TrimSpace(rawKey)
	if len(rawKey) < prefixLength || !strings.HasPrefix(rawKey, rawKeyPrefix) {
		return "", ErrKeyNotFound
	}

	candidates, err := s.repo.FindByPrefix(ctx, rawKey[:prefixLength])
	if err != nil {
		return "", err
	}
	for _, key := range candidates {
		if bcrypt.CompareHashAndPassword(key.SecretHash, []byte(rawKey)) != nil {
			continue
		}
		if key.Expired(time.Now().UTC()) {
			return "", ErrKeyExpired
		}
		if permission != "" && !key.Has(permission) {
			return "", ErrPermissionDenied
		}
		return key.OwnerID, nil
	}
	return "", ErrKeyNotFound
}

// Rollover replaces an expired key with a fresh secret carrying the same name
// and permissions. Live keys cannot be rolled.
func (s *Service) Rollover(ctx context.Context, ownerID, keyID, expiry string) (APIKey, string, error) {
	old, err := s.repo.FindByID(ctx, ownerID, keyID)
	if err != nil {
		return APIKey{}, "", err
	}
	now := time.Now().UTC()
	if !old.Expired(now) {
		return APIKey{}, "", ErrKeyNotExpired
	}
	ttl, err := ParseExpiry(expiry)
	if err != nil {
		return APIKey{}, "", err
	}
	active, err := s.repo.CountActive(ctx, ownerID, now)
	if err != nil {
		return APIKey{}, "", err
	}
	if active >= s.maxActive {
		return APIKey{}, "", ErrTooManyKeys
	}

	return s.mint(ctx, ownerID, old.Name, old.Permissions, ttl, old.ID, now)
}

// List returns the owner's keys, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]APIKey, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) mint(ctx context.Context, ownerID, name string, perms []string, ttl time.Duration, rolledFrom string, now time.Time) (APIKey, string, error) {
	raw, prefix, err := generateKey()
	if err != nil {
		return APIKey{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return APIKey{}, "", err
	}

	key := APIKey{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Prefix:      prefix,
		SecretHash:  hash,
		Permissions: perms,
		ExpiresAt:   now.Add(ttl),
		RolledFrom:  rolledFrom,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return APIKey{}, "", err
	}
	return key, raw, nil
}

func generateKey() (raw, prefix string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = rawKeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return raw, raw[:prefixLength], nil
}

// Preview is the masked form shown in listings.
func Preview(key APIKey) string {
	return key.Prefix + "..."
}
