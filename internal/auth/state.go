package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth:state:"

// StateStore keeps single-use OAuth state nonces in Redis so the callback
// can reject forged or replayed redirects.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore builds a state store. ttl bounds how long a consent redirect
// may stay pending.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

// Issue stores a fresh nonce and returns it.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, statePrefix+state, "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// Consume removes the nonce, reporting whether it existed. A nonce can be
// consumed at most once.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.client.GetDel(ctx, statePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
