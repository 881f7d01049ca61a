package apikey

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu   sync.RWMutex
	keys map[string]APIKey
}

// NewMemoryRepository builds an in-memory key store for dev mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{keys: make(map[string]APIKey)}
}

func (r *memoryRepository) Create(_ context.Context, key APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key.ID] = key
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, ownerID, id string) (APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return APIKey{}, ErrKeyNotFound
	}
	return key, nil
}

func (r *memoryRepository) FindByPrefix(_ context.Context, prefix string) ([]APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []APIKey
	for _, key := range r.keys {
		if key.Prefix == prefix {
			out = append(out, key)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string) ([]APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []APIKey
	for _, key := range r.keys {
		if key.OwnerID == ownerID {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) CountActive(_ context.Context, ownerID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, key := range r.keys {
		if key.OwnerID == ownerID && !key.Expired(now) {
			count++
		}
	}
	return count, nil
}
