package auth

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStateStore(client, time.Minute), mr
}

func TestStateStoreSingleUse(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ok, err := store.Consume(ctx, state)
	if err != nil || !ok {
		t.Fatalf("first consume: ok=%v err=%v", ok, err)
	}
	ok, err = store.Consume(ctx, state)
	if err != nil || ok {
		t.Fatalf("second consume must miss: ok=%v err=%v", ok, err)
	}
}

func TestStateStoreRejectsUnknownState(t *testing.T) {
	store, _ := newTestStateStore(t)
	ctx := context.Background()

	if ok, err := store.Consume(ctx, "forged"); err != nil || ok {
		t.Fatalf("forged state accepted: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Consume(ctx, ""); err != nil || ok {
		t.Fatalf("empty state accepted: ok=%v err=%v", ok, err)
	}
}

func TestStateStoreExpires(t *testing.T) {
	store, mr := newTestStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if ok, err := store.Consume(ctx, state); err != nil || ok {
		t.Fatalf("expired state accepted: ok=%v err=%v", ok, err)
	}
}
