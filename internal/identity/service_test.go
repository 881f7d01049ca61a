package identity

import (
	"context"
	"testing"

	"github.com/pez-pay/pez_pay/internal/ledger"
	"github.com/pez-pay/pez_pay/internal/wallet"
)

func newTestService() (*Service, ledger.Store) {
	store := ledger.NewInMemory()
	return NewService(NewMemoryRepository(), wallet.NewService(store)), store
}

func TestFindOrCreateProvisionsUserAndWallet(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	user, err := svc.FindOrCreate(ctx, "Ada@Example.com", "google-123", "Ada")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	w, err := store.WalletByOwner(ctx, user.ID)
	if err != nil {
		t.Fatalf("wallet not provisioned: %v", err)
	}
	if w.Status != ledger.WalletActive {
		t.Fatalf("unexpected wallet status %q", w.Status)
	}
}

func TestFindOrCreateReturnsExistingUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, "ada@example.com", "", "Ada")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.FindOrCreate(ctx, "ada@example.com", "google-123", "Ada L.")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second login created a new user: %s vs %s", second.ID, first.ID)
	}

	w, err := store.WalletByOwner(ctx, first.ID)
	if err != nil {
		t.Fatalf("wallet lookup: %v", err)
	}
	if w.OwnerID != first.ID {
		t.Fatalf("wallet bound to wrong owner: %+v", w)
	}
}

func TestFindOrCreateRejectsEmptyEmail(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.FindOrCreate(context.Background(), "   ", "", ""); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestFindByID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.FindOrCreate(ctx, "ada@example.com", "", "Ada")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	found, err := svc.Find(ctx, user.ID)
	if err != nil || found.Email != user.Email {
		t.Fatalf("find by id: %v %+v", err, found)
	}
	if _, err := svc.Find(ctx, "missing"); err != ErrUserNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
