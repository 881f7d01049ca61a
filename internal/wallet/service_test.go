package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pez-pay/pez_pay/internal/ledger"
)

func TestServiceCreateIsIdempotentPerOwner(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store)
	ctx := context.Background()

	ownerID := uuid.NewString()
	created, err := svc.Create(ctx, ownerID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if len(created.Number) != walletNumberLength {
		t.Fatalf("expected %d digit number, got %q", walletNumberLength, created.Number)
	}
	for _, r := range created.Number {
		if r < '0' || r > '9' {
			t.Fatalf("wallet number contains non-digit: %q", created.Number)
		}
	}
	if created.Currency != DefaultCurrency || created.Status != ledger.WalletActive {
		t.Fatalf("unexpected wallet defaults: %+v", created)
	}

	again, err := svc.Create(ctx, ownerID)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("second create made a new wallet: %s vs %s", again.ID, created.ID)
	}
}

func TestServiceBalanceAndTransactions(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store)
	ctx := context.Background()

	ownerID := uuid.NewString()
	w, err := svc.Create(ctx, ownerID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ledger.SeedBalance(store, w.ID, 2_500)

	balance, err := svc.Balance(ctx, ownerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 || balance.Number != w.Number {
		t.Fatalf("unexpected balance view: %+v", balance)
	}

	if _, err := store.Credit(ctx, w.ID, 700, ledger.KindDeposit, "DEP_TESTSERVICE"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	txs, err := svc.Transactions(ctx, ownerID, 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(txs))
	}
	if txs[0].Reference != "DEP_TESTSERVICE" {
		t.Fatalf("expected newest first, got %s", txs[0].Reference)
	}
}

func TestServiceBalanceUnknownOwner(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	if _, err := svc.Balance(context.Background(), uuid.NewString()); err != ledger.ErrWalletNotFound {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}
