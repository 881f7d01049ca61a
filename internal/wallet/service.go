package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pez-pay/pez_pay/internal/ledger"
)

const (
	walletNumberLength = 10
	createAttempts     = 5
)

// Service provisions wallets and serves owner-scoped read views. All money
// movement goes through the ledger store directly.
type Service struct {
	store ledger.Store
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Create provisions a wallet for the owner. It is idempotent: a second call
// for the same owner returns the existing wallet.
func (s *Service) Create(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	if existing, err := s.store.WalletByOwner(ctx, ownerID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ledger.ErrWalletNotFound) {
		return ledger.Wallet{}, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := newWalletNumber()
		if err != nil {
			return ledger.Wallet{}, err
		}
		now := time.Now().UTC()
		w := ledger.Wallet{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Number:    number,
			Currency:  DefaultCurrency,
			Status:    ledger.WalletActive,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.store.CreateWallet(ctx, w)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, ledger.ErrWalletExists) {
			return ledger.Wallet{}, err
		}
		// Either a number collision or the owner raced a second create.
		if existing, lookupErr := s.store.WalletByOwner(ctx, ownerID); lookupErr == nil {
			return existing, nil
		}
	}
	return ledger.Wallet{}, ledger.ErrWalletExists
}

// Balance returns the owner's maintained balance and wallet number.
func (s *Service) Balance(ctx context.Context, ownerID string) (Balance, error) {
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.store.Balance(ctx, w.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		WalletID: w.ID,
		Number:   w.Number,
		Amount:   amount,
		Currency: w.Currency,
		AsOf:     time.Now().UTC(),
	}, nil
}

// Transactions lists the owner's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, ownerID string, limit int) ([]ledger.Transaction, error) {
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.store.Transactions(ctx, w.ID, limit)
}

func newWalletNumber() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, walletNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = digits[int(b)%len(digits)]
	}
	return string(buf), nil
}
