package transfer

import (
	"context"
	"time"

	"github.com/pez-pay/pez_pay/internal/ledger"
	"github.com/pez-pay/pez_pay/internal/notification"
)

// referencePrefix marks transfer postings in the ledger.
const referencePrefix = "TRF_"

// Service posts P2P transfers between wallets.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
}

// NewService constructs a transfer service. The notifier may be nil.
func NewService(store ledger.Store, notifier notification.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Input captures a transfer from the caller's wallet to a wallet number.
type Input struct {
	OwnerID        string
	ToWalletNumber string
	Amount         int64
}

// Result describes the two ledger legs of a completed transfer.
type Result struct {
	Reference     string
	Debit         ledger.Transaction
	Credit        ledger.Transaction
	SenderBalance int64
	CompletedAt   time.Time
}

// Transfer resolves both wallets, posts the balanced pair, and notifies
// the recipient. The sender is addressed by owner, the recipient by
// wallet number.
func (s *Service) Transfer(ctx context.Context, input Input) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, ledger.ErrInvalidAmount
	}

	from, err := s.store.WalletByOwner(ctx, input.OwnerID)
	if err != nil {
		return Result{}, err
	}
	to, err := s.store.WalletByNumber(ctx, input.ToWalletNumber)
	if err != nil {
		return Result{}, err
	}

	reference, err := ledger.NewReference(referencePrefix)
	if err != nil {
		return Result{}, err
	}

	debit, credit, err := s.store.Transfer(ctx, from.ID, to.ID, input.Amount, reference)
	if err != nil {
		return Result{}, err
	}

	balance, err := s.store.Balance(ctx, from.ID)
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notification.TransferReceived(to.OwnerID, input.Amount, from.Number)) // nolint:errcheck
	}

	return Result{
		Reference:     reference,
		Debit:         debit,
		Credit:        credit,
		SenderBalance: balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}
