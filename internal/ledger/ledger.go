package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a debit exceeds the wallet's available
	// balance. The check and the decrement happen inside one atomic unit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive amount was supplied.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer indicates source and destination wallets are the same.
	ErrSelfTransfer = errors.New("cannot transfer to the same wallet")

	// ErrWalletNotFound indicates the wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists indicates a wallet with the same owner or number is
	// already stored. Number collisions are retried by the caller.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrWalletInactive indicates the wallet has been deactivated and refuses
	// further postings.
	ErrWalletInactive = errors.New("wallet is deactivated")

	// ErrCurrencyMismatch indicates the two wallets of a transfer hold
	// different currencies.
	ErrCurrencyMismatch = errors.New("wallet currencies do not match")

	// ErrDuplicateReference indicates the reference has already been recorded.
	// Idempotent callers receive the original transaction alongside it.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrAmountMismatch signals a webhook amount that differs from the intent
	// amount. The intent stays initiated for manual review.
	ErrAmountMismatch = errors.New("deposit amount mismatch")

	// ErrIntentNotFound indicates no confirmable deposit intent exists for the
	// reference. Failed intents are not confirmable.
	ErrIntentNotFound = errors.New("deposit intent not found")

	// ErrStorageUnavailable wraps transient store failures. It is the only
	// error callers may retry automatically.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DefaultTransactionLimit caps Transactions listings when the caller passes
// a non-positive limit.
const DefaultTransactionLimit = 100

// Kind labels the direction and origin of a transaction row.
type Kind string

const (
	KindDeposit        Kind = "deposit"
	KindTransferDebit  Kind = "transfer_debit"
	KindTransferCredit Kind = "transfer_credit"
)

// Transaction statuses. Rows written by the store are completed; the pending
// lifecycle of a deposit lives on its intent.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Deposit intent statuses. An intent transitions initiated→confirmed exactly
// once, or initiated→failed; confirmed never transitions back.
const (
	IntentInitiated = "initiated"
	IntentConfirmed = "confirmed"
	IntentFailed    = "failed"
)

// Wallet statuses. Wallets are never deleted, only deactivated.
const (
	WalletActive      = "active"
	WalletDeactivated = "deactivated"
)

// Wallet is a stored-value account. Balance is held in minor currency units
// and maintained incrementally with every posting; Version increments under
// the same atomic unit as any balance change.
type Wallet struct {
	ID        string
	OwnerID   string
	Number    string
	Balance   int64
	Currency  string
	Status    string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry. Amount is signed: debits are
// negative, credits positive, so the signed sum of completed rows for a
// wallet equals its balance.
type Transaction struct {
	ID                   string
	WalletID             string
	Kind                 Kind
	Amount               int64
	CounterpartyWalletID string
	Reference            string
	Status               string
	CreatedAt            time.Time
}

// DepositIntent records an expected incoming payment awaiting provider
// confirmation. Reference is unique across intents, which makes webhook
// replay structurally idempotent.
type DepositIntent struct {
	ID            string
	WalletID      string
	Reference     string
	Amount        int64
	Status        string
	TransactionID string
	CreatedAt     time.Time
	ConfirmedAt   time.Time
}

// AuditReport compares the maintained balance against a recomputation from
// the transaction log.
type AuditReport struct {
	WalletID   string
	Balance    int64
	Recomputed int64
	Drift      bool
}

// Store is the durable ledger contract implemented by the Postgres and
// in-memory backends. Every mutating operation is a single atomic unit:
// balance update, version bump and transaction insert commit together or not
// at all.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	Wallet(ctx context.Context, id string) (Wallet, error)
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)
	WalletByNumber(ctx context.Context, number string) (Wallet, error)
	DeactivateWallet(ctx context.Context, id string) error

	// Credit and Debit post a single-wallet movement. Amount must be
	// positive; kind and the stored sign encode direction.
	Credit(ctx context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error)
	Debit(ctx context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error)

	// Balance reads the maintained balance. It never resums history.
	Balance(ctx context.Context, walletID string) (int64, error)

	// Transfer applies a debit on from and a credit on to as one atomic unit
	// across both wallets, locking them in canonical id order.
	Transfer(ctx context.Context, fromID, toID string, amount int64, reference string) (Transaction, Transaction, error)

	Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error)

	CreateIntent(ctx context.Context, intent DepositIntent) error
	IntentByReference(ctx context.Context, reference string) (DepositIntent, error)

	// ConfirmIntent credits the intent's wallet and transitions the intent
	// initiated→confirmed in the same atomic unit. Replays return the
	// original transaction alongside ErrDuplicateReference; an amount
	// mismatch fails with ErrAmountMismatch and performs no mutation.
	ConfirmIntent(ctx context.Context, reference string, amount int64) (Transaction, error)

	// FailIntent transitions initiated→failed. Confirmed intents are left
	// untouched.
	FailIntent(ctx context.Context, reference string) error

	// AuditWallet recomputes the signed sum of completed transactions and
	// reports drift against the maintained balance.
	AuditWallet(ctx context.Context, walletID string) (AuditReport, error)
}
