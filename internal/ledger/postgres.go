package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	walletCols = `id, owner_id, number, balance, currency, status, version, created_at, updated_at`
	txCols     = `id, wallet_id, kind, amount, COALESCE(counterparty_wallet_id, ''), reference, status, created_at`
)

// PostgresStore persists wallets, transactions and deposit intents in
// PostgreSQL. Multi-row operations run in a single database transaction with
// row locks taken in canonical id order.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	const query = `
        INSERT INTO wallets (id, owner_id, number, balance, currency, status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.Exec(ctx, query, w.ID, w.OwnerID, w.Number, w.Balance, w.Currency, w.Status, w.Version, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrWalletExists
		}
		return wrapUnavailable(err)
	}
	return nil
}

func (s *PostgresStore) Wallet(ctx context.Context, id string) (Wallet, error) {
	return s.walletBy(ctx, "id", id)
}

func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return s.walletBy(ctx, "owner_id", ownerID)
}

func (s *PostgresStore) WalletByNumber(ctx context.Context, number string) (Wallet, error) {
	return s.walletBy(ctx, "number", number)
}

func (s *PostgresStore) walletBy(ctx context.Context, column, value string) (Wallet, error) {
	query := `SELECT ` + walletCols + ` FROM wallets WHERE ` + column + ` = $1`
	w, err := scanWallet(s.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, wrapUnavailable(err)
	}
	return w, nil
}

func (s *PostgresStore) DeactivateWallet(ctx context.Context, id string) error {
	const query = `UPDATE wallets SET status = $2, version = version + 1, updated_at = $3 WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, id, WalletDeactivated, time.Now().UTC())
	if err != nil {
		return wrapUnavailable(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Credit posts a positive movement onto a wallet. The balance update, the
// version bump and the transaction insert commit together.
func (s *PostgresStore) Credit(ctx context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return Transaction{}, err
	}
	if w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}
	if existing, ok, err := transactionByRef(ctx, tx, reference, kind); err != nil {
		return Transaction{}, err
	} else if ok {
		return existing, ErrDuplicateReference
	}

	posted, err := insertPosting(ctx, tx, w.ID, amount, kind, "", reference)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	return posted, nil
}

// Debit posts a negative movement onto a wallet after checking funds under
// the row lock.
func (s *PostgresStore) Debit(ctx context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return Transaction{}, err
	}
	if w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}
	if existing, ok, err := transactionByRef(ctx, tx, reference, kind); err != nil {
		return Transaction{}, err
	} else if ok {
		return existing, ErrDuplicateReference
	}
	if w.Balance < amount {
		return Transaction{}, ErrInsufficientFunds
	}

	posted, err := insertPosting(ctx, tx, w.ID, -amount, kind, "", reference)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	return posted, nil
}

func (s *PostgresStore) Balance(ctx context.Context, walletID string) (int64, error) {
	const query = `SELECT balance FROM wallets WHERE id = $1`
	var balance int64
	if err := s.db.QueryRow(ctx, query, walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, wrapUnavailable(err)
	}
	return balance, nil
}

// Transfer debits from and credits to in one database transaction. Rows are
// locked in canonical id order so concurrent opposite-direction transfers on
// the same pair cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, fromID, toID string, amount int64, reference string) (Transaction, Transaction, error) {
	if amount <= 0 {
		return Transaction{}, Transaction{}, ErrInvalidAmount
	}
	if fromID == toID {
		return Transaction{}, Transaction{}, ErrSelfTransfer
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, Transaction{}, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	firstID, secondID := fromID, toID
	if toID < fromID {
		firstID, secondID = toID, fromID
	}
	first, err := lockWallet(ctx, tx, firstID)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	second, err := lockWallet(ctx, tx, secondID)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	from, to := first, second
	if first.ID != fromID {
		from, to = second, first
	}

	if from.Status != WalletActive || to.Status != WalletActive {
		return Transaction{}, Transaction{}, ErrWalletInactive
	}
	if from.Currency != to.Currency {
		return Transaction{}, Transaction{}, ErrCurrencyMismatch
	}

	if existing, ok, err := transactionByRef(ctx, tx, reference, KindTransferDebit); err != nil {
		return Transaction{}, Transaction{}, err
	} else if ok {
		credit, _, err := transactionByRef(ctx, tx, reference, KindTransferCredit)
		if err != nil {
			return Transaction{}, Transaction{}, err
		}
		return existing, credit, ErrDuplicateReference
	}

	if from.Balance < amount {
		return Transaction{}, Transaction{}, ErrInsufficientFunds
	}

	debit, err := insertPosting(ctx, tx, from.ID, -amount, KindTransferDebit, to.ID, reference)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	credit, err := insertPosting(ctx, tx, to.ID, amount, KindTransferCredit, from.ID, reference)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, Transaction{}, wrapUnavailable(err)
	}
	return debit, credit, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	const query = `SELECT ` + txCols + ` FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := s.db.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	if len(out) == 0 {
		if _, err := s.Wallet(ctx, walletID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) CreateIntent(ctx context.Context, intent DepositIntent) error {
	const query = `
        INSERT INTO deposit_intents (id, wallet_id, reference, amount, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.Exec(ctx, query, intent.ID, intent.WalletID, intent.Reference, intent.Amount, intent.Status, intent.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		if isForeignKeyViolation(err) {
			return ErrWalletNotFound
		}
		return wrapUnavailable(err)
	}
	return nil
}

func (s *PostgresStore) IntentByReference(ctx context.Context, reference string) (DepositIntent, error) {
	const query = `
        SELECT id, wallet_id, reference, amount, status, COALESCE(transaction_id, ''), created_at, confirmed_at
        FROM deposit_intents WHERE reference = $1`
	var (
		intent      DepositIntent
		confirmedAt *time.Time
	)
	err := s.db.QueryRow(ctx, query, reference).Scan(
		&intent.ID, &intent.WalletID, &intent.Reference, &intent.Amount,
		&intent.Status, &intent.TransactionID, &intent.CreatedAt, &confirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DepositIntent{}, ErrIntentNotFound
		}
		return DepositIntent{}, wrapUnavailable(err)
	}
	if confirmedAt != nil {
		intent.ConfirmedAt = *confirmedAt
	}
	return intent, nil
}

// ConfirmIntent credits the intent's wallet and flips the intent to confirmed
// in one database transaction. Replays return the original transaction with
// ErrDuplicateReference; a mismatched amount changes nothing.
func (s *PostgresStore) ConfirmIntent(ctx context.Context, reference string, amount int64) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	const intentQuery = `SELECT id, wallet_id, amount, status FROM deposit_intents WHERE reference = $1 FOR UPDATE`
	var (
		intentID string
		walletID string
		expected int64
		status   string
	)
	if err := tx.QueryRow(ctx, intentQuery, reference).Scan(&intentID, &walletID, &expected, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrIntentNotFound
		}
		return Transaction{}, wrapUnavailable(err)
	}

	switch status {
	case IntentConfirmed:
		existing, _, err := transactionByRef(ctx, tx, reference, KindDeposit)
		if err != nil {
			return Transaction{}, err
		}
		return existing, ErrDuplicateReference
	case IntentFailed:
		return Transaction{}, ErrIntentNotFound
	}
	if expected != amount {
		return Transaction{}, ErrAmountMismatch
	}

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return Transaction{}, err
	}
	if w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}

	posted, err := insertPosting(ctx, tx, w.ID, amount, KindDeposit, "", reference)
	if err != nil {
		return Transaction{}, err
	}
	const confirmQuery = `UPDATE deposit_intents SET status = $2, transaction_id = $3, confirmed_at = $4 WHERE id = $1`
	if _, err := tx.Exec(ctx, confirmQuery, intentID, IntentConfirmed, posted.ID, posted.CreatedAt); err != nil {
		return Transaction{}, wrapUnavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	return posted, nil
}

func (s *PostgresStore) FailIntent(ctx context.Context, reference string) error {
	const query = `UPDATE deposit_intents SET status = $2 WHERE reference = $1 AND status = $3`
	ct, err := s.db.Exec(ctx, query, reference, IntentFailed, IntentInitiated)
	if err != nil {
		return wrapUnavailable(err)
	}
	if ct.RowsAffected() == 0 {
		const existsQuery = `SELECT status FROM deposit_intents WHERE reference = $1`
		var status string
		if err := s.db.QueryRow(ctx, existsQuery, reference).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrIntentNotFound
			}
			return wrapUnavailable(err)
		}
	}
	return nil
}

// AuditWallet recomputes the signed sum of completed transactions under the
// wallet row lock and reports drift against the maintained balance.
func (s *PostgresStore) AuditWallet(ctx context.Context, walletID string) (AuditReport, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return AuditReport{}, wrapUnavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, walletID)
	if err != nil {
		return AuditReport{}, err
	}
	const sumQuery = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = $1 AND status = $2`
	var sum int64
	if err := tx.QueryRow(ctx, sumQuery, walletID, TxStatusCompleted).Scan(&sum); err != nil {
		return AuditReport{}, wrapUnavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return AuditReport{}, wrapUnavailable(err)
	}

	return AuditReport{
		WalletID:   walletID,
		Balance:    w.Balance,
		Recomputed: sum,
		Drift:      sum != w.Balance,
	}, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, id string) (Wallet, error) {
	const query = `SELECT ` + walletCols + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, wrapUnavailable(err)
	}
	return w, nil
}

func transactionByRef(ctx context.Context, tx pgx.Tx, reference string, kind Kind) (Transaction, bool, error) {
	const query = `SELECT ` + txCols + ` FROM transactions WHERE reference = $1 AND kind = $2`
	t, err := scanTransaction(tx.QueryRow(ctx, query, reference, string(kind)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, wrapUnavailable(err)
	}
	return t, true, nil
}

// insertPosting writes one transaction row and applies its signed amount to
// the wallet balance. Callers hold the wallet row lock.
func insertPosting(ctx context.Context, tx pgx.Tx, walletID string, amount int64, kind Kind, counterparty, reference string) (Transaction, error) {
	now := time.Now().UTC()
	posted := Transaction{
		ID:                   uuid.NewString(),
		WalletID:             walletID,
		Kind:                 kind,
		Amount:               amount,
		CounterpartyWalletID: counterparty,
		Reference:            reference,
		Status:               TxStatusCompleted,
		CreatedAt:            now,
	}
	const insertQuery = `
        INSERT INTO transactions (id, wallet_id, kind, amount, counterparty_wallet_id, reference, status, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`
	if _, err := tx.Exec(ctx, insertQuery, posted.ID, posted.WalletID, string(posted.Kind), posted.Amount,
		posted.CounterpartyWalletID, posted.Reference, posted.Status, posted.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, wrapUnavailable(err)
	}
	const updateQuery = `UPDATE wallets SET balance = balance + $2, version = version + 1, updated_at = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, updateQuery, walletID, amount, now); err != nil {
		return Transaction{}, wrapUnavailable(err)
	}
	return posted, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.Number, &w.Balance, &w.Currency,
		&w.Status, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t    Transaction
		kind string
	)
	err := row.Scan(&t.ID, &t.WalletID, &kind, &t.Amount,
		&t.CounterpartyWalletID, &t.Reference, &t.Status, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.Kind = Kind(kind)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
