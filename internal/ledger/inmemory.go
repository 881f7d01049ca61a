package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memWallet guards one wallet's state. Operations on different wallets
// proceed independently; operations on the same wallet serialize on mu.
type memWallet struct {
	mu  sync.Mutex
	w   Wallet
	log []Transaction
}

type memIntent struct {
	mu     sync.Mutex
	intent DepositIntent
}

type inMemoryStore struct {
	mu       sync.RWMutex
	wallets  map[string]*memWallet
	byOwner  map[string]string
	byNumber map[string]string
	intents  map[string]*memIntent

	// refMu is a leaf lock: always acquired while holding the wallet locks
	// involved, never the other way around.
	refMu sync.Mutex
	refs  map[string]string
	txs   map[string]Transaction

	// fault hooks for tests, invoked mid-unit to exercise rollback.
	transferFault func() error
	confirmFault  func() error
}

// NewInMemory creates a concurrency-safe in-memory store used in tests and
// as the dev-mode fallback when no database is configured.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:  make(map[string]*memWallet),
		byOwner:  make(map[string]string),
		byNumber: make(map[string]string),
		intents:  make(map[string]*memIntent),
		refs:     make(map[string]string),
		txs:      make(map[string]Transaction),
	}
}

func refKey(reference string, kind Kind) string {
	return reference + ":" + string(kind)
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return ErrWalletExists
	}
	if _, exists := s.byOwner[w.OwnerID]; exists {
		return ErrWalletExists
	}
	if _, exists := s.byNumber[w.Number]; exists {
		return ErrWalletExists
	}
	s.wallets[w.ID] = &memWallet{w: w}
	s.byOwner[w.OwnerID] = w.ID
	s.byNumber[w.Number] = w.ID
	return nil
}

func (s *inMemoryStore) walletRef(id string) (*memWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mw, ok := s.wallets[id]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return mw, nil
}

func (s *inMemoryStore) snapshot(mw *memWallet) Wallet {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w
}

func (s *inMemoryStore) Wallet(_ context.Context, id string) (Wallet, error) {
	mw, err := s.walletRef(id)
	if err != nil {
		return Wallet{}, err
	}
	return s.snapshot(mw), nil
}

func (s *inMemoryStore) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	id, ok := s.byOwner[ownerID]
	mw := s.wallets[id]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.snapshot(mw), nil
}

func (s *inMemoryStore) WalletByNumber(_ context.Context, number string) (Wallet, error) {
	s.mu.RLock()
	id, ok := s.byNumber[number]
	mw := s.wallets[id]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.snapshot(mw), nil
}

func (s *inMemoryStore) DeactivateWallet(_ context.Context, id string) error {
	mw, err := s.walletRef(id)
	if err != nil {
		return err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.w.Status = WalletDeactivated
	mw.w.Version++
	mw.w.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *inMemoryStore) Credit(_ context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	mw, err := s.walletRef(walletID)
	if err != nil {
		return Transaction{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}
	if tx, dup := s.existingTx(reference, kind); dup {
		return tx, ErrDuplicateReference
	}
	return s.apply(mw, amount, kind, reference, ""), nil
}

func (s *inMemoryStore) Debit(_ context.Context, walletID string, amount int64, kind Kind, reference string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	mw, err := s.walletRef(walletID)
	if err != nil {
		return Transaction{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}
	if tx, dup := s.existingTx(reference, kind); dup {
		return tx, ErrDuplicateReference
	}
	if mw.w.Balance < amount {
		return Transaction{}, ErrInsufficientFunds
	}
	return s.apply(mw, -amount, kind, reference, ""), nil
}

func (s *inMemoryStore) Balance(_ context.Context, walletID string) (int64, error) {
	mw, err := s.walletRef(walletID)
	if err != nil {
		return 0, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w.Balance, nil
}

func (s *inMemoryStore) Transfer(_ context.Context, fromID, toID string, amount int64, reference string) (Transaction, Transaction, error) {
	if amount <= 0 {
		return Transaction{}, Transaction{}, ErrInvalidAmount
	}
	if fromID == toID {
		return Transaction{}, Transaction{}, ErrSelfTransfer
	}
	from, err := s.walletRef(fromID)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	to, err := s.walletRef(toID)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}

	// Canonical lock order by wallet id so opposite-direction transfers on
	// the same pair cannot deadlock.
	first, second := from, to
	if toID < fromID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.w.Status != WalletActive || to.w.Status != WalletActive {
		return Transaction{}, Transaction{}, ErrWalletInactive
	}
	if from.w.Currency != to.w.Currency {
		return Transaction{}, Transaction{}, ErrCurrencyMismatch
	}
	if debitTx, dup := s.existingTx(reference, KindTransferDebit); dup {
		creditTx, _ := s.existingTx(reference, KindTransferCredit)
		return debitTx, creditTx, ErrDuplicateReference
	}
	if from.w.Balance < amount {
		return Transaction{}, Transaction{}, ErrInsufficientFunds
	}

	debitTx := s.apply(from, -amount, KindTransferDebit, reference, toID)
	if s.transferFault != nil {
		if err := s.transferFault(); err != nil {
			s.revert(from, debitTx)
			return Transaction{}, Transaction{}, err
		}
	}
	creditTx := s.apply(to, amount, KindTransferCredit, reference, fromID)
	return debitTx, creditTx, nil
}

func (s *inMemoryStore) Transactions(_ context.Context, walletID string, limit int) ([]Transaction, error) {
	mw, err := s.walletRef(walletID)
	if err != nil {
		return nil, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > len(mw.log) {
		limit = len(mw.log)
	}
	out := make([]Transaction, 0, limit)
	for i := len(mw.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, mw.log[i])
	}
	return out, nil
}

func (s *inMemoryStore) CreateIntent(_ context.Context, intent DepositIntent) error {
	if _, err := s.walletRef(intent.WalletID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.intents[intent.Reference]; exists {
		return ErrDuplicateReference
	}
	s.intents[intent.Reference] = &memIntent{intent: intent}
	return nil
}

func (s *inMemoryStore) intentRef(reference string) (*memIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mi, ok := s.intents[reference]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return mi, nil
}

func (s *inMemoryStore) IntentByReference(_ context.Context, reference string) (DepositIntent, error) {
	mi, err := s.intentRef(reference)
	if err != nil {
		return DepositIntent{}, err
	}
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.intent, nil
}

func (s *inMemoryStore) ConfirmIntent(_ context.Context, reference string, amount int64) (Transaction, error) {
	mi, err := s.intentRef(reference)
	if err != nil {
		return Transaction{}, err
	}

	// Lock order: intent before wallet. No other path holds a wallet lock
	// while acquiring an intent lock.
	mi.mu.Lock()
	defer mi.mu.Unlock()

	switch mi.intent.Status {
	case IntentConfirmed:
		s.refMu.Lock()
		tx := s.txs[mi.intent.TransactionID]
		s.refMu.Unlock()
		return tx, ErrDuplicateReference
	case IntentFailed:
		return Transaction{}, ErrIntentNotFound
	}
	if mi.intent.Amount != amount {
		return Transaction{}, ErrAmountMismatch
	}

	mw, err := s.walletRef(mi.intent.WalletID)
	if err != nil {
		return Transaction{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.w.Status != WalletActive {
		return Transaction{}, ErrWalletInactive
	}
	if tx, dup := s.existingTx(reference, KindDeposit); dup {
		return tx, ErrDuplicateReference
	}

	tx := s.apply(mw, amount, KindDeposit, reference, "")
	if s.confirmFault != nil {
		if err := s.confirmFault(); err != nil {
			s.revert(mw, tx)
			return Transaction{}, err
		}
	}
	mi.intent.Status = IntentConfirmed
	mi.intent.TransactionID = tx.ID
	mi.intent.ConfirmedAt = time.Now().UTC()
	return tx, nil
}

func (s *inMemoryStore) FailIntent(_ context.Context, reference string) error {
	mi, err := s.intentRef(reference)
	if err != nil {
		return err
	}
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.intent.Status == IntentInitiated {
		mi.intent.Status = IntentFailed
	}
	return nil
}

func (s *inMemoryStore) AuditWallet(_ context.Context, walletID string) (AuditReport, error) {
	mw, err := s.walletRef(walletID)
	if err != nil {
		return AuditReport{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var sum int64
	for _, tx := range mw.log {
		if tx.Status == TxStatusCompleted {
			sum += tx.Amount
		}
	}
	return AuditReport{
		WalletID:   walletID,
		Balance:    mw.w.Balance,
		Recomputed: sum,
		Drift:      sum != mw.w.Balance,
	}, nil
}

// apply mutates a locked wallet and records the transaction. amount is
// already signed.
func (s *inMemoryStore) apply(mw *memWallet, amount int64, kind Kind, reference, counterparty string) Transaction {
	now := time.Now().UTC()
	tx := Transaction{
		ID:                   uuid.NewString(),
		WalletID:             mw.w.ID,
		Kind:                 kind,
		Amount:               amount,
		CounterpartyWalletID: counterparty,
		Reference:            reference,
		Status:               TxStatusCompleted,
		CreatedAt:            now,
	}
	mw.w.Balance += amount
	mw.w.Version++
	mw.w.UpdatedAt = now
	mw.log = append(mw.log, tx)

	s.refMu.Lock()
	s.refs[refKey(reference, kind)] = tx.ID
	s.txs[tx.ID] = tx
	s.refMu.Unlock()
	return tx
}

// revert undoes an apply on a still-locked wallet, leaving no trace.
func (s *inMemoryStore) revert(mw *memWallet, tx Transaction) {
	mw.w.Balance -= tx.Amount
	mw.w.Version--
	mw.log = mw.log[:len(mw.log)-1]

	s.refMu.Lock()
	delete(s.refs, refKey(tx.Reference, tx.Kind))
	delete(s.txs, tx.ID)
	s.refMu.Unlock()
}

func (s *inMemoryStore) existingTx(reference string, kind Kind) (Transaction, bool) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	id, ok := s.refs[refKey(reference, kind)]
	if !ok {
		return Transaction{}, false
	}
	return s.txs[id], true
}
