package ledger

import "time"

// SeedBalance is a test helper that credits a wallet directly when using the
// in-memory store. It records a completed deposit so AuditWallet stays clean.
func SeedBalance(s Store, walletID string, amount int64) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	mw, err := mem.walletRef(walletID)
	if err != nil {
		return
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mem.apply(mw, amount, KindDeposit, "seed:"+walletID+":"+time.Now().Format("150405.000000000"), "")
}

// SetTransferFault installs a hook invoked between the debit and credit legs
// of an in-memory transfer. Returning an error forces the whole transfer to
// roll back.
func SetTransferFault(s Store, fn func() error) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.transferFault = fn
	}
}

// SetConfirmFault installs a hook invoked after the deposit credit but before
// the intent flips to confirmed. Returning an error forces a full rollback.
func SetConfirmFault(s Store, fn func() error) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.confirmFault = fn
	}
}
