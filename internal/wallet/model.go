package wallet

import "time"

// DefaultCurrency is applied to every provisioned wallet. Cross-currency
// transfers are rejected by the ledger.
const DefaultCurrency = "NGN"

// Balance is the read view served to wallet owners.
type Balance struct {
	WalletID string
	Number   string
	Amount   int64
	Currency string
	AsOf     time.Time
}
