package deposit

import "time"

// InitiateRequest captures a top-up request for the caller's wallet.
type InitiateRequest struct {
	Amount int64 `json:"amount"`
}

// InitiateResponse returns the checkout handle for a new deposit.
type InitiateResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
}

// WebhookResponse acknowledges a provider delivery.
type WebhookResponse struct {
	Reference     string `json:"reference,omitempty"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Duplicate     bool   `json:"duplicate"`
}

// StatusResponse reports the lifecycle state of a deposit intent.
type StatusResponse struct {
	Reference     string     `json:"reference"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}
