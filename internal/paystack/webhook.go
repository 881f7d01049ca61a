package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// Event names and charge statuses the reconciler acts on.
const (
	EventChargeSuccess  = "charge.success"
	ChargeStatusSuccess = "success"
)

// Event is the webhook envelope posted by the provider.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData is the charge payload inside a webhook event. Amount is in
// minor units (kobo).
type EventData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// VerifySignature reports whether signature is the hex HMAC-SHA512 of
// payload under secret. The comparison is constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload) // nolint:errcheck
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the hex HMAC-SHA512 of payload under secret. Used by
// tests and tooling that emit synthetic webhook events.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload) // nolint:errcheck
	return hex.EncodeToString(mac.Sum(nil))
}
