package server

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/apikey"
	"github.com/pez-pay/pez_pay/internal/deposit"
	"github.com/pez-pay/pez_pay/internal/identity"
	"github.com/pez-pay/pez_pay/internal/ledger"
	"github.com/pez-pay/pez_pay/internal/paystack"
)

type mapping struct {
	target error
	status int
	code   string
}

// errorTable fixes the HTTP rendering of every domain sentinel. Codes
// are part of the API contract and must not change between releases.
var errorTable = []mapping{
	{ledger.ErrInsufficientFunds, http.StatusBadRequest, "insufficient_funds"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{ledger.ErrSelfTransfer, http.StatusBadRequest, "self_transfer"},
	{ledger.ErrCurrencyMismatch, http.StatusBadRequest, "currency_mismatch"},
	{ledger.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch"},
	{ledger.ErrWalletNotFound, http.StatusNotFound, "wallet_not_found"},
	{ledger.ErrWalletInactive, http.StatusConflict, "wallet_inactive"},
	{ledger.ErrDuplicateReference, http.StatusConflict, "duplicate_reference"},
	{ledger.ErrIntentNotFound, http.StatusNotFound, "deposit_not_found"},
	{ledger.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
	{deposit.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{deposit.ErrMalformedEvent, http.StatusBadRequest, "malformed_event"},
	{deposit.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{identity.ErrUserNotFound, http.StatusUnauthorized, "unknown_user"},
	{apikey.ErrKeyNotFound, http.StatusUnauthorized, "invalid_api_key"},
	{apikey.ErrKeyExpired, http.StatusUnauthorized, "api_key_expired"},
	{apikey.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{apikey.ErrKeyNotExpired, http.StatusBadRequest, "key_not_expired"},
	{apikey.ErrTooManyKeys, http.StatusBadRequest, "too_many_keys"},
	{apikey.ErrInvalidExpiry, http.StatusBadRequest, "invalid_expiry"},
	{apikey.ErrInvalidPermission, http.StatusBadRequest, "invalid_permission"},
	{paystack.ErrProviderUnavailable, http.StatusBadGateway, "provider_unavailable"},
}

// ErrorHandler renders handler errors as the stable error envelope
// {"error":{"code","message"}}. Domain sentinels map through errorTable,
// fiber errors keep their status with a generic code, anything else is
// an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return respond(c, m.status, m.code, m.target.Error())
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return respond(c, fiberErr.Code, genericCode(fiberErr.Code), fiberErr.Message)
	}

	return respond(c, http.StatusInternalServerError, "internal_error", "something went wrong")
}

func respond(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}

func genericCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= http.StatusInternalServerError {
			return "internal_error"
		}
		return "request_error"
	}
}
