package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pez-pay/pez_pay/internal/config"
	"github.com/pez-pay/pez_pay/internal/logging"
	"github.com/pez-pay/pez_pay/internal/paystack"
)

const testWebhookSecret = "whsec_test"

func testServer(t *testing.T) *Server {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:               "PezPay",
		AppEnv:                "dev",
		Port:                  "8080",
		LogLevel:              "error",
		JWTSecret:             "test-secret",
		AccessTokenTTL:        time.Hour,
		PaystackWebhookSecret: testWebhookSecret,
		ShutdownPeriod:        time.Second,
		IdempotencyTTL:        time.Minute,
		MaxActiveKeys:         5,
	}

	srv, err := New(cfg, nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	return srv
}

func do(t *testing.T, app *fiber.App, method, path string, body []byte, mod func(*http.Request)) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if mod != nil {
		mod(req)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, raw
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any, mod func(*http.Request)) (int, map[string]any) {
	t.Helper()

	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = raw
	}

	status, raw := do(t, app, method, path, body, mod)
	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return status, decoded
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
}

func withKey(raw string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("x-api-key", raw)
	}
}

func login(t *testing.T, app *fiber.App, email, name string) (token, userID string) {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/auth/login", fiber.Map{"email": email, "name": name}, nil)
	if status != http.StatusOK {
		t.Fatalf("login %s: status = %d, body %v", email, status, body)
	}
	token, _ = body["access_token"].(string)
	userID, _ = body["user_id"].(string)
	if token == "" || userID == "" {
		t.Fatalf("login %s: incomplete response %v", email, body)
	}
	return token, userID
}

func TestServerRootAndHealth(t *testing.T) {
	srv := testServer(t)

	status, body := doJSON(t, srv.app, fiber.MethodGet, "/", nil, nil)
	if status != http.StatusOK || body["service"] != "PezPay" {
		t.Fatalf("root: status = %d, body %v", status, body)
	}

	status, body = doJSON(t, srv.app, fiber.MethodGet, "/health", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("health: status = %d, body %v", status, body)
	}
	if body["postgres"] != "disabled" || body["redis"] != "ok" {
		t.Fatalf("health backends: %v", body)
	}
}

func TestServerDepositAndTransferFlow(t *testing.T) {
	srv := testServer(t)
	app := srv.app

	adaToken, _ := login(t, app, "ada@example.com", "Ada")
	bobToken, _ := login(t, app, "bob@example.com", "Bob")

	// Ada mints a full-permission API key over her JWT session.
	status, body := doJSON(t, app, fiber.MethodPost, "/keys/create", fiber.Map{
		"name":        "ci",
		"permissions": []string{"deposit", "transfer", "read"},
		"expiry":      "1D",
	}, bearer(adaToken))
	if status != http.StatusCreated {
		t.Fatalf("create key: status = %d, body %v", status, body)
	}
	rawKey, _ := body["key"].(string)
	if !strings.HasPrefix(rawKey, "sk_live_") {
		t.Fatalf("raw key = %q", rawKey)
	}

	// Deposit initiation against the static provider simulator.
	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/deposit", fiber.Map{"amount": 250_000}, withKey(rawKey))
	if status != http.StatusCreated {
		t.Fatalf("initiate deposit: status = %d, body %v", status, body)
	}
	reference, _ := body["reference"].(string)
	if !strings.HasPrefix(reference, "DEP_") {
		t.Fatalf("deposit reference = %q", reference)
	}
	if authURL, _ := body["authorization_url"].(string); authURL == "" {
		t.Fatal("missing authorization url")
	}

	// Provider webhook confirms the charge.
	event, err := json.Marshal(paystack.Event{
		Event: paystack.EventChargeSuccess,
		Data:  paystack.EventData{Reference: reference, Amount: 250_000, Status: paystack.ChargeStatusSuccess},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	sign := func(r *http.Request) {
		r.Header.Set(paystack.SignatureHeader, paystack.Sign(event, testWebhookSecret))
	}

	status, raw := do(t, app, fiber.MethodPost, "/wallet/paystack/webhook", event, sign)
	if status != http.StatusOK {
		t.Fatalf("webhook: status = %d, body %s", status, raw)
	}
	var webhook struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		Duplicate     bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(raw, &webhook); err != nil {
		t.Fatalf("decode webhook response: %v", err)
	}
	if webhook.Status != "confirmed" || webhook.Duplicate || webhook.TransactionID == "" {
		t.Fatalf("unexpected webhook response %+v", webhook)
	}

	// Replayed delivery acks with the original transaction.
	status, raw = do(t, app, fiber.MethodPost, "/wallet/paystack/webhook", event, sign)
	if status != http.StatusOK {
		t.Fatalf("webhook replay: status = %d", status)
	}
	var replay struct {
		TransactionID string `json:"transaction_id"`
		Duplicate     bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(raw, &replay); err != nil {
		t.Fatalf("decode replay response: %v", err)
	}
	if !replay.Duplicate || replay.TransactionID != webhook.TransactionID {
		t.Fatalf("unexpected replay response %+v", replay)
	}

	// Deposit status reflects confirmation.
	status, body = doJSON(t, app, fiber.MethodGet, "/wallet/deposit/"+reference+"/status", nil, withKey(rawKey))
	if status != http.StatusOK || body["status"] != "confirmed" {
		t.Fatalf("deposit status: status = %d, body %v", status, body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/wallet/balance", nil, withKey(rawKey))
	if status != http.StatusOK {
		t.Fatalf("balance: status = %d, body %v", status, body)
	}
	if got, _ := body["balance"].(float64); got != 250_000 {
		t.Fatalf("balance = %v, want 250000", body["balance"])
	}

	// Bob's wallet number is the transfer destination.
	status, body = doJSON(t, app, fiber.MethodGet, "/wallet/balance", nil, bearer(bobToken))
	if status != http.StatusOK {
		t.Fatalf("bob balance: status = %d, body %v", status, body)
	}
	bobNumber, _ := body["wallet_number"].(string)
	if len(bobNumber) != 10 {
		t.Fatalf("bob wallet number = %q", bobNumber)
	}

	// Idempotent transfer: the replayed request must not move funds twice.
	transferReq := fiber.Map{"to_wallet_number": bobNumber, "amount": 100_000}
	withIdem := func(r *http.Request) {
		withKey(rawKey)(r)
		r.Header.Set("Idempotency-Key", "transfer-1")
	}
	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/transfer", transferReq, withIdem)
	if status != http.StatusCreated {
		t.Fatalf("transfer: status = %d, body %v", status, body)
	}
	if got, _ := body["sender_balance"].(float64); got != 150_000 {
		t.Fatalf("sender balance = %v, want 150000", body["sender_balance"])
	}
	firstRef, _ := body["reference"].(string)

	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/transfer", transferReq, withIdem)
	if status != http.StatusCreated {
		t.Fatalf("transfer replay: status = %d, body %v", status, body)
	}
	if ref, _ := body["reference"].(string); ref != firstRef {
		t.Fatalf("replay reference = %q, want %q", ref, firstRef)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/wallet/balance", nil, bearer(bobToken))
	if status != http.StatusOK {
		t.Fatalf("bob balance after transfer: status = %d", status)
	}
	if got, _ := body["balance"].(float64); got != 100_000 {
		t.Fatalf("bob balance = %v, want 100000 after replayed transfer", body["balance"])
	}

	// Ada's history shows the deposit and the debit leg, newest first.
	status, body = doJSON(t, app, fiber.MethodGet, "/wallet/transactions?limit=10", nil, withKey(rawKey))
	if status != http.StatusOK {
		t.Fatalf("transactions: status = %d, body %v", status, body)
	}
	items, _ := body["transactions"].([]any)
	if len(items) != 2 {
		t.Fatalf("transactions = %d entries, want 2", len(items))
	}
	newest, _ := items[0].(map[string]any)
	if newest["kind"] != "transfer_debit" {
		t.Fatalf("newest transaction kind = %v", newest["kind"])
	}
}

func TestServerErrorRendering(t *testing.T) {
	srv := testServer(t)
	app := srv.app

	adaToken, _ := login(t, app, "ada@example.com", "Ada")

	// Unauthenticated wallet access.
	status, body := doJSON(t, app, fiber.MethodGet, "/wallet/balance", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status = %d, body %v", status, body)
	}

	// Domain sentinel with a stable code.
	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/deposit", fiber.Map{"amount": -5}, bearer(adaToken))
	if status != http.StatusBadRequest {
		t.Fatalf("invalid amount: status = %d, body %v", status, body)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "invalid_amount" {
		t.Fatalf("error code = %v", errObj["code"])
	}

	// Webhook with a bad signature never touches the ledger.
	event := []byte(`{"event":"charge.success","data":{"reference":"DEP_000000000000","amount":1,"status":"success"}}`)
	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/paystack/webhook", json.RawMessage(event), func(r *http.Request) {
		r.Header.Set(paystack.SignatureHeader, "deadbeef")
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad signature: status = %d, body %v", status, body)
	}
	errObj, _ = body["error"].(map[string]any)
	if errObj["code"] != "invalid_signature" {
		t.Fatalf("error code = %v", errObj["code"])
	}

	// Transfer to an unknown wallet number.
	status, body = doJSON(t, app, fiber.MethodPost, "/wallet/transfer", fiber.Map{"to_wallet_number": "0000000000", "amount": 10}, bearer(adaToken))
	if status != http.StatusNotFound {
		t.Fatalf("unknown recipient: status = %d, body %v", status, body)
	}
	errObj, _ = body["error"].(map[string]any)
	if errObj["code"] != "wallet_not_found" {
		t.Fatalf("error code = %v", errObj["code"])
	}
}

func TestServerOAuthRoundTrip(t *testing.T) {
	srv := testServer(t)
	app := srv.app

	req := httptest.NewRequest(fiber.MethodGet, "/auth/google", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("redirect request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("redirect status = %d", resp.StatusCode)
	}
	location := resp.Header.Get(fiber.HeaderLocation)
	if !strings.Contains(location, "accounts.google.com") {
		t.Fatalf("redirect location = %q", location)
	}

	parsed, err := url.Parse(location)
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatal("redirect carries no state")
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/auth/google/callback?code=walker&state="+state, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("callback: status = %d, body %v", status, body)
	}
	if token, _ := body["access_token"].(string); token == "" {
		t.Fatalf("callback response %v", body)
	}

	// The state nonce is single use.
	status, _ = doJSON(t, app, fiber.MethodGet, "/auth/google/callback?code=walker&state="+state, nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("state replay: status = %d", status)
	}
}
