package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(secretKey, baseURL string) *HTTPClient {
	c := NewHTTPClient(secretKey, baseURL)
	c.backoff = time.Millisecond
	return c
}

func TestHTTPClientInitialize(t *testing.T) {
	var seen InitializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_abc" {
			t.Errorf("authorization header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc123","access_code":"abc123","reference":"DEP_0011AABBCCDD"}}`))
	}))
	defer srv.Close()

	c := newTestClient("sk_test_abc", srv.URL)
	resp, err := c.Initialize(context.Background(), InitializeRequest{
		Email:     "ada@example.com",
		Amount:    250_000,
		Reference: "DEP_0011AABBCCDD",
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if resp.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Fatalf("authorization url = %q", resp.AuthorizationURL)
	}
	if resp.AccessCode != "abc123" || resp.Reference != "DEP_0011AABBCCDD" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if seen.Email != "ada@example.com" || seen.Amount != 250_000 || seen.Reference != "DEP_0011AABBCCDD" {
		t.Fatalf("unexpected outbound request %+v", seen)
	}
}

func TestHTTPClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":true,"data":{"authorization_url":"https://checkout.paystack.com/ok","access_code":"ok","reference":"DEP_AA"}}`))
	}))
	defer srv.Close()

	c := newTestClient("sk_test_abc", srv.URL)
	resp, err := c.Initialize(context.Background(), InitializeRequest{Email: "ada@example.com", Amount: 100, Reference: "DEP_AA"})
	if err != nil {
		t.Fatalf("Initialize after retries: %v", err)
	}
	if resp.AccessCode != "ok" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestHTTPClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient("sk_test_abc", srv.URL)
	_, err := c.Initialize(context.Background(), InitializeRequest{Email: "ada@example.com", Amount: 100, Reference: "DEP_BB"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if got := calls.Load(); got != maxAttempts {
		t.Fatalf("calls = %d, want %d", got, maxAttempts)
	}
}

func TestHTTPClientDoesNotRetryDeclines(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer srv.Close()

	c := newTestClient("sk_test_abc", srv.URL)
	_, err := c.Initialize(context.Background(), InitializeRequest{Email: "ada@example.com", Amount: 100, Reference: "DEP_CC"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 (declines must not retry)", got)
	}
}

func TestStaticClient(t *testing.T) {
	resp, err := StaticClient{}.Initialize(context.Background(), InitializeRequest{Reference: "DEP_DD"})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if resp.Reference != "DEP_DD" || resp.AccessCode != "ac_DEP_DD" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.AuthorizationURL != "https://checkout.paystack.dev/DEP_DD" {
		t.Fatalf("authorization url = %q", resp.AuthorizationURL)
	}

	boom := errors.New("boom")
	if _, err := (StaticClient{Err: boom}).Initialize(context.Background(), InitializeRequest{}); err != boom {
		t.Fatalf("err = %v, want boom", err)
	}
}
