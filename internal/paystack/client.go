package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProviderUnavailable marks any failure to obtain a checkout
// authorization from the provider, whether a decline or an outage.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

const (
	defaultBaseURL = "https://api.paystack.co"
	maxAttempts    = 3
)

// InitializeRequest carries the fields the transaction initialize
// endpoint requires. Amount is in minor units (kobo).
type InitializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeResponse is the checkout handle returned to the caller.
type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Client abstracts the provider's transaction API so deposits can run
// against the live gateway or a simulator.
type Client interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error)
}

// HTTPClient talks to the live Paystack API. Transient failures are
// retried with exponential backoff; declines are returned immediately.
type HTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	backoff   time.Duration
}

// NewHTTPClient builds a client for the given secret key. baseURL
// overrides the production endpoint when non-empty.
func NewHTTPClient(secretKey, baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		backoff:   500 * time.Millisecond,
	}
}

type initializeEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("paystack: %s (http %d)", e.message, e.status)
}

func retryable(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status >= http.StatusInternalServerError || ae.status == http.StatusTooManyRequests
	}
	// Network-level failures are worth another attempt.
	return true
}

func (c *HTTPClient) Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return InitializeResponse{}, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		resp, err := c.initialize(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) {
			return InitializeResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		lastErr = err
	}
	return InitializeResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

func (c *HTTPClient) initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InitializeResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return InitializeResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return InitializeResponse{}, err
	}
	defer httpResp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return InitializeResponse{}, err
	}

	var envelope initializeEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return InitializeResponse{}, &apiError{status: httpResp.StatusCode, message: "malformed response"}
	}
	if httpResp.StatusCode != http.StatusOK || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = http.StatusText(httpResp.StatusCode)
		}
		return InitializeResponse{}, &apiError{status: httpResp.StatusCode, message: message}
	}

	return InitializeResponse{
		AuthorizationURL: envelope.Data.AuthorizationURL,
		AccessCode:       envelope.Data.AccessCode,
		Reference:        envelope.Data.Reference,
	}, nil
}

// StaticClient approves every initialization with synthetic checkout
// details. It backs dev environments and tests where no gateway exists.
type StaticClient struct {
	BaseURL string
	Err     error
}

func (s StaticClient) Initialize(_ context.Context, req InitializeRequest) (InitializeResponse, error) {
	if s.Err != nil {
		return InitializeResponse{}, s.Err
	}
	base := s.BaseURL
	if base == "" {
		base = "https://checkout.paystack.dev"
	}
	return InitializeResponse{
		AuthorizationURL: base + "/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}
