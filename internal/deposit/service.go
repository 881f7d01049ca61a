package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pez-pay/pez_pay/internal/identity"
	"github.com/pez-pay/pez_pay/internal/ledger"
	"github.com/pez-pay/pez_pay/internal/notification"
	"github.com/pez-pay/pez_pay/internal/paystack"
)

// Deposit lifecycle errors surfaced alongside the ledger's own.
var (
	ErrInvalidSignature = errors.New("webhook signature is invalid")
	ErrMalformedEvent   = errors.New("webhook event is malformed")
	ErrNotOwner         = errors.New("deposit belongs to another wallet")
)

// referencePrefix marks deposit intents in the posting log.
const referencePrefix = "DEP_"

// Webhook outcomes.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeFailed    = "failed"
	OutcomeIgnored   = "ignored"
)

// Service drives the deposit lifecycle: intent creation against the
// provider and webhook reconciliation back into the ledger.
type Service struct {
	store         ledger.Store
	users         *identity.Service
	provider      paystack.Client
	notifier      notification.Notifier
	webhookSecret string
	callbackURL   string
}

// NewService wires the deposit reconciler. A nil provider falls back to
// the static simulator; the notifier may be nil.
func NewService(store ledger.Store, users *identity.Service, provider paystack.Client, notifier notification.Notifier, webhookSecret, callbackURL string) *Service {
	if provider == nil {
		provider = paystack.StaticClient{}
	}
	return &Service{
		store:         store,
		users:         users,
		provider:      provider,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		callbackURL:   callbackURL,
	}
}

// InitiateResult is the checkout handle for a freshly created intent.
type InitiateResult struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
	Amount           int64
	Status           string
}

// Initiate records a deposit intent and asks the provider for a checkout
// authorization. The intent is persisted before the provider call so the
// webhook always finds it; a provider failure marks the intent failed
// before returning.
func (s *Service) Initiate(ctx context.Context, ownerID string, amount int64) (InitiateResult, error) {
	if amount <= 0 {
		return InitiateResult{}, ledger.ErrInvalidAmount
	}

	user, err := s.users.Find(ctx, ownerID)
	if err != nil {
		return InitiateResult{}, err
	}
	w, err := s.store.WalletByOwner(ctx, ownerID)
	if err != nil {
		return InitiateResult{}, err
	}
	if w.Status != ledger.WalletActive {
		return InitiateResult{}, ledger.ErrWalletInactive
	}

	reference, err := ledger.NewReference(referencePrefix)
	if err != nil {
		return InitiateResult{}, err
	}
	if err := s.store.CreateIntent(ctx, ledger.DepositIntent{
		ID:        uuid.NewString(),
		WalletID:  w.ID,
		Reference: reference,
		Amount:    amount,
		Status:    ledger.IntentInitiated,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return InitiateResult{}, err
	}

	auth, err := s.provider.Initialize(ctx, paystack.InitializeRequest{
		Email:       user.Email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		if failErr := s.store.FailIntent(ctx, reference); failErr != nil {
			return InitiateResult{}, fmt.Errorf("%w (intent %s left initiated: %v)", err, reference, failErr)
		}
		return InitiateResult{}, err
	}

	return InitiateResult{
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Amount:           amount,
		Status:           ledger.IntentInitiated,
	}, nil
}

// WebhookResult describes what a webhook delivery did to the ledger.
type WebhookResult struct {
	Reference     string
	Outcome       string
	TransactionID string
	Duplicate     bool
}

// HandleWebhook verifies and applies one provider delivery. Events we do
// not act on and references we never issued are acknowledged without
// touching the ledger so the provider stops retrying. Replayed
// confirmations report the original transaction with Duplicate set.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !paystack.VerifySignature(body, signature, s.webhookSecret) {
		return WebhookResult{}, ErrInvalidSignature
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	result := WebhookResult{Reference: event.Data.Reference, Outcome: OutcomeIgnored}
	if event.Event != paystack.EventChargeSuccess {
		return result, nil
	}
	if event.Data.Reference == "" {
		return WebhookResult{}, fmt.Errorf("%w: missing reference", ErrMalformedEvent)
	}

	intent, err := s.store.IntentByReference(ctx, event.Data.Reference)
	if err != nil {
		if errors.Is(err, ledger.ErrIntentNotFound) {
			return result, nil
		}
		return WebhookResult{}, err
	}

	if event.Data.Status != paystack.ChargeStatusSuccess {
		if err := s.store.FailIntent(ctx, event.Data.Reference); err != nil {
			return WebhookResult{}, err
		}
		result.Outcome = OutcomeFailed
		return result, nil
	}

	tx, err := s.store.ConfirmIntent(ctx, event.Data.Reference, event.Data.Amount)
	switch {
	case err == nil:
		result.Outcome = OutcomeConfirmed
		result.TransactionID = tx.ID
		s.notifyConfirmed(ctx, intent)
		return result, nil
	case errors.Is(err, ledger.ErrDuplicateReference):
		result.Outcome = OutcomeConfirmed
		result.TransactionID = tx.ID
		result.Duplicate = true
		return result, nil
	default:
		return WebhookResult{}, err
	}
}

func (s *Service) notifyConfirmed(ctx context.Context, intent ledger.DepositIntent) {
	if s.notifier == nil {
		return
	}
	w, err := s.store.Wallet(ctx, intent.WalletID)
	if err != nil {
		return
	}
	_ = s.notifier.Notify(ctx, notification.DepositConfirmed(w.OwnerID, intent.Amount, intent.Reference)) // nolint:errcheck
}

// Status returns the intent for reference, provided the caller owns the
// wallet it credits.
func (s *Service) Status(ctx context.Context, ownerID, reference string) (ledger.DepositIntent, error) {
	intent, err := s.store.IntentByReference(ctx, reference)
	if err != nil {
		return ledger.DepositIntent{}, err
	}
	w, err := s.store.Wallet(ctx, intent.WalletID)
	if err != nil {
		return ledger.DepositIntent{}, err
	}
	if w.OwnerID != ownerID {
		return ledger.DepositIntent{}, ErrNotOwner
	}
	return intent, nil
}
