package notification

import (
	"context"
	"fmt"
	"log/slog"
)

// Event kinds pushed to wallet owners.
const (
	KindTransferReceived = "transfer_received"
	KindDepositConfirmed = "deposit_confirmed"
)

// Event targets one wallet owner with a short human-readable line.
type Event struct {
	Kind    string
	OwnerID string
	Body    string
}

// Notifier pushes wallet events to their owners.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to the structured log until a real delivery
// channel exists.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify writes the event to the structured logger.
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", event.Kind, "owner_id", event.OwnerID, "body", event.Body)
	return nil
}

// TransferReceived builds the credit-side event for a completed transfer.
func TransferReceived(ownerID string, amount int64, fromNumber string) Event {
	return Event{
		Kind:    KindTransferReceived,
		OwnerID: ownerID,
		Body:    fmt.Sprintf("You received %d kobo from wallet %s", amount, fromNumber),
	}
}

// DepositConfirmed builds the owner-facing event for a settled deposit.
func DepositConfirmed(ownerID string, amount int64, reference string) Event {
	return Event{
		Kind:    KindDepositConfirmed,
		OwnerID: ownerID,
		Body:    fmt.Sprintf("Your deposit %s for %d kobo is confirmed", reference, amount),
	}
}
