package transfer

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/ledger"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	ToWalletNumber string `json:"to_wallet_number"`
	Amount         int64  `json:"amount"`
}

type legResponse struct {
	ID        string      `json:"id"`
	WalletID  string      `json:"wallet_id"`
	Kind      ledger.Kind `json:"kind"`
	Amount    int64       `json:"amount"`
	Reference string      `json:"reference"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Transfer moves funds from the caller's wallet to another wallet number.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ToWalletNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "to_wallet_number is required")
	}

	res, err := h.service.Transfer(c.UserContext(), Input{
		OwnerID:        uid,
		ToWalletNumber: req.ToWalletNumber,
		Amount:         req.Amount,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"reference":      res.Reference,
		"debit":          toLeg(res.Debit),
		"credit":         toLeg(res.Credit),
		"sender_balance": res.SenderBalance,
		"completed_at":   res.CompletedAt,
	})
}

func toLeg(tx ledger.Transaction) legResponse {
	return legResponse{
		ID:        tx.ID,
		WalletID:  tx.WalletID,
		Kind:      tx.Kind,
		Amount:    tx.Amount,
		Reference: tx.Reference,
		Status:    tx.Status,
		CreatedAt: tx.CreatedAt,
	}
}
