package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes owner-facing wallet read endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	Counterparty string    `json:"counterparty_wallet_id,omitempty"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Balance returns the authenticated owner's balance and wallet number.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	balance, err := h.service.Balance(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_number": balance.Number,
		"balance":       balance.Amount,
		"currency":      balance.Currency,
		"as_of":         balance.AsOf,
	})
}

// Transactions lists the owner's ledger entries, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	txs, err := h.service.Transactions(c.UserContext(), uid, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:           tx.ID,
			Kind:         string(tx.Kind),
			Amount:       tx.Amount,
			Counterparty: tx.CounterpartyWalletID,
			Reference:    tx.Reference,
			Status:       tx.Status,
			CreatedAt:    tx.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
