package deposit

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/paystack"
)

// Handler exposes the deposit endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Initiate starts a deposit for the authenticated wallet owner.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Initiate(c.UserContext(), uid, req.Amount)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(InitiateResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Amount:           result.Amount,
		Status:           result.Status,
	})
}

// Webhook ingests provider deliveries. Replays and unknown references
// answer 200 so the provider stops retrying them.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	result, err := h.service.HandleWebhook(c.UserContext(), c.Body(), c.Get(paystack.SignatureHeader))
	if err != nil {
		return err
	}
	return c.JSON(WebhookResponse{
		Reference:     result.Reference,
		Status:        result.Outcome,
		TransactionID: result.TransactionID,
		Duplicate:     result.Duplicate,
	})
}

// Status reports one deposit intent owned by the caller.
func (h *Handler) Status(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	intent, err := h.service.Status(c.UserContext(), uid, c.Params("reference"))
	if err != nil {
		return err
	}

	resp := StatusResponse{
		Reference:     intent.Reference,
		Amount:        intent.Amount,
		Status:        intent.Status,
		TransactionID: intent.TransactionID,
		CreatedAt:     intent.CreatedAt,
	}
	if !intent.ConfirmedAt.IsZero() {
		confirmedAt := intent.ConfirmedAt
		resp.ConfirmedAt = &confirmedAt
	}
	return c.JSON(resp)
}
