package apikey

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes key management endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a key management handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Expiry      string   `json:"expiry"`
}

type rolloverRequest struct {
	KeyID  string `json:"key_id"`
	Expiry string `json:"expiry"`
}

type keyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key,omitempty"`
	KeyPreview  string    `json:"key_preview"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
	Expired     bool      `json:"expired"`
	RolledFrom  string    `json:"rolled_from,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toResponse(key APIKey, raw string) keyResponse {
	return keyResponse{
		ID:          key.ID,
		Name:        key.Name,
		Key:         raw,
		KeyPreview:  Preview(key),
		Permissions: key.Permissions,
		ExpiresAt:   key.ExpiresAt,
		Expired:     key.Expired(time.Now().UTC()),
		RolledFrom:  key.RolledFrom,
		CreatedAt:   key.CreatedAt,
	}
}

// Create mints a new key. The raw secret appears only in this response.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	uid, _ := c.Locals("user_id").(string)

	key, raw, err := h.service.Create(c.UserContext(), uid, req.Name, req.Permissions, req.Expiry)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(key, raw))
}

// Rollover replaces an expired key with a fresh secret.
func (h *Handler) Rollover(c *fiber.Ctx) error {
	var req rolloverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	uid, _ := c.Locals("user_id").(string)

	key, raw, err := h.service.Rollover(c.UserContext(), uid, req.KeyID, req.Expiry)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(key, raw))
}

// List returns the owner's keys with masked secrets.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	keys, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, toResponse(key, ""))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"keys": out})
}
