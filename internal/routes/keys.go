package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/apikey"
)

// RegisterKeyRoutes wires API key management. Any authenticated caller
// may manage their own keys regardless of key permissions.
func RegisterKeyRoutes(app *fiber.App, h *apikey.Handler, require func(permission string) fiber.Handler) {
	group := app.Group("/keys", require(""))
	group.Post("/create", h.Create)
	group.Post("/rollover", h.Rollover)
	group.Get("/", h.List)
}
