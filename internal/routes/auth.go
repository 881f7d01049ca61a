package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/auth"
	"github.com/pez-pay/pez_pay/internal/middleware"
)

// RegisterAuthRoutes wires the OAuth flow and, in dev environments only,
// the direct login endpoint.
func RegisterAuthRoutes(app *fiber.App, h *auth.Handler, d Deps) {
	group := app.Group("/auth")
	group.Get("/google", h.GoogleRedirect)
	group.Get("/google/callback", h.GoogleCallback)

	if d.Cfg.IsDev() {
		group.Post("/login", middleware.LoginRateLimit(d.Cache, 5), h.DevLogin)
	}
}
