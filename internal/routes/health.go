package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds the readiness endpoint. Backends that are
// not configured report "disabled" rather than failing the check.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		postgres := "disabled"
		cache := "disabled"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if d.DB != nil {
			postgres = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				postgres = err.Error()
			}
		}
		if d.Cache != nil {
			cache = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				cache = err.Error()
			}
		}

		status := http.StatusOK
		overall := "ok"
		if (postgres != "ok" && postgres != "disabled") || (cache != "ok" && cache != "disabled") {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    overall,
			"postgres":  postgres,
			"redis":     cache,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
