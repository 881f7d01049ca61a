package routes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pez-pay/pez_pay/internal/apikey"
	"github.com/pez-pay/pez_pay/internal/auth"
	"github.com/pez-pay/pez_pay/internal/config"
	"github.com/pez-pay/pez_pay/internal/deposit"
	"github.com/pez-pay/pez_pay/internal/identity"
	"github.com/pez-pay/pez_pay/internal/ledger"
	"github.com/pez-pay/pez_pay/internal/middleware"
	"github.com/pez-pay/pez_pay/internal/notification"
	"github.com/pez-pay/pez_pay/internal/paystack"
	"github.com/pez-pay/pez_pay/internal/transfer"
	"github.com/pez-pay/pez_pay/internal/wallet"
)

const oauthStateTTL = 10 * time.Minute

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Outside dev
// environments both backends are mandatory; in dev, missing ones fall
// back to in-memory stores and the provider simulator.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	var (
		store    ledger.Store
		userRepo identity.Repository
		keyRepo  apikey.Repository
	)
	if d.DB != nil {
		store = ledger.NewPostgres(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
		keyRepo = apikey.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewInMemory()
		userRepo = identity.NewMemoryRepository()
		keyRepo = apikey.NewMemoryRepository()
	}

	wallets := wallet.NewService(store)
	users := identity.NewService(userRepo, wallets)
	keys := apikey.NewService(keyRepo, d.Cfg.MaxActiveKeys)
	notifier := notification.NewLogNotifier(d.Logger)

	var provider paystack.Client
	if d.Cfg.PaystackSecretKey != "" {
		provider = paystack.NewHTTPClient(d.Cfg.PaystackSecretKey, "")
	} else {
		provider = paystack.StaticClient{}
	}

	deposits := deposit.NewService(store, users, provider, notifier, d.Cfg.PaystackWebhookSecret, d.Cfg.AppURL)
	transfers := transfer.NewService(store, notifier)
	issuer := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)

	var states *auth.StateStore
	if d.Cache != nil {
		states = auth.NewStateStore(d.Cache, oauthStateTTL)
	}
	oauth := auth.StaticProvider{
		ClientID:    d.Cfg.GoogleClientID,
		RedirectURI: d.Cfg.GoogleRedirectURI,
	}

	require := func(permission string) fiber.Handler {
		return middleware.Authenticate(keys, issuer, userRepo, permission)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   d.Cfg.AppName,
			"env":       d.Cfg.AppEnv,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterHealthRoutes(app, d)
	RegisterAuthRoutes(app, auth.NewHandler(users, issuer, oauth, states), d)
	RegisterKeyRoutes(app, apikey.NewHandler(keys), require)
	RegisterWalletRoutes(app, walletDeps{
		wallets:   wallet.NewHandler(wallets),
		deposits:  deposit.NewHandler(deposits),
		transfers: transfer.NewHandler(transfers),
		require:   require,
	})

	return nil
}
