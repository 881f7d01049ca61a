package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/apikey"
	"github.com/pez-pay/pez_pay/internal/deposit"
	"github.com/pez-pay/pez_pay/internal/transfer"
	"github.com/pez-pay/pez_pay/internal/wallet"
)

type walletDeps struct {
	wallets   *wallet.Handler
	deposits  *deposit.Handler
	transfers *transfer.Handler
	require   func(permission string) fiber.Handler
}

// RegisterWalletRoutes wires the wallet surface. The provider webhook is
// unauthenticated at the HTTP layer; its HMAC signature is the auth.
func RegisterWalletRoutes(app *fiber.App, d walletDeps) {
	group := app.Group("/wallet")

	group.Post("/paystack/webhook", d.deposits.Webhook)

	group.Post("/deposit", d.require(apikey.PermissionDeposit), d.deposits.Initiate)
	group.Get("/deposit/:reference/status", d.require(apikey.PermissionRead), d.deposits.Status)
	group.Get("/balance", d.require(apikey.PermissionRead), d.wallets.Balance)
	group.Post("/transfer", d.require(apikey.PermissionTransfer), d.transfers.Transfer)
	group.Get("/transactions", d.require(apikey.PermissionRead), d.wallets.Transactions)
}
