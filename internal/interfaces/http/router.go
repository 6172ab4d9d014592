package http

import (
	"github.com/gofiber/fiber/v2"
	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
)

// Roles con permisos sobre la cartera.
const (
	RoleAdmin    = "admin"
	RoleVendedor = "vendedor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Wallet    *appwallet.UseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Cartera
	walletGroup := protected.Group("/wallet")
	walletHandler := NewWalletHandler(deps.Wallet)
	walletGroup.Get("/balances", walletHandler.Balances)
	walletGroup.Get("/movements", walletHandler.Movements)
	walletGroup.Post("/manual", RequireRole(RoleAdmin), walletHandler.Manual)
	walletGroup.Post("/expense", RequireRole(RoleAdmin, RoleVendedor), walletHandler.Expense)
	walletGroup.Post("/settlements", RequireRole(RoleAdmin), walletHandler.Settlement)

	// Eventos del POS y de compras (best-effort)
	events := walletGroup.Group("/events")
	events.Post("/sale", walletHandler.SaleEvent)
	events.Post("/purchase", walletHandler.PurchaseEvent)
}
