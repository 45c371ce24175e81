package router

import (
	"onam_fest/config"
	"onam_fest/constants"
	"onam_fest/handler"
	"onam_fest/middleware"
	"onam_fest/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// SetupRoutes registers every route. storage backs the rate limiter and CSRF
// tokens; nil keeps them in memory.
func SetupRoutes(app *fiber.App, h *handler.Handler, settings config.Settings, storage fiber.Storage) {
	window := settings.RateLimitWindow
	light := middleware.RateLimit("light", settings.RateLimitLight, window, storage)
	standard := middleware.RateLimit("default", settings.RateLimitDefault, window, storage)
	strict := middleware.RateLimit("order", settings.RateLimitOrder, window, storage)

	protected := middleware.Protected(h.Users)
	admin := middleware.RequireRole(constants.ROLE_ADMIN)

	app.Get("/health", h.Health)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics.Handler()))
	}

	api := app.Group("/api", logger.New(), middleware.CSRF(settings.CSRFEnabled, settings.IsProduction(), storage))
	api.Get("/config", light, h.PublicConfig)
	api.Get("/csrf-token", light, h.CSRFToken)

	auth := api.Group("/auth")
	auth.Post("/register", standard, validate.RegisterUser(), h.Register)
	auth.Post("/login", standard, validate.Login(), h.Login)
	auth.Post("/logout", standard, h.Logout)
	auth.Get("/me", light, protected, h.Me)

	order := api.Group("/orders")
	order.Post("/", strict, middleware.OptionalJWT(h.Users), validate.CreateOrder(), h.CreateOrder)
	order.Get("/", light, protected, validate.FilterOrders(), h.ListOrders)
	order.Get("/:orderId", light, h.GetOrder)
	order.Patch("/:orderId/status", standard, protected, admin, validate.UpdateOrderStatus(), h.UpdateOrderStatus)
	order.Post("/:orderId/resend-confirmation", strict, protected, admin, h.ResendConfirmation)
}
