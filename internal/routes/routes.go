package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/sugampay/internal/config"
	"github.com/example/sugampay/internal/handlers"
	"github.com/example/sugampay/internal/middleware"
	"github.com/example/sugampay/internal/services"
)

// NewApp builds the Fiber application with shared middleware.
func NewApp(cfg *config.Config, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "SugamPay Server",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(middleware.RequestLogger(log))

	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, orders *services.OrderService, payments *services.PaymentService, log zerolog.Logger) {
	paymentHandler := handlers.NewPaymentHandler(orders, payments, log)
	payLimiter := middleware.NewRateLimiter(cfg.PayRateLimit, cfg.PayRateBurst)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SugamPay Server is Running...")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	merchantAuth := middleware.MerchantAuth(cfg.MerchantJWTSecret)

	// Called by merchant sites.
	api.Post("/create-order", merchantAuth, paymentHandler.CreateOrder)

	// Transaction history carries payer details, so it is only served to
	// authenticated merchants.
	if cfg.MerchantJWTSecret != "" {
		api.Get("/transactions", merchantAuth, paymentHandler.ListTransactions)
		api.Get("/transactions/:transactionId", merchantAuth, paymentHandler.GetTransaction)
	} else {
		log.Warn().Msg("MERCHANT_JWT_SECRET not set, transaction endpoints disabled")
	}

	// Called by the payment page.
	api.Get("/get-order/:orderId", paymentHandler.GetOrder)
	api.Post("/pay", payLimiter.Handler(), paymentHandler.Pay)
}
