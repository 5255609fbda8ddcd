package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/example/couture/internal/config"
	"github.com/example/couture/internal/handlers"
	"github.com/example/couture/internal/metrics"
	"github.com/example/couture/internal/middleware"
	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/storage"
)

// Services holds everything the HTTP layer calls into.
type Services struct {
	Store      storage.Store
	Tokens     services.TokenIssuer
	Accounts   *services.AccountService
	OTP        *services.OTPService
	Catalog    *services.CatalogService
	Carts      *services.CartService
	OrderCarts *services.OrderCartService
	Orders     *services.CustomOrderService
}

// NewApp builds the Fiber application with the shared middleware stack and
// every route registered.
func NewApp(cfg *config.Config, svc Services, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Couture Backend",
		ErrorHandler: ErrorHandler(log),
		BodyLimit:    int(cfg.MaxUploadSize)*2 + 1<<20,
		ReadTimeout:  30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.Metrics())
	app.Use(middleware.OptionalAuth(svc.Tokens))

	Register(app, cfg, svc, log)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, svc Services, log *zap.Logger) {
	authHandler := handlers.NewAuthHandler(svc.Accounts, svc.OTP, cfg.OTPTTL, cfg.Debug, log)
	resetHandler := handlers.NewPasswordResetHandler(svc.Accounts, svc.OTP)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	orderCartHandler := handlers.NewOrderCartHandler(svc.OrderCarts)
	adminHandler := handlers.NewAdminHandler(svc.Orders)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := svc.Store.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if cfg.MediaRoot != "" {
		app.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	staff := middleware.RequireStaff()
	authenticated := middleware.RequireAuth()

	// Catalog
	app.Get("/categories", catalogHandler.ListCategories)
	app.Post("/categories", staff, catalogHandler.CreateCategory)
	app.Get("/products", catalogHandler.ListProducts)
	app.Post("/products", staff, catalogHandler.CreateProduct)
	app.Get("/product/:id", catalogHandler.GetProduct)

	// Product cart
	app.Post("/add-to-cart", cartHandler.AddToCart)
	app.Get("/cart-items", cartHandler.ListItems)
	app.Patch("/cart-items", cartHandler.UpdateItem)
	app.Delete("/cart-items", cartHandler.DeleteItem)

	// Custom orders
	orders := app.Group("/custom-orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", staff, orderHandler.ListOrders)
	orders.Get("/stats", staff, adminHandler.DashboardStats)
	orders.Get("/:id", authenticated, orderHandler.GetOrder)
	orders.Patch("/:id", authenticated, orderHandler.UpdateOrder)
	orders.Delete("/:id", staff, orderHandler.DeleteOrder)
	orders.Post("/:id/status", staff, orderHandler.UpdateStatus)
	orders.Get("/:id/history", staff, orderHandler.StatusHistory)
	orders.Post("/:id/notes", staff, orderHandler.AddNote)
	orders.Get("/:id/notes", staff, orderHandler.ListNotes)

	// Order cart
	app.Get("/custom-order-list", orderCartHandler.List)
	app.Post("/custom-order-list", orderCartHandler.Attach)
	app.Delete("/custom-order-list", orderCartHandler.Remove)

	// Accounts
	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)
	user := app.Group("/user", limiter.Handler())
	user.Post("/register", authHandler.Register)
	user.Post("/send-otp", authHandler.SendOTP)
	user.Post("/resend-otp", authHandler.ResendOTP)
	user.Post("/verify-email", authHandler.VerifyEmail)
	user.Post("/login", authHandler.Login)
	user.Post("/token/refresh", authHandler.Refresh)
	user.Post("/verify-otp", resetHandler.VerifyOTP)
	user.Post("/reset-password", resetHandler.ResetPassword)
	user.Post("/change-password", authenticated, authHandler.ChangePassword)
	user.Get("/me", authenticated, authHandler.Me)
}
