package app

import (
	"errors"
	"time"

	"shoppingmall/internal/cache"
	"shoppingmall/internal/config"
	"shoppingmall/internal/handlers"
	"shoppingmall/internal/middleware"
	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"
	"shoppingmall/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Deps are the long-lived resources the HTTP app is built from. CartCache
// and Events may be nil.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	CartCache cache.CartCache
	Events    services.EventPublisher
}

// Services groups the application services so callers such as main can
// reach them after New.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Carts    *services.CartService
	Orders   *services.OrderService
	Reports  *services.ReportService
}

// New builds the Fiber app with every route registered.
func New(deps Deps) (*fiber.App, *Services) {
	cfg := deps.Config
	store := repositories.NewStore(deps.DB, cfg.LockTimeout)

	svc := &Services{
		Auth:     services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.TokenTTL),
		Products: services.NewProductService(store),
		Carts:    services.NewCartService(store, deps.CartCache),
		Orders: services.NewOrderService(store, deps.CartCache, deps.Events, services.OrderOptions{
			Location:             cfg.Location(),
			CheckoutTimeout:      cfg.CheckoutTimeout,
			RestoreStockOnCancel: cfg.RestoreStockOnCancel,
		}),
		Reports: services.NewReportService(store, cfg.Location()),
	}

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status, dbStatus := fiber.StatusOK, "up"
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status, dbStatus = fiber.StatusServiceUnavailable, "down"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   dbStatus,
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
		})
	})

	auth := middleware.AuthRequired(svc.Auth)
	memberOnly := middleware.RequireRole(models.RoleMember)
	employeeOnly := middleware.RequireRole(models.RoleEmployee)

	api := app.Group("/api")
	handlers.NewAuthHandler(svc.Auth).RegisterRoutes(api)

	productHandler := handlers.NewProductHandler(svc.Products)
	productHandler.RegisterRoutes(api.Group("/products"), auth, employeeOnly)

	handlers.NewCartHandler(svc.Carts).RegisterRoutes(api.Group("/cart", auth, memberOnly))

	orderHandler := handlers.NewOrderHandler(svc.Orders)
	orderHandler.RegisterRoutes(api.Group("/orders", auth, memberOnly))

	admin := api.Group("/admin", auth, employeeOnly)
	orderHandler.RegisterAdminRoutes(admin)
	productHandler.RegisterAdminRoutes(admin)
	handlers.NewReportHandler(svc.Reports).RegisterRoutes(admin)

	return app, svc
}

// errorHandler renders errors that escaped a handler, including unknown
// routes, in the same envelope handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
