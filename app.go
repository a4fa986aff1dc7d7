package main

import (
	"time"

	"tokocheckout/internal/config"
	"tokocheckout/internal/handlers"
	"tokocheckout/internal/middleware"
	"tokocheckout/internal/models"
	"tokocheckout/internal/repositories"
	"tokocheckout/internal/services"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// backends are the stores and brokers the API runs against.
type backends struct {
	db          *gorm.DB
	idempotency repositories.IdempotencyStore
	// publisher is nil when no broker is configured.
	publisher services.EventPublisher
}

// newApp wires repositories, services and handlers into a fiber app.
func newApp(cfg config.Config, b backends, log *zap.Logger) *fiber.App {
	productRepo := repositories.NewGORMProductRepository(b.db)
	shippingRepo := repositories.NewGORMShippingOptionRepository(b.db)
	userRepo := repositories.NewGORMUserRepository(b.db)
	orderRepo := repositories.NewGORMOrderRepository(b.db)
	paymentRepo := repositories.NewGORMPaymentRepository(b.db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.TokenTTL)
	catalogService := services.NewCatalogService(productRepo, shippingRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, shippingRepo, b.idempotency, b.publisher, services.OrderSettings{
		Fees:                cfg.Checkout.Fees(),
		WarrantyCostPerItem: cfg.Checkout.WarrantyCostPerItem,
		MaxBonus:            cfg.Checkout.MaxBonus,
		IdempotencyTTL:      cfg.Checkout.IdempotencyTTL,
	}, log)
	paymentService := services.NewPaymentService(paymentRepo, orderService, b.publisher, cfg.Checkout.PaymentExpiry, log)

	app := fiber.New(fiber.Config{
		AppName:               "toko-checkout",
		DisableStartupMessage: cfg.App.Environment == "test",
	})
	if cfg.App.Environment != "test" {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": databaseStatus(b.db),
			"events":   b.publisher != nil,
		})
	})

	apiV1 := app.Group("/api/v1")
	// Auth routes are public and must be registered before the protected group.
	handlers.NewAuthHandler(authService, log).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, log))
	handlers.NewCatalogHandler(catalogService, log).RegisterRoutes(protected)
	handlers.NewOrderHandler(orderService, log).RegisterRoutes(protected)
	handlers.NewPaymentHandler(paymentService, log).RegisterRoutes(protected)

	return app
}

func databaseStatus(db *gorm.DB) string {
	sqlDB, err := db.DB()
	if err != nil {
		return "unavailable"
	}
	if err := sqlDB.Ping(); err != nil {
		return "unreachable"
	}
	return "connected"
}

// seedCatalog fills an empty catalogue with sandbox products and carriers.
func seedCatalog(db *gorm.DB, log *zap.Logger) error {
	catalog := services.NewCatalogService(
		repositories.NewGORMProductRepository(db),
		repositories.NewGORMShippingOptionRepository(db),
	)

	existing, err := catalog.GetAllProducts()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("catalogue already seeded", zap.Int("products", len(existing)))
		return nil
	}

	products := []models.Product{
		{Name: "Laptop Asus Vivobook 14", Description: "Intel Core i5, 8GB RAM, 512GB SSD", Price: 100000, OriginalPrice: 120000, Stock: 10},
		{Name: "Keyboard Mekanikal", Description: "Hot-swappable, brown switch", Price: 45000, Stock: 25},
		{Name: "Mouse Wireless", Description: "Ergonomic 2.4GHz mouse", Price: 15000, OriginalPrice: 20000, Stock: 50},
	}
	for i := range products {
		if err := catalog.CreateProduct(&products[i]); err != nil {
			return err
		}
		log.Info("seeded product", zap.String("id", products[i].ID), zap.String("name", products[i].Name))
	}

	options := []models.ShippingOption{
		{ID: "jne-reg", Carrier: "JNE", Service: "Reguler", Cost: 7000, InsuranceCost: 300, InsuranceAvailable: true, EstimatedDays: 3},
		{ID: "jnt-ez", Carrier: "J&T", Service: "EZ", Cost: 8000, InsuranceCost: 500, InsuranceAvailable: true, EstimatedDays: 2},
		{ID: "sicepat-halu", Carrier: "SiCepat", Service: "HALU", Cost: 5000, EstimatedDays: 5},
	}
	for i := range options {
		if err := catalog.CreateShippingOption(&options[i]); err != nil {
			return err
		}
	}
	log.Info("seeded shipping options", zap.Int("count", len(options)))
	return nil
}
