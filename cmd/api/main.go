package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/baketsu/backend/internal/billing"
	"github.com/baketsu/backend/internal/config"
	"github.com/baketsu/backend/internal/database"
	"github.com/baketsu/backend/internal/handlers"
	"github.com/baketsu/backend/internal/ledger"
	"github.com/baketsu/backend/internal/middleware"
	"github.com/baketsu/backend/internal/models"
	"github.com/baketsu/backend/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.DB.AutoMigrate(&database.SystemPreference{}); err != nil {
		log.Fatalf("Failed to migrate system preferences: %v", err)
	}

	// Persist the JWT secret so sessions survive restarts
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	// Object store
	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	led := ledger.New(database.DB)
	pricing := billing.Pricing{PricePerGBMonthCents: cfg.PricePerGBMonthCents}
	invoices := billing.NewInvoiceService(database.DB, led, pricing)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Baketsu API v1.0",
		ServerHeader: "Baketsu",
		BodyLimit:    200 * 1024 * 1024, // 200MB uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "baketsu-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	fileHandler := handlers.NewFileHandler(cfg, store, led)
	folderHandler := handlers.NewFolderHandler()
	billingHandler := handlers.NewBillingHandler(led, invoices, pricing)
	storageHandler := handlers.NewStorageHandler(led)

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute by default)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Get("/auth/verify/:token", authHandler.Verify)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/logout", authHandler.Logout)

	// Files
	protected.Post("/files/upload", fileHandler.Upload)
	protected.Get("/files", fileHandler.List)
	protected.Get("/files/:id", fileHandler.Get)
	protected.Get("/files/:id/download", fileHandler.Download)
	protected.Put("/files/:id/rename", fileHandler.Rename)
	protected.Delete("/files/:id", fileHandler.Delete)

	// Folders
	protected.Post("/folders", folderHandler.Create)
	protected.Get("/folders", folderHandler.List)
	protected.Put("/folders/:id/move", folderHandler.Move)

	// Storage summary
	protected.Get("/storage", storageHandler.Summary)

	// Billing
	protected.Get("/billing/usage", billingHandler.Usage)
	protected.Post("/billing/invoices", billingHandler.GenerateInvoice)
	protected.Get("/billing/invoices", billingHandler.ListInvoices)
	protected.Get("/billing/invoices/:id", billingHandler.GetInvoice)
	protected.Put("/billing/invoices/:id/status", billingHandler.RecordPayment)
	protected.Delete("/billing/invoices/:id", billingHandler.DeleteInvoice)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Baketsu API listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
