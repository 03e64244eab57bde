package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"upsell-service/internal/config"
	"upsell-service/internal/events"
	"upsell-service/internal/handlers"
	"upsell-service/internal/middleware"
	"upsell-service/internal/repository"
	"upsell-service/internal/services"
)

// @title Upsell Recommendation API
// @version 1.0.0
// @description Placement-aware upsell suggestion engine for dispensary menus with multi-tenant support
// @termsOfService http://swagger.io/terms/

// @contact.name Upsell API Support
// @contact.email support@bakedbot.ai

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8094
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repositories
	productRepo := repository.NewProductRepository(db, redisClient)
	bundleRepo := repository.NewBundleRepository(db, redisClient)

	// Initialize event publisher for audit trail only if NATS_URL is set
	var eventsPublisher *events.Publisher
	natsURL := os.Getenv("NATS_URL")
	if natsURL != "" {
		var err error
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Initialize scoring engine
	engine := services.NewUpsellEngine(nil)

	// Initialize handlers (events publisher may be nil if NATS not configured)
	upsellHandler := handlers.NewUpsellHandler(productRepo, bundleRepo, engine, eventsPublisher)
	productHandler := handlers.NewProductHandler(productRepo)
	bundleHandler := handlers.NewBundleHandler(bundleRepo)
	importHandler := handlers.NewImportHandler(productRepo, eventsPublisher)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Protected API routes
	api := router.Group("/api/v1")

	// In development the auth middleware injects a fixed identity; in
	// production identity headers come from the gateway and are required.
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	} else {
		api.Use(middleware.HeaderAuthMiddleware())
	}
	api.Use(middleware.TenantMiddleware())

	v1 := api.Group("")
	{
		upsell := v1.Group("/upsell")
		{
			upsell.POST("/suggestions", upsellHandler.GenerateSuggestions)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)

			products.GET("/import/template", importHandler.GetImportTemplate)
			products.POST("/import", importHandler.ImportMenu)
		}

		bundles := v1.Group("/bundles")
		{
			bundles.GET("", bundleHandler.GetBundles)
			bundles.GET("/:id", bundleHandler.GetBundle)
			bundles.POST("", bundleHandler.CreateBundle)
			bundles.PUT("/:id", bundleHandler.UpdateBundle)
			bundles.DELETE("/:id", bundleHandler.DeleteBundle)
		}
	}

	// Public storefront endpoints: no user auth, tenant context only.
	// Storefront widgets call these for on-menu upsell placements.
	storefront := router.Group("/api/v1/storefront")
	storefront.Use(middleware.TenantMiddleware())
	{
		storefront.POST("/upsell/suggestions", upsellHandler.GenerateSuggestions)
		storefront.GET("/products", productHandler.GetProducts)
		storefront.GET("/products/:id", productHandler.GetProduct)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Upsell service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down upsell-service...")
	log.Println("Upsell service stopped")
}
