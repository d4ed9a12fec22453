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

	"product-importer/internal/config"
	"product-importer/internal/dispatch"
	"product-importer/internal/handlers"
	"product-importer/internal/importer"
	"product-importer/internal/middleware"
	"product-importer/internal/models"
	"product-importer/internal/repository"
	"product-importer/internal/webhooks"
)

// dispatchNotifier routes orchestrator events through the dispatcher so
// direct and queued deployments share the same completion path.
type dispatchNotifier struct {
	dispatcher dispatch.Dispatcher
}

func (n dispatchNotifier) Notify(event models.Event) error {
	return n.dispatcher.EnqueueEvent(event)
}

// @title Product Importer API
// @version 1.0.0
// @description Product catalog service with asynchronous chunked CSV import
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis is optional; without it product reads skip the cache.
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("Redis connected successfully")
		}
		cancel()
	}

	productsRepo := repository.NewProductsRepository(db, redisClient)
	jobsRepo := repository.NewImportJobsRepository(db)
	webhooksRepo := repository.NewWebhooksRepository(db)

	sender := webhooks.NewSender(cfg.WebhookTimeout, cfg.WebhookMaxRetries, logger)
	trigger := webhooks.NewTrigger(webhooksRepo, sender, logger)

	// The orchestrator's notifier is filled in after the dispatcher is
	// chosen so both dispatch modes share one wiring.
	engine := importer.NewUpsertEngine(productsRepo)
	chunks := importer.NewChunkProcessor(engine, logger)

	var dispatcher dispatch.Dispatcher
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := dispatch.NewAMQPDispatcher(cfg.AMQPURL, cfg.ImportQueue, cfg.WebhookQueue, logger)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		dispatcher = amqpDispatcher
		log.Println("AMQP dispatch enabled, imports run in the worker process")
	} else {
		notifierPlaceholder := &deferredNotifier{}
		orchestrator := importer.NewOrchestrator(jobsRepo, chunks, notifierPlaceholder, cfg.ImportChunkSize, logger)
		direct := dispatch.NewDirectDispatcher(orchestrator, trigger, logger)
		notifierPlaceholder.target = dispatchNotifier{dispatcher: direct}
		dispatcher = direct
		log.Println("AMQP_URL not set, imports run in-process")
	}
	defer dispatcher.Close()

	productsHandler := handlers.NewProductsHandler(productsRepo, dispatcher, cfg, logger)
	importsHandler := handlers.NewImportsHandler(jobsRepo, dispatcher, cfg, logger)
	webhooksHandler := handlers.NewWebhooksHandler(webhooksRepo, sender, logger)
	templateHandler := handlers.NewTemplateHandler()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/products", productsHandler.ListProducts)
		api.POST("/products", productsHandler.CreateProduct)
		api.GET("/products/:id", productsHandler.GetProduct)
		api.PUT("/products/:id", productsHandler.UpdateProduct)
		api.DELETE("/products/:id", productsHandler.DeleteProduct)
		api.POST("/products/bulk-delete", productsHandler.BulkDeleteProducts)

		api.POST("/products/upload-csv", importsHandler.UploadCSV)
		api.GET("/products/import-status/:job_id", importsHandler.GetImportStatus)
		api.GET("/products/import-status/:job_id/stream", importsHandler.StreamImportProgress)
		api.GET("/products/import-jobs", importsHandler.ListImportJobs)
		api.GET("/products/import-template", templateHandler.GetImportTemplate)

		api.GET("/webhooks", webhooksHandler.ListWebhooks)
		api.POST("/webhooks", webhooksHandler.CreateWebhook)
		api.PUT("/webhooks/:id", webhooksHandler.UpdateWebhook)
		api.DELETE("/webhooks/:id", webhooksHandler.DeleteWebhook)
		api.POST("/webhooks/:id/test", webhooksHandler.TestWebhook)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Product importer starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down product-importer...")
}

// deferredNotifier breaks the construction cycle between the direct
// dispatcher and the orchestrator it runs.
type deferredNotifier struct {
	target importer.Notifier
}

func (n *deferredNotifier) Notify(event models.Event) error {
	if n.target == nil {
		return nil
	}
	return n.target.Notify(event)
}
