package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"product-importer/internal/config"
	"product-importer/internal/dispatch"
	"product-importer/internal/importer"
	"product-importer/internal/models"
	"product-importer/internal/repository"
	"product-importer/internal/webhooks"
)

// triggerNotifier delivers completion events straight to the webhook
// trigger; the worker is already the async side, there is no second hop.
type triggerNotifier struct {
	trigger *webhooks.Trigger
}

func (n triggerNotifier) Notify(event models.Event) error {
	return n.trigger.HandleEvent(event)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL must be set to run the queue worker")
	}

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

	productsRepo := repository.NewProductsRepository(db, nil)
	jobsRepo := repository.NewImportJobsRepository(db)
	webhooksRepo := repository.NewWebhooksRepository(db)

	sender := webhooks.NewSender(cfg.WebhookTimeout, cfg.WebhookMaxRetries, logger)
	trigger := webhooks.NewTrigger(webhooksRepo, sender, logger)

	engine := importer.NewUpsertEngine(productsRepo)
	chunks := importer.NewChunkProcessor(engine, logger)
	orchestrator := importer.NewOrchestrator(jobsRepo, chunks, triggerNotifier{trigger: trigger}, cfg.ImportChunkSize, logger)

	worker, err := dispatch.NewWorker(cfg.AMQPURL, cfg.ImportQueue, cfg.WebhookQueue,
		orchestrator, trigger, cfg.ImportMaxRetries, logger)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer worker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	if err := worker.Start(ctx); err != nil {
		log.Fatal("Worker failed:", err)
	}
}
