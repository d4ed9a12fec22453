package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"product-importer/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Uploads
	UploadDir     string
	MaxFileSizeMB int

	// Import pipeline
	ImportChunkSize  int
	ImportMaxRetries int

	// Task dispatch. Empty AMQPURL selects in-process (synchronous) dispatch.
	AMQPURL      string
	ImportQueue  string
	WebhookQueue string

	// Webhook delivery
	WebhookTimeout    time.Duration
	WebhookMaxRetries int

	// Progress streaming
	ProgressPollInterval time.Duration

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxFileSizeMB, _ := strconv.Atoi(getEnv("MAX_FILE_SIZE_MB", "100"))
	chunkSize, _ := strconv.Atoi(getEnv("IMPORT_CHUNK_SIZE", "1000"))
	importRetries, _ := strconv.Atoi(getEnv("IMPORT_MAX_RETRIES", "3"))
	webhookTimeout, _ := strconv.Atoi(getEnv("WEBHOOK_TIMEOUT_SECONDS", "30"))
	webhookRetries, _ := strconv.Atoi(getEnv("WEBHOOK_MAX_RETRIES", "3"))
	pollInterval, _ := strconv.Atoi(getEnv("PROGRESS_POLL_INTERVAL_SECONDS", "1"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "50"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))

	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if pollInterval <= 0 {
		pollInterval = 1
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "product_importer"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSizeMB: maxFileSizeMB,

		ImportChunkSize:  chunkSize,
		ImportMaxRetries: importRetries,

		AMQPURL:      getEnv("AMQP_URL", ""),
		ImportQueue:  getEnv("IMPORT_QUEUE", "imports"),
		WebhookQueue: getEnv("WEBHOOK_QUEUE", "webhooks"),

		WebhookTimeout:    time.Duration(webhookTimeout) * time.Second,
		WebhookMaxRetries: webhookRetries,

		ProgressPollInterval: time.Duration(pollInterval) * time.Second,

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ImportJob{},
		&models.Webhook{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}

	// Case-insensitive SKU uniqueness. GORM cannot express a functional
	// index, so create it directly.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku_lower ON products (LOWER(sku))",
	).Error; err != nil {
		return nil, fmt.Errorf("failed to create sku index: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
