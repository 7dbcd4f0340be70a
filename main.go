// Package main provides the main entry point for the Listflow contact pipeline
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/listflow/listflow/app/handlers"
	"github.com/listflow/listflow/app/router"
	"github.com/listflow/listflow/app/scheduler"
	"github.com/listflow/listflow/app/services"
	businessflow "github.com/listflow/listflow/business_flow"
	"github.com/listflow/listflow/config"
	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.Config
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Listflow application...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.IdentityRecord{},
		&models.ProcessingLog{},
		&models.SyncLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.Config) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.DefaultTTL)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	identityRepo := repository.NewIdentityRecordRepository(db)
	plogRepo := repository.NewProcessingLogRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)

	// Initialize services
	vault, err := services.NewCredentialVault(cfg.Vault.MasterSecret, cfg.Vault.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential vault: %w", err)
	}
	audienceClient := services.NewHTTPAudienceClient(cfg.Audience.BaseURL, cfg.Audience.Timeout)
	fileSource := services.NewHTTPFileSourceClient(cfg.FileSource.BaseURL, cfg.FileSource.Timeout)

	// Initialize flows
	matcher := businessflow.NewMatcher(identityRepo)

	ingestionFlow := businessflow.NewIngestionFlow(
		tenantRepo,
		identityRepo,
		plogRepo,
		matcher,
		db,
		businessflow.IngestionConfig{
			OverwriteOnMatch: cfg.Pipeline.OverwriteOnMatch,
			BulkThreshold:    cfg.Pipeline.BulkThreshold,
			RetentionDays:    cfg.Pipeline.RetentionDays,
		},
	)

	retentionFlow := businessflow.NewRetentionFlow(identityRepo)

	syncFlow := businessflow.NewSyncFlow(audienceClient, vault, syncLogRepo)

	// Start pipeline scheduler
	sched := scheduler.NewPipelineScheduler(
		tenantRepo,
		identityRepo,
		ingestionFlow,
		retentionFlow,
		syncFlow,
		fileSource,
		vault,
		rc,
		cfg.Cache,
		cfg.Pipeline.Interval,
		cfg.Pipeline.RunLogPath,
		cfg.Logging,
	)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	// Initialize handlers
	ingestionHandler := handlers.NewIngestionHandler(ingestionFlow, validator.New())
	pipelineHandler := handlers.NewPipelineHandler(sched, cfg)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, ingestionHandler, pipelineHandler)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
