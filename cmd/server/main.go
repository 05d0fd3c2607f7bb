package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cds-rules-server/internal/api"
	"github.com/cds-rules-server/internal/cache"
	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/config"
	"github.com/cds-rules-server/internal/database"
	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/health"
	"github.com/cds-rules-server/internal/logging"
	"github.com/cds-rules-server/internal/reminders"
	"github.com/cds-rules-server/internal/repository"
	"github.com/cds-rules-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Patient record store
	dbConfig := database.FromDomain(cfg.Database)
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to patient record store: %v", err)
	}
	defer db.Close()

	if cfg.Database.MigrationsPath != "" {
		migrationRunner, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.Fatalf("Failed to create migration runner: %v", err)
		}
		if err := migrationRunner.Up(); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		migrationRunner.Close()
	}

	records := repository.NewPatientRepository(db.Pool, logger)

	// Reminder store
	var reminderStore domain.ReminderStore
	switch cfg.Reminders.Backend {
	case "postgres":
		reminderStore, err = reminders.NewPostgresStoreFromURL(cfg.Reminders.PostgresURL)
	default:
		reminderStore, err = reminders.NewSQLiteStore(cfg.Reminders.SQLitePath)
	}
	if err != nil {
		logger.Fatalf("Failed to open reminder store: %v", err)
	}
	defer reminderStore.Close()

	// Optional Redis-backed result cache
	var redisClient *redis.Client
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.Fatalf("Failed to parse Redis URL: %v", err)
		}
		opts.MaxRetries = cfg.Cache.MaxRetries
		opts.PoolSize = cfg.Cache.PoolSize
		opts.PoolTimeout = cfg.Cache.PoolTimeout
		redisClient = redis.NewClient(opts)

		resultCache = cache.NewResultCache(cache.Config{
			RedisClient: redisClient,
			DefaultTTL:  cfg.Cache.DefaultTTL,
			Enabled:     true,
		}, logger)
	}

	// Assemble the rule layer
	resolver, err := service.NewCachedDemographicsResolver(service.DemographicsResolverConfig{
		MemoryCacheTTL: cfg.Engine.DemographicsCacheTTL,
		MaxMemorySize:  cfg.Engine.DemographicsCacheLen,
	}, records, resultCache, logger)
	if err != nil {
		logger.Fatalf("Failed to create demographics resolver: %v", err)
	}

	protocolCatalog, err := service.NewProtocolCatalog(logger, catalog.Protocols(), cfg.Engine.ProtocolCacheLen)
	if err != nil {
		logger.Fatalf("Failed to build protocol catalog: %v", err)
	}

	checker := health.NewChecker(logger, 0)
	checker.Register(&health.PostgresCheck{Pool: db.Pool})
	checker.Register(&health.RedisCheck{Client: redisClient})

	services := api.Services{
		Detector:  service.NewConditionDetector(logger, catalog.ConditionPatterns(), catalog.MedicationMappings()),
		Engine:    service.NewRuleEngine(logger),
		Monitor:   service.NewLabResultMonitor(logger, resolver, records),
		Scheduler: service.NewScreeningScheduler(logger, catalog.ScreeningRules(), reminderStore),
		Catalog:   protocolCatalog,
		Records:   records,
		Reminders: reminderStore,
		Health:    checker,
	}

	server := api.NewServer(configManager, logger, services)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithField("port", cfg.Server.Port).Info("Starting clinical decision support server")
	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
