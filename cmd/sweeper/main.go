// The sweeper walks the active patient roster once and raises reminders
// for due screenings, then exits. It is meant to run on a schedule.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/config"
	"github.com/cds-rules-server/internal/database"
	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/logging"
	"github.com/cds-rules-server/internal/reminders"
	"github.com/cds-rules-server/internal/repository"
	"github.com/cds-rules-server/internal/service"
	"github.com/cds-rules-server/internal/sweep"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cancelling sweep")
		cancel()
	}()

	db, err := database.NewConnection(ctx, database.FromDomain(cfg.Database), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to patient record store: %v", err)
	}
	defer db.Close()

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

	records := repository.NewPatientRepository(db.Pool, logger)
	scheduler := service.NewScreeningScheduler(logger, catalog.ScreeningRules(), reminderStore)
	sweeper := sweep.NewSweeper(logger, records, scheduler, cfg.Sweep)

	result, err := sweeper.Run(ctx)
	if err != nil {
		logger.Fatalf("Roster sweep failed: %v", err)
	}
	if result.Failures > 0 {
		os.Exit(1)
	}
}
