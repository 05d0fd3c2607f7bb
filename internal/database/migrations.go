package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// MigrationRunner applies the patient-record schema (patients, lab
// observations, prevention plans, screening tracking, reminders) with
// golang-migrate.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a runner over the numbered SQL files in
// migrationsPath.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening migration source %q: %w", migrationsPath, err)
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// Up applies all pending schema migrations.
func (mr *MigrationRunner) Up() error {
	mr.log.Info("Applying patient record schema migrations")

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("Patient record schema already current")
			return nil
		}
		return fmt.Errorf("applying schema migrations: %w", err)
	}

	mr.logSchemaVersion("Patient record schema migrated")
	return nil
}

// Down rolls back the most recent schema migration.
func (mr *MigrationRunner) Down() error {
	mr.log.Info("Rolling back last schema migration")

	if err := mr.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No schema migrations to roll back")
			return nil
		}
		return fmt.Errorf("rolling back schema migration: %w", err)
	}

	mr.logSchemaVersion("Schema migration rolled back")
	return nil
}

// Version returns the current schema version and whether a failed
// migration left it dirty.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

// Close releases the migration source and database handles.
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database handle: %w", dbErr)
	}
	return nil
}

func (mr *MigrationRunner) logSchemaVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not read schema version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"schema_version": version,
		"dirty":          dirty,
	}).Info(msg)
}
