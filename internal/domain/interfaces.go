package domain

import (
	"context"
	"time"
)

// PatientRecordStore is the external patient record collaborator. The core
// reads demographics and screening history from it and writes prevention
// plans, reminders and tracking updates back; its schema is out of scope.
type PatientRecordStore interface {
	GetDemographics(ctx context.Context, patientID string) (*Demographics, error)
	GetPatientFacts(ctx context.Context, patientID string) (*PatientFacts, error)
	ListRoster(ctx context.Context) ([]string, error)
	CreatePreventionPlan(ctx context.Context, plan *PreventionPlan) error
	UpdateScreeningTracking(ctx context.Context, patientID, screeningType string, performedAt time.Time) error
}

// PreventionPlanLister is the optional read-back surface of a record
// store that retains the plans it was handed.
type PreventionPlanLister interface {
	ListPlansByPatient(ctx context.Context, patientID string) ([]*PreventionPlan, error)
}

// ReminderStore persists screening reminders. FindOpen backs the
// per-(patient, screening type) idempotence guarantee.
type ReminderStore interface {
	Create(ctx context.Context, reminder *Reminder) error
	FindOpen(ctx context.Context, patientID, screeningType string) (*Reminder, error)
	UpdateStatus(ctx context.Context, id string, status ReminderStatus) error
	ListByPatient(ctx context.Context, patientID string) ([]*Reminder, error)
	Close() error
}

// DemographicsReader is the narrow read surface the lab monitor needs for
// gender-specific threshold ladders.
type DemographicsReader interface {
	GetDemographics(ctx context.Context, patientID string) (*Demographics, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetCacheConfig() *CacheConfig
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
}
