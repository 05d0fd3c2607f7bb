package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cds-rules-server/internal/domain"
)

// PostgresStore implements domain.ReminderStore using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL reminder store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL reminder store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Create inserts a new reminder. The partial unique index on open status
// rejects a duplicate open reminder for the same patient and screening.
func (s *PostgresStore) Create(ctx context.Context, reminder *domain.Reminder) error {
	now := time.Now()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	reminder.UpdatedAt = now

	query := `
		INSERT INTO reminders (
			id, patient_id, screening_type, due_date, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.PatientID,
		reminder.ScreeningType,
		reminder.DueDate,
		string(reminder.Status),
		reminder.CreatedAt,
		reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

// FindOpen returns the open reminder for a patient and screening type, or
// nil when none exists.
func (s *PostgresStore) FindOpen(ctx context.Context, patientID, screeningType string) (*domain.Reminder, error) {
	query := `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE patient_id = $1 AND screening_type = $2 AND status = 'open'
		LIMIT 1
	`

	r, err := scanReminder(s.db.QueryRowContext(ctx, query, patientID, screeningType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

// UpdateStatus transitions a reminder to a new status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET status = $1, updated_at = $2 WHERE id = $3",
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByPatient returns all reminders for a patient, newest first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	query := `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListOverdue returns every open reminder due on or before the cutoff.
func (s *PostgresStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Reminder, error) {
	query := `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE status = 'open' AND due_date <= $1
		ORDER BY due_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue reminders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
