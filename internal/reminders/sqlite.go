package reminders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cds-rules-server/internal/domain"
)

// SQLiteStore implements domain.ReminderStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite reminder store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes. The partial unique
// index is the idempotence guarantee: one open reminder per
// (patient, screening type), any number of closed ones.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		screening_type TEXT NOT NULL,
		due_date DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_one_open
		ON reminders(patient_id, screening_type) WHERE status = 'open';
	CREATE INDEX IF NOT EXISTS idx_reminders_patient ON reminders(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_due_date ON reminders(due_date);
	`

	_, err := db.Exec(schema)
	return err
}

// Create inserts a new reminder. Inserting a second open reminder for the
// same patient and screening type fails on the unique index.
func (s *SQLiteStore) Create(ctx context.Context, reminder *domain.Reminder) error {
	now := time.Now()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	reminder.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (
			id, patient_id, screening_type, due_date, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
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
func (s *SQLiteStore) FindOpen(ctx context.Context, patientID, screeningType string) (*domain.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE patient_id = ? AND screening_type = ? AND status = 'open'
		LIMIT 1
	`, patientID, screeningType)

	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}
	return r, nil
}

// UpdateStatus transitions a reminder to a new status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reminders SET status = ?, updated_at = ? WHERE id = ?",
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
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE patient_id = ?
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
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
func (s *SQLiteStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		WHERE status = 'open' AND due_date <= ?
		ORDER BY due_date ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue reminders: %w", err)
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

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all reminders to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, screening_type, due_date, status, created_at, updated_at
		FROM reminders
		ORDER BY created_at DESC
		LIMIT ?
	`, maxExportLimit)
	if err != nil {
		return fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var all []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	export := &ReminderExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Reminders:  all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
