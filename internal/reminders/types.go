// Package reminders provides persistent storage for screening reminders.
// Two backends are available: SQLite for single-node deployments and
// PostgreSQL for shared ones. Both enforce at most one open reminder per
// (patient, screening type) at the schema level.
package reminders

import (
	"time"

	"github.com/cds-rules-server/internal/domain"
)

// ReminderExport represents the JSON export format.
type ReminderExport struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Count      int                `json:"count"`
	Reminders  []*domain.Reminder `json:"reminders"`
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReminder scans a row into a Reminder struct.
func scanReminder(s scanner) (*domain.Reminder, error) {
	r := &domain.Reminder{}
	var status string

	err := s.Scan(
		&r.ID, &r.PatientID, &r.ScreeningType, &r.DueDate,
		&status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = domain.ReminderStatus(status)
	return r, nil
}
