package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// ScreeningScheduler computes which preventive screenings a patient is due
// for and raises reminders for them, one open reminder per
// (patient, screening type).
type ScreeningScheduler struct {
	logger    *logrus.Logger
	rules     []domain.ScreeningRule
	reminders domain.ReminderStore
	now       func() time.Time
}

// NewScreeningScheduler builds a scheduler over a fixed rule set.
func NewScreeningScheduler(logger *logrus.Logger, rules []domain.ScreeningRule, reminders domain.ReminderStore) *ScreeningScheduler {
	return &ScreeningScheduler{
		logger:    logger,
		rules:     rules,
		reminders: reminders,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DueScreenings returns every screening the patient is eligible for whose
// due date has arrived, sorted most overdue first. A screening never
// performed is due immediately.
func (s *ScreeningScheduler) DueScreenings(facts *domain.PatientFacts) []domain.DueScreening {
	today := s.now().Truncate(24 * time.Hour)

	var due []domain.DueScreening
	for _, rule := range s.rules {
		if !s.applies(rule, facts) {
			continue
		}

		entry := s.computeDue(rule, facts, today)
		if entry == nil {
			continue
		}
		due = append(due, *entry)
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].OverdueDays > due[j].OverdueDays
	})

	s.logger.WithFields(logrus.Fields{
		"patient_id": facts.PatientID,
		"due_count":  len(due),
	}).Debug("Computed due screenings")

	return due
}

// applies checks rule eligibility: age window, gender restriction, and all
// specified risk factor thresholds. Absent criteria are wildcards.
func (s *ScreeningScheduler) applies(rule domain.ScreeningRule, facts *domain.PatientFacts) bool {
	if !rule.AgeRange.Contains(facts.Age) {
		return false
	}
	if rule.GenderRestriction != nil && *rule.GenderRestriction != facts.Gender {
		return false
	}
	if rf := rule.RiskFactors; rf != nil {
		if rf.TobaccoUse != nil && *rf.TobaccoUse != facts.TobaccoUse {
			return false
		}
		if rf.MinBMI != nil && (facts.BMI == nil || *facts.BMI < *rf.MinBMI) {
			return false
		}
		if len(rf.FamilyHistory) > 0 && !hasAnyHistory(facts.FamilyHistory, rf.FamilyHistory) {
			return false
		}
	}
	return true
}

// computeDue returns the due entry for an applicable rule, or nil when the
// last performance is still within the interval.
func (s *ScreeningScheduler) computeDue(rule domain.ScreeningRule, facts *domain.PatientFacts, today time.Time) *domain.DueScreening {
	last, performed := facts.LastScreened[rule.ScreeningType]
	if !performed {
		return &domain.DueScreening{
			Rule:    rule,
			DueDate: today,
		}
	}

	dueDate := last.AddDate(0, rule.IntervalMonths(), 0)
	if dueDate.After(today) {
		return nil
	}

	overdue := int(today.Sub(dueDate).Hours() / 24)
	if overdue < 0 {
		overdue = 0
	}
	lastCopy := last
	return &domain.DueScreening{
		Rule:              rule,
		DueDate:           dueDate,
		OverdueDays:       overdue,
		LastScreeningDate: &lastCopy,
	}
}

// RaiseReminders creates a reminder for each due screening that does not
// already have an open one. Re-running for the same patient is a no-op for
// screenings already reminded; it returns the reminders created this call.
func (s *ScreeningScheduler) RaiseReminders(ctx context.Context, facts *domain.PatientFacts) ([]*domain.Reminder, error) {
	due := s.DueScreenings(facts)

	var created []*domain.Reminder
	for _, d := range due {
		existing, err := s.reminders.FindOpen(ctx, facts.PatientID, d.Rule.ScreeningType)
		if err != nil {
			return created, fmt.Errorf("checking open reminder for %s: %w", d.Rule.ScreeningType, err)
		}
		if existing != nil {
			continue
		}

		now := s.now()
		reminder := &domain.Reminder{
			ID:            uuid.New().String(),
			PatientID:     facts.PatientID,
			ScreeningType: d.Rule.ScreeningType,
			DueDate:       d.DueDate,
			Status:        domain.REMINDER_OPEN,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.reminders.Create(ctx, reminder); err != nil {
			return created, fmt.Errorf("creating reminder for %s: %w", d.Rule.ScreeningType, err)
		}
		created = append(created, reminder)

		s.logger.WithFields(logrus.Fields{
			"patient_id":     facts.PatientID,
			"screening_type": d.Rule.ScreeningType,
			"due_date":       d.DueDate.Format("2006-01-02"),
			"overdue_days":   d.OverdueDays,
		}).Info("Screening reminder created")
	}
	return created, nil
}

// RecordPerformed marks a screening as done: any open reminder for it is
// completed and the caller's store gets the new performance date.
func (s *ScreeningScheduler) RecordPerformed(ctx context.Context, patientID, screeningType string, performedAt time.Time) error {
	existing, err := s.reminders.FindOpen(ctx, patientID, screeningType)
	if err != nil {
		return fmt.Errorf("finding open reminder: %w", err)
	}
	if existing == nil {
		return nil
	}
	if err := s.reminders.UpdateStatus(ctx, existing.ID, domain.REMINDER_COMPLETED); err != nil {
		return fmt.Errorf("completing reminder %s: %w", existing.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":     patientID,
		"screening_type": screeningType,
		"performed_at":   performedAt.Format("2006-01-02"),
	}).Info("Screening recorded as performed")
	return nil
}

func hasAnyHistory(patientHistory, wanted []string) bool {
	for _, w := range wanted {
		for _, h := range patientHistory {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
