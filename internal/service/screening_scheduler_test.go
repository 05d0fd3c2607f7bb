package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/domain"
)

type stubReminderStore struct {
	reminders []*domain.Reminder
	createErr error
}

func (s *stubReminderStore) Create(ctx context.Context, reminder *domain.Reminder) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.reminders = append(s.reminders, reminder)
	return nil
}

func (s *stubReminderStore) FindOpen(ctx context.Context, patientID, screeningType string) (*domain.Reminder, error) {
	for _, r := range s.reminders {
		if r.PatientID == patientID && r.ScreeningType == screeningType && r.Status == domain.REMINDER_OPEN {
			return r, nil
		}
	}
	return nil, nil
}

func (s *stubReminderStore) UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error {
	for _, r := range s.reminders {
		if r.ID == id {
			r.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubReminderStore) ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	var out []*domain.Reminder
	for _, r := range s.reminders {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubReminderStore) Close() error { return nil }

var schedulerToday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestScheduler(store *stubReminderStore) *ScreeningScheduler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewScreeningScheduler(logger, catalog.ScreeningRules(), store)
	s.now = func() time.Time { return schedulerToday }
	return s
}

func screeningTypes(due []domain.DueScreening) []string {
	out := make([]string, 0, len(due))
	for _, d := range due {
		out = append(out, d.Rule.ScreeningType)
	}
	return out
}

func TestDueScreeningsEligibility(t *testing.T) {
	scheduler := newTestScheduler(&stubReminderStore{})

	tests := []struct {
		name        string
		facts       *domain.PatientFacts
		wantInclude []string
		wantExclude []string
	}{
		{
			name:        "50 year old female, never screened",
			facts:       &domain.PatientFacts{PatientID: "p1", Age: 50, Gender: domain.FEMALE},
			wantInclude: []string{"colonoscopy", "mammography", "blood_pressure"},
			wantExclude: []string{"low_dose_ct", "dexa_scan", "aaa_ultrasound"},
		},
		{
			name:        "30 year old male below colonoscopy age",
			facts:       &domain.PatientFacts{PatientID: "p2", Age: 30, Gender: domain.MALE},
			wantExclude: []string{"colonoscopy", "mammography"},
		},
		{
			name: "55 year old male smoker",
			facts: &domain.PatientFacts{
				PatientID: "p3", Age: 55, Gender: domain.MALE, TobaccoUse: true,
			},
			wantInclude: []string{"low_dose_ct", "colonoscopy"},
			wantExclude: []string{"mammography", "aaa_ultrasound"},
		},
		{
			name: "68 year old male smoker gets one-time AAA ultrasound",
			facts: &domain.PatientFacts{
				PatientID: "p4", Age: 68, Gender: domain.MALE, TobaccoUse: true,
			},
			wantInclude: []string{"aaa_ultrasound"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := screeningTypes(scheduler.DueScreenings(tt.facts))
			for _, want := range tt.wantInclude {
				assert.Contains(t, got, want)
			}
			for _, not := range tt.wantExclude {
				assert.NotContains(t, got, not)
			}
		})
	}
}

func TestDueScreeningsNeverPerformedIsDueToday(t *testing.T) {
	scheduler := newTestScheduler(&stubReminderStore{})
	facts := &domain.PatientFacts{PatientID: "p1", Age: 50, Gender: domain.FEMALE}

	for _, d := range scheduler.DueScreenings(facts) {
		assert.Nil(t, d.LastScreeningDate, d.Rule.ScreeningType)
		assert.Equal(t, schedulerToday, d.DueDate, d.Rule.ScreeningType)
		assert.Equal(t, 0, d.OverdueDays, d.Rule.ScreeningType)
	}
}

func TestDueScreeningsIntervalArithmetic(t *testing.T) {
	scheduler := newTestScheduler(&stubReminderStore{})

	recent := schedulerToday.AddDate(-1, 0, 0)  // mammography interval is 2 years
	overdue := schedulerToday.AddDate(-3, 0, 0) // 1 year past due
	facts := &domain.PatientFacts{
		PatientID: "p1", Age: 50, Gender: domain.FEMALE,
		LastScreened: map[string]time.Time{"mammography": recent},
	}

	assert.NotContains(t, screeningTypes(scheduler.DueScreenings(facts)), "mammography")

	// Exactly one interval ago: due date falls on today, overdue zero.
	facts.LastScreened["mammography"] = schedulerToday.AddDate(-2, 0, 0)
	boundary := scheduler.DueScreenings(facts)
	require.Contains(t, screeningTypes(boundary), "mammography")
	for _, d := range boundary {
		if d.Rule.ScreeningType != "mammography" {
			continue
		}
		assert.Equal(t, schedulerToday, d.DueDate)
		assert.Equal(t, 0, d.OverdueDays)
	}

	facts.LastScreened["mammography"] = overdue
	due := scheduler.DueScreenings(facts)
	require.Contains(t, screeningTypes(due), "mammography")

	for _, d := range due {
		if d.Rule.ScreeningType != "mammography" {
			continue
		}
		assert.Equal(t, overdue.AddDate(2, 0, 0), d.DueDate)
		assert.Equal(t, 366, d.OverdueDays) // spans Feb 29 2024
		require.NotNil(t, d.LastScreeningDate)
		assert.Equal(t, overdue, *d.LastScreeningDate)
	}
}

func TestDueScreeningsMostOverdueFirst(t *testing.T) {
	scheduler := newTestScheduler(&stubReminderStore{})
	facts := &domain.PatientFacts{
		PatientID: "p1", Age: 60, Gender: domain.FEMALE,
		LastScreened: map[string]time.Time{
			"mammography": schedulerToday.AddDate(-3, 0, 0),  // 1 year overdue
			"colonoscopy": schedulerToday.AddDate(-15, 0, 0), // 5 years overdue
		},
	}

	due := scheduler.DueScreenings(facts)
	require.NotEmpty(t, due)
	for i := 1; i < len(due); i++ {
		assert.GreaterOrEqual(t, due[i-1].OverdueDays, due[i].OverdueDays)
	}
	assert.Equal(t, "colonoscopy", due[0].Rule.ScreeningType)
}

func TestRaiseRemindersIdempotent(t *testing.T) {
	store := &stubReminderStore{}
	scheduler := newTestScheduler(store)
	facts := &domain.PatientFacts{PatientID: "p1", Age: 50, Gender: domain.FEMALE}

	first, err := scheduler.RaiseReminders(context.Background(), facts)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for _, r := range first {
		assert.Equal(t, domain.REMINDER_OPEN, r.Status)
		assert.Equal(t, "p1", r.PatientID)
	}

	second, err := scheduler.RaiseReminders(context.Background(), facts)
	require.NoError(t, err)
	assert.Empty(t, second, "second run must not duplicate open reminders")
	assert.Len(t, store.reminders, len(first))
}

func TestRecordPerformedClosesReminderAndReopensLater(t *testing.T) {
	store := &stubReminderStore{}
	scheduler := newTestScheduler(store)
	facts := &domain.PatientFacts{PatientID: "p1", Age: 50, Gender: domain.FEMALE}

	_, err := scheduler.RaiseReminders(context.Background(), facts)
	require.NoError(t, err)

	performedAt := schedulerToday.AddDate(0, 0, 3)
	require.NoError(t, scheduler.RecordPerformed(context.Background(), "p1", "mammography", performedAt))

	open, err := store.FindOpen(context.Background(), "p1", "mammography")
	require.NoError(t, err)
	assert.Nil(t, open)

	// After the interval elapses the screening comes due again and a fresh
	// reminder is allowed.
	facts.LastScreened = map[string]time.Time{"mammography": performedAt}
	later := schedulerToday.AddDate(2, 1, 0)
	scheduler.now = func() time.Time { return later }

	created, err := scheduler.RaiseReminders(context.Background(), facts)
	require.NoError(t, err)
	assert.Contains(t, screeningTypesOf(created), "mammography")
}

func screeningTypesOf(reminders []*domain.Reminder) []string {
	out := make([]string, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, r.ScreeningType)
	}
	return out
}

func TestRaiseRemindersCreateFailureStops(t *testing.T) {
	store := &stubReminderStore{createErr: assert.AnError}
	scheduler := newTestScheduler(store)
	facts := &domain.PatientFacts{PatientID: "p1", Age: 50, Gender: domain.FEMALE}

	created, err := scheduler.RaiseReminders(context.Background(), facts)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, created)
}
