package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/service"
)

type sweepRecordStore struct {
	roster    []string
	facts     map[string]*domain.PatientFacts
	rosterErr error
}

func (s *sweepRecordStore) GetDemographics(ctx context.Context, patientID string) (*domain.Demographics, error) {
	return nil, domain.ErrNotFound
}

func (s *sweepRecordStore) GetPatientFacts(ctx context.Context, patientID string) (*domain.PatientFacts, error) {
	facts, ok := s.facts[patientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return facts, nil
}

func (s *sweepRecordStore) ListRoster(ctx context.Context) ([]string, error) {
	if s.rosterErr != nil {
		return nil, s.rosterErr
	}
	return s.roster, nil
}

func (s *sweepRecordStore) CreatePreventionPlan(ctx context.Context, plan *domain.PreventionPlan) error {
	return nil
}

func (s *sweepRecordStore) UpdateScreeningTracking(ctx context.Context, patientID, screeningType string, performedAt time.Time) error {
	return nil
}

type sweepReminderStore struct {
	reminders []*domain.Reminder
	createErr error
}

func (s *sweepReminderStore) Create(ctx context.Context, r *domain.Reminder) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.reminders = append(s.reminders, r)
	return nil
}

func (s *sweepReminderStore) FindOpen(ctx context.Context, patientID, screeningType string) (*domain.Reminder, error) {
	for _, r := range s.reminders {
		if r.PatientID == patientID && r.ScreeningType == screeningType && r.Status == domain.REMINDER_OPEN {
			return r, nil
		}
	}
	return nil, nil
}

func (s *sweepReminderStore) UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error {
	return nil
}

func (s *sweepReminderStore) ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	return nil, nil
}

func (s *sweepReminderStore) Close() error { return nil }

func eligibleFacts(patientID string) *domain.PatientFacts {
	return &domain.PatientFacts{
		PatientID:    patientID,
		Age:          55,
		Gender:       domain.FEMALE,
		LastScreened: map[string]time.Time{},
	}
}

func newTestSweeper(records *sweepRecordStore, reminders *sweepReminderStore, cfg domain.SweepConfig) *Sweeper {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	scheduler := service.NewScreeningScheduler(logger, catalog.ScreeningRules(), reminders)
	return NewSweeper(logger, records, scheduler, cfg)
}

func TestSweepCreatesRemindersAcrossRoster(t *testing.T) {
	records := &sweepRecordStore{
		roster: []string{"pat-1", "pat-2"},
		facts: map[string]*domain.PatientFacts{
			"pat-1": eligibleFacts("pat-1"),
			"pat-2": eligibleFacts("pat-2"),
		},
	}
	reminders := &sweepReminderStore{}
	sweeper := newTestSweeper(records, reminders, domain.SweepConfig{RatePerSecond: 1000, Burst: 100})

	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.PatientsSeen)
	assert.Zero(t, result.Failures)
	assert.Equal(t, len(reminders.reminders), result.RemindersCreated)
	assert.Greater(t, result.RemindersCreated, 0)
}

func TestSweepIsIdempotent(t *testing.T) {
	records := &sweepRecordStore{
		roster: []string{"pat-1"},
		facts:  map[string]*domain.PatientFacts{"pat-1": eligibleFacts("pat-1")},
	}
	reminders := &sweepReminderStore{}
	sweeper := newTestSweeper(records, reminders, domain.SweepConfig{RatePerSecond: 1000, Burst: 100})

	first, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	require.Greater(t, first.RemindersCreated, 0)

	second, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.RemindersCreated)
	assert.Len(t, reminders.reminders, first.RemindersCreated)
}

func TestSweepIsolatesPerPatientFailures(t *testing.T) {
	records := &sweepRecordStore{
		roster: []string{"missing", "pat-1"},
		facts:  map[string]*domain.PatientFacts{"pat-1": eligibleFacts("pat-1")},
	}
	reminders := &sweepReminderStore{}
	sweeper := newTestSweeper(records, reminders, domain.SweepConfig{RatePerSecond: 1000, Burst: 100})

	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.PatientsSeen)
	assert.Equal(t, 1, result.Failures)
	assert.Greater(t, result.RemindersCreated, 0)
}

func TestSweepRosterFailureAborts(t *testing.T) {
	records := &sweepRecordStore{rosterErr: errors.New("connection refused")}
	sweeper := newTestSweeper(records, &sweepReminderStore{}, domain.SweepConfig{RatePerSecond: 1000, Burst: 100})

	_, err := sweeper.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing patient roster")
}

func TestSweepBreakerOpensOnConsecutiveWriteFailures(t *testing.T) {
	roster := make([]string, 10)
	facts := make(map[string]*domain.PatientFacts, len(roster))
	for i := range roster {
		id := string(rune('a' + i))
		roster[i] = id
		facts[id] = eligibleFacts(id)
	}

	records := &sweepRecordStore{roster: roster, facts: facts}
	reminders := &sweepReminderStore{createErr: errors.New("write refused")}
	sweeper := newTestSweeper(records, reminders, domain.SweepConfig{
		RatePerSecond:  1000,
		Burst:          100,
		MaxFailures:    3,
		BreakerTimeout: time.Minute,
	})

	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, result.PatientsSeen)
	assert.Equal(t, 3, result.Failures)
	assert.Equal(t, 7, result.Skipped)
	assert.Zero(t, result.RemindersCreated)
}
