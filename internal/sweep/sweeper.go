// Package sweep runs the periodic roster pass that raises screening
// reminders for every active patient.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/service"
)

// Result summarizes one roster sweep.
type Result struct {
	PatientsSeen     int           `json:"patients_seen"`
	RemindersCreated int           `json:"reminders_created"`
	Failures         int           `json:"failures"`
	Skipped          int           `json:"skipped"`
	Duration         time.Duration `json:"duration"`
}

// Sweeper walks the patient roster and raises due-screening reminders.
// Record store reads are rate limited; reminder writes go through the
// dispatcher's circuit breaker so a failing reminder backend stops the
// write load without aborting the walk.
type Sweeper struct {
	logger     *logrus.Logger
	records    domain.PatientRecordStore
	dispatcher *Dispatcher
	limiter    *rate.Limiter
}

// NewSweeper creates a roster sweeper.
func NewSweeper(
	logger *logrus.Logger,
	records domain.PatientRecordStore,
	scheduler *service.ScreeningScheduler,
	cfg domain.SweepConfig,
) *Sweeper {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	return &Sweeper{
		logger:     logger,
		records:    records,
		dispatcher: NewDispatcher(logger, scheduler, cfg),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// Run performs one full roster pass. Per-patient failures are counted and
// logged but do not stop the sweep; only a roster listing failure aborts.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	started := time.Now()

	roster, err := s.records.ListRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing patient roster: %w", err)
	}

	result := &Result{}
	for _, patientID := range roster {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("sweep cancelled: %w", err)
		}

		result.PatientsSeen++
		created, err := s.sweepOne(ctx, patientID)
		if err != nil {
			if Rejected(err) {
				result.Skipped++
			} else {
				result.Failures++
			}
			s.logger.WithFields(logrus.Fields{
				"patient_id": patientID,
				"error":      err,
			}).Warn("Sweep failed for patient")
			continue
		}
		result.RemindersCreated += created
	}

	result.Duration = time.Since(started)
	s.logger.WithFields(logrus.Fields{
		"patients_seen":     result.PatientsSeen,
		"reminders_created": result.RemindersCreated,
		"failures":          result.Failures,
		"skipped":           result.Skipped,
		"duration_ms":       result.Duration.Milliseconds(),
	}).Info("Roster sweep completed")

	return result, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, patientID string) (int, error) {
	facts, err := s.records.GetPatientFacts(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("reading patient facts: %w", err)
	}
	return s.dispatcher.Dispatch(ctx, facts)
}
