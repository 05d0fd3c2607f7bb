package sweep

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/service"
)

// Dispatcher raises reminders through a circuit breaker so a failing
// reminder backend sheds write load instead of absorbing every attempt.
type Dispatcher struct {
	scheduler *service.ScreeningScheduler
	breaker   *gobreaker.CircuitBreaker
}

// NewDispatcher wraps the scheduler's reminder writes in a circuit
// breaker configured from cfg. MaxFailures consecutive write failures
// open the breaker; it half-opens after cfg.BreakerTimeout.
func NewDispatcher(logger *logrus.Logger, scheduler *service.ScreeningScheduler, cfg domain.SweepConfig) *Dispatcher {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reminder-store",
		MaxRequests: 3,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Dispatcher{
		scheduler: scheduler,
		breaker:   breaker,
	}
}

// Dispatch raises due-screening reminders for one patient and returns
// how many were created.
func (d *Dispatcher) Dispatch(ctx context.Context, facts *domain.PatientFacts) (int, error) {
	created, err := d.breaker.Execute(func() (any, error) {
		return d.scheduler.RaiseReminders(ctx, facts)
	})
	if err != nil {
		return 0, err
	}
	return len(created.([]*domain.Reminder)), nil
}

// Rejected reports whether err means the breaker refused the write
// without reaching the backend.
func Rejected(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
