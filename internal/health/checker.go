// Package health aggregates component health checks for the readiness
// endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// State is the coarse health classification of a component or the system.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// ComponentHealth is one component's latest check result.
type ComponentHealth struct {
	Name      string        `json:"name"`
	State     State         `json:"state"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Check probes a single component.
type Check interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// Status is the aggregated system view.
type Status struct {
	State      State                      `json:"state"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// Checker runs registered checks on demand.
type Checker struct {
	logger  *logrus.Logger
	checks  []Check
	timeout time.Duration
	mu      sync.RWMutex
}

// NewChecker creates a health checker with a per-check timeout.
func NewChecker(logger *logrus.Logger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a component check.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Run executes all registered checks and aggregates the result. Any
// unhealthy component marks the system unhealthy; a degraded component
// degrades it.
func (c *Checker) Run(ctx context.Context) *Status {
	c.mu.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	status := &Status{
		State:      StateHealthy,
		Components: make(map[string]ComponentHealth, len(checks)),
		CheckedAt:  time.Now().UTC(),
	}

	for _, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result := check.Check(checkCtx)
		cancel()

		status.Components[result.Name] = result
		switch result.State {
		case StateUnhealthy:
			status.State = StateUnhealthy
			c.logger.WithFields(logrus.Fields{
				"component": result.Name,
				"message":   result.Message,
			}).Warn("Component unhealthy")
		case StateDegraded:
			if status.State == StateHealthy {
				status.State = StateDegraded
			}
		}
	}
	return status
}

// PostgresCheck probes the patient record store connection pool.
type PostgresCheck struct {
	Pool *pgxpool.Pool
}

func (p *PostgresCheck) Name() string { return "patient_record_store" }

func (p *PostgresCheck) Check(ctx context.Context) ComponentHealth {
	started := time.Now()
	health := ComponentHealth{
		Name:      p.Name(),
		State:     StateHealthy,
		CheckedAt: started.UTC(),
	}
	if err := p.Pool.Ping(ctx); err != nil {
		health.State = StateUnhealthy
		health.Message = err.Error()
	}
	health.Latency = time.Since(started)
	return health
}

// RedisCheck probes the result cache backend. A failed cache is degraded,
// not unhealthy: the rule layer works without it.
type RedisCheck struct {
	Client *redis.Client
}

func (r *RedisCheck) Name() string { return "result_cache" }

func (r *RedisCheck) Check(ctx context.Context) ComponentHealth {
	started := time.Now()
	health := ComponentHealth{
		Name:      r.Name(),
		State:     StateHealthy,
		CheckedAt: started.UTC(),
	}
	if r.Client == nil {
		health.State = StateDegraded
		health.Message = "cache disabled"
	} else if err := r.Client.Ping(ctx).Err(); err != nil {
		health.State = StateDegraded
		health.Message = err.Error()
	}
	health.Latency = time.Since(started)
	return health
}

// PingCheck wraps an arbitrary probe function, used for the reminder store.
type PingCheck struct {
	Component string
	Probe     func(ctx context.Context) error
}

func (p *PingCheck) Name() string { return p.Component }

func (p *PingCheck) Check(ctx context.Context) ComponentHealth {
	started := time.Now()
	health := ComponentHealth{
		Name:      p.Component,
		State:     StateHealthy,
		CheckedAt: started.UTC(),
	}
	if err := p.Probe(ctx); err != nil {
		health.State = StateUnhealthy
		health.Message = err.Error()
	}
	health.Latency = time.Since(started)
	return health
}
