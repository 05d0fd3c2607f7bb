package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCheckerAggregation(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	checker := NewChecker(logger, time.Second)
	checker.Register(&PingCheck{Component: "store", Probe: func(ctx context.Context) error { return nil }})

	status := checker.Run(context.Background())
	assert.Equal(t, StateHealthy, status.State)
	assert.Len(t, status.Components, 1)

	checker.Register(&RedisCheck{Client: nil})
	status = checker.Run(context.Background())
	assert.Equal(t, StateDegraded, status.State)

	checker.Register(&PingCheck{Component: "reminders", Probe: func(ctx context.Context) error {
		return errors.New("connection refused")
	}})
	status = checker.Run(context.Background())
	assert.Equal(t, StateUnhealthy, status.State)
	assert.Equal(t, "connection refused", status.Components["reminders"].Message)
}
