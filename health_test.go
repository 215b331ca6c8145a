package resil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openedPolicy(t *testing.T, reg *Registry, name string) *Policy[int] {
	t.Helper()

	clk := &stubClock{now: time.Now()}
	p, err := NewPolicy[int](name,
		WithRegistry(reg),
		WithClock(clk),
		WithCircuitBreaker(FailureThreshold(1), OpenTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	_, _ = p.Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("down")
	})

	return p
}

func TestHealthStatusHealthyByDefault(t *testing.T) {
	p, err := NewPolicy[int]("h", WithRegistry(NewRegistry()))
	require.NoError(t, err)

	status := p.HealthStatus()
	require.True(t, status.Healthy)
	require.Equal(t, "healthy", status.State)
	require.Equal(t, CriticalityNone, status.Criticality)
}

func TestHealthStatusOpenBreakerIsCritical(t *testing.T) {
	p := openedPolicy(t, NewRegistry(), "h")

	status := p.HealthStatus()
	require.False(t, status.Healthy)
	require.Equal(t, CriticalityCritical, status.Criticality)
	require.Equal(t, "circuit_open", status.State)
}

func TestHealthStatusHalfOpenIsRecovering(t *testing.T) {
	clk := &stubClock{now: time.Now()}
	p, err := NewPolicy[int]("h",
		WithRegistry(NewRegistry()),
		WithClock(clk),
		WithCircuitBreaker(FailureThreshold(1), OpenTimeout(time.Second)),
	)
	require.NoError(t, err)

	_, _ = p.Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("down")
	})

	clk.setElapsed(2 * time.Second)
	require.NoError(t, p.Breaker().Allow())

	status := p.HealthStatus()
	require.True(t, status.Healthy)
	require.Equal(t, "circuit_half_open", status.State)
}

func TestHealthStatusSaturatedLimiterDegrades(t *testing.T) {
	clk := &stubClock{now: time.Now()}
	p, err := NewPolicy[int]("h",
		WithRegistry(NewRegistry()),
		WithClock(clk),
		WithRateLimit(1),
	)
	require.NoError(t, err)

	_, _ = p.Do(context.Background(), func(context.Context) (int, error) { return 1, nil })

	status := p.HealthStatus()
	require.True(t, status.Healthy)
	require.Equal(t, CriticalityDegraded, status.Criticality)
	require.Equal(t, "rate_limited", status.State)
}

func TestHealthStatusDependencyPropagation(t *testing.T) {
	reg := NewRegistry()
	dep := openedPolicy(t, reg, "db")

	p, err := NewPolicy[int]("api",
		WithRegistry(reg),
		DependsOn(dep),
	)
	require.NoError(t, err)

	status := p.HealthStatus()
	require.True(t, status.Healthy)
	require.Equal(t, CriticalityDegraded, status.Criticality)
	require.Len(t, status.Dependencies, 1)
	require.Equal(t, "db", status.Dependencies[0].Name)
	require.False(t, status.Dependencies[0].Healthy)
}

func TestCriticalityString(t *testing.T) {
	require.Equal(t, "none", CriticalityNone.String())
	require.Equal(t, "degraded", CriticalityDegraded.String())
	require.Equal(t, "critical", CriticalityCritical.String())
}
