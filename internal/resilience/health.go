package resilience

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name     string                 `json:"name"`
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Critical bool                   `json:"critical"`
	Latency  time.Duration          `json:"latency_ns"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck probes one component.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the aggregated result of one round of checks.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Uptime     time.Duration     `json:"uptime_ns"`
	CheckedAt  time.Time         `json:"checked_at"`
	Components []ComponentHealth `json:"components"`
}

type registered struct {
	check    HealthCheck
	critical bool
}

// HealthChecker runs registered checks on demand. A failing critical
// component makes the system unhealthy; any other failure only degrades it.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]registered
	timeout    time.Duration
	startTime  time.Time
	now        func() time.Time
}

// NewHealthChecker creates a checker whose rounds are bounded by timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		components: make(map[string]registered),
		timeout:    timeout,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// Register adds a named check.
func (h *HealthChecker) Register(name string, critical bool, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = registered{check: check, critical: critical}
}

// Check runs every check concurrently and aggregates the result.
func (h *HealthChecker) Check(ctx context.Context) SystemHealth {
	h.mu.RLock()
	components := make(map[string]registered, len(h.components))
	for k, v := range h.components {
		components[k] = v
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan ComponentHealth, len(components))
	for name, c := range components {
		wg.Add(1)
		go func(n string, c registered) {
			defer wg.Done()
			results <- runCheck(ctx, n, c)
		}(name, c)
	}
	wg.Wait()
	close(results)

	out := SystemHealth{
		Status:     HealthStatusHealthy,
		Uptime:     h.now().Sub(h.startTime),
		CheckedAt:  h.now(),
		Components: make([]ComponentHealth, 0, len(components)),
	}
	for health := range results {
		out.Components = append(out.Components, health)
		switch {
		case health.Status == HealthStatusHealthy:
		case health.Critical && health.Status == HealthStatusUnhealthy:
			out.Status = HealthStatusUnhealthy
		case out.Status == HealthStatusHealthy:
			out.Status = HealthStatusDegraded
		}
	}
	sort.Slice(out.Components, func(i, j int) bool { return out.Components[i].Name < out.Components[j].Name })
	return out
}

func runCheck(ctx context.Context, name string, c registered) (health ComponentHealth) {
	defer func() {
		if r := recover(); r != nil {
			health = ComponentHealth{
				Status:  HealthStatusUnhealthy,
				Message: fmt.Sprintf("check panicked: %v", r),
			}
		}
		health.Name = name
		health.Critical = c.critical
	}()
	return c.check(ctx)
}

// PingHealthCheck reports on a dependency reachable through ping. Latency
// above slow degrades it.
func PingHealthCheck(ping func(ctx context.Context) error, slow time.Duration) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		var health ComponentHealth

		start := time.Now()
		err := ping(ctx)
		health.Latency = time.Since(start)

		switch {
		case err != nil:
			health.Status = HealthStatusUnhealthy
			health.Message = fmt.Sprintf("ping failed: %v", err)
		case slow > 0 && health.Latency > slow:
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("slow: %v", health.Latency)
		default:
			health.Status = HealthStatusHealthy
		}
		return health
	}
}

// BreakerHealthCheck reports an open circuit as unhealthy.
func BreakerHealthCheck(cb *CircuitBreaker) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		stats := cb.Stats()
		health := ComponentHealth{
			Status:  HealthStatusHealthy,
			Details: map[string]interface{}{"state": stats.State, "failures": stats.TotalFailures},
		}
		switch stats.State {
		case CircuitOpen:
			health.Status = HealthStatusUnhealthy
			health.Message = "circuit open"
		case CircuitHalfOpen:
			health.Status = HealthStatusDegraded
			health.Message = "circuit probing"
		}
		return health
	}
}
