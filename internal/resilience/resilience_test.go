package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("down")

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}
	var changes []CircuitState
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute},
		WithClock(clk.Now),
		OnStateChange(func(_ string, _, to CircuitState) { changes = append(changes, to) }))

	fail := func() error { return errDown }
	ok := func() error { return nil }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail, nil); !errors.Is(err, errDown) {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open circuit let a call through: err=%v called=%v", err, called)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if err := cb.Execute(ok, nil); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED", cb.State())
	}

	want := []CircuitState{CircuitOpen, CircuitHalfOpen, CircuitClosed}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %s, want %s", i, changes[i], want[i])
		}
	}

	stats := cb.Stats()
	if stats.TotalRejected != 1 || stats.TotalFailures != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCircuitBreakerIgnoredErrors(t *testing.T) {
	miss := errors.New("miss")
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return miss }, func(err error) bool { return errors.Is(err, miss) })
		if !errors.Is(err, miss) {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if cb.State() != CircuitClosed {
		t.Errorf("ignored errors opened the circuit")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	cb := NewCircuitBreaker("x", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second}, WithClock(clk.Now))

	_ = cb.Execute(func() error { return errDown }, nil)
	clk.t = clk.t.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errDown }, nil)
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s, want OPEN", cb.State())
	}
}

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name       string
		dbErr      error
		cacheErr   error
		wantStatus HealthStatus
	}{
		{"all healthy", nil, nil, HealthStatusHealthy},
		{"optional down", nil, errDown, HealthStatusDegraded},
		{"critical down", errDown, nil, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(time.Second)
			dbErr, cacheErr := tt.dbErr, tt.cacheErr
			h.Register("database", true, PingHealthCheck(func(context.Context) error { return dbErr }, 0))
			h.Register("cache", false, PingHealthCheck(func(context.Context) error { return cacheErr }, 0))

			got := h.Check(context.Background())
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if len(got.Components) != 2 || got.Components[0].Name != "cache" || !got.Components[1].Critical {
				t.Errorf("unexpected components %+v", got.Components)
			}
		})
	}
}

func TestHealthCheckerRecoversPanics(t *testing.T) {
	h := NewHealthChecker(time.Second)
	h.Register("flaky", true, func(context.Context) ComponentHealth { panic("boom") })

	got := h.Check(context.Background())
	if got.Status != HealthStatusUnhealthy || got.Components[0].Name != "flaky" {
		t.Errorf("unexpected health %+v", got)
	}
}

func TestBreakerHealthCheck(t *testing.T) {
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})
	check := BreakerHealthCheck(cb)

	if got := check(context.Background()); got.Status != HealthStatusHealthy {
		t.Errorf("closed circuit status = %s", got.Status)
	}
	_ = cb.Execute(func() error { return errDown }, nil)
	if got := check(context.Background()); got.Status != HealthStatusUnhealthy {
		t.Errorf("open circuit status = %s", got.Status)
	}
}
