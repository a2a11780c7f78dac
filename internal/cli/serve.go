package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"discipline-journal/internal/api"
	"discipline-journal/internal/audit"
	"discipline-journal/internal/cache"
	"discipline-journal/internal/clock"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/metrics"
	"discipline-journal/internal/ratelimit"
	"discipline-journal/internal/report"
	"discipline-journal/internal/resilience"
	"discipline-journal/internal/store"
	"discipline-journal/pkg/utils"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the journal HTTP API.

The server runs until interrupted and then drains in-flight requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.ValidateServe(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, cleanup, err := app.buildServer(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			app.Logger.Info().
				Str("addr", app.Config.Server.Addr()).
				Str("cache", app.Config.Cache.Backend).
				Str("version", Version).
				Msg("Journal API listening")
			return srv.Start(ctx)
		},
	}
}

// buildServer wires storage, caching, services and the HTTP layer. The
// returned cleanup releases everything buildServer opened.
func (a *App) buildServer(ctx context.Context) (*api.Server, func(), error) {
	cfg := a.Config

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		acfg := audit.DefaultConfig()
		acfg.LogDir = cfg.Audit.Dir
		auditLog, err = audit.NewLogger(acfg)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("opening audit log: %w", err)
		}
	}

	health := resilience.NewHealthChecker(5 * time.Second)
	health.Register("database", true, resilience.PingHealthCheck(st.Ping, 250*time.Millisecond))

	reportCache := a.newReportCache(ctx, rec, health)

	reports := report.NewService(st, clock.System{},
		report.WithCache(reportCache, cfg.Report.CacheTTL),
		report.WithLocation(a.location()),
		report.WithLogger(a.Logger),
		report.WithMetrics(rec),
	)
	j := journal.NewService(st, clock.System{}, clock.UUIDSource{},
		journal.WithLogger(a.Logger),
		journal.WithMetrics(rec),
		journal.WithAuditLog(auditLog),
		journal.WithStrictEventTypes(cfg.Events.StrictTypes),
		journal.WithChangeListener(reports),
	)

	opts := []api.ServerOption{
		api.WithAddr(cfg.Server.Addr()),
		api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithAuth(a.authConfig()),
		api.WithLogger(a.Logger),
		api.WithMetrics(rec, reg),
		api.WithAuditLog(auditLog),
	}
	if cfg.Server.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(ratelimit.NewSet(cfg.Server.RateLimit, cfg.Server.RateBurst)))
	}

	handler := api.NewJournalHandler(j, reports, Version, api.WithHealthChecker(health))
	srv := api.NewServer(handler, opts...)

	cleanup := func() {
		if err := reportCache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close report cache")
		}
		if err := auditLog.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit log")
		}
		if err := st.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
	return srv, cleanup, nil
}

// newReportCache builds the configured cache backend. An unreachable Redis
// degrades to the in-process cache rather than blocking startup.
func (a *App) newReportCache(ctx context.Context, rec *metrics.Recorder, health *resilience.HealthChecker) cache.Service {
	cfg := a.Config

	switch cfg.Cache.Backend {
	case "none":
		return cache.Noop{}
	case "redis":
		rc, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() (*cache.RedisCache, error) {
			return cache.NewRedisCache(ctx, cache.RedisConfig{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Credentials.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				Prefix:   cfg.Cache.Prefix,
			})
		})
		if err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Redis unavailable, using in-memory report cache")
			return cache.NewMemoryCache()
		}

		breaker := resilience.NewCircuitBreaker("report-cache", resilience.DefaultCircuitBreakerConfig(),
			resilience.OnStateChange(func(name string, from, to resilience.CircuitState) {
				rec.SetCircuitState(name, string(to))
				a.Logger.Warn().Str("breaker", name).Str("from", string(from)).Str("to", string(to)).Msg("Circuit state changed")
			}),
		)
		rec.SetCircuitState(breaker.Name(), string(breaker.State()))
		health.Register("cache", false, resilience.PingHealthCheck(rc.Ping, 50*time.Millisecond))
		health.Register("cache_circuit", false, resilience.BreakerHealthCheck(breaker))
		return cache.NewGuarded(rc, breaker)
	default:
		return cache.NewMemoryCache()
	}
}
