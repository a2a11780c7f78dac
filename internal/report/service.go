package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"discipline-journal/internal/cache"
	"discipline-journal/internal/clock"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/metrics"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

// DefaultCacheTTL bounds how long a cached report can lag behind the clock
// when no write invalidates it.
const DefaultCacheTTL = 10 * time.Minute

// Service loads a user's week from the store and renders the weekly report.
type Service struct {
	store    store.RecordStore
	clock    clock.Clock
	cache    cache.Service
	cacheTTL time.Duration
	location *time.Location
	logger   zerolog.Logger
	metrics  *metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables report caching.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLocation sets the timezone in which weeks start.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the Prometheus recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService creates a report service. Without WithCache every request is
// computed from the store.
func NewService(st store.RecordStore, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:    st,
		clock:    clk,
		cache:    cache.Noop{},
		cacheTTL: DefaultCacheTTL,
		location: time.UTC,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentWindow returns the window of the week in progress.
func (s *Service) CurrentWindow() Window {
	return WeekWindow(s.clock.Now(), s.location)
}

// Weekly returns the report for the week in progress.
func (s *Service) Weekly(ctx context.Context, userID string) (*models.WeeklyReport, error) {
	w := s.CurrentWindow()
	return s.report(ctx, userID, w, cacheKey(userID, w, false))
}

// WeeklyFor returns the report for an explicit window.
func (s *Service) WeeklyFor(ctx context.Context, userID string, w Window) (*models.WeeklyReport, error) {
	if err := w.Validate(); err != nil {
		return nil, jerrors.OutOfRange("week_end", w.End.Unix(), err.Error())
	}
	return s.report(ctx, userID, w, cacheKey(userID, w, true))
}

// UserChanged drops every cached report of the user. It is registered as a
// journal change listener.
func (s *Service) UserChanged(ctx context.Context, userID string) {
	if err := s.cache.DeleteByPattern(ctx, userPattern(userID)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate cached reports")
	}
}

func (s *Service) report(ctx context.Context, userID string, w Window, key string) (*models.WeeklyReport, error) {
	if userID == "" {
		return nil, jerrors.MissingField("user_id")
	}

	var cached models.WeeklyReport
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		s.metrics.RecordCache(true)
		cached.WeekEnd = w.End
		return &cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn().Err(err).Str("key", key).Msg("Report cache read failed")
	}
	s.metrics.RecordCache(false)

	start := time.Now()
	d, err := s.load(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	rep := Build(userID, w, d)
	rep.GeneratedAt = s.clock.Now()
	s.metrics.RecordReport(time.Since(start))

	s.logger.Debug().
		Str("user_id", userID).
		Str("window", w.String()).
		Int("plans", len(d.Plans)).
		Int("events", len(d.Events)).
		Int("results", len(d.Results)).
		Str("dominant", rep.Summary.DominantLabel).
		Msg("Weekly report computed")

	if err := s.cache.Set(ctx, key, rep, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Report cache write failed")
	}
	return rep, nil
}

func (s *Service) load(ctx context.Context, userID string, w Window) (*Dataset, error) {
	results, err := s.store.ListResults(ctx, store.ResultFilter{UserID: userID, From: w.Start, To: w.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	events, err := s.store.ListEvents(ctx, store.EventFilter{UserID: userID, From: w.Start, To: w.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	touched, err := s.store.ListPlans(ctx, store.PlanFilter{UserID: userID, UpdatedFrom: w.Start, UpdatedTo: w.End})
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}
	plans := touched

	seen := make(map[string]bool, len(touched))
	for _, p := range touched {
		seen[p.ID] = true
	}
	var missing []string
	for _, id := range PlanIDs(events, results) {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		referenced, err := s.store.ListPlans(ctx, store.PlanFilter{UserID: userID, IDs: missing})
		if err != nil {
			return nil, fmt.Errorf("failed to load plans: %w", err)
		}
		plans = append(plans, referenced...)
	}
	return NewDataset(plans, events, results), nil
}

func cacheKey(userID string, w Window, explicit bool) string {
	if explicit {
		return fmt.Sprintf("weekly:%s:%d:%d", userID, w.Start.Unix(), w.End.Unix())
	}
	return fmt.Sprintf("weekly:%s:%d", userID, w.Start.Unix())
}

func userPattern(userID string) string {
	return "weekly:" + userID + ":*"
}
