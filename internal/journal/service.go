// Package journal implements the trade plan lifecycle: creation, arming,
// guarded updates, event logging, closure judgement and self reviews.
package journal

import (
	"context"

	"github.com/rs/zerolog"

	"discipline-journal/internal/audit"
	"discipline-journal/internal/clock"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/logging"
	"discipline-journal/internal/metrics"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

// listLimit caps plan listings.
const listLimit = 200

// ChangeListener is notified after any committed write for a user.
type ChangeListener interface {
	UserChanged(ctx context.Context, userID string)
}

// Service drives every single-plan operation against a RecordStore.
type Service struct {
	store     store.RecordStore
	clock     clock.Clock
	ids       clock.IDSource
	logger    zerolog.Logger
	metrics   *metrics.Recorder
	audit     *audit.Logger
	listeners []ChangeListener

	strictEventTypes bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the Prometheus recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithAuditLog sets the audit trail.
func WithAuditLog(a *audit.Logger) Option {
	return func(s *Service) { s.audit = a }
}

// WithStrictEventTypes rejects event types outside models.KnownEventTypes.
func WithStrictEventTypes(strict bool) Option {
	return func(s *Service) { s.strictEventTypes = strict }
}

// WithChangeListener registers a listener for committed writes.
func WithChangeListener(l ChangeListener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// NewService creates a journal service.
func NewService(st store.RecordStore, clk clock.Clock, ids clock.IDSource, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  clk,
		ids:    ids,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) opLogger(op, userID, planID string) zerolog.Logger {
	l := logging.WithOperation(logging.WithUser(s.logger, userID), op)
	if planID != "" {
		l = logging.WithPlanID(l, planID)
	}
	return l
}

// loadPlan fetches a plan owned by userID or fails with NotFound.
func (s *Service) loadPlan(ctx context.Context, userID, planID string) (*models.TradePlan, error) {
	if planID == "" {
		return nil, jerrors.MissingField("plan_id")
	}
	plan, err := s.store.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, jerrors.NotFound("plan")
	}
	return plan, nil
}

// commit applies the batch and notifies listeners on success.
func (s *Service) commit(ctx context.Context, userID string, batch *store.Batch) error {
	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}
	for _, l := range s.listeners {
		l.UserChanged(ctx, userID)
	}
	return nil
}

// reject records a refused mutation and returns err unchanged.
func (s *Service) reject(ctx context.Context, action audit.Action, userID, planID string, err error) error {
	code := jerrors.Code(err)
	log := s.opLogger(string(action), userID, planID)
	if code == jerrors.CodeInternal {
		log.Error().Err(err).Msg("Operation failed")
	} else {
		logging.LogRejection(log, string(action), err)
	}
	s.metrics.RecordRejection(string(action), code)
	if aerr := s.audit.Rejected(ctx, action, userID, planID, code, err); aerr != nil {
		log.Error().Err(aerr).Msg("Failed to write audit event")
	}
	return err
}

// accept records a committed mutation.
func (s *Service) accept(ctx context.Context, action audit.Action, userID, planID string, details map[string]interface{}) {
	log := s.opLogger(string(action), userID, planID)
	log.Debug().Fields(details).Msg("Mutation committed")
	if err := s.audit.Accepted(ctx, action, userID, planID, details); err != nil {
		log.Error().Err(err).Msg("Failed to write audit event")
	}
}
