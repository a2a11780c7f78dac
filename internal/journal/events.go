package journal

import (
	"context"
	"strings"

	"discipline-journal/internal/audit"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

// EventInput is the payload of a trade event. TriggeredExit has no default
// and must be answered explicitly.
type EventInput struct {
	EventType      string
	Summary        string
	ImpactTarget   string
	TriggeredExit  *bool
	EventStage     string
	BehaviorDriver *string
	PriceAtEvent   *float64
}

// AddEvent appends an event to an unclosed plan.
func (s *Service) AddEvent(ctx context.Context, userID, planID string, in EventInput) (*models.TradeEvent, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionAddEvent, userID, planID, err)
	}
	if plan.Status == models.PlanClosed {
		return nil, s.reject(ctx, audit.ActionAddEvent, userID, planID, jerrors.ReadOnly(planID))
	}

	event, err := s.buildEvent(plan, in)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionAddEvent, userID, planID, err)
	}

	if err := s.commit(ctx, userID, store.NewBatch().InsertEvent(event)); err != nil {
		return nil, s.reject(ctx, audit.ActionAddEvent, userID, planID, err)
	}

	s.metrics.RecordEvent(event.TriggeredExit)
	s.accept(ctx, audit.ActionAddEvent, userID, planID, map[string]interface{}{
		"event_id":       event.ID,
		"event_type":     string(event.EventType),
		"event_stage":    event.EventStage,
		"triggered_exit": event.TriggeredExit,
	})
	return event, nil
}

func (s *Service) buildEvent(plan *models.TradePlan, in EventInput) (*models.TradeEvent, error) {
	if in.TriggeredExit == nil {
		return nil, jerrors.MissingField("triggered_exit")
	}
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return nil, jerrors.MissingField("summary")
	}
	stage := strings.TrimSpace(in.EventStage)
	if stage == "" {
		return nil, jerrors.MissingField("event_stage")
	}

	eventType := models.EventType(strings.TrimSpace(in.EventType))
	if eventType == "" {
		eventType = models.DefaultEventType
	}
	if s.strictEventTypes {
		if _, err := models.ParseEventType(string(eventType)); err != nil {
			return nil, jerrors.OutOfRange("event_type", in.EventType, "falsify, forced, verify, structure or external_change")
		}
	}

	impact := strings.TrimSpace(in.ImpactTarget)
	if impact == "" {
		impact = models.DefaultImpactTarget
	}

	return &models.TradeEvent{
		ID:             s.ids.NewID(),
		PlanID:         plan.ID,
		UserID:         plan.UserID,
		EventType:      eventType,
		Summary:        truncateRunes(summary, models.MaxSummaryLength),
		ImpactTarget:   impact,
		TriggeredExit:  *in.TriggeredExit,
		EventStage:     stage,
		BehaviorDriver: trimmed(in.BehaviorDriver),
		PriceAtEvent:   copyFloat(in.PriceAtEvent),
		CreatedAt:      s.clock.Now(),
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
