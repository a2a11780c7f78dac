package journal

import (
	"context"
	"strings"

	"discipline-journal/internal/audit"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/logging"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

// Conclusion texts recorded with each judgement.
const (
	ConclusionFollowPlan      = "executed per plan, zero deviation."
	ConclusionNoPlan          = "no plan on record; execution cannot be judged."
	ConclusionEmotionOverride = "sell reason deviated from plan; emotional override."
)

// CloseInput is the payload of a plan closure.
type CloseInput struct {
	SellPrice           *float64
	SellReason          string
	PostExitBestPrice   *float64
	ExitPlanTargetPrice *float64
}

// Judge returns the system judgement for selling plan for reason.
func Judge(plan *models.TradePlan, reason models.SellReason) (models.Judgement, string) {
	if plan == nil || plan.Status == models.PlanDraft {
		return models.JudgementNoPlan, ConclusionNoPlan
	}
	if reason == models.SellFollowPlan {
		return models.JudgementFollowPlan, ConclusionFollowPlan
	}
	return models.JudgementEmotionOverride, ConclusionEmotionOverride
}

// EffectiveTarget picks the exit target for the opportunity figure: the
// supplied value, else the stored external target, else target_high.
func EffectiveTarget(plan *models.TradePlan, supplied *float64) float64 {
	if t := models.Value(supplied); t > 0 {
		return t
	}
	if t := models.Value(plan.ExitPlanTargetPrice); t > 0 {
		return t
	}
	return plan.TargetHigh
}

// ExtraProfitCost returns the fraction left on the table by selling below
// target when the price later ran higher. Nil when there is no target, the
// sale reached it, the later price never exceeded the sale, or the thesis was
// invalidated by a triggered-exit event.
func ExtraProfitCost(sellPrice, target float64, postExitBest *float64, invalidated bool) *float64 {
	if invalidated || target <= 0 || sellPrice <= 0 || postExitBest == nil {
		return nil
	}
	if sellPrice >= target || *postExitBest <= sellPrice {
		return nil
	}
	epc := (*postExitBest - sellPrice) / sellPrice
	return &epc
}

// Close judges and closes an open plan. The result insert, the status change
// and the optional exit target are committed together.
func (s *Service) Close(ctx context.Context, userID, planID string, in CloseInput) (*models.TradeResult, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionClosePlan, userID, planID, err)
	}

	result, err := s.judgeClosure(ctx, plan, in)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionClosePlan, userID, planID, err)
	}

	from := plan.Status
	plan.Status = models.PlanClosed
	plan.UpdatedAt = result.ClosedAt
	if in.ExitPlanTargetPrice != nil {
		plan.ExitPlanTargetPrice = copyFloat(in.ExitPlanTargetPrice)
	}

	batch := store.NewBatch().UpdatePlan(plan, from).InsertResult(result)
	if err := s.commit(ctx, userID, batch); err != nil {
		return nil, s.reject(ctx, audit.ActionClosePlan, userID, planID, err)
	}

	logging.LogTransition(s.opLogger("close", userID, planID), planID, string(from), string(plan.Status))
	s.metrics.RecordTransition(string(from), string(plan.Status))
	s.metrics.RecordClosure(string(result.Judgement), result.EPCOpportunity != nil)

	details := map[string]interface{}{
		"sell_price":       result.SellPrice,
		"sell_reason":      string(result.SellReason),
		"system_judgement": string(result.Judgement),
	}
	if result.EPCOpportunity != nil {
		details["epc_opportunity_pct"] = *result.EPCOpportunity
	}
	s.accept(ctx, audit.ActionClosePlan, userID, planID, details)
	return result, nil
}

func (s *Service) judgeClosure(ctx context.Context, plan *models.TradePlan, in CloseInput) (*models.TradeResult, error) {
	if !plan.Status.IsOpen() {
		return nil, jerrors.InvalidTransition("cannot close plan in '%s' status", plan.Status)
	}
	if plan.ActualEntryPrice == nil {
		return nil, jerrors.MissingField("actual_entry_price")
	}
	if in.SellPrice == nil {
		return nil, jerrors.MissingField("sell_price")
	}
	if strings.TrimSpace(in.SellReason) == "" {
		return nil, jerrors.MissingField("sell_reason")
	}
	reason, err := models.ParseSellReason(in.SellReason)
	if err != nil {
		// Unlisted reasons are kept as other, which judges as an override.
		s.opLogger("close", plan.UserID, plan.ID).Debug().Str("sell_reason", in.SellReason).Msg("Unlisted sell reason recorded as other")
		reason = models.SellOther
	}

	judgement, conclusion := Judge(plan, reason)

	var epc *float64
	target := EffectiveTarget(plan, in.ExitPlanTargetPrice)
	if candidate := ExtraProfitCost(*in.SellPrice, target, in.PostExitBestPrice, false); candidate != nil {
		invalidated, err := s.hasTriggeredExit(ctx, plan)
		if err != nil {
			return nil, err
		}
		if !invalidated {
			epc = candidate
		}
	}

	return &models.TradeResult{
		PlanID:            plan.ID,
		UserID:            plan.UserID,
		SellPrice:         *in.SellPrice,
		SellReason:        reason,
		Judgement:         judgement,
		ConclusionText:    conclusion,
		PostExitBestPrice: copyFloat(in.PostExitBestPrice),
		EPCOpportunity:    epc,
		ClosedAt:          s.clock.Now(),
	}, nil
}

func (s *Service) hasTriggeredExit(ctx context.Context, plan *models.TradePlan) (bool, error) {
	yes := true
	events, err := s.store.ListEvents(ctx, store.EventFilter{
		UserID:        plan.UserID,
		PlanID:        plan.ID,
		TriggeredExit: &yes,
		Limit:         1,
	})
	if err != nil {
		return false, err
	}
	return len(events) > 0, nil
}
