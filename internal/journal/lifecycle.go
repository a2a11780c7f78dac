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

// CreatePlanInput is the payload of a new draft plan.
type CreatePlanInput struct {
	Symbol             string
	Direction          string
	BuyReasonTypes     []string
	BuyReasonText      string
	TargetType         string
	TargetLow          *float64
	TargetHigh         *float64
	SellConditions     []string
	TimeTakeProfitDays *int
	StopType           string
	StopValue          *float64
	StopTimeDays       *int
	PlannedEntryPrice  *float64
	EntryPrice         *float64 // legacy alias of PlannedEntryPrice
}

func (in *CreatePlanInput) validate() (models.Direction, error) {
	if strings.TrimSpace(in.Symbol) == "" {
		return "", jerrors.MissingField("symbol")
	}
	if len(nonBlank(in.BuyReasonTypes)) == 0 {
		return "", jerrors.MissingField("buy_reason_types")
	}
	if strings.TrimSpace(in.BuyReasonText) == "" {
		return "", jerrors.MissingField("buy_reason_text")
	}
	if strings.TrimSpace(in.TargetType) == "" {
		return "", jerrors.MissingField("target_type")
	}
	if in.TargetLow == nil {
		return "", jerrors.MissingField("target_low")
	}
	if in.TargetHigh == nil {
		return "", jerrors.MissingField("target_high")
	}
	if len(nonBlank(in.SellConditions)) == 0 {
		return "", jerrors.MissingField("sell_conditions")
	}
	if strings.TrimSpace(in.StopType) == "" {
		return "", jerrors.MissingField("stop_type")
	}
	dir, err := models.ParseDirection(in.Direction)
	if err != nil {
		return "", jerrors.OutOfRange("direction", in.Direction, "long or short")
	}
	return dir, nil
}

// CreatePlan stores a new plan in draft.
func (s *Service) CreatePlan(ctx context.Context, userID string, in CreatePlanInput) (*models.TradePlan, error) {
	dir, err := in.validate()
	if err != nil {
		return nil, s.reject(ctx, audit.ActionCreatePlan, userID, "", err)
	}

	planned := in.PlannedEntryPrice
	if planned == nil {
		planned = in.EntryPrice
	}

	now := s.clock.Now()
	plan := &models.TradePlan{
		ID:                 s.ids.NewID(),
		UserID:             userID,
		Symbol:             strings.TrimSpace(in.Symbol),
		Direction:          dir,
		Status:             models.PlanDraft,
		BuyReasonTypes:     nonBlank(in.BuyReasonTypes),
		BuyReasonText:      in.BuyReasonText,
		TargetType:         in.TargetType,
		TargetLow:          *in.TargetLow,
		TargetHigh:         *in.TargetHigh,
		SellConditions:     nonBlank(in.SellConditions),
		TimeTakeProfitDays: in.TimeTakeProfitDays,
		StopType:           in.StopType,
		StopValue:          in.StopValue,
		StopTimeDays:       in.StopTimeDays,
		PlannedEntryPrice:  copyFloat(planned),
		EntryPrice:         copyFloat(planned),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.commit(ctx, userID, store.NewBatch().InsertPlan(plan)); err != nil {
		return nil, s.reject(ctx, audit.ActionCreatePlan, userID, plan.ID, err)
	}

	s.metrics.RecordTransition("", string(models.PlanDraft))
	s.accept(ctx, audit.ActionCreatePlan, userID, plan.ID, map[string]interface{}{"symbol": plan.Symbol})
	return plan, nil
}

// GetPlan returns a plan with its events, result and revision log. Reads
// never mutate.
func (s *Service) GetPlan(ctx context.Context, userID, planID string) (*models.PlanDetail, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx, store.EventFilter{UserID: userID, PlanID: planID})
	if err != nil {
		return nil, err
	}
	result, err := s.store.GetResult(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	edits, err := s.store.ListEdits(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	if events == nil {
		events = []models.TradeEvent{}
	}
	if edits == nil {
		edits = []models.PlanEdit{}
	}
	return &models.PlanDetail{Plan: plan, Events: events, Result: result, Edits: edits}, nil
}

// ListPlans returns the user's non-archived plans, optionally by status.
func (s *Service) ListPlans(ctx context.Context, userID, status string) ([]models.TradePlan, error) {
	return s.listPlans(ctx, userID, status, false)
}

// ListArchived returns the user's archived plans, optionally by status.
func (s *Service) ListArchived(ctx context.Context, userID, status string) ([]models.TradePlan, error) {
	return s.listPlans(ctx, userID, status, true)
}

func (s *Service) listPlans(ctx context.Context, userID, status string, archived bool) ([]models.TradePlan, error) {
	st, err := models.ParsePlanStatus(status)
	if err != nil {
		return nil, jerrors.OutOfRange("status", status, "draft, armed, holding or closed")
	}
	plans, err := s.store.ListPlans(ctx, store.PlanFilter{
		UserID:   userID,
		Status:   st,
		Archived: &archived,
		Limit:    listLimit,
	})
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []models.TradePlan{}
	}
	return plans, nil
}

// ArmInput fixes the execution entry of a draft plan.
type ArmInput struct {
	ActualEntryPrice *float64
	EntryPrice       *float64 // legacy alias of ActualEntryPrice
	EntryDriver      *string
}

// Arm moves a draft plan to armed, freezing its rationale.
func (s *Service) Arm(ctx context.Context, userID, planID string, in ArmInput) (*models.TradePlan, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionArmPlan, userID, planID, err)
	}
	if plan.Status != models.PlanDraft {
		return nil, s.reject(ctx, audit.ActionArmPlan, userID, planID,
			jerrors.InvalidTransition("only draft can be armed, plan is %s", plan.Status))
	}

	price := in.ActualEntryPrice
	if price == nil {
		price = in.EntryPrice
	}
	if price == nil {
		return nil, s.reject(ctx, audit.ActionArmPlan, userID, planID, jerrors.MissingField("actual_entry_price"))
	}

	from := plan.Status
	plan.Status = models.PlanArmed
	plan.ActualEntryPrice = copyFloat(price)
	plan.EntryPrice = copyFloat(price)
	plan.EntryDriver = trimmed(in.EntryDriver)
	plan.UpdatedAt = s.clock.Now()

	if err := s.commit(ctx, userID, store.NewBatch().UpdatePlan(plan, from)); err != nil {
		return nil, s.reject(ctx, audit.ActionArmPlan, userID, planID, err)
	}

	logging.LogTransition(s.opLogger("arm", userID, planID), planID, string(from), string(plan.Status))
	s.metrics.RecordTransition(string(from), string(plan.Status))
	s.accept(ctx, audit.ActionArmPlan, userID, planID, map[string]interface{}{"actual_entry_price": *price})
	return plan, nil
}

// Archive hides a plan from default listings. Status is untouched.
func (s *Service) Archive(ctx context.Context, userID, planID string) (*models.TradePlan, error) {
	return s.setArchived(ctx, userID, planID, true)
}

// Unarchive restores a plan to default listings.
func (s *Service) Unarchive(ctx context.Context, userID, planID string) (*models.TradePlan, error) {
	return s.setArchived(ctx, userID, planID, false)
}

func (s *Service) setArchived(ctx context.Context, userID, planID string, archived bool) (*models.TradePlan, error) {
	action := audit.ActionArchivePlan
	if !archived {
		action = audit.ActionUnarchive
	}

	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, s.reject(ctx, action, userID, planID, err)
	}

	plan.Archived = archived
	plan.UpdatedAt = s.clock.Now()
	if err := s.commit(ctx, userID, store.NewBatch().UpdatePlan(plan, plan.Status)); err != nil {
		return nil, s.reject(ctx, action, userID, planID, err)
	}

	s.accept(ctx, action, userID, planID, map[string]interface{}{"status": string(plan.Status)})
	return plan, nil
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
