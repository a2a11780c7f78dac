package journal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
)

func TestJudge(t *testing.T) {
	open := &models.TradePlan{Status: models.PlanArmed}
	tests := []struct {
		name   string
		plan   *models.TradePlan
		reason models.SellReason
		want   models.Judgement
	}{
		{"no plan", nil, models.SellFollowPlan, models.JudgementNoPlan},
		{"draft plan", &models.TradePlan{Status: models.PlanDraft}, models.SellFollowPlan, models.JudgementNoPlan},
		{"follow plan", open, models.SellFollowPlan, models.JudgementFollowPlan},
		{"fear", open, models.SellFear, models.JudgementEmotionOverride},
		{"other", open, models.SellOther, models.JudgementEmotionOverride},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Judge(tt.plan, tt.reason); got != tt.want {
				t.Errorf("Judge() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtraProfitCost(t *testing.T) {
	tests := []struct {
		name        string
		sell        float64
		target      float64
		post        *float64
		invalidated bool
		want        *float64
	}{
		{"sold early", 110, 120, models.Float(130), false, models.Float(20.0 / 110.0)},
		{"no target", 110, 0, models.Float(130), false, nil},
		{"reached target", 120, 120, models.Float(130), false, nil},
		{"no later high", 110, 120, nil, false, nil},
		{"price fell after exit", 110, 120, models.Float(105), false, nil},
		{"invalidated", 110, 120, models.Float(130), true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtraProfitCost(tt.sell, tt.target, tt.post, tt.invalidated)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ExtraProfitCost() = %v, want %v", got, tt.want)
			}
			if got != nil && math.Abs(*got-*tt.want) > 1e-12 {
				t.Errorf("ExtraProfitCost() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestCloseJudgesFollowPlanAndFear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	calm := f.armed(t, "u1", 100)
	res, err := f.svc.Close(ctx, "u1", calm.ID, CloseInput{SellPrice: models.Float(118), SellReason: "follow_plan"})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.Judgement != models.JudgementFollowPlan || res.ConclusionText != ConclusionFollowPlan {
		t.Errorf("judgement = %s %q", res.Judgement, res.ConclusionText)
	}

	scared := f.armed(t, "u1", 100)
	res, err = f.svc.Close(ctx, "u1", scared.ID, CloseInput{SellPrice: models.Float(96), SellReason: "fear"})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.Judgement != models.JudgementEmotionOverride {
		t.Errorf("judgement = %s, want emotion_override", res.Judgement)
	}
}

func TestCloseRecordsExtraProfitCostAfterTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)
	f.clock.Advance(48 * time.Hour)

	res, err := f.svc.Close(ctx, "u1", plan.ID, CloseInput{
		SellPrice:         models.Float(110),
		SellReason:        "other",
		PostExitBestPrice: models.Float(130),
	})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.EPCOpportunity == nil || math.Abs(*res.EPCOpportunity-0.181818) > 1e-4 {
		t.Fatalf("EPC = %v, want ~0.1818", res.EPCOpportunity)
	}

	stored, _ := f.store.GetResult(ctx, "u1", plan.ID)
	if stored == nil || stored.EPCOpportunity == nil || !stored.ClosedAt.Equal(testStart.Add(48*time.Hour)) {
		t.Fatalf("stored result = %+v", stored)
	}
	closed, _ := f.store.GetPlan(ctx, "u1", plan.ID)
	if closed.Status != models.PlanClosed {
		t.Errorf("status = %s", closed.Status)
	}
}

func TestClosePersistsExitTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)

	res, err := f.svc.Close(ctx, "u1", plan.ID, CloseInput{
		SellPrice:           models.Float(112),
		SellReason:          "panic",
		PostExitBestPrice:   models.Float(140),
		ExitPlanTargetPrice: models.Float(125),
	})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.EPCOpportunity == nil || math.Abs(*res.EPCOpportunity-28.0/112.0) > 1e-12 {
		t.Errorf("EPC = %v", res.EPCOpportunity)
	}

	got, _ := f.store.GetPlan(ctx, "u1", plan.ID)
	if models.Value(got.ExitPlanTargetPrice) != 125 {
		t.Errorf("exit target = %v, want 125", got.ExitPlanTargetPrice)
	}
}

func TestCloseGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft := f.draft(t, "u1")
	_, err := f.svc.Close(ctx, "u1", draft.ID, CloseInput{SellPrice: models.Float(100), SellReason: "follow_plan"})
	expectCode(t, err, jerrors.CodeInvalidTransition)

	armed := f.armed(t, "u1", 100)
	_, err = f.svc.Close(ctx, "u1", armed.ID, CloseInput{SellReason: "follow_plan"})
	expectCode(t, err, jerrors.CodeMissingField)
	_, err = f.svc.Close(ctx, "u1", armed.ID, CloseInput{SellPrice: models.Float(100)})
	expectCode(t, err, jerrors.CodeMissingField)

	if _, err := f.svc.Close(ctx, "u1", armed.ID, CloseInput{SellPrice: models.Float(100), SellReason: "follow_plan"}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_, err = f.svc.Close(ctx, "u1", armed.ID, CloseInput{SellPrice: models.Float(100), SellReason: "follow_plan"})
	expectCode(t, err, jerrors.CodeInvalidTransition)

	_, err = f.svc.Close(ctx, "u1", "missing", CloseInput{SellPrice: models.Float(100), SellReason: "follow_plan"})
	expectCode(t, err, jerrors.CodeNotFound)
}

func TestCloseUnlistedSellReasonIsOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)

	res, err := f.svc.Close(ctx, "u1", plan.ID, CloseInput{SellPrice: models.Float(104), SellReason: " boredom "})
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.SellReason != models.SellOther || res.Judgement != models.JudgementEmotionOverride || res.ConclusionText != ConclusionEmotionOverride {
		t.Errorf("result = %s/%s %q, want other/emotion_override", res.SellReason, res.Judgement, res.ConclusionText)
	}

	stored, _ := f.store.GetResult(ctx, "u1", plan.ID)
	if stored == nil || stored.SellReason != models.SellOther {
		t.Errorf("stored result = %+v", stored)
	}
}

// Property: any triggered_exit event on the plan suppresses the EPC figure,
// whatever the prices.
func TestProperty_TriggeredExitSuppressesEPC(t *testing.T) {
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("EPC is null after a triggered exit", prop.ForAll(
		func(sell, target, post float64, before int) bool {
			f := newFixture(t)
			plan := f.armed(t, "u1", 100)

			for i := 0; i < before; i++ {
				if _, err := f.svc.AddEvent(ctx, "u1", plan.ID, EventInput{
					Summary: "noise", EventStage: "holding", TriggeredExit: boolPtr(false),
				}); err != nil {
					t.Logf("add event: %v", err)
					return false
				}
			}
			if _, err := f.svc.AddEvent(ctx, "u1", plan.ID, EventInput{
				EventType: "falsify", Summary: "thesis broken", EventStage: "holding", TriggeredExit: boolPtr(true),
			}); err != nil {
				t.Logf("add event: %v", err)
				return false
			}

			res, err := f.svc.Close(ctx, "u1", plan.ID, CloseInput{
				SellPrice:           models.Float(sell),
				SellReason:          "fear",
				PostExitBestPrice:   models.Float(post),
				ExitPlanTargetPrice: models.Float(target),
			})
			if err != nil {
				t.Logf("close: %v", err)
				return false
			}
			return res.EPCOpportunity == nil
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
