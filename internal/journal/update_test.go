package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

func TestUpdateDraftAppliesDirectly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.draft(t, "u1")

	out, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{
		SetText(FieldBuyReasonText, "pullback to support"),
		SetNumber(FieldPlannedEntryPrice, 97.5),
		SetTags(FieldSellConditions, "time_stop"),
		Clear(FieldStopValue),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(out.Edits) != 0 || len(out.Applied) != 4 {
		t.Fatalf("applied=%v edits=%d", out.Applied, len(out.Edits))
	}

	got, _ := f.store.GetPlan(ctx, "u1", plan.ID)
	if got.BuyReasonText != "pullback to support" || models.Value(got.PlannedEntryPrice) != 97.5 {
		t.Errorf("draft fields not applied: %+v", got)
	}
	if models.Value(got.EntryPrice) != 97.5 {
		t.Errorf("entry_price mirror = %v, want 97.5", got.EntryPrice)
	}
	if got.StopValue != nil || len(got.SellConditions) != 1 {
		t.Errorf("stop/sell conditions = %v/%v", got.StopValue, got.SellConditions)
	}
}

func TestUpdateOpenPlanWritesRevisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)
	f.clock.Advance(time.Hour)

	out, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{SetText(FieldBuyReasonText, "changed my mind")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(out.Edits) != 1 || len(out.Applied) != 0 {
		t.Fatalf("applied=%v edits=%d", out.Applied, len(out.Edits))
	}

	got, _ := f.store.GetPlan(ctx, "u1", plan.ID)
	if got.BuyReasonText != "range breakout on volume" {
		t.Errorf("frozen field changed to %q", got.BuyReasonText)
	}
	if !got.UpdatedAt.Equal(plan.UpdatedAt) {
		t.Errorf("revision touched updated_at")
	}

	edits, _ := f.store.ListEdits(ctx, "u1", plan.ID)
	if len(edits) != 1 {
		t.Fatalf("stored edits = %d, want 1", len(edits))
	}
	e := edits[0]
	if e.Field != "buy_reason_text" || *e.OldValue != "range breakout on volume" || *e.NewValue != "changed my mind" {
		t.Errorf("unexpected edit %+v", e)
	}
	if !e.EditedAt.Equal(testStart.Add(time.Hour)) {
		t.Errorf("EditedAt = %v", e.EditedAt)
	}
}

func TestUpdateOpenPlanExecutionFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)

	out, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{SetNumber(FieldActualEntryPrice, 101.25)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(out.Edits) != 0 {
		t.Fatalf("execution field produced %d edits", len(out.Edits))
	}

	got, _ := f.store.GetPlan(ctx, "u1", plan.ID)
	if models.Value(got.ActualEntryPrice) != 101.25 || models.Value(got.EntryPrice) != 101.25 {
		t.Errorf("actual/entry = %v/%v", got.ActualEntryPrice, got.EntryPrice)
	}

	_, err = f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{Clear(FieldActualEntryPrice)})
	expectCode(t, err, jerrors.CodeMissingField)
}

func TestUpdateMixedRoutingIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)

	out, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{
		SetNumber(FieldStopValue, 92),
		SetNumber(FieldEntryPrice, 100.5),
		SetTags(FieldBuyReasonTypes, "earnings", "breakout"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(out.Applied) != 1 || out.Applied[0] != FieldEntryPrice || len(out.Edits) != 2 {
		t.Fatalf("applied=%v edits=%d", out.Applied, len(out.Edits))
	}

	edits, _ := f.store.ListEdits(ctx, "u1", plan.ID)
	if len(edits) != 2 || *edits[0].NewValue != "92" || *edits[1].NewValue != `["earnings","breakout"]` {
		t.Fatalf("edits = %+v", edits)
	}
	if *edits[0].OldValue != "90" || *edits[1].OldValue != `["breakout"]` {
		t.Errorf("old values = %s / %s", *edits[0].OldValue, *edits[1].OldValue)
	}
}

func TestUpdateValidationRejectsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.armed(t, "u1", 100)

	_, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{
		SetText(FieldBuyReasonText, "valid revision"),
		SetText(FieldDirection, "sideways"),
	})
	expectCode(t, err, jerrors.CodeValidationRange)

	edits, _ := f.store.ListEdits(ctx, "u1", plan.ID)
	if len(edits) != 0 {
		t.Fatalf("rejected update wrote %d edits", len(edits))
	}
}

func TestParseFieldUpdates(t *testing.T) {
	raw := map[string]json.RawMessage{
		"stop_value":      json.RawMessage(`"88.5"`),
		"buy_reason_text": json.RawMessage(`"retest"`),
		"user_id":         json.RawMessage(`"someone-else"`),
		"stop_time_days":  json.RawMessage(`null`),
		"sell_conditions": json.RawMessage(`["a","b"]`),
	}

	updates, err := ParseFieldUpdates(raw)
	if err != nil {
		t.Fatalf("ParseFieldUpdates() error = %v", err)
	}
	want := []Field{FieldBuyReasonText, FieldSellConditions, FieldStopValue, FieldStopTimeDays}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates, want %d", len(updates), len(want))
	}
	for i, f := range want {
		if updates[i].Field != f {
			t.Errorf("update %d = %s, want %s", i, updates[i].Field, f)
		}
	}
	if *updates[2].Number != 88.5 || !updates[3].isNull() {
		t.Errorf("decoded values wrong: %+v", updates)
	}

	bad := []map[string]json.RawMessage{
		{"target_high": json.RawMessage(`"abc"`)},
		{"stop_time_days": json.RawMessage(`2.5`)},
		{"buy_reason_types": json.RawMessage(`"breakout"`)},
		{"buy_reason_text": json.RawMessage(`12`)},
	}
	for _, b := range bad {
		_, err := ParseFieldUpdates(b)
		if !jerrors.Is(err, jerrors.ErrValidationRange) {
			t.Errorf("ParseFieldUpdates(%v) error = %v, want ValidationRange", b, err)
		}
	}
}

func TestUpdateFromJSONChecksReadOnlyFirst(t *testing.T) {
	f := newFixture(t)
	plan := f.closed(t, "u1")

	_, err := f.svc.UpdateFromJSON(context.Background(), "u1", plan.ID, map[string]json.RawMessage{
		"target_high": json.RawMessage(`"not a number"`),
	})
	expectCode(t, err, jerrors.CodeReadOnly)
}

// Property: closed plans refuse every update and event, and leave no
// PlanEdit or TradeEvent behind.
func TestProperty_ClosedPlanIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := f.closed(t, "u1")

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("update and add-event fail with ReadOnly", prop.ForAll(
		func(fieldIdx int, value float64, triggered bool, summary string) bool {
			field := UpdatableFields[fieldIdx]
			var u FieldUpdate
			switch fieldSpecs[field].kind {
			case kindNumber:
				u = SetNumber(field, value)
			case kindInteger:
				u = SetInteger(field, int(value))
			case kindTags:
				u = SetTags(field, summary)
			default:
				u = SetText(field, summary)
			}

			_, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{u})
			if !jerrors.Is(err, jerrors.ErrReadOnly) {
				t.Logf("update %s returned %v", field, err)
				return false
			}

			_, err = f.svc.AddEvent(ctx, "u1", plan.ID, EventInput{
				Summary: summary, EventStage: "holding", TriggeredExit: boolPtr(triggered),
			})
			if !jerrors.Is(err, jerrors.ErrReadOnly) {
				t.Logf("add-event returned %v", err)
				return false
			}

			edits, _ := f.store.ListEdits(ctx, "u1", plan.ID)
			events, _ := f.store.ListEvents(ctx, store.EventFilter{UserID: "u1", PlanID: plan.ID})
			if len(edits) != 0 || len(events) != 0 {
				t.Logf("side effects: %d edits, %d events", len(edits), len(events))
				return false
			}
			return true
		},
		gen.IntRange(0, len(UpdatableFields)-1),
		gen.Float64Range(1, 1000),
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: on an open plan, a buy_reason_text update yields exactly one
// edit and leaves the text alone; an actual_entry_price update mutates the
// plan and yields none.
func TestProperty_OpenPlanRouting(t *testing.T) {
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("frozen fields are logged, execution fields applied", prop.ForAll(
		func(text string, price float64, holding bool) bool {
			f := newFixture(t)
			plan := f.armed(t, "u1", 100)
			if holding {
				plan.Status = models.PlanHolding
				if err := f.store.Commit(ctx, store.NewBatch().UpdatePlan(plan, models.PlanArmed)); err != nil {
					t.Logf("setup: %v", err)
					return false
				}
			}

			out, err := f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{SetText(FieldBuyReasonText, "x"+text)})
			if err != nil || len(out.Edits) != 1 {
				t.Logf("text update: %v", err)
				return false
			}
			out, err = f.svc.Update(ctx, "u1", plan.ID, []FieldUpdate{SetNumber(FieldActualEntryPrice, price)})
			if err != nil || len(out.Edits) != 0 {
				t.Logf("price update: %v", err)
				return false
			}

			got, _ := f.store.GetPlan(ctx, "u1", plan.ID)
			edits, _ := f.store.ListEdits(ctx, "u1", plan.ID)
			return got.BuyReasonText == "range breakout on volume" &&
				models.Value(got.ActualEntryPrice) == price &&
				len(edits) == 1
		},
		gen.AlphaString(),
		gen.Float64Range(1, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
