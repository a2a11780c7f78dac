package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"discipline-journal/internal/cache"
	"discipline-journal/internal/clock"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

var tuesday = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

type harness struct {
	journal *journal.Service
	reports *Service
	clock   *clock.Fixed
}

func newHarness(t *testing.T, listen bool) *harness {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFixed(tuesday)
	reports := NewService(st, clk, WithCache(cache.NewMemoryCache(), time.Hour))

	var opts []journal.Option
	if listen {
		opts = append(opts, journal.WithChangeListener(reports))
	}
	return &harness{
		journal: journal.NewService(st, clk, clock.NewSequence("id"), opts...),
		reports: reports,
		clock:   clk,
	}
}

func (h *harness) armedPlan(t *testing.T, planned, entry float64) *models.TradePlan {
	t.Helper()
	ctx := context.Background()
	plan, err := h.journal.CreatePlan(ctx, "u1", journal.CreatePlanInput{
		Symbol:            "AAPL",
		BuyReasonTypes:    []string{"breakout"},
		BuyReasonText:     "range breakout",
		TargetType:        "price",
		TargetLow:         models.Float(115),
		TargetHigh:        models.Float(120),
		SellConditions:    []string{"target_hit"},
		StopType:          "price",
		StopValue:         models.Float(90),
		PlannedEntryPrice: models.Float(planned),
	})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	armed, err := h.journal.Arm(ctx, "u1", plan.ID, journal.ArmInput{ActualEntryPrice: models.Float(entry)})
	if err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	return armed
}

func metricByKey(t *testing.T, r *models.WeeklyReport, key models.MetricKey) models.WeeklyMetric {
	t.Helper()
	for _, m := range r.Metrics {
		if m.Key == key {
			return m
		}
	}
	t.Fatalf("metric %s missing", key)
	return models.WeeklyMetric{}
}

func TestWeeklyFlagsBuyChaseOnOpenPlan(t *testing.T) {
	h := newHarness(t, true)
	h.armedPlan(t, 100, 105)
	h.clock.Advance(time.Minute)

	r, err := h.reports.Weekly(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}

	if !r.WeekStart.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) || !r.WeekEnd.Equal(tuesday.Add(time.Minute)) {
		t.Errorf("window = %v .. %v", r.WeekStart, r.WeekEnd)
	}
	etnr := metricByKey(t, r, models.MetricETNR)
	if etnr.Status != models.StatusTriggered || etnr.ScoreValue() != 50 {
		t.Errorf("E-TNR = %s/%d, want triggered/50", etnr.Status, etnr.ScoreValue())
	}
	if r.Summary.TotalClosed != 0 {
		t.Errorf("total_closed = %d", r.Summary.TotalClosed)
	}
}

func TestWeeklyStopLossDelayBecomesDominantIssue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	plan := h.armedPlan(t, 100, 100)
	h.clock.Advance(time.Hour)

	if _, err := h.journal.Close(ctx, "u1", plan.ID, journal.CloseInput{
		SellPrice:  models.Float(85),
		SellReason: "panic",
	}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	h.clock.Advance(time.Minute)

	r, err := h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}

	ldc := metricByKey(t, r, models.MetricLDC)
	if ldc.Status != models.StatusTriggered || ldc.ScoreValue() != 37 {
		t.Errorf("LDC = %s/%d, want triggered/37", ldc.Status, ldc.ScoreValue())
	}
	if r.Summary.TotalClosed != 1 || r.Summary.DominantLabel != ldc.Name || r.Summary.ConclusionText != ldc.SummaryLine {
		t.Errorf("summary = %+v", r.Summary)
	}
	if pcs := metricByKey(t, r, models.MetricPCS); pcs.ScoreValue() != 89 {
		t.Errorf("PCS = %d, want 89", pcs.ScoreValue())
	}
}

func TestWeeklyCacheInvalidatedByWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	plan := h.armedPlan(t, 100, 100)
	h.clock.Advance(time.Minute)

	first, err := h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if first.Summary.TotalClosed != 0 {
		t.Fatalf("total_closed = %d", first.Summary.TotalClosed)
	}

	if _, err := h.journal.Close(ctx, "u1", plan.ID, journal.CloseInput{SellPrice: models.Float(118), SellReason: "follow_plan"}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	h.clock.Advance(time.Minute)

	second, err := h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if second.Summary.TotalClosed != 1 {
		t.Errorf("stale report served after close: total_closed = %d", second.Summary.TotalClosed)
	}
}

func TestWeeklyServesCacheWithoutWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	plan := h.armedPlan(t, 100, 100)
	h.clock.Advance(time.Minute)

	if _, err := h.reports.Weekly(ctx, "u1"); err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if _, err := h.journal.Close(ctx, "u1", plan.ID, journal.CloseInput{SellPrice: models.Float(118), SellReason: "follow_plan"}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	h.clock.Advance(time.Minute)

	cached, err := h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if cached.Summary.TotalClosed != 0 || !cached.WeekEnd.Equal(tuesday.Add(2*time.Minute)) {
		t.Errorf("expected cached report with refreshed end, got %+v", cached.Summary)
	}

	explicit, err := h.reports.WeeklyFor(ctx, "u1", Window{Start: tuesday.Add(-time.Hour), End: h.clock.Now()})
	if err != nil {
		t.Fatalf("WeeklyFor() error = %v", err)
	}
	if explicit.Summary.TotalClosed != 1 {
		t.Errorf("explicit window total_closed = %d", explicit.Summary.TotalClosed)
	}
}

func TestWeeklyOwnerScoping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.armedPlan(t, 100, 105)
	h.clock.Advance(time.Minute)

	r, err := h.reports.Weekly(ctx, "someone-else")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if etnr := metricByKey(t, r, models.MetricETNR); etnr.Status != models.StatusNA {
		t.Errorf("other user's plans leaked into report: %s", etnr.Status)
	}

	_, err = h.reports.Weekly(ctx, "")
	if jerrors.Code(err) != jerrors.CodeMissingField {
		t.Errorf("blank user error = %v", err)
	}
	_, err = h.reports.WeeklyFor(ctx, "u1", Window{Start: tuesday, End: tuesday})
	if jerrors.Code(err) != jerrors.CodeValidationRange {
		t.Errorf("empty window error = %v", err)
	}
}

func TestWeeklyIgnoresIncompleteDraftsUntilReferenced(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	plan := h.armedPlan(t, 100, 100)
	if _, err := h.journal.Close(ctx, "u1", plan.ID, journal.CloseInput{
		SellPrice:  models.Float(110),
		SellReason: "follow_plan",
	}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	draft, err := h.journal.CreatePlan(ctx, "u1", journal.CreatePlanInput{
		Symbol:         "MSFT",
		BuyReasonTypes: []string{"value"},
		BuyReasonText:  "cheap on earnings",
		TargetType:     "price",
		TargetLow:      models.Float(50),
		TargetHigh:     models.Float(60),
		SellConditions: []string{"target_hit"},
		StopType:       "price",
	})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	if _, err := h.journal.Archive(ctx, "u1", draft.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	h.clock.Advance(time.Minute)

	r, err := h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if pcs := metricByKey(t, r, models.MetricPCS); pcs.ScoreValue() != 100 {
		t.Errorf("PCS = %d with evidence %+v, want 100", pcs.ScoreValue(), pcs.Evidence)
	}

	if _, err := h.journal.AddEvent(ctx, "u1", draft.ID, journal.EventInput{
		Summary:       "guidance cut",
		EventStage:    "planning",
		TriggeredExit: models.Bool(false),
	}); err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}
	h.clock.Advance(time.Minute)

	r, err = h.reports.Weekly(ctx, "u1")
	if err != nil {
		t.Fatalf("Weekly() error = %v", err)
	}
	if pcs := metricByKey(t, r, models.MetricPCS); pcs.ScoreValue() != 96 {
		t.Errorf("PCS = %d, want 96 once the draft is referenced", pcs.ScoreValue())
	}
}
