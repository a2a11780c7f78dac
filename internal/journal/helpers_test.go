package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"discipline-journal/internal/clock"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

var testStart = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *store.SQLiteStore
	clock *clock.Fixed
}

type changeCounter struct {
	users []string
}

func (c *changeCounter) UserChanged(_ context.Context, userID string) {
	c.users = append(c.users, userID)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFixed(testStart)
	return &fixture{
		svc:   NewService(st, clk, clock.NewSequence("id"), opts...),
		store: st,
		clock: clk,
	}
}

func validPlanInput() CreatePlanInput {
	return CreatePlanInput{
		Symbol:            "AAPL",
		BuyReasonTypes:    []string{"breakout"},
		BuyReasonText:     "range breakout on volume",
		TargetType:        "price",
		TargetLow:         models.Float(115),
		TargetHigh:        models.Float(120),
		SellConditions:    []string{"target_hit", "stop_hit"},
		StopType:          "price",
		StopValue:         models.Float(90),
		PlannedEntryPrice: models.Float(100),
	}
}

func (f *fixture) draft(t *testing.T, userID string) *models.TradePlan {
	t.Helper()
	plan, err := f.svc.CreatePlan(context.Background(), userID, validPlanInput())
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	return plan
}

func (f *fixture) armed(t *testing.T, userID string, entry float64) *models.TradePlan {
	t.Helper()
	plan := f.draft(t, userID)
	armed, err := f.svc.Arm(context.Background(), userID, plan.ID, ArmInput{ActualEntryPrice: models.Float(entry)})
	if err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	return armed
}

func (f *fixture) closed(t *testing.T, userID string) *models.TradePlan {
	t.Helper()
	plan := f.armed(t, userID, 100)
	if _, err := f.svc.Close(context.Background(), userID, plan.ID, CloseInput{
		SellPrice:  models.Float(110),
		SellReason: "follow_plan",
	}); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return plan
}

func boolPtr(b bool) *bool { return &b }

func expectCode(t *testing.T, err error, want string) {
	t.Helper()
	if got := jerrors.Code(err); got != want {
		t.Fatalf("error code = %q (%v), want %q", got, err, want)
	}
}
