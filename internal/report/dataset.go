package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"discipline-journal/internal/models"
)

// Dataset is everything a user recorded in one window: results closed in it,
// events created in it, and the plans that were updated in it or that either
// one refers to.
type Dataset struct {
	Plans   []models.TradePlan
	Events  []models.TradeEvent
	Results []models.TradeResult

	planByID     map[string]*models.TradePlan
	resultByPlan map[string]*models.TradeResult
	referenced   map[string]bool
}

// NewDataset indexes the records. Plans are ordered by creation time so
// evidence lists come out in a stable order.
func NewDataset(plans []models.TradePlan, events []models.TradeEvent, results []models.TradeResult) *Dataset {
	d := &Dataset{
		Plans:        append([]models.TradePlan(nil), plans...),
		Events:       events,
		Results:      results,
		planByID:     make(map[string]*models.TradePlan, len(plans)),
		resultByPlan: make(map[string]*models.TradeResult, len(results)),
		referenced:   make(map[string]bool),
	}
	sort.SliceStable(d.Plans, func(i, j int) bool {
		if d.Plans[i].CreatedAt.Equal(d.Plans[j].CreatedAt) {
			return d.Plans[i].ID < d.Plans[j].ID
		}
		return d.Plans[i].CreatedAt.Before(d.Plans[j].CreatedAt)
	})
	for i := range d.Plans {
		d.planByID[d.Plans[i].ID] = &d.Plans[i]
	}
	for i := range d.Results {
		if _, ok := d.resultByPlan[d.Results[i].PlanID]; !ok {
			d.resultByPlan[d.Results[i].PlanID] = &d.Results[i]
		}
	}
	for _, id := range PlanIDs(events, results) {
		d.referenced[id] = true
	}
	return d
}

// PlanIDs returns the distinct plan ids referenced by results and events.
func PlanIDs(events []models.TradeEvent, results []models.TradeResult) []string {
	seen := make(map[string]struct{}, len(events)+len(results))
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, r := range results {
		add(r.PlanID)
	}
	for _, e := range events {
		add(e.PlanID)
	}
	return ids
}

func (d *Dataset) plan(id string) *models.TradePlan {
	return d.planByID[id]
}

// scored reports whether the plan's own fields count this week: it left
// draft, or a result or event in the window points at it.
func (d *Dataset) scored(p *models.TradePlan) bool {
	return p.Status != models.PlanDraft || d.referenced[p.ID]
}

func (d *Dataset) result(planID string) *models.TradeResult {
	return d.resultByPlan[planID]
}

// eventsFor returns the plan's events matching keep, in creation order.
func (d *Dataset) eventsFor(planID string, keep func(*models.TradeEvent) bool) []*models.TradeEvent {
	var out []*models.TradeEvent
	for i := range d.Events {
		e := &d.Events[i]
		if e.PlanID == planID && keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (d *Dataset) hasTriggeredExit(planID string) bool {
	return len(d.eventsFor(planID, func(e *models.TradeEvent) bool { return e.TriggeredExit })) > 0
}

func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}
