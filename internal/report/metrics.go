// Package report computes the weekly discipline report: six metrics folded
// over a user's week of plans, events and results, and a summary naming the
// dominant deviation.
package report

import (
	"fmt"
	"math"

	"discipline-journal/internal/models"
)

// Shared thresholds reported with every metric.
const (
	DeviationThreshold = 0.01
	HitEpsilon         = 0.005

	maxEvidence = 5
)

// Score scales: a deviation of chaseFullScale or a stop overshoot of
// stopFullScale scores 100.
const (
	chaseFullScale = 0.10
	stopFullScale  = 0.15
)

var thresholds = models.Thresholds{
	DeviationThreshold: DeviationThreshold,
	HitEpsilon:         HitEpsilon,
}

var metricNames = map[models.MetricKey]string{
	models.MetricPCS:  "Plan consistency",
	models.MetricETNR: "Buy chase",
	models.MetricELDC: "Missed low entry",
	models.MetricTNR:  "Target hit, not sold",
	models.MetricLDC:  "Stop-loss delay",
	models.MetricEPC:  "Premature exit",
}

// Evaluate computes all six metrics in report order: PCS, E-TNR, E-LDC, TNR,
// LDC, EPC.
func Evaluate(d *Dataset) []models.WeeklyMetric {
	etnr := BuyChase(d)
	eldc := MissedLowEntry(d)
	tnr := TargetNotSold(d)
	ldc := StopLossDelay(d)
	epc := PrematureExit(d)
	pcs := PlanConsistency(d, etnr, tnr, ldc, epc)
	return []models.WeeklyMetric{pcs, etnr, eldc, tnr, ldc, epc}
}

func newMetric(key models.MetricKey) models.WeeklyMetric {
	return models.WeeklyMetric{
		Key:        key,
		Name:       metricNames[key],
		Thresholds: thresholds,
		Evidence:   []models.Evidence{},
	}
}

// finish sets status and score. Scores exist only for evaluated metrics.
func finish(m *models.WeeklyMetric, status models.MetricStatus, score float64) {
	m.Status = status
	switch status {
	case models.StatusTriggered:
		v := int(math.Round(score))
		m.Score = &v
	case models.StatusNotTriggered:
		zero := 0
		m.Score = &zero
	}
}

func capEvidence(ev []models.Evidence) []models.Evidence {
	if len(ev) > maxEvidence {
		return ev[:maxEvidence]
	}
	return ev
}

// BuyChase (E-TNR) flags entries filled above the planned price by more than
// the deviation threshold.
func BuyChase(d *Dataset) models.WeeklyMetric {
	m := newMetric(models.MetricETNR)
	var planned, filled, triggered bool
	var maxDev float64

	for i := range d.Plans {
		p := &d.Plans[i]
		plannedPrice := models.Value(p.PlannedEntryPrice)
		if plannedPrice <= 0 {
			continue
		}
		planned = true
		actual := models.Value(p.ActualEntryPrice)
		if actual <= 0 {
			continue
		}
		filled = true
		if actual <= plannedPrice*(1+DeviationThreshold) {
			continue
		}

		triggered = true
		dev := (actual - plannedPrice) / plannedPrice
		maxDev = math.Max(maxDev, dev)
		m.Evidence = append(m.Evidence,
			models.Evidence{
				Type:   models.EvidencePlanField,
				ID:     p.ID,
				Title:  p.Symbol + " planned entry",
				Detail: "planned_entry_price=" + num(plannedPrice),
				TS:     p.CreatedAt,
			},
			models.Evidence{
				Type:   models.EvidenceTrade,
				ID:     p.ID,
				Title:  p.Symbol + " actual entry",
				Detail: "actual_entry_price=" + num(actual),
				TS:     p.UpdatedAt,
			},
		)
	}
	m.Evidence = capEvidence(m.Evidence)

	switch {
	case !planned:
		finish(&m, models.StatusNA, 0)
		m.SummaryLine = "No planned entry prices this week."
	case !filled:
		finish(&m, models.StatusInsufficientData, 0)
		m.SummaryLine = "No filled entries to compare with planned prices."
	case triggered:
		finish(&m, models.StatusTriggered, math.Min(100, maxDev/chaseFullScale*100))
		m.Metrics.DeviationPct = &maxDev
		m.SummaryLine = fmt.Sprintf("Bought above plan this week; largest deviation about %d%%.", int(math.Round(maxDev*100)))
	default:
		finish(&m, models.StatusNotTriggered, 0)
		m.SummaryLine = "No buy chasing found this week."
	}
	return m
}

// MissedLowEntry (E-LDC) counts events recorded at the entry_non_action
// stage. Better documented events score higher.
func MissedLowEntry(d *Dataset) models.WeeklyMetric {
	m := newMetric(models.MetricELDC)
	var maxScore float64

	for i := range d.Events {
		e := &d.Events[i]
		if e.EventStage != models.StageEntryNonAction {
			continue
		}
		score := 30.0
		detail := "no summary provided"
		switch {
		case e.PriceAtEvent != nil:
			score = 70
		case e.Summary != "":
			score = 50
		}
		if e.Summary != "" {
			detail = e.Summary
		}
		maxScore = math.Max(maxScore, score)
		m.Evidence = append(m.Evidence, models.Evidence{
			Type:   models.EvidenceEvent,
			ID:     e.ID,
			Title:  "Entry not executed at low",
			Detail: detail,
			TS:     e.CreatedAt,
		})
	}

	if len(m.Evidence) == 0 {
		finish(&m, models.StatusNotTriggered, 0)
		m.SummaryLine = "No missed low entries recorded this week."
		return m
	}
	finish(&m, models.StatusTriggered, maxScore)
	m.SummaryLine = fmt.Sprintf("Recorded %d missed low entries this week.", len(m.Evidence))
	return m
}

// TargetNotSold (TNR) flags plans whose target was verified but which were
// not sold afterwards.
func TargetNotSold(d *Dataset) models.WeeklyMetric {
	m := newMetric(models.MetricTNR)
	var hasTarget, hasVerify, triggered bool

	for i := range d.Plans {
		p := &d.Plans[i]
		if !p.HasSellTarget() {
			continue
		}
		hasTarget = true
		verifies := d.eventsFor(p.ID, func(e *models.TradeEvent) bool { return e.EventType == models.EventVerify })
		if len(verifies) == 0 {
			continue
		}
		hasVerify = true
		first := verifies[0]

		result := d.result(p.ID)
		if result != nil && !result.ClosedAt.Before(first.CreatedAt) {
			continue
		}
		triggered = true
		m.Evidence = append(m.Evidence,
			models.Evidence{
				Type:   models.EvidencePlanField,
				ID:     p.ID,
				Title:  p.Symbol + " sell target",
				Detail: "target=" + num(p.SellTarget()),
				TS:     p.CreatedAt,
			},
			models.Evidence{
				Type:   models.EvidenceEvent,
				ID:     first.ID,
				Title:  "Target verified",
				Detail: first.Summary,
				TS:     first.CreatedAt,
			},
		)
	}

	switch {
	case !hasTarget:
		finish(&m, models.StatusNA, 0)
		m.SummaryLine = "No sell targets declared this week."
	case !hasVerify:
		finish(&m, models.StatusInsufficientData, 0)
		m.SummaryLine = "No target verification events recorded this week."
	case triggered:
		finish(&m, models.StatusTriggered, 80)
		m.SummaryLine = "Held past a verified target without selling this week."
	default:
		finish(&m, models.StatusNotTriggered, 0)
		m.SummaryLine = "Sold after targets were verified this week."
	}
	return m
}

// StopLossDelay (LDC) flags exits filled below the stop by more than the
// deviation threshold.
func StopLossDelay(d *Dataset) models.WeeklyMetric {
	m := newMetric(models.MetricLDC)
	var stopped, triggered bool
	var maxCost float64

	for i := range d.Results {
		r := &d.Results[i]
		p := d.plan(r.PlanID)
		if p == nil {
			continue
		}
		stop := models.Value(p.StopValue)
		if stop <= 0 {
			continue
		}
		stopped = true
		if r.SellPrice >= stop*(1-DeviationThreshold) {
			continue
		}

		triggered = true
		cost := (stop - r.SellPrice) / stop
		maxCost = math.Max(maxCost, cost)
		m.Evidence = append(m.Evidence,
			models.Evidence{
				Type:   models.EvidencePlanField,
				ID:     p.ID,
				Title:  p.Symbol + " stop price",
				Detail: "stop_price=" + num(stop),
				TS:     p.CreatedAt,
			},
			models.Evidence{
				Type:   models.EvidenceTrade,
				ID:     r.PlanID,
				Title:  p.Symbol + " actual exit",
				Detail: "sell_price=" + num(r.SellPrice),
				TS:     r.ClosedAt,
			},
		)
	}
	m.Evidence = capEvidence(m.Evidence)

	switch {
	case !stopped && d.anyPlan(func(p *models.TradePlan) bool { return models.Value(p.StopValue) > 0 }):
		finish(&m, models.StatusInsufficientData, 0)
		m.SummaryLine = "Stops declared, but no stopped trade closed this week."
	case !stopped:
		finish(&m, models.StatusNA, 0)
		m.SummaryLine = "No closed trades with a stop this week."
	case triggered:
		score := math.Min(100, maxCost/stopFullScale*100)
		finish(&m, models.StatusTriggered, score)
		m.Metrics.CostPct = &maxCost
		m.Metrics.DelayLevel = delayLevel(*m.Score)
		m.SummaryLine = fmt.Sprintf("Stop-loss delayed this week; largest extra loss about %d%%.", int(math.Round(maxCost*100)))
	default:
		finish(&m, models.StatusNotTriggered, 0)
		m.SummaryLine = "No stop-loss delay found this week."
	}
	return m
}

// PrematureExit (EPC) flags closed plans with an exit_deviation event and no
// triggered exit to justify it.
func PrematureExit(d *Dataset) models.WeeklyMetric {
	m := newMetric(models.MetricEPC)
	var targeted, triggered bool
	var maxScore float64

	for i := range d.Results {
		r := &d.Results[i]
		p := d.plan(r.PlanID)
		if p == nil || !p.HasSellTarget() {
			continue
		}
		targeted = true

		deviations := d.eventsFor(p.ID, func(e *models.TradeEvent) bool { return e.EventStage == models.StageExitDeviation })
		if len(deviations) == 0 || d.hasTriggeredExit(p.ID) {
			continue
		}
		triggered = true
		score := 30.0
		if p.TargetHigh > 0 {
			score = 70
		}
		maxScore = math.Max(maxScore, score)
		m.Evidence = append(m.Evidence, models.Evidence{
			Type:   models.EvidenceEvent,
			ID:     deviations[0].ID,
			Title:  "Exit deviated from plan",
			Detail: deviations[0].Summary,
			TS:     deviations[0].CreatedAt,
		})
	}

	switch {
	case !targeted:
		finish(&m, models.StatusNA, 0)
		m.SummaryLine = "No closed trades with a sell target this week."
	case triggered:
		finish(&m, models.StatusTriggered, maxScore)
		m.SummaryLine = "Sold early without the plan being invalidated this week."
	default:
		finish(&m, models.StatusNotTriggered, 0)
		m.SummaryLine = "No premature exits found this week."
	}
	return m
}

// PlanConsistency (PCS) starts at 100 and deducts for incomplete plans,
// triggered deviations, and invalidated plans left unsold. Drafts nothing in
// the window refers to are not checked for missing fields.
func PlanConsistency(d *Dataset, etnr, tnr, ldc, epc models.WeeklyMetric) models.WeeklyMetric {
	m := newMetric(models.MetricPCS)
	score := 100.0

	missing := func(p *models.TradePlan, title string) {
		score -= 2
		m.Evidence = append(m.Evidence, models.Evidence{
			Type:   models.EvidencePlanField,
			ID:     p.ID,
			Title:  title,
			Detail: p.Symbol,
			TS:     p.CreatedAt,
		})
	}
	for i := range d.Plans {
		p := &d.Plans[i]
		if !d.scored(p) {
			continue
		}
		if models.Value(p.PlannedEntryPrice) <= 0 {
			missing(p, "Missing planned entry price")
		}
		if !p.HasSellTarget() {
			missing(p, "Missing sell target")
		}
		if models.Value(p.StopValue) <= 0 {
			missing(p, "Missing stop price")
		}
	}

	score -= deduction(etnr, 20, 0.2)
	score -= deduction(ldc, 30, 0.3)
	score -= deduction(tnr, 20, 0.2)
	score -= deduction(epc, 15, 0.15)

	for i := range d.Events {
		e := &d.Events[i]
		if !e.TriggeredExit || d.result(e.PlanID) != nil {
			continue
		}
		score -= 5
		m.Evidence = append(m.Evidence, models.Evidence{
			Type:   models.EvidenceEvent,
			ID:     e.ID,
			Title:  "Plan invalidated but not sold",
			Detail: e.Summary,
			TS:     e.CreatedAt,
		})
	}
	m.Evidence = capEvidence(m.Evidence)

	if len(d.Results) == 0 {
		finish(&m, models.StatusInsufficientData, 0)
		m.SummaryLine = "No closed trades this week; plan consistency not scored."
		return m
	}
	finish(&m, models.StatusTriggered, math.Max(0, math.Min(100, score)))
	m.SummaryLine = fmt.Sprintf("Plan consistency score this week: %d.", *m.Score)
	return m
}

func deduction(m models.WeeklyMetric, limit, weight float64) float64 {
	if !m.Triggered() {
		return 0
	}
	return math.Min(limit, float64(m.ScoreValue())*weight)
}

func delayLevel(score int) string {
	switch {
	case score < 34:
		return "mild"
	case score < 67:
		return "moderate"
	default:
		return "severe"
	}
}

func (d *Dataset) anyPlan(pred func(*models.TradePlan) bool) bool {
	for i := range d.Plans {
		if pred(&d.Plans[i]) {
			return true
		}
	}
	return false
}
