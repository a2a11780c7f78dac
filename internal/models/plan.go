// Package models provides domain models for the discipline journal.
package models

import (
	"fmt"
	"strings"
	"time"
)

// PlanStatus represents the lifecycle status of a trade plan.
type PlanStatus string

const (
	PlanDraft   PlanStatus = "draft"
	PlanArmed   PlanStatus = "armed"
	PlanHolding PlanStatus = "holding"
	PlanClosed  PlanStatus = "closed"
)

// IsOpen reports whether the plan is armed or holding.
func (s PlanStatus) IsOpen() bool {
	return s == PlanArmed || s == PlanHolding
}

// ParsePlanStatus validates a status string. An empty string is returned as-is
// so callers can treat it as "any status".
func ParsePlanStatus(s string) (PlanStatus, error) {
	switch st := PlanStatus(strings.TrimSpace(s)); st {
	case "", PlanDraft, PlanArmed, PlanHolding, PlanClosed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown plan status %q", s)
	}
}

// Direction represents the side of a plan.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection validates a direction string; blank defaults to long.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.TrimSpace(s)); d {
	case "":
		return DirectionLong, nil
	case DirectionLong, DirectionShort:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// TradePlan represents a declared trading intent.
type TradePlan struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Symbol              string     `json:"symbol"`
	Direction           Direction  `json:"direction"`
	Status              PlanStatus `json:"status"`
	BuyReasonTypes      []string   `json:"buy_reason_types"`
	BuyReasonText       string     `json:"buy_reason_text"`
	TargetType          string     `json:"target_type"`
	TargetLow           float64    `json:"target_low"`
	TargetHigh          float64    `json:"target_high"`
	SellConditions      []string   `json:"sell_conditions"`
	TimeTakeProfitDays  *int       `json:"time_take_profit_days"`
	StopType            string     `json:"stop_type"`
	StopValue           *float64   `json:"stop_value"`
	StopTimeDays        *int       `json:"stop_time_days"`
	PlannedEntryPrice   *float64   `json:"planned_entry_price"`
	ActualEntryPrice    *float64   `json:"actual_entry_price"`
	EntryPrice          *float64   `json:"entry_price"` // legacy mirror of planned/actual entry
	EntryDriver         *string    `json:"entry_driver"`
	ExitPlanTargetPrice *float64   `json:"exit_plan_target_price"`
	Archived            bool       `json:"is_archived"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SellTarget returns the plan's declared sell target, preferring target_high
// over the externally declared exit target. Zero means no target.
func (p *TradePlan) SellTarget() float64 {
	if p.TargetHigh > 0 {
		return p.TargetHigh
	}
	return Value(p.ExitPlanTargetPrice)
}

// HasSellTarget reports whether any sell target is declared.
func (p *TradePlan) HasSellTarget() bool {
	return p.SellTarget() > 0
}

// Value dereferences a nullable price, treating nil as zero.
func Value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Int returns a pointer to i.
func Int(i int) *int {
	return &i
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// PlanDetail is a plan together with everything recorded against it.
type PlanDetail struct {
	Plan   *TradePlan   `json:"plan"`
	Events []TradeEvent `json:"events"`
	Result *TradeResult `json:"result"`
	Edits  []PlanEdit   `json:"edits"`
}
