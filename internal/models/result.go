package models

import (
	"fmt"
	"strings"
	"time"
)

// Judgement is the system verdict recorded at closure.
type Judgement string

const (
	JudgementFollowPlan      Judgement = "follow_plan"
	JudgementNoPlan          Judgement = "no_plan"
	JudgementEmotionOverride Judgement = "emotion_override"
)

// SellReason is the user's stated reason for exiting.
type SellReason string

const (
	SellFollowPlan SellReason = "follow_plan"
	SellFear       SellReason = "fear"
	SellPanic      SellReason = "panic"
	SellEmotion    SellReason = "emotion"
	SellExternal   SellReason = "external"
	SellOther      SellReason = "other"
)

var sellReasons = []SellReason{SellFollowPlan, SellFear, SellPanic, SellEmotion, SellExternal, SellOther}

// ParseSellReason validates a sell reason code.
func ParseSellReason(s string) (SellReason, error) {
	s = strings.TrimSpace(s)
	for _, r := range sellReasons {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown sell reason %q", s)
}

// TradeResult is the outcome of closing a plan.
type TradeResult struct {
	PlanID            string     `json:"plan_id"`
	UserID            string     `json:"user_id"`
	SellPrice         float64    `json:"sell_price"`
	SellReason        SellReason `json:"sell_reason"`
	Judgement         Judgement  `json:"system_judgement"`
	ConclusionText    string     `json:"conclusion_text"`
	PostExitBestPrice *float64   `json:"post_exit_best_price"`
	EPCOpportunity    *float64   `json:"epc_opportunity_pct"`
	ClosedAt          time.Time  `json:"closed_at"`
}

// PlanEdit is an append-only revision record for a frozen plan field.
type PlanEdit struct {
	ID       string    `json:"id"`
	PlanID   string    `json:"plan_id"`
	UserID   string    `json:"user_id"`
	Field    string    `json:"field"`
	OldValue *string   `json:"old_value"`
	NewValue *string   `json:"new_value"`
	EditedAt time.Time `json:"edited_at"`
}
