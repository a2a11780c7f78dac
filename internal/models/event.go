package models

import (
	"fmt"
	"time"
)

// EventType classifies a trade event.
type EventType string

const (
	EventFalsify        EventType = "falsify"
	EventForced         EventType = "forced"
	EventVerify         EventType = "verify"
	EventStructure      EventType = "structure"
	EventExternalChange EventType = "external_change"
)

// KnownEventTypes is the accepted set when event types are enforced.
var KnownEventTypes = []EventType{EventFalsify, EventForced, EventVerify, EventStructure, EventExternalChange}

// ParseEventType validates an event type against KnownEventTypes.
func ParseEventType(s string) (EventType, error) {
	for _, t := range KnownEventTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Event stages read by the weekly metrics.
const (
	StageEntryNonAction = "entry_non_action"
	StageExitDeviation  = "exit_deviation"
)

// Defaults applied to blank event fields.
const (
	DefaultEventType    = EventExternalChange
	DefaultImpactTarget = "buy_logic"
)

// MaxSummaryLength bounds the stored event summary, in characters.
const MaxSummaryLength = 40

// TradeEvent is an observation of friction between plan and reality.
type TradeEvent struct {
	ID             string    `json:"id"`
	PlanID         string    `json:"plan_id"`
	UserID         string    `json:"user_id"`
	EventType      EventType `json:"event_type"`
	Summary        string    `json:"summary"`
	ImpactTarget   string    `json:"impact_target"`
	TriggeredExit  bool      `json:"triggered_exit"`
	EventStage     string    `json:"event_stage"`
	BehaviorDriver *string   `json:"behavior_driver"`
	PriceAtEvent   *float64  `json:"price_at_event"`
	CreatedAt      time.Time `json:"created_at"`
}
