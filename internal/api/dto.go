package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/models"
	"discipline-journal/internal/report"
)

// CreatePlanRequest is the body of POST /plans/create.
type CreatePlanRequest struct {
	Symbol             string   `json:"symbol" validate:"required,max=32"`
	Direction          string   `json:"direction" default:"long" validate:"oneof=long short"`
	BuyReasonTypes     []string `json:"buy_reason_types"`
	BuyReasonText      string   `json:"buy_reason_text"`
	TargetType         string   `json:"target_type"`
	TargetLow          *float64 `json:"target_low"`
	TargetHigh         *float64 `json:"target_high"`
	SellConditions     []string `json:"sell_conditions"`
	TimeTakeProfitDays *int     `json:"time_take_profit_days" validate:"omitempty,gte=0"`
	StopType           string   `json:"stop_type"`
	StopValue          *float64 `json:"stop_value"`
	StopTimeDays       *int     `json:"stop_time_days" validate:"omitempty,gte=0"`
	PlannedEntryPrice  *float64 `json:"planned_entry_price" validate:"omitempty,gt=0"`
	EntryPrice         *float64 `json:"entry_price" validate:"omitempty,gt=0"`
}

func (r *CreatePlanRequest) toInput() journal.CreatePlanInput {
	return journal.CreatePlanInput{
		Symbol:             r.Symbol,
		Direction:          r.Direction,
		BuyReasonTypes:     r.BuyReasonTypes,
		BuyReasonText:      r.BuyReasonText,
		TargetType:         r.TargetType,
		TargetLow:          r.TargetLow,
		TargetHigh:         r.TargetHigh,
		SellConditions:     r.SellConditions,
		TimeTakeProfitDays: r.TimeTakeProfitDays,
		StopType:           r.StopType,
		StopValue:          r.StopValue,
		StopTimeDays:       r.StopTimeDays,
		PlannedEntryPrice:  r.PlannedEntryPrice,
		EntryPrice:         r.EntryPrice,
	}
}

// ArmRequest is the body of POST /plans/:id/arm.
type ArmRequest struct {
	ActualEntryPrice *float64 `json:"actual_entry_price"`
	EntryPrice       *float64 `json:"entry_price"`
	EntryDriver      *string  `json:"entry_driver"`
}

func (r *ArmRequest) toInput() journal.ArmInput {
	return journal.ArmInput{
		ActualEntryPrice: r.ActualEntryPrice,
		EntryPrice:       r.EntryPrice,
		EntryDriver:      r.EntryDriver,
	}
}

// EventRequest is the body of POST /plans/:id/add-event. Presence checks are
// left to the journal so that a missing triggered_exit keeps its own code.
type EventRequest struct {
	EventType      string   `json:"event_type"`
	Summary        string   `json:"summary"`
	ImpactTarget   string   `json:"impact_target"`
	TriggeredExit  *bool    `json:"triggered_exit"`
	EventStage     string   `json:"event_stage"`
	BehaviorDriver *string  `json:"behavior_driver"`
	PriceAtEvent   *float64 `json:"price_at_event"`
}

func (r *EventRequest) toInput() journal.EventInput {
	return journal.EventInput{
		EventType:      r.EventType,
		Summary:        r.Summary,
		ImpactTarget:   r.ImpactTarget,
		TriggeredExit:  r.TriggeredExit,
		EventStage:     r.EventStage,
		BehaviorDriver: r.BehaviorDriver,
		PriceAtEvent:   r.PriceAtEvent,
	}
}

// CloseRequest is the body of POST /plans/:id/close.
type CloseRequest struct {
	SellPrice           *float64 `json:"sell_price"`
	SellReason          string   `json:"sell_reason"`
	PostExitBestPrice   *float64 `json:"post_exit_best_price"`
	ExitPlanTargetPrice *float64 `json:"exit_plan_target_price"`
}

func (r *CloseRequest) toInput() journal.CloseInput {
	return journal.CloseInput{
		SellPrice:           r.SellPrice,
		SellReason:          r.SellReason,
		PostExitBestPrice:   r.PostExitBestPrice,
		ExitPlanTargetPrice: r.ExitPlanTargetPrice,
	}
}

// CloseResponse is returned by a successful close.
type CloseResponse struct {
	SystemJudgement   models.Judgement `json:"system_judgement"`
	ConclusionText    string           `json:"conclusion_text"`
	EPCOpportunityPct *float64         `json:"epc_opportunity_pct"`
}

// reviewInput reads a self review body. Dimension scores sit next to plan_id
// at the top level.
func reviewInput(raw map[string]json.RawMessage) (journal.ReviewInput, error) {
	in := journal.ReviewInput{Scores: make(map[string]*int, len(models.ReviewDimensions))}

	if v, ok := raw["plan_id"]; ok {
		var id string
		if err := json.Unmarshal(v, &id); err != nil {
			return in, jerrors.OutOfRange("plan_id", string(v), "a string")
		}
		in.PlanID = id
	}

	for _, dim := range models.ReviewDimensions {
		v, ok := raw[dim]
		if !ok {
			continue
		}
		var score *int
		if err := json.Unmarshal(v, &score); err != nil {
			return in, jerrors.OutOfRange(dim, string(v), "an integer")
		}
		in.Scores[dim] = score
	}
	return in, nil
}

// parseWindow reads week_start and week_end query values as unix seconds or
// RFC 3339. A missing end means seven days after start.
func parseWindow(start, end string) (report.Window, error) {
	ws, err := parseInstant("week_start", start)
	if err != nil {
		return report.Window{}, err
	}
	if strings.TrimSpace(end) == "" {
		return report.Window{Start: ws, End: ws.AddDate(0, 0, 7)}, nil
	}
	we, err := parseInstant("week_end", end)
	if err != nil {
		return report.Window{}, err
	}
	return report.Window{Start: ws, End: we}, nil
}

func parseInstant(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, jerrors.OutOfRange(field, v, "unix seconds or RFC 3339")
	}
	return t, nil
}
