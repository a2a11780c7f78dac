package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"discipline-journal/internal/audit"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

// Field names a plan attribute that may be targeted by an update.
type Field string

const (
	FieldDirection           Field = "direction"
	FieldBuyReasonTypes      Field = "buy_reason_types"
	FieldBuyReasonText       Field = "buy_reason_text"
	FieldTargetType          Field = "target_type"
	FieldTargetLow           Field = "target_low"
	FieldTargetHigh          Field = "target_high"
	FieldSellConditions      Field = "sell_conditions"
	FieldTimeTakeProfitDays  Field = "time_take_profit_days"
	FieldStopType            Field = "stop_type"
	FieldStopValue           Field = "stop_value"
	FieldStopTimeDays        Field = "stop_time_days"
	FieldPlannedEntryPrice   Field = "planned_entry_price"
	FieldActualEntryPrice    Field = "actual_entry_price"
	FieldEntryDriver         Field = "entry_driver"
	FieldEntryPrice          Field = "entry_price"
	FieldExitPlanTargetPrice Field = "exit_plan_target_price"
)

// UpdatableFields is the allow-list, in the order updates are applied.
var UpdatableFields = []Field{
	FieldDirection, FieldBuyReasonTypes, FieldBuyReasonText, FieldTargetType,
	FieldTargetLow, FieldTargetHigh, FieldSellConditions, FieldTimeTakeProfitDays,
	FieldStopType, FieldStopValue, FieldStopTimeDays, FieldPlannedEntryPrice,
	FieldActualEntryPrice, FieldEntryDriver, FieldEntryPrice, FieldExitPlanTargetPrice,
}

type valueKind int

const (
	kindText valueKind = iota
	kindNumber
	kindInteger
	kindTags
)

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "a number"
	case kindInteger:
		return "an integer"
	case kindTags:
		return "a list of strings"
	default:
		return "a string"
	}
}

type fieldSpec struct {
	kind     valueKind
	required bool // null or blank is refused
}

var fieldSpecs = map[Field]fieldSpec{
	FieldDirection:           {kindText, true},
	FieldBuyReasonTypes:      {kindTags, true},
	FieldBuyReasonText:       {kindText, true},
	FieldTargetType:          {kindText, true},
	FieldTargetLow:           {kindNumber, true},
	FieldTargetHigh:          {kindNumber, true},
	FieldSellConditions:      {kindTags, true},
	FieldTimeTakeProfitDays:  {kindInteger, false},
	FieldStopType:            {kindText, true},
	FieldStopValue:           {kindNumber, false},
	FieldStopTimeDays:        {kindInteger, false},
	FieldPlannedEntryPrice:   {kindNumber, false},
	FieldActualEntryPrice:    {kindNumber, false},
	FieldEntryDriver:         {kindText, false},
	FieldEntryPrice:          {kindNumber, false},
	FieldExitPlanTargetPrice: {kindNumber, false},
}

// IsExecutionField reports whether f may be written directly on an open plan.
func IsExecutionField(f Field) bool {
	return f == FieldActualEntryPrice || f == FieldEntryPrice
}

// FieldUpdate is a request to set one plan field. At most one value is set;
// none set means null.
type FieldUpdate struct {
	Field   Field
	Text    *string
	Number  *float64
	Integer *int
	Tags    []string
}

// SetText builds a string update.
func SetText(f Field, v string) FieldUpdate { return FieldUpdate{Field: f, Text: &v} }

// SetNumber builds a numeric update.
func SetNumber(f Field, v float64) FieldUpdate { return FieldUpdate{Field: f, Number: &v} }

// SetInteger builds an integer update.
func SetInteger(f Field, v int) FieldUpdate { return FieldUpdate{Field: f, Integer: &v} }

// SetTags builds a tag-list update.
func SetTags(f Field, v ...string) FieldUpdate { return FieldUpdate{Field: f, Tags: v} }

// Clear builds a null update.
func Clear(f Field) FieldUpdate { return FieldUpdate{Field: f} }

func (u FieldUpdate) isNull() bool {
	return u.Text == nil && u.Number == nil && u.Integer == nil && u.Tags == nil
}

func (u FieldUpdate) validate(status models.PlanStatus) error {
	spec := fieldSpecs[u.Field]
	name := string(u.Field)

	switch {
	case u.Text != nil && spec.kind != kindText,
		u.Number != nil && spec.kind != kindNumber,
		u.Integer != nil && spec.kind != kindInteger,
		u.Tags != nil && spec.kind != kindTags:
		return jerrors.OutOfRange(name, "value", "must be "+spec.kind.String())
	}

	if u.isNull() {
		if spec.required {
			return jerrors.MissingField(name)
		}
		if u.Field == FieldActualEntryPrice && status.IsOpen() {
			return jerrors.MissingField(name)
		}
		return nil
	}

	if spec.required {
		if u.Text != nil && strings.TrimSpace(*u.Text) == "" {
			return jerrors.MissingField(name)
		}
		if spec.kind == kindTags && len(nonBlank(u.Tags)) == 0 {
			return jerrors.MissingField(name)
		}
	}
	if u.Field == FieldDirection {
		if _, err := models.ParseDirection(*u.Text); err != nil {
			return jerrors.OutOfRange(name, *u.Text, "long or short")
		}
	}
	return nil
}

// snapshot renders the update's new value as stored in a PlanEdit.
func (u FieldUpdate) snapshot() *string {
	switch {
	case u.Text != nil:
		return models.String(*u.Text)
	case u.Number != nil:
		return formatNumber(u.Number)
	case u.Integer != nil:
		return formatInt(u.Integer)
	case u.Tags != nil:
		return formatTags(u.Tags)
	default:
		return nil
	}
}

// ParseFieldUpdates decodes a loosely typed payload into updates, following
// the allow-list order. Keys outside the allow-list are ignored.
func ParseFieldUpdates(raw map[string]json.RawMessage) ([]FieldUpdate, error) {
	var updates []FieldUpdate
	for _, f := range UpdatableFields {
		msg, ok := raw[string(f)]
		if !ok {
			continue
		}
		u, err := decodeField(f, msg)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func decodeField(f Field, msg json.RawMessage) (FieldUpdate, error) {
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return Clear(f), nil
	}

	spec := fieldSpecs[f]
	bad := jerrors.OutOfRange(string(f), string(msg), "must be "+spec.kind.String())

	switch spec.kind {
	case kindText:
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return FieldUpdate{}, bad
		}
		return SetText(f, s), nil

	case kindNumber:
		n, err := decodeNumber(msg)
		if err != nil {
			return FieldUpdate{}, bad
		}
		return SetNumber(f, n), nil

	case kindInteger:
		n, err := decodeNumber(msg)
		if err != nil || n != float64(int(n)) {
			return FieldUpdate{}, bad
		}
		return SetInteger(f, int(n)), nil

	case kindTags:
		var tags []string
		if err := json.Unmarshal(msg, &tags); err != nil {
			return FieldUpdate{}, bad
		}
		if tags == nil {
			tags = []string{}
		}
		return SetTags(f, tags...), nil
	}
	return FieldUpdate{}, bad
}

// decodeNumber accepts a JSON number or a numeric string.
func decodeNumber(msg json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		s = string(bytes.TrimSpace(msg))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// UpdateOutcome reports how an update was routed.
type UpdateOutcome struct {
	Plan    *models.TradePlan `json:"plan"`
	Applied []Field           `json:"applied"`
	Edits   []models.PlanEdit `json:"edits"`
}

// Update routes typed field updates. Draft plans are edited in place. Open
// plans only accept execution fields directly; every other field is written
// to the revision log and the plan is left as it was. Closed plans refuse
// the whole request.
func (s *Service) Update(ctx context.Context, userID, planID string, updates []FieldUpdate) (*UpdateOutcome, error) {
	plan, err := s.loadUpdatable(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return s.routeUpdates(ctx, plan, updates)
}

// UpdateFromJSON is Update for a raw JSON object. The closed-plan check runs
// before the payload is decoded.
func (s *Service) UpdateFromJSON(ctx context.Context, userID, planID string, raw map[string]json.RawMessage) (*UpdateOutcome, error) {
	plan, err := s.loadUpdatable(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	updates, err := ParseFieldUpdates(raw)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionUpdatePlan, userID, planID, err)
	}
	return s.routeUpdates(ctx, plan, updates)
}

func (s *Service) loadUpdatable(ctx context.Context, userID, planID string) (*models.TradePlan, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionUpdatePlan, userID, planID, err)
	}
	if plan.Status == models.PlanClosed {
		return nil, s.reject(ctx, audit.ActionUpdatePlan, userID, planID, jerrors.ReadOnly(planID))
	}
	return plan, nil
}

func (s *Service) routeUpdates(ctx context.Context, plan *models.TradePlan, updates []FieldUpdate) (*UpdateOutcome, error) {
	var accepted []FieldUpdate
	for _, u := range updates {
		if _, ok := fieldSpecs[u.Field]; !ok {
			continue
		}
		if err := u.validate(plan.Status); err != nil {
			return nil, s.reject(ctx, audit.ActionUpdatePlan, plan.UserID, plan.ID, err)
		}
		accepted = append(accepted, u)
	}

	now := s.clock.Now()
	out := &UpdateOutcome{Plan: plan, Applied: []Field{}, Edits: []models.PlanEdit{}}
	batch := store.NewBatch()

	for _, u := range accepted {
		if plan.Status == models.PlanDraft || IsExecutionField(u.Field) {
			applyField(plan, u)
			out.Applied = append(out.Applied, u.Field)
			continue
		}
		edit := &models.PlanEdit{
			ID:       s.ids.NewID(),
			PlanID:   plan.ID,
			UserID:   plan.UserID,
			Field:    string(u.Field),
			OldValue: fieldSnapshot(plan, u.Field),
			NewValue: u.snapshot(),
			EditedAt: now,
		}
		batch.InsertEdit(edit)
		out.Edits = append(out.Edits, *edit)
	}

	if len(out.Applied) > 0 {
		plan.UpdatedAt = now
		batch.UpdatePlan(plan, plan.Status)
	}
	if batch.Len() == 0 {
		return out, nil
	}

	if err := s.commit(ctx, plan.UserID, batch); err != nil {
		return nil, s.reject(ctx, audit.ActionUpdatePlan, plan.UserID, plan.ID, err)
	}

	s.accept(ctx, audit.ActionUpdatePlan, plan.UserID, plan.ID, map[string]interface{}{
		"applied": out.Applied,
		"edits":   len(out.Edits),
	})
	return out, nil
}

// applyField writes u onto plan. planned_entry_price mirrors into entry_price
// on drafts; actual_entry_price mirrors into entry_price once open.
func applyField(plan *models.TradePlan, u FieldUpdate) {
	switch u.Field {
	case FieldDirection:
		plan.Direction, _ = models.ParseDirection(*u.Text)
	case FieldBuyReasonTypes:
		plan.BuyReasonTypes = nonBlank(u.Tags)
	case FieldBuyReasonText:
		plan.BuyReasonText = *u.Text
	case FieldTargetType:
		plan.TargetType = *u.Text
	case FieldTargetLow:
		plan.TargetLow = *u.Number
	case FieldTargetHigh:
		plan.TargetHigh = *u.Number
	case FieldSellConditions:
		plan.SellConditions = nonBlank(u.Tags)
	case FieldTimeTakeProfitDays:
		plan.TimeTakeProfitDays = u.Integer
	case FieldStopType:
		plan.StopType = *u.Text
	case FieldStopValue:
		plan.StopValue = u.Number
	case FieldStopTimeDays:
		plan.StopTimeDays = u.Integer
	case FieldPlannedEntryPrice:
		plan.PlannedEntryPrice = u.Number
		if plan.Status == models.PlanDraft {
			plan.EntryPrice = copyFloat(u.Number)
		}
	case FieldActualEntryPrice:
		plan.ActualEntryPrice = u.Number
		if plan.Status != models.PlanDraft {
			plan.EntryPrice = copyFloat(u.Number)
		}
	case FieldEntryDriver:
		plan.EntryDriver = u.Text
	case FieldEntryPrice:
		plan.EntryPrice = u.Number
	case FieldExitPlanTargetPrice:
		plan.ExitPlanTargetPrice = u.Number
	}
}

// fieldSnapshot renders the plan's current value of f as a string.
func fieldSnapshot(plan *models.TradePlan, f Field) *string {
	switch f {
	case FieldDirection:
		return models.String(string(plan.Direction))
	case FieldBuyReasonTypes:
		return formatTags(plan.BuyReasonTypes)
	case FieldBuyReasonText:
		return models.String(plan.BuyReasonText)
	case FieldTargetType:
		return models.String(plan.TargetType)
	case FieldTargetLow:
		return formatNumber(&plan.TargetLow)
	case FieldTargetHigh:
		return formatNumber(&plan.TargetHigh)
	case FieldSellConditions:
		return formatTags(plan.SellConditions)
	case FieldTimeTakeProfitDays:
		return formatInt(plan.TimeTakeProfitDays)
	case FieldStopType:
		return models.String(plan.StopType)
	case FieldStopValue:
		return formatNumber(plan.StopValue)
	case FieldStopTimeDays:
		return formatInt(plan.StopTimeDays)
	case FieldPlannedEntryPrice:
		return formatNumber(plan.PlannedEntryPrice)
	case FieldActualEntryPrice:
		return formatNumber(plan.ActualEntryPrice)
	case FieldEntryDriver:
		return plan.EntryDriver
	case FieldEntryPrice:
		return formatNumber(plan.EntryPrice)
	case FieldExitPlanTargetPrice:
		return formatNumber(plan.ExitPlanTargetPrice)
	default:
		panic(fmt.Sprintf("no snapshot for field %q", f))
	}
}

func formatNumber(f *float64) *string {
	if f == nil {
		return nil
	}
	return models.String(decimal.NewFromFloat(*f).String())
}

func formatInt(i *int) *string {
	if i == nil {
		return nil
	}
	return models.String(strconv.Itoa(*i))
}

func formatTags(tags []string) *string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return models.String(string(b))
}
