// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"discipline-journal/internal/models"
)

// RecordStore defines the interface for journal persistence. Every query is
// scoped by owner; Get methods return nil without error when the record is
// absent or belongs to another user.
type RecordStore interface {
	// Plans
	GetPlan(ctx context.Context, userID, planID string) (*models.TradePlan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]models.TradePlan, error)

	// Events, results, revisions
	ListEvents(ctx context.Context, filter EventFilter) ([]models.TradeEvent, error)
	GetResult(ctx context.Context, userID, planID string) (*models.TradeResult, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]models.TradeResult, error)
	ListEdits(ctx context.Context, userID, planID string) ([]models.PlanEdit, error)

	// Self reviews
	GetReview(ctx context.Context, userID, planID string) (*models.SelfReview, error)

	// Commit applies every write in the batch, or none of them.
	Commit(ctx context.Context, batch *Batch) error

	// Lifecycle
	Close() error
}

// PlanFilter represents filters for querying trade plans. UpdatedFrom is
// inclusive and UpdatedTo exclusive.
type PlanFilter struct {
	UserID      string
	Status      models.PlanStatus
	Archived    *bool
	IDs         []string
	UpdatedFrom time.Time
	UpdatedTo   time.Time
	Limit       int
}

// EventFilter represents filters for querying trade events. From is
// inclusive and To exclusive.
type EventFilter struct {
	UserID        string
	PlanID        string
	From          time.Time
	To            time.Time
	TriggeredExit *bool
	Limit         int
}

// ResultFilter represents filters for querying trade results by close time.
// From is inclusive and To exclusive.
type ResultFilter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}

// OpKind identifies the kind of write in a batch.
type OpKind int

const (
	OpInsertPlan OpKind = iota + 1
	OpUpdatePlan
	OpInsertEdit
	OpInsertEvent
	OpInsertResult
	OpInsertReview
)

func (k OpKind) String() string {
	switch k {
	case OpInsertPlan:
		return "insert_plan"
	case OpUpdatePlan:
		return "update_plan"
	case OpInsertEdit:
		return "insert_edit"
	case OpInsertEvent:
		return "insert_event"
	case OpInsertResult:
		return "insert_result"
	case OpInsertReview:
		return "insert_review"
	default:
		return "unknown"
	}
}

// Op is a single write. Exactly one payload field is set, matching Kind.
// From is the status an OpUpdatePlan expects the stored row to still hold.
type Op struct {
	Kind   OpKind
	From   models.PlanStatus
	Plan   *models.TradePlan
	Edit   *models.PlanEdit
	Event  *models.TradeEvent
	Result *models.TradeResult
	Review *models.SelfReview
}

// Batch is an ordered, all-or-nothing set of writes.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// InsertPlan queues a new plan row.
func (b *Batch) InsertPlan(p *models.TradePlan) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertPlan, Plan: p})
	return b
}

// UpdatePlan queues a full overwrite of an existing plan row owned by
// p.UserID. The write only lands while the stored status is still from.
func (b *Batch) UpdatePlan(p *models.TradePlan, from models.PlanStatus) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdatePlan, From: from, Plan: p})
	return b
}

// InsertEdit queues a revision record. Edits and events are refused once
// their plan is closed.
func (b *Batch) InsertEdit(e *models.PlanEdit) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertEdit, Edit: e})
	return b
}

// InsertEvent queues a trade event.
func (b *Batch) InsertEvent(e *models.TradeEvent) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertEvent, Event: e})
	return b
}

// InsertResult queues a trade result.
func (b *Batch) InsertResult(r *models.TradeResult) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertResult, Result: r})
	return b
}

// InsertReview queues a self review.
func (b *Batch) InsertReview(r *models.SelfReview) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertReview, Review: r})
	return b
}

// Ops returns the queued writes in order.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	return len(b.ops)
}
