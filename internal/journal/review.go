package journal

import (
	"context"
	"fmt"

	"discipline-journal/internal/audit"
	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
	"discipline-journal/internal/store"
)

const reviewSchemaVersion = 1

// ReviewInput carries one score per dimension in models.ReviewDimensions.
// A nil entry means the dimension was not answered.
type ReviewInput struct {
	PlanID string
	Scores map[string]*int
}

// SubmitSelfReview stores the single self review allowed for a closed plan.
func (s *Service) SubmitSelfReview(ctx context.Context, userID string, in ReviewInput) (*models.SelfReview, error) {
	review, err := s.buildReview(ctx, userID, in)
	if err != nil {
		return nil, s.reject(ctx, audit.ActionSelfReview, userID, in.PlanID, err)
	}

	if err := s.commit(ctx, userID, store.NewBatch().InsertReview(review)); err != nil {
		return nil, s.reject(ctx, audit.ActionSelfReview, userID, in.PlanID, err)
	}

	s.accept(ctx, audit.ActionSelfReview, userID, in.PlanID, map[string]interface{}{"review_id": review.ID})
	return review, nil
}

func (s *Service) buildReview(ctx context.Context, userID string, in ReviewInput) (*models.SelfReview, error) {
	plan, err := s.loadPlan(ctx, userID, in.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status != models.PlanClosed {
		return nil, jerrors.InvalidTransition("only closed plans can be self-reviewed")
	}

	existing, err := s.store.GetReview(ctx, userID, in.PlanID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, jerrors.Conflict("self-review already exists for this plan")
	}

	scores := make(map[string]int, len(models.ReviewDimensions))
	for _, dim := range models.ReviewDimensions {
		v := in.Scores[dim]
		if v == nil {
			return nil, jerrors.MissingField(dim)
		}
		if *v < models.MinReviewScore || *v > models.MaxReviewScore {
			return nil, jerrors.OutOfRange(dim, *v, fmt.Sprintf("between %d and %d", models.MinReviewScore, models.MaxReviewScore))
		}
		scores[dim] = *v
	}

	result, err := s.store.GetResult(ctx, userID, in.PlanID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, jerrors.NotFound("trade result")
	}

	return &models.SelfReview{
		ID:            s.ids.NewID(),
		UserID:        userID,
		PlanID:        plan.ID,
		ResultID:      result.PlanID,
		Scores:        scores,
		SchemaVersion: reviewSchemaVersion,
		CreatedAt:     s.clock.Now(),
	}, nil
}

// GetSelfReview returns the user's review of a plan, or nil if none exists.
func (s *Service) GetSelfReview(ctx context.Context, userID, planID string) (*models.SelfReview, error) {
	if planID == "" {
		return nil, jerrors.MissingField("plan_id")
	}
	return s.store.GetReview(ctx, userID, planID)
}
