package models

import "time"

// ReviewDimensions lists the thirteen self-review dimensions in storage order.
var ReviewDimensions = []string{"d1", "d2", "d3", "d4", "h1", "h2", "h3", "h4", "e1", "e2", "e3", "r1", "r2"}

// Score bounds for every review dimension.
const (
	MinReviewScore = 1
	MaxReviewScore = 3
)

// SelfReview is a post-closure reflective scoring by the plan owner.
type SelfReview struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	PlanID        string         `json:"plan_id"`
	ResultID      string         `json:"result_id"`
	Scores        map[string]int `json:"scores"`
	SchemaVersion int            `json:"schema_version"`
	CreatedAt     time.Time      `json:"created_at"`
}
