package models

import "time"

// MetricKey identifies one of the weekly metrics.
type MetricKey string

const (
	MetricPCS  MetricKey = "PCS"
	MetricETNR MetricKey = "E-TNR"
	MetricELDC MetricKey = "E-LDC"
	MetricTNR  MetricKey = "TNR"
	MetricLDC  MetricKey = "LDC"
	MetricEPC  MetricKey = "EPC"
)

// MetricStatus is the outcome of evaluating a metric.
type MetricStatus string

const (
	StatusTriggered        MetricStatus = "triggered"
	StatusNotTriggered     MetricStatus = "not_triggered"
	StatusNA               MetricStatus = "na"
	StatusInsufficientData MetricStatus = "insufficient_data"
)

// Thresholds shared by every weekly metric.
type Thresholds struct {
	DeviationThreshold float64 `json:"deviation_threshold"`
	HitEpsilon         float64 `json:"hit_epsilon"`
}

// MetricDetail carries the raw figures behind a score.
type MetricDetail struct {
	DeviationPct *float64 `json:"deviation_pct,omitempty"`
	CostPct      *float64 `json:"cost_pct,omitempty"`
	DelayLevel   string   `json:"delay_level,omitempty"`
}

// EvidenceType classifies an evidence item.
type EvidenceType string

const (
	EvidencePlanField EvidenceType = "plan_field"
	EvidenceTrade     EvidenceType = "trade"
	EvidenceEvent     EvidenceType = "event"
)

// Evidence points at a record that contributed to a metric.
type Evidence struct {
	Type   EvidenceType `json:"type"`
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Detail string       `json:"detail"`
	TS     time.Time    `json:"ts"`
}

// WeeklyMetric is one evaluated metric of the weekly report.
type WeeklyMetric struct {
	Key         MetricKey    `json:"key"`
	Name        string       `json:"name"`
	Status      MetricStatus `json:"status"`
	Score       *int         `json:"score"`
	Metrics     MetricDetail `json:"metrics"`
	Thresholds  Thresholds   `json:"thresholds"`
	SummaryLine string       `json:"summary_line"`
	Evidence    []Evidence   `json:"evidence"`
}

// Triggered reports whether the metric fired.
func (m *WeeklyMetric) Triggered() bool {
	return m.Status == StatusTriggered
}

// ScoreValue returns the score, treating null as zero.
func (m *WeeklyMetric) ScoreValue() int {
	if m.Score == nil {
		return 0
	}
	return *m.Score
}

// ReportSummary is the headline of the weekly report.
type ReportSummary struct {
	TotalClosed    int    `json:"total_closed"`
	DominantLabel  string `json:"dominant_label"`
	ConclusionText string `json:"conclusion_text"`
}

// WeeklyReport is the aggregate returned for one user and week window.
type WeeklyReport struct {
	UserID      string         `json:"user_id"`
	WeekStart   time.Time      `json:"week_start"`
	WeekEnd     time.Time      `json:"week_end"`
	Summary     ReportSummary  `json:"summary"`
	Metrics     []WeeklyMetric `json:"metrics"`
	GeneratedAt time.Time      `json:"generated_at"`
}
