package report

import (
	"sort"

	"discipline-journal/internal/models"
)

// Summary texts used when no deviation triggered.
const (
	NoDeviationConclusion = "No major discipline deviation this week."
	NoDeviationLabel      = "No obvious deviation"
)

// Dominant returns the highest scoring triggered metric other than PCS, or
// nil. Ties keep report order.
func Dominant(metrics []models.WeeklyMetric) *models.WeeklyMetric {
	var candidates []*models.WeeklyMetric
	for i := range metrics {
		if metrics[i].Key != models.MetricPCS && metrics[i].Triggered() {
			candidates = append(candidates, &metrics[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ScoreValue() > candidates[j].ScoreValue()
	})
	return candidates[0]
}

// Summarize builds the report headline from the evaluated metrics.
func Summarize(metrics []models.WeeklyMetric, totalClosed int) models.ReportSummary {
	summary := models.ReportSummary{
		TotalClosed:    totalClosed,
		DominantLabel:  NoDeviationLabel,
		ConclusionText: NoDeviationConclusion,
	}
	if dominant := Dominant(metrics); dominant != nil {
		summary.DominantLabel = dominant.Name
		summary.ConclusionText = dominant.SummaryLine
	}
	return summary
}

// Build evaluates the dataset and assembles the weekly report.
func Build(userID string, w Window, d *Dataset) *models.WeeklyReport {
	metrics := Evaluate(d)
	return &models.WeeklyReport{
		UserID:    userID,
		WeekStart: w.Start,
		WeekEnd:   w.End,
		Summary:   Summarize(metrics, len(d.Results)),
		Metrics:   metrics,
	}
}
