package report

import (
	"testing"
	"time"
)

func TestWeekWindow(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*3600)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{"wednesday", time.Date(2024, 3, 6, 15, 4, 5, 0, time.UTC), time.UTC, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"monday midnight", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"across month", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.UTC, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)},
		{"local week already started", time.Date(2024, 3, 3, 23, 30, 0, 0, time.UTC), shanghai, time.Date(2024, 3, 4, 0, 0, 0, 0, shanghai)},
		{"nil location", time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC), nil, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WeekWindow(tt.now, tt.loc)
			if !w.Start.Equal(tt.want) {
				t.Errorf("Start = %v, want %v", w.Start, tt.want)
			}
			if !w.End.Equal(tt.now) {
				t.Errorf("End = %v, want %v", w.End, tt.now)
			}
		})
	}
}

func TestWindowValidate(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if err := (Window{Start: start, End: start.Add(time.Hour)}).Validate(); err != nil {
		t.Errorf("valid window rejected: %v", err)
	}
	if err := (Window{Start: start, End: start}).Validate(); err == nil {
		t.Error("empty window accepted")
	}
	if err := (Window{End: start}).Validate(); err == nil {
		t.Error("unbounded window accepted")
	}
}
