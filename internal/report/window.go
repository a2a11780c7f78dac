package report

import (
	"fmt"
	"time"
)

// Window is a half-open reporting interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WeekWindow returns the window from Monday 00:00 of now's week, in loc, up
// to now.
func WeekWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	sinceMonday := (int(local.Weekday()) + 6) % 7
	start := time.Date(local.Year(), local.Month(), local.Day()-sinceMonday, 0, 0, 0, 0, loc)
	return Window{Start: start, End: now}
}

// Validate rejects empty and inverted windows.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("window bounds must be set")
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window start %s is not before end %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
