package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatPrice formats an optional price; absent prices print as "-".
func FormatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *price)
}

// FormatFraction formats a fraction such as 0.05 as a signed percentage.
func FormatFraction(v *float64) string {
	if v == nil {
		return "-"
	}
	pct := *v * 100
	sign := ""
	if pct > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, pct)
}

// FormatScore formats an optional 0-100 score.
func FormatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

// FormatDateTime formats a timestamp in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

// FormatDate formats a date in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon 02 Jan 2006")
}

// TruncateString shortens s to at most maxLen runes, ending in an ellipsis
// when cut.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// JoinTags renders a tag list.
func JoinTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}
