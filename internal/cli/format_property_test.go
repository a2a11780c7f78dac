package cli

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TruncateString never exceeds the limit, never splits a rune, and leaves
// short strings untouched.
func TestProperty_TruncateString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result fits and stays valid UTF-8", prop.ForAll(
		func(s string, maxLen int) bool {
			got := TruncateString(s, maxLen)
			if !utf8.ValidString(got) {
				t.Logf("invalid UTF-8 for %q/%d: %q", s, maxLen, got)
				return false
			}
			if utf8.RuneCountInString(got) > maxLen {
				t.Logf("too long for %q/%d: %q", s, maxLen, got)
				return false
			}
			if utf8.RuneCountInString(s) <= maxLen && got != s {
				return false
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(0, 60),
	))

	properties.Property("cut strings keep their prefix", prop.ForAll(
		func(s string) bool {
			got := TruncateString(s, 10)
			if utf8.RuneCountInString(s) <= 10 {
				return true
			}
			return strings.HasSuffix(got, "...") && strings.HasPrefix(s, strings.TrimSuffix(got, "..."))
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// FormatFraction prints the fraction scaled by 100 with an explicit sign for
// gains.
func TestProperty_FormatFraction(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("sign and value round trip", prop.ForAll(
		func(v float64) bool {
			got := FormatFraction(&v)
			if !strings.HasSuffix(got, "%") {
				return false
			}
			num, err := strconv.ParseFloat(strings.TrimSuffix(got, "%"), 64)
			if err != nil {
				t.Logf("unparseable %q", got)
				return false
			}
			if diff := num - v*100; diff > 0.005 || diff < -0.005 {
				t.Logf("FormatFraction(%v) = %q", v, got)
				return false
			}
			return (v*100 > 0) == strings.HasPrefix(got, "+")
		},
		gen.Float64Range(-5, 5),
	))

	properties.TestingRun(t)
}

func TestFormatOptionalValues(t *testing.T) {
	if FormatPrice(nil) != "-" || FormatFraction(nil) != "-" || FormatScore(nil) != "-" {
		t.Error("absent values should print as -")
	}
	price := 101.5
	if got := FormatPrice(&price); got != "101.50" {
		t.Errorf("FormatPrice = %q", got)
	}
	score := 37
	if got := FormatScore(&score); got != "37" {
		t.Errorf("FormatScore = %q", got)
	}
	if got := JoinTags([]string{"breakout", "volume"}); got != "breakout, volume" {
		t.Errorf("JoinTags = %q", got)
	}
}
