package dataset

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const DateLayout = "2006-01-02"

// FallbackDate is substituted for review dates that cannot be parsed.
var FallbackDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a scraped date in any common layout and truncates it to a
// calendar day. ok is false when FallbackDate was substituted.
func ParseDate(text string) (date time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackDate, false
	}
	parsed, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return FallbackDate, false
	}
	return civilDate(parsed), true
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// parseStoredDate reads a date column back, tables written by other tools may
// carry a time component.
func parseStoredDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	t, err := time.ParseInLocation(DateLayout, text, time.UTC)
	if err == nil {
		return t, nil
	}
	t, err = dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return civilDate(t), nil
}
