package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date wire format used by billing periods.
const DateLayout = "2006-01-02"

// timestampLayouts are tried in order when parsing provider timestamps.
// Naive layouts (no zone) are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseTimestamp parses an ISO8601-ish timestamp, normalizing naive values to UTC.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}
	return t.UTC(), nil
}

// WeekStart returns the Monday 00:00 UTC of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// ResolveCostPeriod returns the previous full calendar week as date strings,
// clamped so the start never reaches further back than lookbackDays.
func ResolveCostPeriod(now time.Time, lookbackDays int) (string, string) {
	start := WeekStart(now).AddDate(0, 0, -7)
	minStart := now.UTC().AddDate(0, 0, -lookbackDays)
	minStart = time.Date(minStart.Year(), minStart.Month(), minStart.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(minStart) {
		start = minStart
	}
	end := start.AddDate(0, 0, 6)
	return start.Format(DateLayout), end.Format(DateLayout)
}
