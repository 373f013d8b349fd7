package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// DefaultTimezone is the studio's wall-clock zone.
	DefaultTimezone = "America/New_York"
)

var ErrInvalidDate = errors.New("invalid date")

// ParseDate normalises a calendar date to local midnight in loc. It accepts a bare
// YYYY-MM-DD (read as a wall-clock date in loc) or an RFC3339 timestamp, which is
// first converted into loc so the calendar day is the one observed there.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if len(raw) == len(DateLayout) {
		t, err := time.ParseInLocation(DateLayout, raw, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return startOfDay(t.In(loc)), nil
}

// DateKey formats the calendar day of t as observed in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// NormalizeDateKey re-keys a stored or requested date; unparsable input is returned trimmed
// so that it can still match itself.
func NormalizeDateKey(raw string, loc *time.Location) string {
	t, err := ParseDate(raw, loc)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return DateKey(t, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseClock reads an HH:mm wall-clock time as minutes after midnight.
func ParseClock(raw string) (int, bool) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
