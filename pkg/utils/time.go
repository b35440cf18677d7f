package utils

import (
	"fmt"
	"time"
)

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func TruncateToMinutes(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func TimesEqualUpToMinutes(t1, t2 time.Time) bool {
	t1Truncated := TruncateToMinutes(t1)
	t2Truncated := TruncateToMinutes(t2)
	return t1Truncated.Equal(t2Truncated)
}

func DatesEqual(t1, t2 time.Time) bool {
	return StartOfDay(t1).Equal(StartOfDay(t2))
}

// NowUTC returns the current time in UTC
func NowUTC() time.Time {
	return time.Now().UTC()
}

func ToUserTimezone(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		return t, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	return t.In(loc), nil
}

// StartOfDayInTimezone returns the start of day in the specified timezone
func StartOfDayInTimezone(t time.Time, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	tInTz := t.In(loc)
	return time.Date(tInTz.Year(), tInTz.Month(), tInTz.Day(), 0, 0, 0, 0, loc), nil
}

// IsFirstHourOfDayInTimezone checks if it's the first hour of the day (00:00-00:59) in the specified timezone
func IsFirstHourOfDayInTimezone(timezone string) (bool, error) {
	if timezone == "" {
		return false, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, err
	}
	now := time.Now().In(loc)
	return now.Hour() == 0, nil
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MinutesBetween returns the whole-minute span from a to b (b after a).
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a).Minutes())
}

// ClockMinutes parses a "HH:MM" wall-clock string into minutes since midnight.
func ClockMinutes(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", hhmm, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", hhmm)
	}
	return h*60 + m, nil
}

// AtClock returns day (same Y/M/D as t, in t's location) at the given
// "HH:MM" wall-clock time.
func AtClock(day time.Time, hhmm string) (time.Time, error) {
	mins, err := ClockMinutes(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	base := StartOfDay(day)
	return base.Add(time.Duration(mins) * time.Minute), nil
}
