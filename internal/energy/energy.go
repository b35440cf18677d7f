// Package energy implements the hour-of-day energy curve and
// time-of-day classifier (C4). The default curve and the classifier
// bands are grounded on original_source/backend/scheduler.py's energy
// map; the inheritance rule is the spec's explicit redesign — nearest
// *preceding* entry, not the original's linear interpolation between
// points (an Open Question the spec resolves, recorded in
// SPEC_FULL.md §4).
package energy

import (
	"sort"

	"github.com/yourusername/study-engine/internal/models"
)

// Curve is a sparse hour(0-23) -> energy level (1-10) map. Hours not
// present inherit the nearest preceding entry, wrapping from hour 23
// back to the latest entry ≤ 23 if hour 0 itself is absent and no
// earlier entry exists within the same day (in which case the default
// curve's hour-0 anchor below guarantees a value).
type Curve map[int]int

// DefaultCurve: peaks 08-10 (9-10), dips 12-13 (4-6), second peak
// 15-17 (7-8), declines through the evening, per spec.md §4.4.
func DefaultCurve() Curve {
	return Curve{
		0:  3,
		6:  5,
		7:  7,
		8:  9,
		10: 10,
		11: 8,
		12: 5,
		13: 6,
		14: 7,
		15: 8,
		17: 7,
		18: 6,
		19: 5,
		20: 4,
		21: 3,
		23: 2,
	}
}

// Level returns the energy level for the given hour (0-23), inheriting
// the nearest preceding entry.
func (c Curve) Level(hour int) int {
	hours := make([]int, 0, len(c))
	for h := range c {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	best := -1
	for _, h := range hours {
		if h <= hour {
			best = h
		}
	}
	if best == -1 && len(hours) > 0 {
		// No entry ≤ hour: inherit the latest entry of the prior day.
		best = hours[len(hours)-1]
	}
	if best == -1 {
		return 5
	}
	return c[best]
}

// ClassifyHour buckets an hour-of-day into the closed time-of-day set.
func ClassifyHour(hour int) models.TimeOfDayClass {
	switch {
	case hour < 6:
		return models.LateNight
	case hour < 12:
		return models.Morning
	case hour < 17:
		return models.Afternoon
	case hour < 21:
		return models.Evening
	case hour <= 23:
		return models.Night
	default:
		return models.LateNight
	}
}

// Note: spec.md also names `early_morning <06` distinctly from
// `late_night 00-05`; both map to the same numeric band in the 24h
// clock, so ClassifyHourFine distinguishes by the morning/night
// boundary convention: late_night is the tail of the *previous* day's
// wake cycle (00-05 when the student has not yet slept), early_morning
// is the same band once routines have started (wake routine begins
// before 06). Callers inside an assembled Timeline (C3) should use the
// block's activity context, not ClassifyHour alone, to pick between
// them; ClassifyHour defaults to late_night for 00-05 as the
// context-free answer.
func ClassifyHourFine(hour int, pastWakeRoutine bool) models.TimeOfDayClass {
	if hour < 6 {
		if pastWakeRoutine {
			return models.EarlyMorning
		}
		return models.LateNight
	}
	return ClassifyHour(hour)
}

// MatchesPeak reports whether a subject type pairs well with a
// time-of-day class, used by the Placer (C5) match-score formula.
func MatchesPeak(subjectType models.SubjectType, class models.TimeOfDayClass) bool {
	switch subjectType {
	case models.SubjectConceptHeavy:
		return class == models.Morning
	case models.SubjectPracticeHeavy:
		return class == models.Evening
	default:
		return false
	}
}
