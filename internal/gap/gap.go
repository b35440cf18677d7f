// Package gap implements the minute-resolution free-interval sweep
// (C2). Grounded on the daily analyzer model the source keeps
// alongside a coarser 30-minute-slot C engine; per the spec's design
// notes the minute-resolution model is the one that is correct and is
// the one generalized here — the slot-based engine is not carried
// over.
package gap

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// Classification thresholds, matching §4.2: micro ≤30, standard 31-89,
// deep_work ≥90.
const (
	MicroMaxMins    = 30
	DeepWorkMinMins = 90
)

// ImmutableBlock is one of the fixed intervals the day is already
// committed to (routines, timetable entries, placed tasks). Inputs
// must be disjoint; overlapping input is a caller programming error.
type ImmutableBlock struct {
	Start time.Time
	End   time.Time
}

// Analyze sweeps sorted blocks within [wake, sleep] and emits the gaps
// between them, bracketing the window's edges.
func Analyze(wake, sleep time.Time, blocks []ImmutableBlock) ([]models.Gap, error) {
	if !sleep.After(wake) {
		return nil, fmt.Errorf("analyze gaps: sleep (%v) must be after wake (%v)", sleep, wake)
	}

	sorted := make([]ImmutableBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start.Before(sorted[i-1].End) {
			return nil, fmt.Errorf("analyze gaps: overlapping input blocks at index %d", i)
		}
	}

	var gaps []models.Gap
	cursor := wake

	emit := func(start, end time.Time) {
		if !end.After(start) {
			return
		}
		mins := int(end.Sub(start).Minutes())
		if mins < 1 {
			return
		}
		gaps = append(gaps, models.Gap{
			Start:          start,
			End:            end,
			DurationMins:   mins,
			Classification: classify(mins),
		})
	}

	for _, b := range sorted {
		start, end := b.Start, b.End
		if start.Before(wake) {
			start = wake
		}
		if end.After(sleep) {
			end = sleep
		}
		if !end.After(start) {
			continue
		}
		emit(cursor, start)
		if end.After(cursor) {
			cursor = end
		}
	}
	emit(cursor, sleep)

	return gaps, nil
}

func classify(mins int) models.GapClassification {
	switch {
	case mins <= MicroMaxMins:
		return models.GapMicro
	case mins < DeepWorkMinMins:
		return models.GapStandard
	default:
		return models.GapDeepWork
	}
}
