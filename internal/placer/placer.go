// Package placer implements the priority placement sweep and backward
// planner (C5), grounded on original_source/backend/scheduler.py's
// placement and backward-planning functions. The backward-planning
// weight formula is the spec's explicit redesign (linear ramp, not
// the original's max(0.5, 1 - days_to_deadline/days_available) —
// recorded as an Open Question resolution in SPEC_FULL.md §4).
package placer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/energy"
	"github.com/yourusername/study-engine/internal/gap"
	"github.com/yourusername/study-engine/internal/models"
)

// Priority scores, exactly per spec.md §4.5.
const (
	PriorityOverdue      = 100
	PriorityDueToday     = 90
	PriorityExamPrep     = 85
	PriorityUrgentLab    = 75
	PriorityRevisionDue  = 65
	PriorityAssignment   = 60
	PriorityRegularStudy = 50
	PriorityFreeTime     = 10
)

// Unschedulable is returned per item when no gap fits it.
type Unschedulable struct {
	Item   models.PendingItem
	Reason string
}

func (u *Unschedulable) Error() string {
	return fmt.Sprintf("unschedulable: item %d (%s): %s", u.Item.TaskID, u.Item.Title, u.Reason)
}

// DeadlineConflict: the item's latest-finish time has already passed.
type DeadlineConflict struct {
	Item models.PendingItem
}

func (d *DeadlineConflict) Error() string {
	return fmt.Sprintf("deadline conflict: item %d (%s)", d.Item.TaskID, d.Item.Title)
}

// Score returns the base priority for a pending item from its reason tag.
func Score(item models.PendingItem) int {
	switch item.Reason {
	case models.ReasonOverdue:
		return PriorityOverdue
	case models.ReasonDueToday:
		return PriorityDueToday
	case models.ReasonExamPrep, models.ReasonTestPrep:
		return PriorityExamPrep
	case models.ReasonUrgentLab:
		return PriorityUrgentLab
	case models.ReasonRevisionDue:
		return PriorityRevisionDue
	case models.ReasonAssignment, models.ReasonLabWork:
		return PriorityAssignment
	case models.ReasonFreeTime:
		return PriorityFreeTime
	default:
		return PriorityRegularStudy
	}
}

// SortPending orders the pending set deterministically: priority desc,
// then subject.credits desc, then earliest deadline, then longer
// duration first. Stable — required by §4.5 "Determinism".
func SortPending(items []models.PendingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if sa, sb := Score(a), Score(b); sa != sb {
			return sa > sb
		}
		if a.Credits != b.Credits {
			return a.Credits > b.Credits
		}
		ad, bd := deadlineOrInf(a.Deadline), deadlineOrInf(b.Deadline)
		if !ad.Equal(bd) {
			return ad.Before(bd)
		}
		return a.DurationMins > b.DurationMins
	})
}

func deadlineOrInf(d *time.Time) time.Time {
	if d == nil {
		return time.Unix(1<<62, 0)
	}
	return *d
}

// MatchScore implements §4.5 step 1's gap-choice formula for one
// (item, gap, time-of-day) triple.
func MatchScore(item models.PendingItem, g models.Gap, class models.TimeOfDayClass, now time.Time) int {
	score := 0
	if item.IsDeepWork && g.DurationMins >= gap.DeepWorkMinMins {
		score += 20
	}
	if energy.MatchesPeak(item.SubjectType, class) {
		score += 20
	} else if item.SubjectType != "" {
		score -= 10
	}
	if item.Deadline != nil {
		days := int(item.Deadline.Sub(now).Hours() / 24)
		if days > 0 {
			score += 2 * days
		}
	}
	return score
}

// Store is the narrow repository surface the placer needs.
type Store interface {
	PlaceTask(ctx context.Context, id int64, start, end time.Time) error
}

// PlaceOneDay runs the priority sweep against one day's free gaps,
// committing placements one at a time (step 5 of §4.5: "commit
// placement atomically before considering the next item").
func PlaceOneDay(ctx context.Context, store Store, day time.Time, cfg config.Config, items []models.PendingItem, freeGaps []models.Gap) ([]models.Placement, []Unschedulable, error) {
	SortPending(items)

	// Work on a mutable copy of remaining gap capacity.
	remaining := make([]models.Gap, len(freeGaps))
	copy(remaining, freeGaps)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Start.Before(remaining[j].Start) })

	var placements []models.Placement
	var failures []Unschedulable

	for _, item := range items {
		if item.Deadline != nil && item.Deadline.Before(day) {
			failures = append(failures, Unschedulable{Item: item, Reason: "deadline already passed"})
			continue
		}

		bestIdx := -1
		bestScore := -1 << 30
		for i, g := range remaining {
			if g.DurationMins < item.DurationMins {
				continue
			}
			class := energy.ClassifyHour(g.Start.Hour())
			s := MatchScore(item, g, class, day)
			if s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			failures = append(failures, Unschedulable{Item: item, Reason: "no gap large enough"})
			continue
		}

		g := remaining[bestIdx]
		start := g.Start
		end := start.Add(time.Duration(item.DurationMins) * time.Minute)

		if err := store.PlaceTask(ctx, item.TaskID, start, end); err != nil {
			return placements, failures, fmt.Errorf("place task (id: %d): %w", item.TaskID, err)
		}
		placements = append(placements, models.Placement{TaskID: item.TaskID, Start: start, End: end})

		// Shrink or remove the consumed gap, leaving slack after a
		// long study block per §4.5 step 4.
		slack := 0
		if item.DurationMins >= cfg.Routine.DeepWorkMinDuration {
			slack = cfg.Routine.MinBreakAfterStudy
		}
		newStart := end.Add(time.Duration(slack) * time.Minute)
		if newStart.Before(g.End) {
			remaining[bestIdx] = models.Gap{
				Start:          newStart,
				End:            g.End,
				DurationMins:   int(g.End.Sub(newStart).Minutes()),
				Classification: g.Classification,
			}
		} else {
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		}
	}

	return placements, failures, nil
}
