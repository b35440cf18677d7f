package placer

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

// PlanStore persists backward-plan blocks. Each block becomes its own
// placed task row so a multi-block, multi-day plan survives intact
// instead of collapsing onto one task's scheduled_* columns.
type PlanStore interface {
	CreatePlannedBlock(ctx context.Context, item models.PendingItem, start, end time.Time) (int64, error)
}

// BackwardPlan implements the backward planner: given a deadline and
// required hours, distribute them with increasing intensity toward the
// deadline using the linear ramp allocation fraction (i+1)/Σ(j+1) on
// day i — the spec's explicit redesign of the original's
// max(0.5, 1 - days_to_deadline/days_available) weight.
func BackwardPlan(ctx context.Context, store PlanStore, item models.PendingItem, now, deadline time.Time, hours float64, cfg config.Config, gapsByDay func(day time.Time) ([]models.Gap, error)) (*models.BackwardPlan, error) {
	if !deadline.After(now) {
		return nil, &DeadlineConflict{Item: item}
	}

	start := utils.StartOfDay(now)
	end := utils.StartOfDay(deadline)
	// Days are enumerated over [now, deadline): the deadline day itself
	// is never planned.
	numDays := int(end.Sub(start).Hours() / 24)
	if numDays < 1 {
		numDays = 1
	}

	denom := 0
	for i := 1; i <= numDays; i++ {
		denom += i
	}

	allocations := make([]float64, numDays)
	for i := 0; i < numDays; i++ {
		allocations[i] = hours * float64(i+1) / float64(denom)
	}

	plan := &models.BackwardPlan{DayAllocations: map[string]float64{}}
	maxBlock := cfg.Routine.MaxStudyBlockMins
	slack := cfg.Routine.MinBreakAfterStudy

	for i, hoursForDay := range allocations {
		day := start.AddDate(0, 0, i)
		plan.DayAllocations[day.Format("2006-01-02")] = hoursForDay
		if hoursForDay <= 0 {
			continue
		}

		gaps, err := gapsByDay(day)
		if err != nil {
			return nil, fmt.Errorf("backward plan gaps (day: %v): %w", day, err)
		}

		placed, left := placeAllocation(ctx, store, item, gaps, int(hoursForDay*60), maxBlock, slack)
		plan.Placements = append(plan.Placements, placed...)

		if left > 0 {
			// Overflow to the nearest earlier day that can host it.
			left = overflowEarlier(ctx, store, item, start, i, cfg, gapsByDay, left, &plan.Placements)
		}
		if left > 0 {
			plan.Unschedulable = &models.UnschedulableItem{
				TaskID: item.TaskID,
				Reason: fmt.Sprintf("%d minutes of the %s allocation could not be placed", left, day.Format("2006-01-02")),
			}
		}
	}

	return plan, nil
}

// placeAllocation carves a day's allocation into successive blocks of
// at most maxBlock minutes, separated by slack minutes within a gap,
// persisting each block as its own placement. Returns the placements
// and the minutes that did not fit.
func placeAllocation(ctx context.Context, store PlanStore, item models.PendingItem, gaps []models.Gap, remainingMins, maxBlock, slack int) ([]models.Placement, int) {
	var placements []models.Placement
	for _, g := range gaps {
		cursor := g.Start
		for remainingMins > 0 {
			avail := int(g.End.Sub(cursor).Minutes())
			if avail < 1 {
				break
			}
			blockMins := min(maxBlock, remainingMins, avail)
			s := cursor
			e := s.Add(time.Duration(blockMins) * time.Minute)
			taskID, err := store.CreatePlannedBlock(ctx, item, s, e)
			if err != nil {
				break
			}
			placements = append(placements, models.Placement{TaskID: taskID, Start: s, End: e})
			remainingMins -= blockMins
			cursor = e.Add(time.Duration(slack) * time.Minute)
		}
		if remainingMins <= 0 {
			break
		}
	}
	return placements, remainingMins
}

// overflowEarlier pushes unplaced minutes onto earlier days, nearest
// first, and returns whatever still did not fit.
func overflowEarlier(ctx context.Context, store PlanStore, item models.PendingItem, start time.Time, fromIdx int, cfg config.Config, gapsByDay func(time.Time) ([]models.Gap, error), remainingMins int, acc *[]models.Placement) int {
	for j := fromIdx - 1; j >= 0 && remainingMins > 0; j-- {
		day := start.AddDate(0, 0, j)
		gaps, err := gapsByDay(day)
		if err != nil {
			continue
		}
		placed, left := placeAllocation(ctx, store, item, gaps, remainingMins, cfg.Routine.MaxStudyBlockMins, cfg.Routine.MinBreakAfterStudy)
		*acc = append(*acc, placed...)
		remainingMins = left
	}
	return remainingMins
}
