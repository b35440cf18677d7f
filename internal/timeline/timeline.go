// Package timeline composes the full-day block list (C3), grounded on
// original_source/backend/scheduler.py's day-assembly routine. Order
// of composition follows spec.md §4.3 exactly: sleep, wake routine +
// meals, timetable, placed tasks, then the Gap Analyzer fills the
// remainder as free_time blocks, and every block is annotated with an
// energy level via C4.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/gap"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

// Build composes the contiguous, non-overlapping partition of
// [wake, sleep] for one calendar date.
func Build(date time.Time, cfg config.Config, placedTasks []*models.Task) (*models.Timeline, error) {
	day := utils.StartOfDay(date)

	wake, err := utils.AtClock(day, cfg.Routine.SleepEnd)
	if err != nil {
		return nil, fmt.Errorf("build timeline (date: %v): %w", date, err)
	}
	sleepStart, err := utils.AtClock(day, cfg.Routine.SleepStart)
	if err != nil {
		return nil, fmt.Errorf("build timeline (date: %v): %w", date, err)
	}
	// Tonight's sleep starts at sleep_start and runs past midnight —
	// model it as ending at the following day's wake.
	nextWake, err := utils.AtClock(day.AddDate(0, 0, 1), cfg.Routine.SleepEnd)
	if err != nil {
		return nil, fmt.Errorf("build timeline (date: %v): %w", date, err)
	}

	var fixed []gap.ImmutableBlock
	var labeled []models.Block

	addFixed := func(start, end time.Time, activity models.ActivityType) {
		if !end.After(start) {
			return
		}
		fixed = append(fixed, gap.ImmutableBlock{Start: start, End: end})
		labeled = append(labeled, models.Block{Start: start, End: end, Activity: activity})
	}

	// 1. Sleep window, split around midnight: last night's sleep
	// spills from 00:00 into today's wake, and tonight's sleep begins
	// at sleepStart and runs into tomorrow's wake.
	addFixed(day, wake, models.ActivitySleep)
	addFixed(sleepStart, nextWake, models.ActivitySleep)

	// 2. Wake routine + meals.
	wakeRoutineEnd := wake.Add(time.Duration(cfg.Routine.WakeRoutineMins) * time.Minute)
	addFixed(wake, wakeRoutineEnd, models.ActivityWakeRoutine)

	if t, err := utils.AtClock(day, cfg.Routine.BreakfastTime); err == nil {
		addFixed(t, t.Add(time.Duration(cfg.Routine.BreakfastMins)*time.Minute), models.ActivityBreakfast)
	}
	if t, err := utils.AtClock(day, cfg.Routine.LunchTime); err == nil {
		addFixed(t, t.Add(time.Duration(cfg.Routine.LunchMins)*time.Minute), models.ActivityLunch)
	}
	if t, err := utils.AtClock(day, cfg.Routine.DinnerTime); err == nil {
		addFixed(t, t.Add(time.Duration(cfg.Routine.DinnerMins)*time.Minute), models.ActivityDinner)
	}

	// 3. Timetable entries for this weekday.
	for _, cls := range cfg.Timetable[day.Weekday()] {
		start, err := utils.AtClock(day, cls.Start)
		if err != nil {
			continue
		}
		end, err := utils.AtClock(day, cls.End)
		if err != nil {
			continue
		}
		addFixed(start, end, models.ActivityUniversity)
	}

	// 4. Placed tasks whose scheduled_start falls in this day.
	for _, tsk := range placedTasks {
		if tsk.ScheduledStart == nil || tsk.ScheduledEnd == nil {
			continue
		}
		if !utils.DatesEqual(*tsk.ScheduledStart, day) {
			continue
		}
		activity := taskActivity(tsk)
		id := tsk.ID
		code := tsk.SubjectCode
		fixed = append(fixed, gap.ImmutableBlock{Start: *tsk.ScheduledStart, End: *tsk.ScheduledEnd})
		labeled = append(labeled, models.Block{
			Start: *tsk.ScheduledStart, End: *tsk.ScheduledEnd, Activity: activity,
			TaskID: &id, SubjectCode: code,
		})
	}

	// 5. Gap Analyzer fills the remainder with free_time.
	gaps, err := gap.Analyze(wake, sleepStart, fixed)
	if err != nil {
		return nil, fmt.Errorf("build timeline (date: %v): %w", date, err)
	}
	for _, g := range gaps {
		labeled = append(labeled, models.Block{Start: g.Start, End: g.End, Activity: models.ActivityFreeTime})
	}

	sort.Slice(labeled, func(i, j int) bool { return labeled[i].Start.Before(labeled[j].Start) })

	// 6. Annotate energy level.
	for i := range labeled {
		labeled[i].EnergyLevel = cfg.Energy.Level(labeled[i].Start.Hour())
	}

	if err := validateContiguous(wake, sleepStart, labeled); err != nil {
		return nil, fmt.Errorf("build timeline (date: %v): %w", date, err)
	}

	return &models.Timeline{Date: day, Blocks: labeled}, nil
}

func taskActivity(t *models.Task) models.ActivityType {
	if t.IsDeepWork {
		return models.ActivityDeepWork
	}
	switch t.TaskType {
	case models.TaskTypeRevision:
		return models.ActivityRevision
	case models.TaskTypePractice:
		return models.ActivityPractice
	case models.TaskTypeAssignment:
		return models.ActivityAssignment
	case models.TaskTypeLabWork:
		return models.ActivityLabWork
	case models.TaskTypeBreak:
		return models.ActivityBreak
	default:
		return models.ActivityStudy
	}
}

// validateContiguous enforces the §4.3/§8 guarantee: no gaps, no
// overlaps, sum of durations = sleep - wake, restricted to the
// [wake, sleepStart] slice the day actually occupies before the next
// sleep window of the same cycle starts.
func validateContiguous(wake, end time.Time, blocks []models.Block) error {
	cursor := wake
	for _, b := range blocks {
		if b.Start.Before(wake) {
			continue // spillover from the previous night's sleep block
		}
		if b.Start.After(end) {
			break
		}
		if !b.Start.Equal(cursor) {
			return fmt.Errorf("timeline is not contiguous at %v (expected %v)", b.Start, cursor)
		}
		if b.End.After(end) {
			cursor = end
			break
		}
		cursor = b.End
	}
	if !cursor.Equal(end) && !cursor.After(end) {
		return fmt.Errorf("timeline leaves a gap before %v (reached %v)", end, cursor)
	}
	return nil
}
