package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/internal/placer"
	"github.com/yourusername/study-engine/internal/timeline"
	"github.com/yourusername/study-engine/pkg/utils"
	"go.uber.org/zap"
)

func (s *Service) TimelineGet(ctx context.Context, date time.Time) (*models.Timeline, error) {
	day := utils.StartOfDay(date)
	tasks, err := s.repo.TasksByDateRange(ctx, day, day.AddDate(0, 0, 1),
		[]models.TaskStatus{models.TaskPending, models.TaskInProgress, models.TaskCompleted})
	if err != nil {
		return nil, fmt.Errorf("timeline get (date: %v): %w", day, err)
	}

	tl, err := timeline.Build(day, s.cfg, tasks)
	if err != nil {
		return nil, fmt.Errorf("timeline get (date: %v): %w", day, err)
	}
	return tl, nil
}

func (s *Service) TimelineWeek(ctx context.Context, start time.Time) ([7]*models.Timeline, error) {
	var week [7]*models.Timeline
	day := utils.StartOfDay(start)

	for i := 0; i < 7; i++ {
		tl, err := s.TimelineGet(ctx, day.AddDate(0, 0, i))
		if err != nil {
			return week, fmt.Errorf("timeline week (start: %v, day: %d): %w", start, i, err)
		}
		week[i] = tl
	}
	return week, nil
}

// freeGaps builds the day's timeline and returns its free_time blocks
// as placement candidates.
func (s *Service) freeGaps(ctx context.Context, date time.Time) ([]models.Gap, error) {
	tl, err := s.TimelineGet(ctx, date)
	if err != nil {
		return nil, err
	}

	var gaps []models.Gap
	for _, b := range tl.Blocks {
		if b.Activity != models.ActivityFreeTime {
			continue
		}
		mins := utils.MinutesBetween(b.Start, b.End)
		if mins < 1 {
			continue
		}
		classification := models.GapStandard
		switch {
		case mins <= 30:
			classification = models.GapMicro
		case mins >= 90:
			classification = models.GapDeepWork
		}
		gaps = append(gaps, models.Gap{
			Start:          b.Start,
			End:            b.End,
			DurationMins:   mins,
			Classification: classification,
		})
	}
	return gaps, nil
}

// pendingItems assembles the placer's pending set: unplaced tasks, with
// due revisions materialized as revision tasks so they can be placed.
func (s *Service) pendingItems(ctx context.Context, now time.Time) ([]models.PendingItem, error) {
	if err := s.materializeDueRevisions(ctx, now); err != nil {
		return nil, err
	}

	tasks, err := s.repo.PendingTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending items: %w", err)
	}

	items := make([]models.PendingItem, 0, len(tasks))
	for _, t := range tasks {
		item := models.PendingItem{
			TaskID:       t.ID,
			Title:        t.Title,
			SubjectCode:  t.SubjectCode,
			DurationMins: t.DurationMins,
			IsDeepWork:   t.IsDeepWork,
			Reason:       s.reasonFor(t, now),
		}
		if t.SubjectCode != nil {
			if sub, err := s.repo.GetSubjectByCode(ctx, *t.SubjectCode); err == nil {
				item.SubjectType = sub.Type
				item.Credits = sub.Credits
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// reasonFor derives the priority-reason tag from the task's type and
// scheduling state.
func (s *Service) reasonFor(t *models.Task, now time.Time) models.TaskPriorityReason {
	if t.ScheduledEnd != nil && t.ScheduledEnd.Before(now) && t.Status != models.TaskCompleted {
		return models.ReasonOverdue
	}
	switch t.TaskType {
	case models.TaskTypeRevision:
		return models.ReasonRevisionDue
	case models.TaskTypeAssignment:
		return models.ReasonAssignment
	case models.TaskTypeLabWork:
		return models.ReasonLabWork
	case models.TaskTypePractice:
		return models.ReasonPractice
	case models.TaskTypeFreeTime:
		return models.ReasonFreeTime
	default:
		return models.ReasonRegularStudy
	}
}

// materializeDueRevisions turns due, incomplete revisions into pending
// revision tasks (45 minutes each) so the placer can schedule them.
// One task per chapter revision; an existing pending revision task for
// the same title is not duplicated.
func (s *Service) materializeDueRevisions(ctx context.Context, now time.Time) error {
	due, err := s.repo.PendingRevisions(ctx, now)
	if err != nil {
		return fmt.Errorf("materialize revisions: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	existing, err := s.repo.PendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("materialize revisions: %w", err)
	}
	existingTitles := map[string]bool{}
	for _, t := range existing {
		if t.TaskType == models.TaskTypeRevision {
			existingTitles[t.Title] = true
		}
	}

	for _, rev := range due {
		title := fmt.Sprintf("Revise %s chapter %d (round %d)", rev.SubjectCode, rev.ChapterNumber, rev.RevisionNumber)
		if existingTitles[title] {
			continue
		}
		code := rev.SubjectCode
		task := &models.Task{
			Title:        title,
			SubjectCode:  &code,
			Priority:     7,
			DurationMins: 45,
			TaskType:     models.TaskTypeRevision,
			Status:       models.TaskPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("materialize revision task (revision_id: %d): %w", rev.RevisionID, err)
		}
	}
	return nil
}

// TimelineOptimize runs the priority placement sweep for one date.
// Concurrent calls for the same date collapse into a single placer run
// via singleflight; a repeat call on an already-optimal day places
// nothing and reports zero changes.
func (s *Service) TimelineOptimize(ctx context.Context, date time.Time) (int, []models.Placement, error) {
	day := utils.StartOfDay(date)
	key := day.Format("2006-01-02")

	type result struct {
		placements []models.Placement
	}

	v, err, _ := s.optimizeGroup.Do(key, func() (any, error) {
		gaps, err := s.freeGaps(ctx, day)
		if err != nil {
			return nil, err
		}
		items, err := s.pendingItems(ctx, s.now())
		if err != nil {
			return nil, err
		}

		placements, failures, err := placer.PlaceOneDay(ctx, s.repo, day, s.cfg, items, gaps)
		if err != nil {
			return nil, mapRepoErr(err, "task", 0)
		}
		for _, f := range failures {
			zap.S().Debug("unschedulable item",
				zap.Int64("task_id", f.Item.TaskID), zap.String("reason", f.Reason))
		}
		return &result{placements: placements}, nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("timeline optimize (date: %s): %w", key, err)
	}

	res := v.(*result)
	return len(res.placements), res.placements, nil
}

// TasksRescheduleAll unplaces every pending/in-progress placed task in
// the window, then re-runs the placement sweep day by day. Completed
// and cancelled tasks are untouched. When the context deadline expires
// mid-window, already-committed placements are returned along with
// PartiallyCompleteError.
func (s *Service) TasksRescheduleAll(ctx context.Context, from, to time.Time, reason string) (*models.RescheduleReport, error) {
	fromDay := utils.StartOfDay(from)
	toDay := utils.StartOfDay(to).AddDate(0, 0, 1)

	placed, err := s.repo.TasksByDateRange(ctx, fromDay, toDay,
		[]models.TaskStatus{models.TaskPending, models.TaskInProgress})
	if err != nil {
		return nil, fmt.Errorf("reschedule all (from: %v): %w", from, err)
	}

	report := &models.RescheduleReport{}
	ids := make([]int64, 0, len(placed))
	for _, t := range placed {
		ids = append(ids, t.ID)
	}
	report.UnplacedTaskIDs = ids

	if err := s.repo.UnplaceTasks(ctx, ids); err != nil {
		return nil, fmt.Errorf("reschedule all (reason: %s): %w", reason, err)
	}

	zap.S().Info("rescheduling window",
		zap.Int("unplaced", len(ids)), zap.String("reason", reason))

	for day := fromDay; day.Before(toDay); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return report, &PartiallyCompleteError{Placements: report.NewPlacements}
		}

		gaps, err := s.freeGaps(ctx, day)
		if err != nil {
			return report, err
		}
		items, err := s.pendingItems(ctx, s.now())
		if err != nil {
			return report, err
		}

		placements, failures, err := placer.PlaceOneDay(ctx, s.repo, day, s.cfg, items, gaps)
		report.NewPlacements = append(report.NewPlacements, placements...)
		for _, f := range failures {
			report.Unschedulable = append(report.Unschedulable, models.UnschedulableItem{
				TaskID: f.Item.TaskID,
				Reason: f.Reason,
			})
		}
		if err != nil {
			return report, mapRepoErr(err, "task", 0)
		}
	}

	return report, nil
}

// PlannerBackward distributes the required hours across the days up to
// the deadline with the linear intensity ramp and commits the
// resulting placements.
func (s *Service) PlannerBackward(ctx context.Context, item *models.PendingItem, deadline time.Time, hours float64) (*models.BackwardPlan, error) {
	if hours <= 0 {
		return nil, &ValidationError{Field: "hours", Reason: "must be positive"}
	}
	if item.DurationMins <= 0 {
		item.DurationMins = s.cfg.Routine.MaxStudyBlockMins
	}

	plan, err := placer.BackwardPlan(ctx, s.repo, *item, s.now(), deadline, hours, s.cfg,
		func(day time.Time) ([]models.Gap, error) {
			return s.freeGaps(ctx, day)
		})
	if err != nil {
		return nil, fmt.Errorf("backward plan (task_id: %d): %w", item.TaskID, err)
	}
	return plan, nil
}
