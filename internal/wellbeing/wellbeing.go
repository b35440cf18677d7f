// Package wellbeing computes the daily sustainability score (C9). The
// score formula follows the additive base-plus-factors model rather
// than the original backend's deduction-from-0.85 shape (an Open
// Question resolution recorded in SPEC_FULL.md §4).
package wellbeing

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

// Inputs for one day's score.
type Indicators struct {
	StudyHours       float64
	BreakCount       int
	OverdueTasks     int
	DeepWorkSessions int
	SkippedBreaks    int
}

// Score implements:
//
//	study_factor  = +0.2 if 4 <= h <= 8; -0.1*(h-8) if h > 8; 0.05*h otherwise
//	break_factor  = min(0.2, 0.05 * break_count)
//	overdue_factor= -0.05 * overdue_tasks
//	score := clamp(0.5 + factors, 0, 1)
func Score(in Indicators) float64 {
	h := in.StudyHours

	var studyFactor float64
	switch {
	case h >= 4 && h <= 8:
		studyFactor = 0.2
	case h > 8:
		studyFactor = -0.1 * (h - 8)
	default:
		studyFactor = 0.05 * h
	}

	breakFactor := 0.05 * float64(in.BreakCount)
	if breakFactor > 0.2 {
		breakFactor = 0.2
	}

	overdueFactor := -0.05 * float64(in.OverdueTasks)

	return utils.Clamp(0.5+studyFactor+breakFactor+overdueFactor, 0, 1)
}

// Recommendations per the §4.9 emission rules.
func Recommendations(score float64, in Indicators) []string {
	var recs []string
	if score < 0.4 {
		recs = append(recs, "take a 30-minute break")
	}
	if in.StudyHours > 10 {
		recs = append(recs, "consider stopping for today")
	}
	if in.OverdueTasks > 0 {
		recs = append(recs, "focus on overdue tasks first")
	}
	if in.SkippedBreaks > 0 {
		recs = append(recs, "don't skip your next break")
	}
	return recs
}

// Store is the narrow repository surface the monitor reads and writes.
type Store interface {
	DailyStats(ctx context.Context, date time.Time) (*models.DailyStudyStats, error)
	BreaksOnDate(ctx context.Context, date time.Time) ([]*models.BreakSession, error)
	TasksByDateRange(ctx context.Context, from, to time.Time, statuses []models.TaskStatus) ([]*models.Task, error)
	UpsertWellbeingMetric(ctx context.Context, m *models.WellbeingMetric) error
}

// Notifier receives the day's recommendations as suggestion
// notifications; the notification engine (C10) implements it.
type Notifier interface {
	Suggest(ctx context.Context, title, message string) error
}

type Monitor struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewMonitor(store Store, notifier Notifier) *Monitor {
	return &Monitor{store: store, notifier: notifier, now: time.Now}
}

func NewMonitorWithClock(store Store, notifier Notifier, now func() time.Time) *Monitor {
	return &Monitor{store: store, notifier: notifier, now: now}
}

// Evaluate computes and persists the metric for one date. Idempotent:
// re-running replaces the row with the same derived values.
func (m *Monitor) Evaluate(ctx context.Context, date time.Time) (*models.WellbeingMetric, error) {
	day := utils.StartOfDay(date)

	stats, err := m.store.DailyStats(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("wellbeing evaluate (date: %v): %w", day, err)
	}

	breaks, err := m.store.BreaksOnDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("wellbeing evaluate (date: %v): %w", day, err)
	}
	skipped := 0
	for _, b := range breaks {
		if b.EndedAt != nil && !b.WasCompleted {
			skipped++
		}
	}

	overdue, err := m.overdueTasks(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("wellbeing evaluate (date: %v): %w", day, err)
	}

	deepSessions := 0
	if stats.DeepWorkSeconds > 0 {
		deepSessions = int(stats.DeepWorkSeconds / models.DeepWorkThresholdSeconds)
		if deepSessions == 0 {
			deepSessions = 1
		}
	}

	in := Indicators{
		StudyHours:       float64(stats.StudySeconds) / 3600.0,
		BreakCount:       len(breaks),
		OverdueTasks:     overdue,
		DeepWorkSessions: deepSessions,
		SkippedBreaks:    skipped,
	}

	score := Score(in)
	recs := Recommendations(score, in)

	metric := &models.WellbeingMetric{
		Date:             day,
		StudyHours:       in.StudyHours,
		BreakCount:       in.BreakCount,
		OverdueTasks:     in.OverdueTasks,
		DeepWorkSessions: in.DeepWorkSessions,
		WellbeingScore:   score,
		Recommendations:  recs,
	}
	if err := m.store.UpsertWellbeingMetric(ctx, metric); err != nil {
		return nil, fmt.Errorf("wellbeing evaluate (date: %v): %w", day, err)
	}

	if m.notifier != nil {
		for _, rec := range recs {
			if err := m.notifier.Suggest(ctx, "Wellbeing check", rec); err != nil {
				return metric, fmt.Errorf("wellbeing suggest: %w", err)
			}
		}
	}

	return metric, nil
}

// overdueTasks counts non-terminal tasks whose scheduled end has passed.
func (m *Monitor) overdueTasks(ctx context.Context, day time.Time) (int, error) {
	horizon := day.AddDate(0, 0, 1)
	tasks, err := m.store.TasksByDateRange(ctx, day.AddDate(0, 0, -30), horizon,
		[]models.TaskStatus{models.TaskPending, models.TaskInProgress})
	if err != nil {
		return 0, err
	}

	overdue := 0
	for _, t := range tasks {
		if t.ScheduledEnd != nil && t.ScheduledEnd.Before(m.now()) {
			overdue++
		}
	}
	return overdue, nil
}

// Run evaluates once per day. On error it logs via onError and keeps
// going; it exits only on cancellation.
func (m *Monitor) Run(ctx context.Context, onError func(error)) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Evaluate(ctx, m.now()); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
