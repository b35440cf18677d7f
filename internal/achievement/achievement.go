// Package achievement evaluates the fixed achievement catalog against
// the Store's counters (C11). The catalog and category set follow the
// original backend's seed data; awarding marks the row for the
// notification engine to flush.
package achievement

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// Store is the repository surface the evaluator reads and writes.
type Store interface {
	AchievementCatalog(ctx context.Context) ([]*models.AchievementDefinition, error)
	GetUserAchievement(ctx context.Context, code string) (*models.UserAchievement, error)
	UpsertUserAchievement(ctx context.Context, a *models.UserAchievement) error
	GetStreak(ctx context.Context) (*models.UserStreak, error)
	SessionCountersAll(ctx context.Context) (*models.SessionCounters, error)
	CountCompletedRevisions(ctx context.Context) (int, error)
	CountCompletedGoals(ctx context.Context) (int, error)
}

type Evaluator struct {
	store Store
	now   func() time.Time
}

func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store, now: time.Now}
}

func NewEvaluatorWithClock(store Store, now func() time.Time) *Evaluator {
	return &Evaluator{store: store, now: now}
}

// counters is the snapshot one evaluation runs against.
type counters struct {
	currentStreak      int
	longestStreak      int
	totalPoints        int
	totalSessions      int
	totalStudyHours    int
	deepWorkSessions   int
	completedRevisions int
	completedGoals     int
}

func (e *Evaluator) snapshot(ctx context.Context) (*counters, error) {
	streak, err := e.store.GetStreak(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievement snapshot: %w", err)
	}
	sessions, err := e.store.SessionCountersAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievement snapshot: %w", err)
	}
	revisions, err := e.store.CountCompletedRevisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievement snapshot: %w", err)
	}
	goals, err := e.store.CountCompletedGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievement snapshot: %w", err)
	}

	return &counters{
		currentStreak:      streak.CurrentStreak,
		longestStreak:      streak.LongestStreak,
		totalPoints:        streak.TotalPoints,
		totalSessions:      sessions.TotalSessions,
		totalStudyHours:    int(sessions.TotalStudySeconds / 3600),
		deepWorkSessions:   sessions.DeepWorkSessions,
		completedRevisions: revisions,
		completedGoals:     goals,
	}, nil
}

// progressFor maps a definition's category to the counter it measures.
// Special-category achievements key off the code.
func progressFor(def *models.AchievementDefinition, c *counters) int {
	switch def.Category {
	case models.AchievementStreak:
		return c.longestStreak
	case models.AchievementStudy:
		switch {
		case def.Code == "deep_work_sessions":
			return c.deepWorkSessions
		case def.Code == "study_hours":
			return c.totalStudyHours
		default:
			return c.totalSessions
		}
	case models.AchievementRevision:
		return c.completedRevisions
	case models.AchievementGoal:
		return c.completedGoals
	case models.AchievementSpecial:
		return c.totalPoints
	default:
		return 0
	}
}

// Check runs one full catalog sweep and returns the codes newly
// awarded. Prerequisites gate progression chains: a definition with an
// incomplete prerequisite is skipped entirely.
func (e *Evaluator) Check(ctx context.Context) ([]string, error) {
	defs, err := e.store.AchievementCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievement check: %w", err)
	}

	c, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var awarded []string
	for _, def := range defs {
		if def.PrerequisiteCode != nil {
			prereq, err := e.store.GetUserAchievement(ctx, *def.PrerequisiteCode)
			if err != nil {
				return nil, fmt.Errorf("achievement check (code: %s): %w", def.Code, err)
			}
			if prereq == nil || !prereq.IsComplete {
				continue
			}
		}

		ua, err := e.store.GetUserAchievement(ctx, def.Code)
		if err != nil {
			return nil, fmt.Errorf("achievement check (code: %s): %w", def.Code, err)
		}
		if ua == nil {
			ua = &models.UserAchievement{AchievementCode: def.Code}
		}
		if ua.IsComplete {
			continue
		}

		ua.ProgressValue = progressFor(def, c)
		if ua.ProgressValue >= def.ThresholdValue {
			now := e.now()
			ua.IsComplete = true
			ua.EarnedAt = &now
			ua.Notified = false
			awarded = append(awarded, def.Code)
		}

		if err := e.store.UpsertUserAchievement(ctx, ua); err != nil {
			return nil, fmt.Errorf("achievement check (code: %s): %w", def.Code, err)
		}
	}

	return awarded, nil
}

// Run re-evaluates on a timer; event-driven checks go through Check
// directly from the service layer. Exits only on cancellation.
func (e *Evaluator) Run(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Check(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// DefaultCatalog is the seed definition set.
func DefaultCatalog() []*models.AchievementDefinition {
	week := "streak_week"
	return []*models.AchievementDefinition{
		{Code: "streak_3", Name: "Getting Started", Description: "Study 3 days in a row", Category: models.AchievementStreak, ThresholdValue: 3, Points: 15, Rarity: models.RarityCommon},
		{Code: "streak_week", Name: "Full Week", Description: "Study 7 days in a row", Category: models.AchievementStreak, ThresholdValue: 7, Points: 50, Rarity: models.RarityRare},
		{Code: "streak_month", Name: "Iron Habit", Description: "Study 30 days in a row", Category: models.AchievementStreak, ThresholdValue: 30, Points: 250, Rarity: models.RarityEpic, PrerequisiteCode: &week},
		{Code: "sessions_10", Name: "Warming Up", Description: "Complete 10 study sessions", Category: models.AchievementStudy, ThresholdValue: 10, Points: 20, Rarity: models.RarityCommon},
		{Code: "sessions_100", Name: "Centurion", Description: "Complete 100 study sessions", Category: models.AchievementStudy, ThresholdValue: 100, Points: 150, Rarity: models.RarityEpic},
		{Code: "study_hours", Name: "Fifty Hours In", Description: "Accumulate 50 hours of study", Category: models.AchievementStudy, ThresholdValue: 50, Points: 100, Rarity: models.RarityRare},
		{Code: "deep_work_sessions", Name: "Deep Diver", Description: "Finish 10 deep-work sessions", Category: models.AchievementStudy, ThresholdValue: 10, Points: 80, Rarity: models.RarityRare},
		{Code: "revisions_25", Name: "Spaced Out", Description: "Complete 25 chapter revisions", Category: models.AchievementRevision, ThresholdValue: 25, Points: 75, Rarity: models.RarityRare},
		{Code: "goals_5", Name: "Goal Getter", Description: "Complete 5 study goals", Category: models.AchievementGoal, ThresholdValue: 5, Points: 60, Rarity: models.RarityRare},
		{Code: "points_1000", Name: "Point Collector", Description: "Earn 1000 total points", Category: models.AchievementSpecial, ThresholdValue: 1000, Points: 100, Rarity: models.RarityLegendary},
	}
}
