// Package goal wraps study-goal progress updates so completion feeds
// the same achievement dispatch as session and revision completion.
package goal

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// Store is the narrow repository surface goals need.
type Store interface {
	CreateGoal(ctx context.Context, g *models.StudyGoal) error
	UpdateGoalProgress(ctx context.Context, id int64, currentValue float64, now time.Time) (*models.StudyGoal, error)
	ListGoals(ctx context.Context, categoryID *int64, includeCompleted bool) ([]*models.StudyGoal, error)
}

// Checker is the achievement-evaluator hook fired on completion.
type Checker interface {
	Check(ctx context.Context) ([]string, error)
}

type Tracker struct {
	store   Store
	checker Checker
	now     func() time.Time
}

func NewTracker(store Store, checker Checker) *Tracker {
	return &Tracker{store: store, checker: checker, now: time.Now}
}

func NewTrackerWithClock(store Store, checker Checker, now func() time.Time) *Tracker {
	return &Tracker{store: store, checker: checker, now: now}
}

func (t *Tracker) Create(ctx context.Context, g *models.StudyGoal) error {
	if g.TargetValue <= 0 {
		return fmt.Errorf("goal target must be positive (title: %s)", g.Title)
	}
	if err := t.store.CreateGoal(ctx, g); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// UpdateProgress persists the new value; crossing the target triggers
// an achievement sweep. A failed sweep does not fail the update.
func (t *Tracker) UpdateProgress(ctx context.Context, id int64, currentValue float64) (*models.StudyGoal, []string, error) {
	g, err := t.store.UpdateGoalProgress(ctx, id, currentValue, t.now())
	if err != nil {
		return nil, nil, fmt.Errorf("update goal progress (id: %d): %w", id, err)
	}

	var awarded []string
	if g.Completed && g.CompletedAt != nil && t.checker != nil {
		awarded, err = t.checker.Check(ctx)
		if err != nil {
			return g, nil, fmt.Errorf("achievement check after goal (id: %d): %w", id, err)
		}
	}

	return g, awarded, nil
}
