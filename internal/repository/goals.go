package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

func (r *Postgres) CreateGoalCategory(ctx context.Context, c *models.GoalCategory) error {
	query := r.psql.Insert("goal_categories").
		Columns("name", "color", "icon", "sort_order").
		Values(c.Name, c.Color, c.Icon, c.SortOrder).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (name: %s): %w", c.Name, err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("create goal category (name: %s): %w", c.Name, err)
	}
	return nil
}

func (r *Postgres) ListGoalCategories(ctx context.Context) ([]*models.GoalCategory, error) {
	query := `
		SELECT id, name, color, icon, sort_order
		FROM goal_categories ORDER BY sort_order, id
	`

	var categories []*models.GoalCategory
	if err := r.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list goal categories: %w", err)
	}

	return categories, nil
}

func (r *Postgres) CreateGoal(ctx context.Context, g *models.StudyGoal) error {
	query := r.psql.Insert("study_goals").
		Columns("category_id", "subject_code", "title", "target_value", "current_value", "unit", "deadline", "completed").
		Values(g.CategoryID, g.SubjectCode, g.Title, g.TargetValue, g.CurrentValue, g.Unit, g.Deadline, false).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (title: %s): %w", g.Title, err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&g.ID); err != nil {
		return fmt.Errorf("create goal (title: %s): %w", g.Title, err)
	}
	return nil
}

// UpdateGoalProgress sets current_value and flips completed when the
// target is reached, in one transaction so completion fires exactly
// once.
func (r *Postgres) UpdateGoalProgress(ctx context.Context, id int64, currentValue float64, now time.Time) (*models.StudyGoal, error) {
	var result *models.StudyGoal

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		query := `
			SELECT id, category_id, subject_code, title, target_value, current_value, unit, deadline, completed, completed_at
			FROM study_goals WHERE id = $1 FOR UPDATE
		`
		var g models.StudyGoal
		if err := tx.GetContext(ctx, &g, query, id); err != nil {
			return fmt.Errorf("get goal (id: %d): %w", id, wrapNotFound(err, "goal", id))
		}

		g.CurrentValue = currentValue
		if !g.Completed && g.CurrentValue >= g.TargetValue {
			g.Completed = true
			g.CompletedAt = &now
		}

		update := `
			UPDATE study_goals
			SET current_value = $2, completed = $3, completed_at = $4
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, id, g.CurrentValue, g.Completed, g.CompletedAt); err != nil {
			return fmt.Errorf("update goal progress (id: %d): %w", id, err)
		}

		result = &g
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Postgres) ListGoals(ctx context.Context, categoryID *int64, includeCompleted bool) ([]*models.StudyGoal, error) {
	query := r.psql.Select("id, category_id, subject_code, title, target_value, current_value, unit, deadline, completed, completed_at").
		From("study_goals").
		OrderBy("id ASC")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if !includeCompleted {
		query = query.Where("completed = FALSE")
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	var goals []*models.StudyGoal
	if err = r.SelectContext(ctx, &goals, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	return goals, nil
}

func (r *Postgres) CountCompletedGoals(ctx context.Context) (int, error) {
	query := r.psql.Select("COUNT(*)").From("study_goals").Where("completed = TRUE")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query: %w", err)
	}

	var count int
	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed goals: %w", err)
	}
	return count, nil
}
