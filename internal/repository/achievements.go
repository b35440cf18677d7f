package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourusername/study-engine/internal/models"
)

func (r *Postgres) AchievementCatalog(ctx context.Context) ([]*models.AchievementDefinition, error) {
	query := `
		SELECT id, code, name, description, category, threshold_value, points, rarity, prerequisite_code
		FROM achievement_definitions
		ORDER BY category, threshold_value
	`

	var defs []*models.AchievementDefinition
	if err := r.SelectContext(ctx, &defs, query); err != nil {
		return nil, fmt.Errorf("achievement catalog: %w", err)
	}

	return defs, nil
}

func (r *Postgres) SeedAchievementCatalog(ctx context.Context, defs []*models.AchievementDefinition) error {
	for _, d := range defs {
		query := `
			INSERT INTO achievement_definitions (code, name, description, category, threshold_value, points, rarity, prerequisite_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (code) DO NOTHING
		`
		if _, err := r.ExecContext(ctx, query, d.Code, d.Name, d.Description, d.Category,
			d.ThresholdValue, d.Points, d.Rarity, d.PrerequisiteCode); err != nil {
			return fmt.Errorf("seed achievement (code: %s): %w", d.Code, err)
		}
	}
	return nil
}

func (r *Postgres) GetUserAchievement(ctx context.Context, code string) (*models.UserAchievement, error) {
	query := `
		SELECT achievement_code, progress_value, is_complete, earned_at, notified
		FROM user_achievements WHERE achievement_code = $1
	`

	var a models.UserAchievement
	err := r.GetContext(ctx, &a, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user achievement (code: %s): %w", code, err)
	}

	return &a, nil
}

func (r *Postgres) UpsertUserAchievement(ctx context.Context, a *models.UserAchievement) error {
	query := `
		INSERT INTO user_achievements (achievement_code, progress_value, is_complete, earned_at, notified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (achievement_code) DO UPDATE SET
			progress_value = EXCLUDED.progress_value,
			is_complete = EXCLUDED.is_complete,
			earned_at = EXCLUDED.earned_at,
			notified = EXCLUDED.notified
	`

	if _, err := r.ExecContext(ctx, query, a.AchievementCode, a.ProgressValue, a.IsComplete, a.EarnedAt, a.Notified); err != nil {
		return fmt.Errorf("upsert user achievement (code: %s): %w", a.AchievementCode, err)
	}
	return nil
}

func (r *Postgres) UnnotifiedAchievements(ctx context.Context) ([]*models.UserAchievement, error) {
	query := `
		SELECT achievement_code, progress_value, is_complete, earned_at, notified
		FROM user_achievements
		WHERE is_complete = TRUE AND notified = FALSE
		ORDER BY earned_at ASC
	`

	var achievements []*models.UserAchievement
	if err := r.SelectContext(ctx, &achievements, query); err != nil {
		return nil, fmt.Errorf("unnotified achievements: %w", err)
	}

	return achievements, nil
}

func (r *Postgres) MarkAchievementNotified(ctx context.Context, code string) error {
	query := r.psql.Update("user_achievements").
		Set("notified", true).
		Where("achievement_code = ?", code)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (code: %s): %w", code, err)
	}

	if _, err = r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("mark achievement notified (code: %s): %w", code, err)
	}
	return nil
}
