package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// The user streak is a single-row register cell; reads outside any
// activity return the zero streak rather than an error.
func (r *Postgres) GetStreak(ctx context.Context) (*models.UserStreak, error) {
	query := `
		SELECT current_streak, longest_streak, total_points, last_activity
		FROM user_streak
	`

	var s models.UserStreak
	err := r.GetContext(ctx, &s, query)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.UserStreak{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}

	return &s, nil
}

// UpdateStreakOnActivity applies the streak rule under the register's
// row lock:
//
//	last_activity null or < today-1  -> current := 1
//	last_activity == today-1         -> current += 1, longest := max
//	last_activity < today            -> last_activity := today
//
// and always adds pointsDelta to total_points.
func (r *Postgres) UpdateStreakOnActivity(ctx context.Context, activityDate time.Time, pointsDelta int) (*models.UserStreak, error) {
	var result *models.UserStreak

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		query := `
			SELECT current_streak, longest_streak, total_points, last_activity
			FROM user_streak FOR UPDATE
		`
		var s models.UserStreak
		err := tx.GetContext(ctx, &s, query)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock streak row: %w", err)
		}
		fresh := errors.Is(err, sql.ErrNoRows)

		s.ApplyActivity(activityDate, pointsDelta)

		if fresh {
			insert := `
				INSERT INTO user_streak (current_streak, longest_streak, total_points, last_activity)
				VALUES ($1, $2, $3, $4)
			`
			if _, err := tx.ExecContext(ctx, insert, s.CurrentStreak, s.LongestStreak, s.TotalPoints, s.LastActivity); err != nil {
				return fmt.Errorf("insert streak: %w", err)
			}
		} else {
			update := `
				UPDATE user_streak
				SET current_streak = $1, longest_streak = $2, total_points = $3, last_activity = $4
			`
			if _, err := tx.ExecContext(ctx, update, s.CurrentStreak, s.LongestStreak, s.TotalPoints, s.LastActivity); err != nil {
				return fmt.Errorf("update streak: %w", err)
			}
		}

		result = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
