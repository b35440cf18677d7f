package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

func (r *Postgres) UpsertWellbeingMetric(ctx context.Context, m *models.WellbeingMetric) error {
	query := `
		INSERT INTO wellbeing_metrics (date, study_hours, break_count, overdue_tasks, deep_work_sessions, wellbeing_score, recommendations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			study_hours = EXCLUDED.study_hours,
			break_count = EXCLUDED.break_count,
			overdue_tasks = EXCLUDED.overdue_tasks,
			deep_work_sessions = EXCLUDED.deep_work_sessions,
			wellbeing_score = EXCLUDED.wellbeing_score,
			recommendations = EXCLUDED.recommendations
	`

	recs := strings.Join(m.Recommendations, "\n")
	if _, err := r.ExecContext(ctx, query, utils.StartOfDay(m.Date), m.StudyHours, m.BreakCount,
		m.OverdueTasks, m.DeepWorkSessions, m.WellbeingScore, recs); err != nil {
		return fmt.Errorf("upsert wellbeing metric (date: %v): %w", m.Date, err)
	}
	return nil
}

func (r *Postgres) GetWellbeingMetric(ctx context.Context, date time.Time) (*models.WellbeingMetric, error) {
	query := `
		SELECT date, study_hours, break_count, overdue_tasks, deep_work_sessions, wellbeing_score, recommendations
		FROM wellbeing_metrics WHERE date = $1
	`

	var m models.WellbeingMetric
	var recs string
	err := r.QueryRowxContext(ctx, query, utils.StartOfDay(date)).Scan(
		&m.Date, &m.StudyHours, &m.BreakCount, &m.OverdueTasks,
		&m.DeepWorkSessions, &m.WellbeingScore, &recs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wellbeing metric (date: %v): %w", date, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get wellbeing metric (date: %v): %w", date, err)
	}
	if recs != "" {
		m.Recommendations = strings.Split(recs, "\n")
	}

	return &m, nil
}

func (r *Postgres) StartBreak(ctx context.Context, b *models.BreakSession) error {
	query := r.psql.Insert("break_sessions").
		Columns("break_type", "started_at", "suggested_duration_mins", "was_completed").
		Values(b.BreakType, b.StartedAt, b.SuggestedDurationMins, false).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (type: %s): %w", b.BreakType, err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&b.ID); err != nil {
		return fmt.Errorf("start break (type: %s): %w", b.BreakType, err)
	}
	return nil
}

// EndBreak closes the break; it counts as completed when at least half
// the suggested duration was actually taken.
func (r *Postgres) EndBreak(ctx context.Context, id int64, endedAt time.Time) (*models.BreakSession, error) {
	var result *models.BreakSession

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		query := `
			SELECT id, break_type, started_at, ended_at, suggested_duration_mins, actual_duration_mins, was_completed
			FROM break_sessions WHERE id = $1 FOR UPDATE
		`
		var b models.BreakSession
		if err := tx.GetContext(ctx, &b, query, id); err != nil {
			return fmt.Errorf("get break (id: %d): %w", id, wrapNotFound(err, "break", id))
		}
		if b.EndedAt != nil {
			return fmt.Errorf("break already ended (id: %d): %w", id, ErrPrecondition)
		}

		actual := utils.MinutesBetween(b.StartedAt, endedAt)
		wasCompleted := actual*2 >= b.SuggestedDurationMins
		update := `
			UPDATE break_sessions
			SET ended_at = $2, actual_duration_mins = $3, was_completed = $4
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update, id, endedAt, actual, wasCompleted); err != nil {
			return fmt.Errorf("end break (id: %d): %w", id, err)
		}

		b.EndedAt = &endedAt
		b.ActualDurationMins = &actual
		b.WasCompleted = wasCompleted
		result = &b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Postgres) BreaksOnDate(ctx context.Context, date time.Time) ([]*models.BreakSession, error) {
	dayStart := utils.StartOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, break_type, started_at, ended_at, suggested_duration_mins, actual_duration_mins, was_completed
		FROM break_sessions
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at ASC
	`

	var breaks []*models.BreakSession
	if err := r.SelectContext(ctx, &breaks, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("breaks on date (date: %v): %w", date, err)
	}

	return breaks, nil
}

func (r *Postgres) GetPomodoroStatus(ctx context.Context) (*models.PomodoroStatus, error) {
	query := `
		SELECT current_phase, cycles_completed, phase_started_at
		FROM pomodoro_status
	`

	var s models.PomodoroStatus
	err := r.GetContext(ctx, &s, query)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.PomodoroStatus{CurrentPhase: models.PomodoroIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pomodoro status: %w", err)
	}

	return &s, nil
}

func (r *Postgres) SetPomodoroStatus(ctx context.Context, s *models.PomodoroStatus) error {
	query := `
		INSERT INTO pomodoro_status (id, current_phase, cycles_completed, phase_started_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			current_phase = EXCLUDED.current_phase,
			cycles_completed = EXCLUDED.cycles_completed,
			phase_started_at = EXCLUDED.phase_started_at
	`

	if _, err := r.ExecContext(ctx, query, s.CurrentPhase, s.CyclesCompleted, s.PhaseStartedAt); err != nil {
		return fmt.Errorf("set pomodoro status (phase: %s): %w", s.CurrentPhase, err)
	}
	return nil
}
