package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/energy"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

const sessionColumns = `id, subject_code, chapter_id, title, started_at, stopped_at,
       duration_seconds, is_deep_work, points_earned`

func (r *Postgres) GetActiveTimer(ctx context.Context) (*models.ActiveTimer, error) {
	query := `
		SELECT session_id, subject_code, chapter_id, title, started_at
		FROM active_timer
	`

	var t models.ActiveTimer
	err := r.GetContext(ctx, &t, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active timer: %w", err)
	}

	return &t, nil
}

// StartTimer creates a StudySession and points the ActiveTimer register
// at it. A second start while one is active is a conflict; the register
// is a single-row cell, so the insert-after-check runs in one
// transaction.
func (r *Postgres) StartTimer(ctx context.Context, subjectCode *string, chapterID *int64, title *string, now time.Time) (*models.StudySession, error) {
	var session *models.StudySession

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		active, err := tx.GetActiveTimer(ctx)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("timer already running (session_id: %d): %w", active.SessionID, ErrConflict)
		}

		s := &models.StudySession{
			SubjectCode: subjectCode,
			ChapterID:   chapterID,
			Title:       title,
			StartedAt:   now,
		}

		insert := tx.psql.Insert("study_sessions").
			Columns("subject_code", "chapter_id", "title", "started_at", "is_deep_work", "points_earned").
			Values(s.SubjectCode, s.ChapterID, s.Title, s.StartedAt, false, 0).
			Suffix("RETURNING id")

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query: %w", err)
		}
		if err = tx.QueryRowxContext(ctx, sqlStr, args...).Scan(&s.ID); err != nil {
			return fmt.Errorf("create study session: %w", err)
		}

		register := tx.psql.Insert("active_timer").
			Columns("session_id", "subject_code", "chapter_id", "title", "started_at").
			Values(s.ID, s.SubjectCode, s.ChapterID, s.Title, s.StartedAt)

		sqlStr, args, err = register.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("set active timer (session_id: %d): %w", s.ID, err)
		}

		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// StopActiveTimer is the §4.1 atomic stop: clears the ActiveTimer
// register, finalizes the session (duration, deep-work flag, points),
// rolls the delta into DailyStudyStats, updates the streak when the
// session lasted at least 30 minutes, and appends the session's
// effectiveness row for the pattern analyzer. Either all writes succeed
// or none.
func (r *Postgres) StopActiveTimer(ctx context.Context, now time.Time) (*models.StudySession, error) {
	var session *models.StudySession

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		active, err := tx.GetActiveTimer(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("no active timer: %w", ErrPrecondition)
		}

		duration := int64(now.Sub(active.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		isDeepWork := duration >= models.DeepWorkThresholdSeconds
		points := models.SessionPoints(duration)

		update := tx.psql.Update("study_sessions").
			Set("stopped_at", now).
			Set("duration_seconds", duration).
			Set("is_deep_work", isDeepWork).
			Set("points_earned", points).
			Where("id = ?", active.SessionID)

		sqlStr, args, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query (session_id: %d): %w", active.SessionID, err)
		}
		if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("finalize session (session_id: %d): %w", active.SessionID, err)
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM active_timer`); err != nil {
			return fmt.Errorf("clear active timer: %w", err)
		}

		deepSeconds := int64(0)
		if isDeepWork {
			deepSeconds = duration
		}
		if err = tx.UpsertDailyStats(ctx, utils.StartOfDay(active.StartedAt), duration, deepSeconds, points); err != nil {
			return err
		}

		if duration >= models.StreakSessionMinSeconds {
			if _, err = tx.UpdateStreakOnActivity(ctx, now, points); err != nil {
				return err
			}
		}

		focus := 0.5
		if isDeepWork {
			focus = 0.8
		}
		eff := &models.SessionEffectiveness{
			SessionID:   active.SessionID,
			TimeOfDay:   energy.ClassifyHour(active.StartedAt.Hour()),
			DayOfWeek:   active.StartedAt.Weekday(),
			FocusScore:  focus,
			EnergyLevel: energy.DefaultCurve().Level(active.StartedAt.Hour()),
		}
		if err = tx.AddEffectiveness(ctx, eff); err != nil {
			return err
		}

		session = &models.StudySession{
			ID:              active.SessionID,
			SubjectCode:     active.SubjectCode,
			ChapterID:       active.ChapterID,
			Title:           active.Title,
			StartedAt:       active.StartedAt,
			StoppedAt:       &now,
			DurationSeconds: &duration,
			IsDeepWork:      isDeepWork,
			PointsEarned:    points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *Postgres) GetSession(ctx context.Context, id int64) (*models.StudySession, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE id = $1`, sessionColumns)

	var s models.StudySession
	if err := r.GetContext(ctx, &s, query, id); err != nil {
		return nil, fmt.Errorf("get session (id: %d): %w", id, wrapNotFound(err, "session", id))
	}

	return &s, nil
}

func (r *Postgres) SessionsInWindow(ctx context.Context, from, to time.Time, subjectCode *string) ([]*models.StudySession, error) {
	query := r.psql.Select(sessionColumns).
		From("study_sessions").
		Where("started_at >= ? AND started_at < ?", from, to).
		OrderBy("started_at ASC")
	if subjectCode != nil {
		query = query.Where("subject_code = ?", *subjectCode)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (from: %v, to: %v): %w", from, to, err)
	}

	var sessions []*models.StudySession
	if err = r.SelectContext(ctx, &sessions, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("sessions in window (from: %v, to: %v): %w", from, to, err)
	}

	return sessions, nil
}

func (r *Postgres) AddEffectiveness(ctx context.Context, e *models.SessionEffectiveness) error {
	query := r.psql.Insert("session_effectiveness").
		Columns("session_id", "time_of_day", "day_of_week", "focus_score", "energy_level", "material_covered").
		Values(e.SessionID, e.TimeOfDay, e.DayOfWeek, e.FocusScore, e.EnergyLevel, e.MaterialCovered).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (session_id: %d): %w", e.SessionID, err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("add session effectiveness (session_id: %d): %w", e.SessionID, err)
	}
	return nil
}

func (r *Postgres) EffectivenessBySubject(ctx context.Context, subjectCode *string) ([]*models.SessionEffectiveness, error) {
	query := r.psql.Select("se.id, se.session_id, se.time_of_day, se.day_of_week, se.focus_score, se.energy_level, se.material_covered").
		From("session_effectiveness se").
		Join("study_sessions ss ON ss.id = se.session_id").
		OrderBy("se.id ASC")
	if subjectCode != nil {
		query = query.Where("ss.subject_code = ?", *subjectCode)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	rows, err := r.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query session effectiveness: %w", err)
	}
	defer rows.Close()

	var list []*models.SessionEffectiveness
	for rows.Next() {
		var e models.SessionEffectiveness
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TimeOfDay, &e.DayOfWeek,
			&e.FocusScore, &e.EnergyLevel, &e.MaterialCovered); err != nil {
			return nil, fmt.Errorf("scan effectiveness row: %w", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effectiveness rows: %w", err)
	}

	return list, nil
}

func (r *Postgres) GetLearningPattern(ctx context.Context, subjectCode *string) (*models.LearningPattern, error) {
	query := `
		SELECT subject_code, avg_duration, best_study_time, effectiveness_score, samples_count
		FROM learning_patterns
		WHERE subject_code IS NOT DISTINCT FROM $1
	`

	var p models.LearningPattern
	err := r.GetContext(ctx, &p, query, subjectCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get learning pattern: %w", err)
	}

	return &p, nil
}

func (r *Postgres) UpsertLearningPattern(ctx context.Context, p *models.LearningPattern) error {
	query := `
		INSERT INTO learning_patterns (subject_code, avg_duration, best_study_time, effectiveness_score, samples_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_code) DO UPDATE SET
			avg_duration = EXCLUDED.avg_duration,
			best_study_time = EXCLUDED.best_study_time,
			effectiveness_score = EXCLUDED.effectiveness_score,
			samples_count = EXCLUDED.samples_count
	`

	if _, err := r.ExecContext(ctx, query, p.SubjectCode, p.AvgDuration, p.BestStudyTime, p.EffectivenessScore, p.SamplesCount); err != nil {
		return fmt.Errorf("upsert learning pattern: %w", err)
	}
	return nil
}

func (r *Postgres) UpsertDailyStats(ctx context.Context, date time.Time, studySeconds, deepWorkSeconds int64, points int) error {
	query := `
		INSERT INTO daily_study_stats (date, study_seconds, deep_work_seconds, session_count, points_earned)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (date) DO UPDATE SET
			study_seconds = daily_study_stats.study_seconds + EXCLUDED.study_seconds,
			deep_work_seconds = daily_study_stats.deep_work_seconds + EXCLUDED.deep_work_seconds,
			session_count = daily_study_stats.session_count + 1,
			points_earned = daily_study_stats.points_earned + EXCLUDED.points_earned
	`

	if _, err := r.ExecContext(ctx, query, utils.StartOfDay(date), studySeconds, deepWorkSeconds, points); err != nil {
		return fmt.Errorf("upsert daily stats (date: %v): %w", date, err)
	}
	return nil
}

func (r *Postgres) DailyStats(ctx context.Context, date time.Time) (*models.DailyStudyStats, error) {
	query := `
		SELECT date, study_seconds, deep_work_seconds, session_count, points_earned
		FROM daily_study_stats WHERE date = $1
	`

	var s models.DailyStudyStats
	err := r.GetContext(ctx, &s, query, utils.StartOfDay(date))
	if errors.Is(err, sql.ErrNoRows) {
		return &models.DailyStudyStats{Date: utils.StartOfDay(date)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stats (date: %v): %w", date, err)
	}

	return &s, nil
}

// DailyStatsRange returns one row per day that has stats in [from, to),
// for the growth report's trend series.
func (r *Postgres) DailyStatsRange(ctx context.Context, from, to time.Time) ([]*models.DailyStudyStats, error) {
	query := `
		SELECT date, study_seconds, deep_work_seconds, session_count, points_earned
		FROM daily_study_stats
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC
	`

	var stats []*models.DailyStudyStats
	if err := r.SelectContext(ctx, &stats, query, utils.StartOfDay(from), utils.StartOfDay(to)); err != nil {
		return nil, fmt.Errorf("daily stats range (from: %v, to: %v): %w", from, to, err)
	}

	return stats, nil
}

func (r *Postgres) SessionCountersAll(ctx context.Context) (*models.SessionCounters, error) {
	query := `
		SELECT COUNT(*) AS total_sessions,
		       COALESCE(SUM(duration_seconds), 0) AS total_study_seconds,
		       COUNT(*) FILTER (WHERE is_deep_work) AS deep_work_sessions
		FROM study_sessions
		WHERE stopped_at IS NOT NULL
	`

	var c models.SessionCounters
	if err := r.GetContext(ctx, &c, query); err != nil {
		return nil, fmt.Errorf("session counters: %w", err)
	}

	return &c, nil
}
