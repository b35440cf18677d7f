package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

const taskColumns = `id, title, description, subject_code, priority, duration_mins,
       scheduled_start, scheduled_end, is_deep_work, task_type, status, created_at, updated_at`

func (r *Postgres) CreateTask(ctx context.Context, t *models.Task) error {
	query := r.psql.Insert("tasks").
		Columns("title", "description", "subject_code", "priority", "duration_mins",
			"scheduled_start", "scheduled_end", "is_deep_work", "task_type", "status",
			"created_at", "updated_at").
		Values(t.Title, t.Description, t.SubjectCode, t.Priority, t.DurationMins,
			t.ScheduledStart, t.ScheduledEnd, t.IsDeepWork, t.TaskType, t.Status,
			t.CreatedAt, t.UpdatedAt).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (title: %s): %w", t.Title, err)
	}

	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("create task (title: %s): %w", t.Title, err)
	}
	return nil
}

func (r *Postgres) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	var t models.Task
	if err := r.GetContext(ctx, &t, query, id); err != nil {
		return nil, fmt.Errorf("get task (id: %d): %w", id, wrapNotFound(err, "task", id))
	}

	return &t, nil
}

func (r *Postgres) UpdateTask(ctx context.Context, t *models.Task) error {
	query := r.psql.Update("tasks").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("subject_code", t.SubjectCode).
		Set("priority", t.Priority).
		Set("duration_mins", t.DurationMins).
		Set("scheduled_start", t.ScheduledStart).
		Set("scheduled_end", t.ScheduledEnd).
		Set("is_deep_work", t.IsDeepWork).
		Set("task_type", t.TaskType).
		Set("status", t.Status).
		Set("updated_at", t.UpdatedAt).
		Where("id = ?", t.ID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", t.ID, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update task (id: %d): %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task (id: %d): %w", t.ID, ErrNotFound)
	}
	return nil
}

func (r *Postgres) DeleteTask(ctx context.Context, id int64) error {
	query := r.psql.Delete("tasks").Where("id = ?", id)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", id, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete task (id: %d): %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task (id: %d): %w", id, ErrNotFound)
	}
	return nil
}

// PlaceTask assigns scheduled_start/end with an in-transaction overlap
// double-check: two non-cancelled placed tasks on the same day must not
// overlap, so the check and the write happen in one transaction.
func (r *Postgres) PlaceTask(ctx context.Context, id int64, start, end time.Time) error {
	return r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		overlapping, err := tx.TasksOverlapping(ctx, utils.StartOfDay(start), start, end, id)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("task placement overlaps task %d (id: %d): %w", overlapping[0].ID, id, ErrConflict)
		}

		query := tx.psql.Update("tasks").
			Set("scheduled_start", start).
			Set("scheduled_end", end).
			Set("updated_at", start).
			Where("id = ?", id)

		sql, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query (id: %d): %w", id, err)
		}

		res, err := tx.ExecContext(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("place task (id: %d): %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("place task (id: %d): %w", id, ErrNotFound)
		}
		return nil
	})
}

// CreatePlannedBlock persists one backward-plan block as its own
// placed task row, overlap-checked in the same transaction like
// PlaceTask. Returns the new task id.
func (r *Postgres) CreatePlannedBlock(ctx context.Context, item models.PendingItem, start, end time.Time) (int64, error) {
	var id int64

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		overlapping, err := tx.TasksOverlapping(ctx, utils.StartOfDay(start), start, end, 0)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("planned block overlaps task %d: %w", overlapping[0].ID, ErrConflict)
		}

		t := &models.Task{
			Title:          item.Title,
			SubjectCode:    item.SubjectCode,
			Priority:       8,
			DurationMins:   utils.MinutesBetween(start, end),
			ScheduledStart: &start,
			ScheduledEnd:   &end,
			IsDeepWork:     item.IsDeepWork,
			TaskType:       models.TaskTypeStudy,
			Status:         models.TaskPending,
			CreatedAt:      start,
			UpdatedAt:      start,
		}
		if err := tx.CreateTask(ctx, t); err != nil {
			return err
		}
		id = t.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UnplaceTasks clears scheduling and resets status to pending for the
// reschedule-all sweep.
func (r *Postgres) UnplaceTasks(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := r.psql.Update("tasks").
		Set("scheduled_start", nil).
		Set("scheduled_end", nil).
		Set("status", models.TaskPending).
		Where(squirrel.Eq{"id": ids})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (ids: %v): %w", ids, err)
	}

	if _, err = r.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("unplace tasks (ids: %v): %w", ids, err)
	}
	return nil
}

func (r *Postgres) TasksByDateRange(ctx context.Context, from, to time.Time, statuses []models.TaskStatus) ([]*models.Task, error) {
	query := r.psql.Select(taskColumns).
		From("tasks").
		Where("scheduled_start >= ? AND scheduled_start < ?", from, to).
		OrderBy("scheduled_start ASC")
	if len(statuses) > 0 {
		query = query.Where(squirrel.Eq{"status": statuses})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (from: %v, to: %v): %w", from, to, err)
	}

	var tasks []*models.Task
	if err = r.SelectContext(ctx, &tasks, sql, args...); err != nil {
		return nil, fmt.Errorf("tasks by date range (from: %v, to: %v): %w", from, to, err)
	}

	return tasks, nil
}

// PendingTasks returns unplaced tasks in pending status for the placer's
// pending set, highest priority first, then oldest first.
func (r *Postgres) PendingTasks(ctx context.Context) ([]*models.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = 'pending' AND scheduled_start IS NULL
		ORDER BY priority DESC, created_at ASC
	`, taskColumns)

	var tasks []*models.Task
	if err := r.SelectContext(ctx, &tasks, query); err != nil {
		return nil, fmt.Errorf("pending tasks: %w", err)
	}

	return tasks, nil
}

func (r *Postgres) TasksOverlapping(ctx context.Context, date time.Time, start, end time.Time, excludeID int64) ([]*models.Task, error) {
	dayStart := utils.StartOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status <> 'cancelled'
		  AND id <> $1
		  AND scheduled_start IS NOT NULL
		  AND scheduled_start >= $2 AND scheduled_start < $3
		  AND scheduled_start < $4 AND scheduled_end > $5
	`, taskColumns)

	var tasks []*models.Task
	if err := r.SelectContext(ctx, &tasks, query, excludeID, dayStart, dayEnd, end, start); err != nil {
		return nil, fmt.Errorf("tasks overlapping (date: %v): %w", date, err)
	}

	return tasks, nil
}
