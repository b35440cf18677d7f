package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

func (r *Postgres) CreateLabReport(ctx context.Context, l *models.LabReport) error {
	query := r.psql.Insert("lab_reports").
		Columns("subject_code", "title", "due_date", "deadline", "notes", "status", "created_at").
		Values(l.SubjectCode, l.Title, l.DueDate, l.Deadline, l.Notes, l.Status, l.CreatedAt).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (title: %s): %w", l.Title, err)
	}

	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&l.ID); err != nil {
		return fmt.Errorf("create lab report (title: %s): %w", l.Title, err)
	}
	return nil
}

func (r *Postgres) LabReportsDueWithin(ctx context.Context, now time.Time, days int) ([]*models.LabReport, error) {
	cutoff := now.AddDate(0, 0, days)

	query := `
		SELECT id, subject_code, title, due_date, deadline, notes, status, created_at
		FROM lab_reports
		WHERE deadline <= $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY deadline ASC
	`

	var reports []*models.LabReport
	if err := r.SelectContext(ctx, &reports, query, cutoff); err != nil {
		return nil, fmt.Errorf("lab reports due within (days: %d): %w", days, err)
	}

	return reports, nil
}

func (r *Postgres) UpdateLabReportStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	query := r.psql.Update("lab_reports").
		Set("status", status).
		Where("id = ?", id)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", id, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lab report status (id: %d): %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update lab report status (id: %d): %w", id, ErrNotFound)
	}
	return nil
}
