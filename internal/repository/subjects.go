package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

func (r *Postgres) CreateSubject(ctx context.Context, s *models.Subject) error {
	query := r.psql.Insert("subjects").
		Columns("code", "name", "credits", "type", "color", "created_at").
		Values(s.Code, s.Name, s.Credits, s.Type, s.Color, s.CreatedAt).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (code: %s): %w", s.Code, err)
	}

	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("create subject (code: %s): %w", s.Code, err)
	}
	return nil
}

func (r *Postgres) GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error) {
	query := `
		SELECT id, code, name, credits, type, color, created_at
		FROM subjects WHERE code = $1
	`

	var s models.Subject
	if err := r.GetContext(ctx, &s, query, code); err != nil {
		return nil, fmt.Errorf("get subject (code: %s): %w", code, wrapNotFound(err, "subject", code))
	}

	return &s, nil
}

func (r *Postgres) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	query := `
		SELECT id, code, name, credits, type, color, created_at
		FROM subjects ORDER BY code
	`

	var subjects []*models.Subject
	if err := r.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	return subjects, nil
}

func (r *Postgres) CreateChapter(ctx context.Context, c *models.Chapter) error {
	query := r.psql.Insert("chapters").
		Columns("subject_id", "number", "title", "total_pages", "created_at").
		Values(c.SubjectID, c.Number, c.Title, c.TotalPages, c.CreatedAt).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (subject_id: %d, number: %d): %w", c.SubjectID, c.Number, err)
	}

	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("create chapter (subject_id: %d, number: %d): %w", c.SubjectID, c.Number, err)
	}

	// Every chapter starts with a not_started/locked progress row.
	progress := r.psql.Insert("chapter_progress").
		Columns("chapter_id", "reading_status", "assignment_status", "mastery_level", "revision_count").
		Values(c.ID, models.ReadingNotStarted, models.AssignmentLocked, 0, 0)

	sql, args, err = progress.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (chapter_id: %d): %w", c.ID, err)
	}

	if _, err = r.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("create chapter progress (chapter_id: %d): %w", c.ID, err)
	}
	return nil
}

func (r *Postgres) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	query := `
		SELECT id, subject_id, number, title, total_pages, created_at
		FROM chapters WHERE id = $1
	`

	var c models.Chapter
	if err := r.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("get chapter (id: %d): %w", id, wrapNotFound(err, "chapter", id))
	}

	return &c, nil
}

func (r *Postgres) GetChapterProgress(ctx context.Context, chapterID int64) (*models.ChapterProgress, error) {
	query := `
		SELECT chapter_id, reading_status, assignment_status, mastery_level, revision_count, last_revised_at, notes
		FROM chapter_progress WHERE chapter_id = $1
	`

	var p models.ChapterProgress
	if err := r.GetContext(ctx, &p, query, chapterID); err != nil {
		return nil, fmt.Errorf("get chapter progress (chapter_id: %d): %w", chapterID, wrapNotFound(err, "chapter progress", chapterID))
	}

	return &p, nil
}

func (r *Postgres) UpdateChapterProgress(ctx context.Context, p *models.ChapterProgress) error {
	query := r.psql.Update("chapter_progress").
		Set("reading_status", p.ReadingStatus).
		Set("assignment_status", p.AssignmentStatus).
		Set("mastery_level", p.MasteryLevel).
		Set("revision_count", p.RevisionCount).
		Set("last_revised_at", p.LastRevisedAt).
		Set("notes", p.Notes).
		Where("chapter_id = ?", p.ChapterID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (chapter_id: %d): %w", p.ChapterID, err)
	}

	res, err := r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update chapter progress (chapter_id: %d): %w", p.ChapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update chapter progress (chapter_id: %d): %w", p.ChapterID, ErrNotFound)
	}
	return nil
}

// CompleteChapterReading is the atomic reading->completed transition:
// sets reading_status, inserts one Revision row per interval, and flips
// assignment_status locked->available. All-or-nothing; re-completing an
// already completed chapter is refused as a precondition failure.
func (r *Postgres) CompleteChapterReading(ctx context.Context, chapterID int64, intervals []int, now time.Time) ([]*models.Revision, error) {
	var revisions []*models.Revision

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		progress, err := tx.GetChapterProgress(ctx, chapterID)
		if err != nil {
			return err
		}
		if progress.ReadingStatus == models.ReadingCompleted {
			return fmt.Errorf("chapter reading already completed (chapter_id: %d): %w", chapterID, ErrPrecondition)
		}

		update := tx.psql.Update("chapter_progress").
			Set("reading_status", models.ReadingCompleted).
			Where("chapter_id = ?", chapterID)
		if progress.AssignmentStatus == models.AssignmentLocked {
			update = update.Set("assignment_status", models.AssignmentAvailable)
		}

		sql, args, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query (chapter_id: %d): %w", chapterID, err)
		}
		if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
			return fmt.Errorf("complete chapter reading (chapter_id: %d): %w", chapterID, err)
		}

		for i, days := range intervals {
			rev := &models.Revision{
				ChapterID:      chapterID,
				RevisionNumber: i + 1,
				DueDate:        now.AddDate(0, 0, days),
			}
			if err := tx.CreateRevision(ctx, rev); err != nil {
				return err
			}
			revisions = append(revisions, rev)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return revisions, nil
}
