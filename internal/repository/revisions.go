package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

func (r *Postgres) CreateRevision(ctx context.Context, rev *models.Revision) error {
	query := r.psql.Insert("revisions").
		Columns("chapter_id", "revision_number", "due_date", "completed", "points_earned").
		Values(rev.ChapterID, rev.RevisionNumber, rev.DueDate, rev.Completed, rev.PointsEarned).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (chapter_id: %d, number: %d): %w", rev.ChapterID, rev.RevisionNumber, err)
	}

	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&rev.ID); err != nil {
		return fmt.Errorf("create revision (chapter_id: %d, number: %d): %w", rev.ChapterID, rev.RevisionNumber, err)
	}
	return nil
}

// PendingRevisions returns incomplete revisions due as of the given
// time, ordered by (due_date, subject.credits desc) per the range-query
// contract.
func (r *Postgres) PendingRevisions(ctx context.Context, asOf time.Time) ([]*models.RevisionQueueItem, error) {
	query := `
		SELECT rv.id AS revisionid, ch.number AS chapternumber, ch.title AS chaptertitle,
		       s.code AS subjectcode, s.credits AS subjectcredits,
		       rv.due_date AS duedate, rv.revision_number AS revisionnumber
		FROM revisions rv
		JOIN chapters ch ON ch.id = rv.chapter_id
		JOIN subjects s ON s.id = ch.subject_id
		WHERE rv.completed = FALSE AND rv.due_date <= $1
		ORDER BY rv.due_date ASC, s.credits DESC, rv.id ASC
	`

	rows, err := r.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query pending revisions (as_of: %v): %w", asOf, err)
	}
	defer rows.Close()

	var items []*models.RevisionQueueItem
	for rows.Next() {
		var it models.RevisionQueueItem
		if err := rows.Scan(&it.RevisionID, &it.ChapterNumber, &it.ChapterTitle,
			&it.SubjectCode, &it.SubjectCredits, &it.DueDate, &it.RevisionNumber); err != nil {
			return nil, fmt.Errorf("scan pending revision row: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending revision rows: %w", err)
	}

	return items, nil
}

func (r *Postgres) RevisionsDueToday(ctx context.Context, today time.Time) ([]*models.RevisionQueueItem, error) {
	return r.PendingRevisions(ctx, today)
}

// CompleteRevision atomically marks the revision complete, awards
// 5 x subject.credits points, and bumps the chapter's revision count.
// Completing an already-completed revision is a conflict.
func (r *Postgres) CompleteRevision(ctx context.Context, revisionID int64, now time.Time) (int, error) {
	var points int

	err := r.RunInTx(ctx, func(txRepo models.Repository) error {
		tx := txRepo.(*Postgres)

		query := `
			SELECT rv.chapter_id, rv.completed, s.credits
			FROM revisions rv
			JOIN chapters ch ON ch.id = rv.chapter_id
			JOIN subjects s ON s.id = ch.subject_id
			WHERE rv.id = $1
		`
		var chapterID int64
		var completed bool
		var credits int
		if err := tx.QueryRowxContext(ctx, query, revisionID).Scan(&chapterID, &completed, &credits); err != nil {
			return fmt.Errorf("get revision (id: %d): %w", revisionID, wrapNotFound(err, "revision", revisionID))
		}
		if completed {
			return fmt.Errorf("revision already completed (id: %d): %w", revisionID, ErrConflict)
		}

		points = 5 * credits

		update := tx.psql.Update("revisions").
			Set("completed", true).
			Set("completed_at", now).
			Set("points_earned", points).
			Where("id = ?", revisionID)

		sql, args, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("build SQL query (id: %d): %w", revisionID, err)
		}
		if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
			return fmt.Errorf("complete revision (id: %d): %w", revisionID, err)
		}

		bump := `
			UPDATE chapter_progress
			SET revision_count = revision_count + 1, last_revised_at = $2
			WHERE chapter_id = $1
		`
		if _, err = tx.ExecContext(ctx, bump, chapterID, now); err != nil {
			return fmt.Errorf("bump revision count (chapter_id: %d): %w", chapterID, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return points, nil
}

func (r *Postgres) CountCompletedRevisions(ctx context.Context) (int, error) {
	query := r.psql.Select("COUNT(*)").From("revisions").Where("completed = TRUE")

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query: %w", err)
	}

	var count int
	if err = r.QueryRowxContext(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed revisions: %w", err)
	}
	return count, nil
}
