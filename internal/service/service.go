// Package service is the operation surface of the engine: one Service
// struct wrapping the Store and the scheduling collaborators, one
// exported method per operation. Error kinds surface as the typed
// errors in errors.go; repository sentinels are translated at this
// boundary.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/yourusername/study-engine/internal/achievement"
	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/goal"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/internal/notify"
	"github.com/yourusername/study-engine/internal/pattern"
	"github.com/yourusername/study-engine/internal/repository"
	"github.com/yourusername/study-engine/internal/revision"
	"github.com/yourusername/study-engine/internal/timer"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	subjectCodeRe = regexp.MustCompile(`^[A-Z]{2,5}[0-9]{3}$`)
	chapterSlugRe = regexp.MustCompile(`^chapter[0-9]{2}$`)
)

var _ models.Service = (*Service)(nil)

type Service struct {
	repo         models.Repository
	cfg          config.Config
	timer        *timer.Timer
	patterns     *pattern.Analyzer
	achievements *achievement.Evaluator
	notifier     *notify.Engine
	goals        *goal.Tracker
	materials    *MaterialsConfig

	// Collapses concurrent optimize calls for the same date into one
	// placer run.
	optimizeGroup singleflight.Group

	now func() time.Time
}

func NewService(repo models.Repository, cfg config.Config, tm *timer.Timer, analyzer *pattern.Analyzer,
	evaluator *achievement.Evaluator, notifier *notify.Engine, goals *goal.Tracker) *Service {
	return &Service{
		repo:         repo,
		cfg:          cfg,
		timer:        tm,
		patterns:     analyzer,
		achievements: evaluator,
		notifier:     notifier,
		goals:        goals,
		now:          time.Now,
	}
}

// WithClock injects a deterministic clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// mapRepoErr translates repository sentinels into the typed error
// taxonomy; anything else bubbles verbatim.
func mapRepoErr(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, repository.ErrConflict):
		return &ConflictError{Reason: err.Error()}
	case errors.Is(err, repository.ErrPrecondition):
		return &PreconditionError{Reason: err.Error()}
	default:
		return err
	}
}

// ============================================
// SUBJECTS / CHAPTERS
// ============================================

func (s *Service) SubjectCreate(ctx context.Context, sub *models.Subject) error {
	if !subjectCodeRe.MatchString(sub.Code) {
		return &ValidationError{Field: "code", Reason: fmt.Sprintf("%q does not match [A-Z]{2,5}[0-9]{3}", sub.Code)}
	}
	if sub.Credits < 1 || sub.Credits > 6 {
		return &ValidationError{Field: "credits", Reason: "must be between 1 and 6"}
	}
	if sub.Type != models.SubjectPracticeHeavy && sub.Type != models.SubjectConceptHeavy {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown subject type %q", sub.Type)}
	}

	sub.CreatedAt = s.now()
	if err := s.repo.CreateSubject(ctx, sub); err != nil {
		return fmt.Errorf("create subject (code: %s): %w", sub.Code, err)
	}
	return nil
}

func (s *Service) ChapterCreate(ctx context.Context, ch *models.Chapter) error {
	if ch.Number < 1 || ch.Number > 99 {
		return &ValidationError{Field: "number", Reason: "must be between 1 and 99"}
	}
	slug := fmt.Sprintf("chapter%02d", ch.Number)
	if !chapterSlugRe.MatchString(slug) {
		return &ValidationError{Field: "number", Reason: fmt.Sprintf("slug %q does not match chapter[0-9]{2}", slug)}
	}

	ch.CreatedAt = s.now()
	if err := s.repo.CreateChapter(ctx, ch); err != nil {
		return fmt.Errorf("create chapter (subject_id: %d, number: %d): %w", ch.SubjectID, ch.Number, err)
	}
	return nil
}

// ChapterCompleteReading runs the atomic reading-completion chain:
// status flip, default [+7,+14,+21] revisions, assignment unlock. An
// achievement sweep follows best-effort.
func (s *Service) ChapterCompleteReading(ctx context.Context, chapterID int64) ([]*models.Revision, error) {
	revisions, err := s.repo.CompleteChapterReading(ctx, chapterID, revision.DefaultReadingCompletionIntervals, s.now())
	if err != nil {
		return nil, mapRepoErr(fmt.Errorf("complete chapter reading (chapter_id: %d): %w", chapterID, err), "chapter", chapterID)
	}

	if _, err := s.achievements.Check(ctx); err != nil {
		zap.S().Warn("achievement check after chapter completion", zap.Error(err), zap.Int64("chapter_id", chapterID))
	}

	return revisions, nil
}

// ============================================
// TASKS
// ============================================

func (s *Service) validateTask(t *models.Task) error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if t.DurationMins <= 0 {
		return &ValidationError{Field: "duration_mins", Reason: "must be positive"}
	}
	if t.Priority < 1 || t.Priority > 10 {
		return &ValidationError{Field: "priority", Reason: "must be between 1 and 10"}
	}
	if t.SubjectCode != nil && !subjectCodeRe.MatchString(*t.SubjectCode) {
		return &ValidationError{Field: "subject_code", Reason: fmt.Sprintf("%q does not match [A-Z]{2,5}[0-9]{3}", *t.SubjectCode)}
	}
	switch t.TaskType {
	case models.TaskTypeStudy, models.TaskTypeRevision, models.TaskTypePractice,
		models.TaskTypeAssignment, models.TaskTypeLabWork, models.TaskTypeBreak, models.TaskTypeFreeTime:
	default:
		return &ValidationError{Field: "task_type", Reason: fmt.Sprintf("unknown task type %q", t.TaskType)}
	}
	return nil
}

func (s *Service) TaskCreate(ctx context.Context, t *models.Task) error {
	if err := s.validateTask(t); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = models.TaskPending
	}

	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return fmt.Errorf("create task (title: %s): %w", t.Title, err)
	}
	return nil
}

func (s *Service) TaskUpdate(ctx context.Context, t *models.Task) error {
	if err := s.validateTask(t); err != nil {
		return err
	}

	t.UpdatedAt = s.now()
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return mapRepoErr(fmt.Errorf("update task (id: %d): %w", t.ID, err), "task", t.ID)
	}
	return nil
}

func (s *Service) TaskDelete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return mapRepoErr(fmt.Errorf("delete task (id: %d): %w", id, err), "task", id)
	}
	return nil
}

// TaskPlace assigns a start slot; idempotent when the task is already
// placed at the identical start.
func (s *Service) TaskPlace(ctx context.Context, id int64, start time.Time) error {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return mapRepoErr(fmt.Errorf("place task (id: %d): %w", id, err), "task", id)
	}

	end := start.Add(time.Duration(t.DurationMins) * time.Minute)
	if t.ScheduledStart != nil && t.ScheduledStart.Equal(start) {
		return nil
	}

	if err := s.repo.PlaceTask(ctx, id, start, end); err != nil {
		return mapRepoErr(fmt.Errorf("place task (id: %d): %w", id, err), "task", id)
	}
	return nil
}

// TaskComplete marks a task done and runs the achievement dispatch.
func (s *Service) TaskComplete(ctx context.Context, id int64) error {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return mapRepoErr(fmt.Errorf("complete task (id: %d): %w", id, err), "task", id)
	}
	if t.Status == models.TaskCompleted {
		return &PreconditionError{Reason: fmt.Sprintf("task %d already completed", id)}
	}

	t.Status = models.TaskCompleted
	t.UpdatedAt = s.now()
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return mapRepoErr(fmt.Errorf("complete task (id: %d): %w", id, err), "task", id)
	}

	if _, err := s.achievements.Check(ctx); err != nil {
		zap.S().Warn("achievement check after task completion", zap.Error(err), zap.Int64("task_id", id))
	}
	return nil
}
