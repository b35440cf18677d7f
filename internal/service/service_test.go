package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/achievement"
	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/goal"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/internal/notify"
	"github.com/yourusername/study-engine/internal/pattern"
	"github.com/yourusername/study-engine/internal/timer"
)

// fakeRepo embeds the Repository interface so only the methods a test
// exercises need implementations; anything else panics loudly.
type fakeRepo struct {
	models.Repository

	tasks     map[int64]*models.Task
	nextID    int64
	placed    map[int64][2]time.Time
	unplaced  []int64
	revisions []*models.Revision
	chapters  map[int64]*models.Chapter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:    map[int64]*models.Task{},
		placed:   map[int64][2]time.Time{},
		chapters: map[int64]*models.Chapter{},
	}
}

func (f *fakeRepo) CreateTask(ctx context.Context, t *models.Task) error {
	f.nextID++
	t.ID = f.nextID
	copied := *t
	f.tasks[t.ID] = &copied
	return nil
}

func (f *fakeRepo) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t := f.tasks[id]
	copied := *t
	return &copied, nil
}

func (f *fakeRepo) PlaceTask(ctx context.Context, id int64, start, end time.Time) error {
	f.placed[id] = [2]time.Time{start, end}
	t := f.tasks[id]
	t.ScheduledStart = &start
	t.ScheduledEnd = &end
	return nil
}

func (f *fakeRepo) UnplaceTasks(ctx context.Context, ids []int64) error {
	f.unplaced = append(f.unplaced, ids...)
	for _, id := range ids {
		t := f.tasks[id]
		t.ScheduledStart = nil
		t.ScheduledEnd = nil
		t.Status = models.TaskPending
	}
	return nil
}

func (f *fakeRepo) TasksByDateRange(ctx context.Context, from, to time.Time, statuses []models.TaskStatus) ([]*models.Task, error) {
	statusSet := map[models.TaskStatus]bool{}
	for _, s := range statuses {
		statusSet[s] = true
	}
	var out []*models.Task
	for _, t := range f.tasks {
		if t.ScheduledStart == nil || !statusSet[t.Status] {
			continue
		}
		if t.ScheduledStart.Before(from) || !t.ScheduledStart.Before(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) PendingTasks(ctx context.Context) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range f.tasks {
		if t.Status == models.TaskPending && t.ScheduledStart == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) PendingRevisions(ctx context.Context, asOf time.Time) ([]*models.RevisionQueueItem, error) {
	return nil, nil
}

func (f *fakeRepo) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	if c, ok := f.chapters[id]; ok {
		return c, nil
	}
	return nil, &NotFoundError{Entity: "chapter", ID: id}
}

func (f *fakeRepo) CreateRevision(ctx context.Context, r *models.Revision) error {
	f.revisions = append(f.revisions, r)
	return nil
}

// Achievement evaluator surface: a quiet no-op catalog.
func (f *fakeRepo) AchievementCatalog(ctx context.Context) ([]*models.AchievementDefinition, error) {
	return nil, nil
}
func (f *fakeRepo) GetStreak(ctx context.Context) (*models.UserStreak, error) {
	return &models.UserStreak{}, nil
}
func (f *fakeRepo) SessionCountersAll(ctx context.Context) (*models.SessionCounters, error) {
	return &models.SessionCounters{}, nil
}
func (f *fakeRepo) CountCompletedRevisions(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeRepo) CountCompletedGoals(ctx context.Context) (int, error)     { return 0, nil }

func newTestService(repo *fakeRepo) *Service {
	cfg := config.Default()
	analyzer := pattern.NewAnalyzer(repo)
	evaluator := achievement.NewEvaluator(repo)
	notifier := notify.NewEngine(repo, nil)
	tm := timer.New(repo)
	goals := goal.NewTracker(repo, evaluator)

	now := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	return NewService(repo, cfg, tm, analyzer, evaluator, notifier, goals).
		WithClock(func() time.Time { return now })
}

func TestSubjectCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo())

	tests := []struct {
		name    string
		subject models.Subject
		field   string
	}{
		{"bad code", models.Subject{Code: "math101", Credits: 3, Type: models.SubjectConceptHeavy}, "code"},
		{"code too long", models.Subject{Code: "ABCDEF101", Credits: 3, Type: models.SubjectConceptHeavy}, "code"},
		{"zero credits", models.Subject{Code: "MATH101", Credits: 0, Type: models.SubjectConceptHeavy}, "credits"},
		{"bad type", models.Subject{Code: "MATH101", Credits: 3, Type: "easy"}, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SubjectCreate(context.Background(), &tt.subject)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestTaskCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo())

	err := svc.TaskCreate(context.Background(), &models.Task{Title: "x", DurationMins: 0, Priority: 5, TaskType: models.TaskTypeStudy})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "duration_mins", ve.Field)

	err = svc.TaskCreate(context.Background(), &models.Task{Title: "x", DurationMins: 30, Priority: 11, TaskType: models.TaskTypeStudy})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "priority", ve.Field)
}

func TestTaskPlace_IdempotentOnIdenticalStart(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	task := &models.Task{Title: "read ch3", DurationMins: 60, Priority: 5, TaskType: models.TaskTypeStudy, Status: models.TaskPending}
	require.NoError(t, svc.TaskCreate(context.Background(), task))

	start := time.Date(2026, 8, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TaskPlace(context.Background(), task.ID, start))
	require.Len(t, repo.placed, 1)

	// Second identical placement is a no-op.
	delete(repo.placed, task.ID)
	require.NoError(t, svc.TaskPlace(context.Background(), task.ID, start))
	require.Empty(t, repo.placed)
}

func TestRevisionsSchedule_ExplicitToolDefaults(t *testing.T) {
	repo := newFakeRepo()
	repo.chapters[1] = &models.Chapter{ID: 1, SubjectID: 1, Number: 3}
	svc := newTestService(repo)

	revisions, err := svc.RevisionsSchedule(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, revisions, 5)

	base := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	for i, days := range []int{1, 3, 7, 14, 30} {
		require.Equal(t, i+1, revisions[i].RevisionNumber)
		require.True(t, revisions[i].DueDate.Equal(base.AddDate(0, 0, days)))
	}
}

func TestRevisionsSchedule_RejectsNonPositiveInterval(t *testing.T) {
	repo := newFakeRepo()
	repo.chapters[1] = &models.Chapter{ID: 1}
	svc := newTestService(repo)

	_, err := svc.RevisionsSchedule(context.Background(), 1, []int{3, 0})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestTasksRescheduleAll_UnplacesOnlyPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	day := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	mkTask := func(title string, status models.TaskStatus, hour int) *models.Task {
		start := day.Add(time.Duration(hour) * time.Hour)
		end := start.Add(30 * time.Minute)
		task := &models.Task{
			Title: title, DurationMins: 30, Priority: 5,
			TaskType: models.TaskTypeStudy, Status: status,
			ScheduledStart: &start, ScheduledEnd: &end,
		}
		require.NoError(t, repo.CreateTask(context.Background(), task))
		return task
	}

	var pendingIDs []int64
	for i := 0; i < 5; i++ {
		pendingIDs = append(pendingIDs, mkTask("p", models.TaskPending, 9+i).ID)
	}
	completed1 := mkTask("done", models.TaskCompleted, 15)
	completed2 := mkTask("done", models.TaskCompleted, 16)

	report, err := svc.TasksRescheduleAll(context.Background(), day, day, "sick")
	require.NoError(t, err)
	require.ElementsMatch(t, pendingIDs, report.UnplacedTaskIDs)

	// The completed tasks keep their slots.
	require.NotNil(t, repo.tasks[completed1.ID].ScheduledStart)
	require.NotNil(t, repo.tasks[completed2.ID].ScheduledStart)
}
