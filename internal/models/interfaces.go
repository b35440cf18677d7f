package models

import (
	"context"
	"time"
)

// Repository is the Store's full surface (C1). Narrower, per-consumer
// interfaces live next to their consumers (internal/placer, internal/
// notify, ...); this is the producer-side contract implemented by
// internal/repository.Postgres.
type Repository interface {
	RunInTx(ctx context.Context, fn func(Repository) error) error

	// Subjects / chapters
	CreateSubject(ctx context.Context, s *Subject) error
	GetSubjectByCode(ctx context.Context, code string) (*Subject, error)
	ListSubjects(ctx context.Context) ([]*Subject, error)
	CreateChapter(ctx context.Context, c *Chapter) error
	GetChapter(ctx context.Context, id int64) (*Chapter, error)
	GetChapterProgress(ctx context.Context, chapterID int64) (*ChapterProgress, error)
	UpdateChapterProgress(ctx context.Context, p *ChapterProgress) error

	// Atomic cross-entity operations, per spec.md §4.1 (no triggers).
	CompleteChapterReading(ctx context.Context, chapterID int64, intervals []int, now time.Time) ([]*Revision, error)
	CompleteRevision(ctx context.Context, revisionID int64, now time.Time) (points int, err error)
	StopActiveTimer(ctx context.Context, now time.Time) (*StudySession, error)

	// Tasks
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id int64) error
	PlaceTask(ctx context.Context, id int64, start, end time.Time) error
	CreatePlannedBlock(ctx context.Context, item PendingItem, start, end time.Time) (int64, error)
	UnplaceTasks(ctx context.Context, ids []int64) error
	TasksByDateRange(ctx context.Context, from, to time.Time, statuses []TaskStatus) ([]*Task, error)
	PendingTasks(ctx context.Context) ([]*Task, error)
	TasksOverlapping(ctx context.Context, date time.Time, start, end time.Time, excludeID int64) ([]*Task, error)

	// Lab reports
	CreateLabReport(ctx context.Context, l *LabReport) error
	LabReportsDueWithin(ctx context.Context, now time.Time, days int) ([]*LabReport, error)
	UpdateLabReportStatus(ctx context.Context, id int64, status TaskStatus) error

	// Revisions
	CreateRevision(ctx context.Context, r *Revision) error
	PendingRevisions(ctx context.Context, asOf time.Time) ([]*RevisionQueueItem, error)
	RevisionsDueToday(ctx context.Context, today time.Time) ([]*RevisionQueueItem, error)
	CountCompletedRevisions(ctx context.Context) (int, error)

	// Sessions / timer
	GetActiveTimer(ctx context.Context) (*ActiveTimer, error)
	StartTimer(ctx context.Context, subjectCode *string, chapterID *int64, title *string, now time.Time) (*StudySession, error)
	GetSession(ctx context.Context, id int64) (*StudySession, error)
	SessionsInWindow(ctx context.Context, from, to time.Time, subjectCode *string) ([]*StudySession, error)

	// Effectiveness / patterns / stats
	AddEffectiveness(ctx context.Context, e *SessionEffectiveness) error
	EffectivenessBySubject(ctx context.Context, subjectCode *string) ([]*SessionEffectiveness, error)
	GetLearningPattern(ctx context.Context, subjectCode *string) (*LearningPattern, error)
	UpsertLearningPattern(ctx context.Context, p *LearningPattern) error
	UpsertDailyStats(ctx context.Context, date time.Time, studySeconds, deepWorkSeconds int64, points int) error
	DailyStats(ctx context.Context, date time.Time) (*DailyStudyStats, error)
	DailyStatsRange(ctx context.Context, from, to time.Time) ([]*DailyStudyStats, error)
	SessionCountersAll(ctx context.Context) (*SessionCounters, error)

	// Wellbeing / breaks / pomodoro
	UpsertWellbeingMetric(ctx context.Context, m *WellbeingMetric) error
	GetWellbeingMetric(ctx context.Context, date time.Time) (*WellbeingMetric, error)
	StartBreak(ctx context.Context, b *BreakSession) error
	EndBreak(ctx context.Context, id int64, endedAt time.Time) (*BreakSession, error)
	BreaksOnDate(ctx context.Context, date time.Time) ([]*BreakSession, error)
	GetPomodoroStatus(ctx context.Context) (*PomodoroStatus, error)
	SetPomodoroStatus(ctx context.Context, s *PomodoroStatus) error

	// Streak
	GetStreak(ctx context.Context) (*UserStreak, error)
	UpdateStreakOnActivity(ctx context.Context, activityDate time.Time, pointsDelta int) (*UserStreak, error)

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	MarkNotificationSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkNotificationRead(ctx context.Context, id int64, readAt time.Time) error
	UnreadNotifications(ctx context.Context, typ *NotificationType) ([]*Notification, error)
	CountNotificationsSince(ctx context.Context, typ NotificationType, since time.Time) (int, error)
	DueScheduledNotifications(ctx context.Context, now time.Time) ([]*Notification, error)
	GetNotificationPreference(ctx context.Context, typ NotificationType) (*NotificationPreference, error)
	UpsertNotificationPreference(ctx context.Context, p *NotificationPreference) error

	// Achievements
	AchievementCatalog(ctx context.Context) ([]*AchievementDefinition, error)
	SeedAchievementCatalog(ctx context.Context, defs []*AchievementDefinition) error
	GetUserAchievement(ctx context.Context, code string) (*UserAchievement, error)
	UpsertUserAchievement(ctx context.Context, a *UserAchievement) error
	UnnotifiedAchievements(ctx context.Context) ([]*UserAchievement, error)
	MarkAchievementNotified(ctx context.Context, code string) error

	// Goals
	CreateGoalCategory(ctx context.Context, c *GoalCategory) error
	ListGoalCategories(ctx context.Context) ([]*GoalCategory, error)
	CreateGoal(ctx context.Context, g *StudyGoal) error
	UpdateGoalProgress(ctx context.Context, id int64, currentValue float64, now time.Time) (*StudyGoal, error)
	ListGoals(ctx context.Context, categoryID *int64, includeCompleted bool) ([]*StudyGoal, error)
	CountCompletedGoals(ctx context.Context) (int, error)

	// Policy-caller storage (guidelines, memory facts)
	CreateGuideline(ctx context.Context, g *Guideline) error
	ListGuidelines(ctx context.Context, activeOnly bool) ([]*Guideline, error)
	UpsertMemoryFact(ctx context.Context, f *MemoryFact, now time.Time) error
	GetMemoryFact(ctx context.Context, category, key string) (*MemoryFact, error)
	ListMemoryFacts(ctx context.Context, category string) ([]*MemoryFact, error)
}

// Service is the §6 operation surface, implemented by internal/service.Service.
type Service interface {
	SubjectCreate(ctx context.Context, s *Subject) error
	ChapterCreate(ctx context.Context, c *Chapter) error
	ChapterCompleteReading(ctx context.Context, chapterID int64) ([]*Revision, error)

	TimelineGet(ctx context.Context, date time.Time) (*Timeline, error)
	TimelineOptimize(ctx context.Context, date time.Time) (changesMade int, placements []Placement, err error)
	TimelineWeek(ctx context.Context, start time.Time) ([7]*Timeline, error)

	TaskCreate(ctx context.Context, t *Task) error
	TaskUpdate(ctx context.Context, t *Task) error
	TaskDelete(ctx context.Context, id int64) error
	TaskPlace(ctx context.Context, id int64, start time.Time) error
	TaskComplete(ctx context.Context, id int64) error
	TasksRescheduleAll(ctx context.Context, from, to time.Time, reason string) (*RescheduleReport, error)

	PlannerBackward(ctx context.Context, item *PendingItem, deadline time.Time, hours float64) (*BackwardPlan, error)

	RevisionsSchedule(ctx context.Context, chapterID int64, intervals []int) ([]*Revision, error)
	RevisionsComplete(ctx context.Context, revisionID int64) (points int, streak *UserStreak, err error)

	TimerStart(ctx context.Context, subjectCode *string, chapterID *int64, title *string) (*StudySession, error)
	TimerStop(ctx context.Context) (*StudySession, error)
	TimerStatus(ctx context.Context) (*TimerStatus, error)

	WellbeingScore(ctx context.Context, date time.Time) (*WellbeingMetric, error)

	BreakStart(ctx context.Context, typ BreakType, suggestedMins int) (*BreakSession, error)
	BreakEnd(ctx context.Context, id int64) (*BreakSession, error)

	NotificationsList(ctx context.Context, typ *NotificationType) ([]*Notification, error)
	NotificationsMarkRead(ctx context.Context, id int64) error
	NotificationsSubscribe(ctx context.Context) (*Subscription, error)
	NotificationsUnsubscribe(id int64)

	PatternsRecommend(ctx context.Context, subjectCode *string) ([]Recommendation, error)

	AchievementsCheck(ctx context.Context, trigger string) ([]string, error)

	GoalsCreate(ctx context.Context, g *StudyGoal) error
	GoalsUpdateProgress(ctx context.Context, id int64, currentValue float64) (*StudyGoal, error)

	ReportsGrowth(ctx context.Context, days int) (*GrowthReport, error)
}

type TimerStatus struct {
	Active         bool
	SessionID      int64
	SubjectCode    *string
	ElapsedSeconds int64
}

type RescheduleReport struct {
	UnplacedTaskIDs []int64
	NewPlacements   []Placement
	Unschedulable   []UnschedulableItem
}

type UnschedulableItem struct {
	TaskID int64
	Reason string
}

type BackwardPlan struct {
	DayAllocations map[string]float64 // "2026-08-04" -> hours
	Placements     []Placement
	Unschedulable  *UnschedulableItem
}

type Subscription struct {
	ID int64
	C  <-chan *Notification
}

type GrowthReport struct {
	WindowDays       int
	TotalPoints      int
	CurrentStreak    int
	LongestStreak    int
	StudyHoursTrend  []float64
	PointsTrend      []int
	MedianStudyHours float64
	P75StudyHours    float64
}
