// Package notify implements the proactive notification engine (C10):
// a 15-minute scan over the Store's state, a per-type preference gate
// (enabled, quiet hours, rolling-hour frequency limit), and an ordered
// fan-out channel for live subscribers.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
	"go.uber.org/zap"
)

const (
	ScanInterval = 15 * time.Minute

	taskReminderLead    = 15 * time.Minute
	breakSuggestionMins = 90
	labDeadlineDays     = 3
	longStudyDaySeconds = 8 * 3600
	maxBackoff          = 5 * time.Minute
)

// Store is the repository surface the engine scans and writes.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationSent(ctx context.Context, id int64, sentAt time.Time) error
	CountNotificationsSince(ctx context.Context, typ models.NotificationType, since time.Time) (int, error)
	GetNotificationPreference(ctx context.Context, typ models.NotificationType) (*models.NotificationPreference, error)
	DueScheduledNotifications(ctx context.Context, now time.Time) ([]*models.Notification, error)

	TasksByDateRange(ctx context.Context, from, to time.Time, statuses []models.TaskStatus) ([]*models.Task, error)
	GetActiveTimer(ctx context.Context) (*models.ActiveTimer, error)
	RevisionsDueToday(ctx context.Context, today time.Time) ([]*models.RevisionQueueItem, error)
	LabReportsDueWithin(ctx context.Context, now time.Time, days int) ([]*models.LabReport, error)
	DailyStats(ctx context.Context, date time.Time) (*models.DailyStudyStats, error)
	UnnotifiedAchievements(ctx context.Context) ([]*models.UserAchievement, error)
	MarkAchievementNotified(ctx context.Context, code string) error
}

// Recommender is the C8 hook for pattern-based suggestions.
type Recommender interface {
	Recommend(ctx context.Context, subjectCode *string) ([]models.Recommendation, error)
}

type Engine struct {
	store       Store
	recommender Recommender
	hub         *hub
	now         func() time.Time

	mu sync.Mutex
	// Per-scan dedup state: one reminder per task start, one break
	// suggestion per session, one revision reminder per day, one
	// long-day warning per day.
	taskReminded     map[int64]bool
	breakRemindedFor int64
	revisionReminded time.Time
	longDayWarned    time.Time
}

func NewEngine(store Store, recommender Recommender) *Engine {
	return &Engine{
		store:        store,
		recommender:  recommender,
		hub:          newHub(),
		now:          time.Now,
		taskReminded: map[int64]bool{},
	}
}

func NewEngineWithClock(store Store, recommender Recommender, now func() time.Time) *Engine {
	e := NewEngine(store, recommender)
	e.now = now
	return e
}

func (e *Engine) Subscribe() *models.Subscription { return e.hub.subscribe() }
func (e *Engine) Unsubscribe(id int64)            { e.hub.unsubscribe(id) }
func (e *Engine) Close()                          { e.hub.closeAll() }

// Deliver runs one notification through the preference gate, persists
// it, and publishes it to live subscribers. Dropped (disabled or
// frequency-limited) notifications return nil with no side effects;
// quiet-hours notifications are persisted with a deferred
// scheduled_for and no sent_at.
func (e *Engine) Deliver(ctx context.Context, n *models.Notification) error {
	pref, err := e.store.GetNotificationPreference(ctx, n.Type)
	if err != nil {
		return fmt.Errorf("deliver notification (type: %s): %w", n.Type, err)
	}

	if !pref.Enabled {
		return nil
	}

	now := e.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ScheduledFor.IsZero() {
		n.ScheduledFor = now
	}

	if deferred, ok := deferForQuietHours(n.ScheduledFor, pref); ok {
		n.ScheduledFor = deferred
		n.SentAt = nil
		if err := e.store.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("persist deferred notification (type: %s): %w", n.Type, err)
		}
		return nil
	}

	if pref.FrequencyLimit > 0 {
		count, err := e.store.CountNotificationsSince(ctx, n.Type, now.Add(-time.Hour))
		if err != nil {
			return fmt.Errorf("frequency check (type: %s): %w", n.Type, err)
		}
		if count >= pref.FrequencyLimit {
			return nil
		}
	}

	sent := now
	n.SentAt = &sent
	if err := e.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("persist notification (type: %s): %w", n.Type, err)
	}

	e.hub.publish(n)
	return nil
}

// Suggest satisfies the wellbeing monitor's Notifier hook.
func (e *Engine) Suggest(ctx context.Context, title, message string) error {
	return e.Deliver(ctx, &models.Notification{
		Type:     models.NotifySuggestion,
		Priority: models.PriorityNormal,
		Title:    title,
		Message:  message,
	})
}

// deferForQuietHours reports whether at falls inside the preference's
// quiet window [start, end), and the next instant outside it. The
// window may wrap midnight (22:00-07:00).
func deferForQuietHours(at time.Time, pref *models.NotificationPreference) (time.Time, bool) {
	if pref.QuietHoursStart == nil || pref.QuietHoursEnd == nil {
		return at, false
	}

	startMins, err := utils.ClockMinutes(*pref.QuietHoursStart)
	if err != nil {
		return at, false
	}
	endMins, err := utils.ClockMinutes(*pref.QuietHoursEnd)
	if err != nil {
		return at, false
	}
	if startMins == endMins {
		return at, false
	}

	nowMins := at.Hour()*60 + at.Minute()
	day := utils.StartOfDay(at)

	if startMins < endMins {
		// Same-day window, e.g. 12:00-14:00.
		if nowMins >= startMins && nowMins < endMins {
			return day.Add(time.Duration(endMins) * time.Minute), true
		}
		return at, false
	}

	// Wrapping window, e.g. 22:00-07:00.
	if nowMins >= startMins {
		return day.AddDate(0, 0, 1).Add(time.Duration(endMins) * time.Minute), true
	}
	if nowMins < endMins {
		return day.Add(time.Duration(endMins) * time.Minute), true
	}
	return at, false
}

// Scan is one engine tick: the seven §4.10 steps plus flushing
// quiet-hours deferrals whose time has come.
func (e *Engine) Scan(ctx context.Context) error {
	now := e.now()

	if err := e.flushDeferred(ctx, now); err != nil {
		return err
	}
	if err := e.scanUpcomingTasks(ctx, now); err != nil {
		return err
	}
	if err := e.scanActiveTimer(ctx, now); err != nil {
		return err
	}
	if err := e.scanRevisionsDue(ctx, now); err != nil {
		return err
	}
	if err := e.scanLabDeadlines(ctx, now); err != nil {
		return err
	}
	if err := e.scanLongStudyDay(ctx, now); err != nil {
		return err
	}
	if err := e.scanPatternSuggestions(ctx); err != nil {
		return err
	}
	return e.flushAchievements(ctx, now)
}

func (e *Engine) flushDeferred(ctx context.Context, now time.Time) error {
	due, err := e.store.DueScheduledNotifications(ctx, now)
	if err != nil {
		return fmt.Errorf("flush deferred: %w", err)
	}
	for _, n := range due {
		if err := e.store.MarkNotificationSent(ctx, n.ID, now); err != nil {
			return err
		}
		sent := now
		n.SentAt = &sent
		e.hub.publish(n)
	}
	return nil
}

func (e *Engine) scanUpcomingTasks(ctx context.Context, now time.Time) error {
	tasks, err := e.store.TasksByDateRange(ctx, now, now.Add(taskReminderLead),
		[]models.TaskStatus{models.TaskPending, models.TaskInProgress})
	if err != nil {
		return fmt.Errorf("scan upcoming tasks: %w", err)
	}

	for _, t := range tasks {
		if t.ScheduledStart == nil {
			continue
		}
		e.mu.Lock()
		already := e.taskReminded[t.ID]
		if !already {
			e.taskReminded[t.ID] = true
		}
		e.mu.Unlock()
		if already {
			continue
		}

		err := e.Deliver(ctx, &models.Notification{
			Type:     models.NotifyReminder,
			Priority: models.PriorityNormal,
			Title:    "Upcoming task",
			Message:  fmt.Sprintf("%q starts at %s", t.Title, t.ScheduledStart.Format("15:04")),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scanActiveTimer(ctx context.Context, now time.Time) error {
	active, err := e.store.GetActiveTimer(ctx)
	if err != nil {
		return fmt.Errorf("scan active timer: %w", err)
	}
	if active == nil {
		return nil
	}

	elapsed := now.Sub(active.StartedAt)
	if elapsed < breakSuggestionMins*time.Minute {
		return nil
	}

	e.mu.Lock()
	already := e.breakRemindedFor == active.SessionID
	if !already {
		e.breakRemindedFor = active.SessionID
	}
	e.mu.Unlock()
	if already {
		return nil
	}

	return e.Deliver(ctx, &models.Notification{
		Type:     models.NotifySuggestion,
		Priority: models.PriorityNormal,
		Title:    "Time for a break",
		Message:  fmt.Sprintf("you have been studying for %d minutes", int(elapsed.Minutes())),
	})
}

func (e *Engine) scanRevisionsDue(ctx context.Context, now time.Time) error {
	today := utils.StartOfDay(now)

	e.mu.Lock()
	already := e.revisionReminded.Equal(today)
	e.mu.Unlock()
	if already {
		return nil
	}

	due, err := e.store.RevisionsDueToday(ctx, now)
	if err != nil {
		return fmt.Errorf("scan revisions due: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	e.mu.Lock()
	e.revisionReminded = today
	e.mu.Unlock()

	return e.Deliver(ctx, &models.Notification{
		Type:     models.NotifyReminder,
		Priority: models.PriorityNormal,
		Title:    "Revisions due",
		Message:  fmt.Sprintf("%d chapter revisions are due today", len(due)),
	})
}

func (e *Engine) scanLabDeadlines(ctx context.Context, now time.Time) error {
	labs, err := e.store.LabReportsDueWithin(ctx, now, labDeadlineDays)
	if err != nil {
		return fmt.Errorf("scan lab deadlines: %w", err)
	}

	for _, lab := range labs {
		priority := models.PriorityNormal
		if lab.Deadline.Sub(now) <= 24*time.Hour {
			priority = models.PriorityHigh
		}
		err := e.Deliver(ctx, &models.Notification{
			Type:     models.NotifyDeadline,
			Priority: priority,
			Title:    "Lab report due",
			Message:  fmt.Sprintf("%q (%s) is due %s", lab.Title, lab.SubjectCode, lab.Deadline.Format("Mon 15:04")),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scanLongStudyDay(ctx context.Context, now time.Time) error {
	today := utils.StartOfDay(now)

	e.mu.Lock()
	already := e.longDayWarned.Equal(today)
	e.mu.Unlock()
	if already {
		return nil
	}

	stats, err := e.store.DailyStats(ctx, today)
	if err != nil {
		return fmt.Errorf("scan long study day: %w", err)
	}
	if stats.StudySeconds <= longStudyDaySeconds {
		return nil
	}

	e.mu.Lock()
	e.longDayWarned = today
	e.mu.Unlock()

	return e.Deliver(ctx, &models.Notification{
		Type:     models.NotifyWarning,
		Priority: models.PriorityHigh,
		Title:    "Long study day",
		Message:  fmt.Sprintf("you have studied %.1f hours today; consider winding down", float64(stats.StudySeconds)/3600),
	})
}

func (e *Engine) scanPatternSuggestions(ctx context.Context) error {
	if e.recommender == nil {
		return nil
	}

	recs, err := e.recommender.Recommend(ctx, nil)
	if err != nil {
		return fmt.Errorf("scan pattern suggestions: %w", err)
	}
	for _, rec := range recs {
		if rec.Kind != models.RecTiming {
			continue
		}
		if err := e.Suggest(ctx, "Study pattern", rec.Rationale); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) flushAchievements(ctx context.Context, now time.Time) error {
	pending, err := e.store.UnnotifiedAchievements(ctx)
	if err != nil {
		return fmt.Errorf("flush achievements: %w", err)
	}

	for _, a := range pending {
		err := e.Deliver(ctx, &models.Notification{
			Type:     models.NotifyAchievement,
			Priority: models.PriorityNormal,
			Title:    "Achievement unlocked",
			Message:  a.AchievementCode,
		})
		if err != nil {
			return err
		}
		if err := e.store.MarkAchievementNotified(ctx, a.AchievementCode); err != nil {
			return err
		}
	}
	return nil
}

// Run ticks every ScanInterval. Store failures are logged and retried
// with exponential backoff capped at five minutes; the loop exits only
// on cancellation, finishing the in-flight scan first.
func (e *Engine) Run(ctx context.Context) {
	wait := ScanInterval
	retry := time.Duration(0)

	for {
		select {
		case <-ctx.Done():
			e.Close()
			return
		case <-time.After(wait):
		}

		if err := e.Scan(ctx); err != nil {
			zap.S().Error("notification scan", zap.Error(err))
			if retry == 0 {
				retry = 30 * time.Second
			} else {
				retry *= 2
			}
			if retry > maxBackoff {
				retry = maxBackoff
			}
			wait = retry
			continue
		}
		retry = 0
		wait = ScanInterval
	}
}
