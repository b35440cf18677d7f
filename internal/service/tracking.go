package service

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/yourusername/study-engine/internal/energy"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/internal/revision"
	"github.com/yourusername/study-engine/internal/wellbeing"
	"github.com/yourusername/study-engine/pkg/utils"
	"go.uber.org/zap"
)

// ============================================
// TIMER
// ============================================

func (s *Service) TimerStart(ctx context.Context, subjectCode *string, chapterID *int64, title *string) (*models.StudySession, error) {
	if subjectCode != nil && !subjectCodeRe.MatchString(*subjectCode) {
		return nil, &ValidationError{Field: "subject_code", Reason: fmt.Sprintf("%q does not match [A-Z]{2,5}[0-9]{3}", *subjectCode)}
	}

	session, err := s.timer.Start(ctx, subjectCode, chapterID, title)
	if err != nil {
		return nil, mapRepoErr(err, "timer", nil)
	}
	return session, nil
}

// TimerStop finalizes the session via the Store's atomic stop, then
// feeds the pattern analyzer and achievement evaluator. Both are
// best-effort: the stop itself has already committed.
func (s *Service) TimerStop(ctx context.Context) (*models.StudySession, error) {
	session, err := s.timer.Stop(ctx)
	if err != nil {
		return nil, mapRepoErr(err, "timer", nil)
	}

	focus := 0.5
	if session.IsDeepWork {
		focus = 0.8
	}
	eff := &models.SessionEffectiveness{
		SessionID:   session.ID,
		TimeOfDay:   energy.ClassifyHour(session.StartedAt.Hour()),
		DayOfWeek:   session.StartedAt.Weekday(),
		FocusScore:  focus,
		EnergyLevel: s.cfg.Energy.Level(session.StartedAt.Hour()),
	}
	if err := s.patterns.Ingest(ctx, session.SubjectCode, eff); err != nil {
		zap.S().Warn("pattern ingest after session stop", zap.Error(err), zap.Int64("session_id", session.ID))
	}

	if _, err := s.achievements.Check(ctx); err != nil {
		zap.S().Warn("achievement check after session stop", zap.Error(err), zap.Int64("session_id", session.ID))
	}

	return session, nil
}

func (s *Service) TimerStatus(ctx context.Context) (*models.TimerStatus, error) {
	status, err := s.timer.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("timer status: %w", err)
	}
	return status, nil
}

// ============================================
// REVISIONS
// ============================================

// RevisionsSchedule creates the chapter's revisions from an explicit
// interval sequence ([1,3,7,14,30] when none is given) instead of the
// reading-completion defaults; revisions already stored for the chapter
// are left in place.
func (s *Service) RevisionsSchedule(ctx context.Context, chapterID int64, intervals []int) ([]*models.Revision, error) {
	for _, d := range intervals {
		if d <= 0 {
			return nil, &ValidationError{Field: "intervals", Reason: "interval days must be positive"}
		}
	}

	intervals = revision.ScheduleExplicit(intervals)
	now := s.now()

	if _, err := s.repo.GetChapter(ctx, chapterID); err != nil {
		return nil, mapRepoErr(fmt.Errorf("schedule revisions (chapter_id: %d): %w", chapterID, err), "chapter", chapterID)
	}

	revisions := make([]*models.Revision, 0, len(intervals))
	for i, days := range intervals {
		rev := &models.Revision{
			ChapterID:      chapterID,
			RevisionNumber: i + 1,
			DueDate:        now.AddDate(0, 0, days),
		}
		if err := s.repo.CreateRevision(ctx, rev); err != nil {
			return nil, fmt.Errorf("schedule revisions (chapter_id: %d): %w", chapterID, err)
		}
		revisions = append(revisions, rev)
	}

	return revisions, nil
}

func (s *Service) RevisionsComplete(ctx context.Context, revisionID int64) (int, *models.UserStreak, error) {
	points, streak, err := revision.CompleteRevision(ctx, s.repo, revisionID, s.now())
	if err != nil {
		return 0, nil, mapRepoErr(err, "revision", revisionID)
	}

	if _, err := s.achievements.Check(ctx); err != nil {
		zap.S().Warn("achievement check after revision", zap.Error(err), zap.Int64("revision_id", revisionID))
	}

	return points, streak, nil
}

// ============================================
// WELLBEING / BREAKS
// ============================================

func (s *Service) WellbeingScore(ctx context.Context, date time.Time) (*models.WellbeingMetric, error) {
	monitor := wellbeing.NewMonitorWithClock(s.repo, s.notifier, s.now)
	metric, err := monitor.Evaluate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("wellbeing score (date: %v): %w", date, err)
	}
	return metric, nil
}

func (s *Service) BreakStart(ctx context.Context, typ models.BreakType, suggestedMins int) (*models.BreakSession, error) {
	switch typ {
	case models.BreakShort, models.BreakPomodoro, models.BreakMeal, models.BreakExercise,
		models.BreakMeditation, models.BreakWalk, models.BreakLong:
	default:
		return nil, &ValidationError{Field: "break_type", Reason: fmt.Sprintf("unknown break type %q", typ)}
	}
	if suggestedMins <= 0 {
		suggestedMins = 15
	}

	b := &models.BreakSession{
		BreakType:             typ,
		StartedAt:             s.now(),
		SuggestedDurationMins: suggestedMins,
	}
	if err := s.repo.StartBreak(ctx, b); err != nil {
		return nil, fmt.Errorf("start break (type: %s): %w", typ, err)
	}

	if typ == models.BreakPomodoro {
		if err := s.advancePomodoro(ctx, false); err != nil {
			zap.S().Warn("advance pomodoro on break start", zap.Error(err))
		}
	}
	return b, nil
}

// advancePomodoro moves the pomodoro register between work and break
// phases; every fourth completed cycle earns a long break.
func (s *Service) advancePomodoro(ctx context.Context, backToWork bool) error {
	status, err := s.repo.GetPomodoroStatus(ctx)
	if err != nil {
		return err
	}

	if backToWork {
		if status.CurrentPhase == models.PomodoroShortBreak || status.CurrentPhase == models.PomodoroLongBreak {
			status.CyclesCompleted++
		}
		status.CurrentPhase = models.PomodoroWork
	} else if (status.CyclesCompleted+1)%4 == 0 {
		status.CurrentPhase = models.PomodoroLongBreak
	} else {
		status.CurrentPhase = models.PomodoroShortBreak
	}
	status.PhaseStartedAt = s.now()

	return s.repo.SetPomodoroStatus(ctx, status)
}

func (s *Service) BreakEnd(ctx context.Context, id int64) (*models.BreakSession, error) {
	b, err := s.repo.EndBreak(ctx, id, s.now())
	if err != nil {
		return nil, mapRepoErr(fmt.Errorf("end break (id: %d): %w", id, err), "break", id)
	}

	if b.BreakType == models.BreakPomodoro {
		if err := s.advancePomodoro(ctx, true); err != nil {
			zap.S().Warn("advance pomodoro on break end", zap.Error(err))
		}
	}

	return b, nil
}

// ============================================
// NOTIFICATIONS
// ============================================

func (s *Service) NotificationsList(ctx context.Context, typ *models.NotificationType) ([]*models.Notification, error) {
	notifications, err := s.repo.UnreadNotifications(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *Service) NotificationsMarkRead(ctx context.Context, id int64) error {
	if err := s.repo.MarkNotificationRead(ctx, id, s.now()); err != nil {
		return mapRepoErr(fmt.Errorf("mark notification read (id: %d): %w", id, err), "notification", id)
	}
	return nil
}

func (s *Service) NotificationsSubscribe(ctx context.Context) (*models.Subscription, error) {
	return s.notifier.Subscribe(), nil
}

func (s *Service) NotificationsUnsubscribe(id int64) {
	s.notifier.Unsubscribe(id)
}

// ============================================
// PATTERNS / ACHIEVEMENTS / GOALS
// ============================================

func (s *Service) PatternsRecommend(ctx context.Context, subjectCode *string) ([]models.Recommendation, error) {
	recs, err := s.patterns.Recommend(ctx, subjectCode)
	if err != nil {
		return nil, fmt.Errorf("pattern recommendations: %w", err)
	}
	return recs, nil
}

func (s *Service) AchievementsCheck(ctx context.Context, trigger string) ([]string, error) {
	awarded, err := s.achievements.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievements check (trigger: %s): %w", trigger, err)
	}
	if len(awarded) > 0 {
		zap.S().Info("achievements awarded", zap.Strings("codes", awarded), zap.String("trigger", trigger))
	}
	return awarded, nil
}

func (s *Service) GoalsCreate(ctx context.Context, g *models.StudyGoal) error {
	if g.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if g.TargetValue <= 0 {
		return &ValidationError{Field: "target_value", Reason: "must be positive"}
	}
	if err := s.goals.Create(ctx, g); err != nil {
		return fmt.Errorf("create goal (title: %s): %w", g.Title, err)
	}
	return nil
}

func (s *Service) GoalsUpdateProgress(ctx context.Context, id int64, currentValue float64) (*models.StudyGoal, error) {
	g, awarded, err := s.goals.UpdateProgress(ctx, id, currentValue)
	if err != nil {
		return nil, mapRepoErr(err, "goal", id)
	}
	if len(awarded) > 0 {
		zap.S().Info("achievements awarded", zap.Strings("codes", awarded), zap.Int64("goal_id", id))
	}
	return g, nil
}

// ============================================
// REPORTS
// ============================================

// ReportsGrowth aggregates the rolling-window points/streak/hours
// trend.
func (s *Service) ReportsGrowth(ctx context.Context, days int) (*models.GrowthReport, error) {
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Reason: "must be positive"}
	}

	now := s.now()
	from := utils.StartOfDay(now).AddDate(0, 0, -days+1)
	to := utils.StartOfDay(now).AddDate(0, 0, 1)

	daily, err := s.repo.DailyStatsRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("growth report (days: %d): %w", days, err)
	}

	streak, err := s.repo.GetStreak(ctx)
	if err != nil {
		return nil, fmt.Errorf("growth report (days: %d): %w", days, err)
	}

	byDate := map[string]*models.DailyStudyStats{}
	for _, d := range daily {
		byDate[d.Date.Format("2006-01-02")] = d
	}

	report := &models.GrowthReport{
		WindowDays:    days,
		TotalPoints:   streak.TotalPoints,
		CurrentStreak: streak.CurrentStreak,
		LongestStreak: streak.LongestStreak,
	}
	hours := make([]float64, 0, days)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		var h float64
		var p int
		if d, ok := byDate[day.Format("2006-01-02")]; ok {
			h = float64(d.StudySeconds) / 3600.0
			p = d.PointsEarned
		}
		report.StudyHoursTrend = append(report.StudyHoursTrend, h)
		report.PointsTrend = append(report.PointsTrend, p)
		hours = append(hours, h)
	}

	if len(hours) > 0 {
		if median, err := stats.Percentile(hours, 50); err == nil {
			report.MedianStudyHours = median
		}
		if p75, err := stats.Percentile(hours, 75); err == nil {
			report.P75StudyHours = p75
		}
	}

	return report, nil
}
