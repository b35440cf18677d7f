package models

import "time"

// Closed variant sets, lifted from string-typed columns per the
// re-architecture notes: refuse unknown values at the boundary.

type SubjectType string

const (
	SubjectPracticeHeavy SubjectType = "practice_heavy"
	SubjectConceptHeavy  SubjectType = "concept_heavy"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

type TaskType string

const (
	TaskTypeStudy      TaskType = "study"
	TaskTypeRevision   TaskType = "revision"
	TaskTypePractice   TaskType = "practice"
	TaskTypeAssignment TaskType = "assignment"
	TaskTypeLabWork    TaskType = "lab_work"
	TaskTypeBreak      TaskType = "break"
	TaskTypeFreeTime   TaskType = "free_time"
)

type ReadingStatus string

const (
	ReadingNotStarted ReadingStatus = "not_started"
	ReadingInProgress ReadingStatus = "in_progress"
	ReadingCompleted  ReadingStatus = "completed"
)

type AssignmentStatus string

const (
	AssignmentLocked     AssignmentStatus = "locked"
	AssignmentAvailable  AssignmentStatus = "available"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentSubmitted  AssignmentStatus = "submitted"
)

type LabUrgency string

const (
	LabUrgent LabUrgency = "urgent"
	LabSoon   LabUrgency = "soon"
	LabNormal LabUrgency = "normal"
)

type BreakType string

const (
	BreakShort      BreakType = "short"
	BreakPomodoro   BreakType = "pomodoro"
	BreakMeal       BreakType = "meal"
	BreakExercise   BreakType = "exercise"
	BreakMeditation BreakType = "meditation"
	BreakWalk       BreakType = "walk"
	BreakLong       BreakType = "long"
)

type PomodoroPhase string

const (
	PomodoroIdle       PomodoroPhase = "idle"
	PomodoroWork       PomodoroPhase = "work"
	PomodoroShortBreak PomodoroPhase = "short_break"
	PomodoroLongBreak  PomodoroPhase = "long_break"
)

type NotificationType string

const (
	NotifyReminder    NotificationType = "reminder"
	NotifyAchievement NotificationType = "achievement"
	NotifySuggestion  NotificationType = "suggestion"
	NotifyWarning     NotificationType = "warning"
	NotifyDeadline    NotificationType = "deadline"
	NotifyBreak       NotificationType = "break"
	NotifyMotivation  NotificationType = "motivation"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type AchievementCategory string

const (
	AchievementStreak   AchievementCategory = "streak"
	AchievementStudy    AchievementCategory = "study"
	AchievementGoal     AchievementCategory = "goal"
	AchievementRevision AchievementCategory = "revision"
	AchievementSpecial  AchievementCategory = "special"
)

type AchievementRarity string

const (
	RarityCommon    AchievementRarity = "common"
	RarityRare      AchievementRarity = "rare"
	RarityEpic      AchievementRarity = "epic"
	RarityLegendary AchievementRarity = "legendary"
)

type TimeOfDayClass string

const (
	EarlyMorning TimeOfDayClass = "early_morning"
	Morning      TimeOfDayClass = "morning"
	Afternoon    TimeOfDayClass = "afternoon"
	Evening      TimeOfDayClass = "evening"
	Night        TimeOfDayClass = "night"
	LateNight    TimeOfDayClass = "late_night"
)

type ActivityType string

const (
	ActivitySleep       ActivityType = "sleep"
	ActivityWakeRoutine ActivityType = "wake_routine"
	ActivityBreakfast   ActivityType = "breakfast"
	ActivityLunch       ActivityType = "lunch"
	ActivityDinner      ActivityType = "dinner"
	ActivityUniversity  ActivityType = "university"
	ActivityStudy       ActivityType = "study"
	ActivityRevision    ActivityType = "revision"
	ActivityPractice    ActivityType = "practice"
	ActivityAssignment  ActivityType = "assignment"
	ActivityLabWork     ActivityType = "lab_work"
	ActivityDeepWork    ActivityType = "deep_work"
	ActivityBreak       ActivityType = "break"
	ActivityFreeTime    ActivityType = "free_time"
)

// Fine-grain placement-diagnostic labels (SPEC_FULL §3 supplement).
// Never alter the numeric priority table in internal/placer; these are
// attached to a placement decision purely as a "reason" string.
type TaskPriorityReason string

const (
	ReasonOverdue          TaskPriorityReason = "overdue"
	ReasonDueToday         TaskPriorityReason = "due_today"
	ReasonDueTomorrow      TaskPriorityReason = "due_tomorrow"
	ReasonExamPrep         TaskPriorityReason = "exam_prep"
	ReasonUrgentLab        TaskPriorityReason = "urgent_lab"
	ReasonLabWork          TaskPriorityReason = "lab_work"
	ReasonRevisionDue      TaskPriorityReason = "revision_due"
	ReasonRevisionUpcoming TaskPriorityReason = "revision_upcoming"
	ReasonAssignment       TaskPriorityReason = "assignment"
	ReasonTestPrep         TaskPriorityReason = "test_prep"
	ReasonPractice         TaskPriorityReason = "practice"
	ReasonRegularStudy     TaskPriorityReason = "regular_study"
	ReasonFreeTime         TaskPriorityReason = "free_time"
)

type RecommendationKind string

const (
	RecTiming       RecommendationKind = "timing"
	RecDuration     RecommendationKind = "duration"
	RecBreak        RecommendationKind = "break"
	RecSubjectOrder RecommendationKind = "subject_order"
)

// ============================================
// SUBJECT / CHAPTER
// ============================================

type Subject struct {
	ID        int64       `db:"id"`
	Code      string      `db:"code"`
	Name      string      `db:"name"`
	Credits   int         `db:"credits"`
	Type      SubjectType `db:"type"`
	Color     string      `db:"color"`
	CreatedAt time.Time   `db:"created_at"`
}

type Chapter struct {
	ID         int64     `db:"id"`
	SubjectID  int64     `db:"subject_id"`
	Number     int       `db:"number"`
	Title      string    `db:"title"`
	TotalPages int       `db:"total_pages"`
	CreatedAt  time.Time `db:"created_at"`
}

type ChapterProgress struct {
	ChapterID        int64            `db:"chapter_id"`
	ReadingStatus    ReadingStatus    `db:"reading_status"`
	AssignmentStatus AssignmentStatus `db:"assignment_status"`
	MasteryLevel     int              `db:"mastery_level"`
	RevisionCount    int              `db:"revision_count"`
	LastRevisedAt    *time.Time       `db:"last_revised_at"`
	Notes            *string          `db:"notes"`
}

// ============================================
// TASK / LAB REPORT
// ============================================

type Task struct {
	ID             int64      `db:"id"`
	Title          string     `db:"title"`
	Description    *string    `db:"description"`
	SubjectCode    *string    `db:"subject_code"`
	Priority       int        `db:"priority"`
	DurationMins   int        `db:"duration_mins"`
	ScheduledStart *time.Time `db:"scheduled_start"`
	ScheduledEnd   *time.Time `db:"scheduled_end"`
	IsDeepWork     bool       `db:"is_deep_work"`
	TaskType       TaskType   `db:"task_type"`
	Status         TaskStatus `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type LabReport struct {
	ID          int64      `db:"id"`
	SubjectCode string     `db:"subject_code"`
	Title       string     `db:"title"`
	DueDate     time.Time  `db:"due_date"`
	Deadline    time.Time  `db:"deadline"`
	Notes       *string    `db:"notes"`
	Status      TaskStatus `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (l LabReport) Urgency(now time.Time) LabUrgency {
	daysLeft := int(l.Deadline.Sub(now).Hours() / 24)
	switch {
	case daysLeft <= 1:
		return LabUrgent
	case daysLeft <= 3:
		return LabSoon
	default:
		return LabNormal
	}
}

// ============================================
// REVISION
// ============================================

type Revision struct {
	ID             int64      `db:"id"`
	ChapterID      int64      `db:"chapter_id"`
	RevisionNumber int        `db:"revision_number"`
	DueDate        time.Time  `db:"due_date"`
	Completed      bool       `db:"completed"`
	CompletedAt    *time.Time `db:"completed_at"`
	PointsEarned   int        `db:"points_earned"`
}

type RevisionQueueItem struct {
	RevisionID     int64
	ChapterNumber  int
	ChapterTitle   string
	SubjectCode    string
	SubjectCredits int
	DueDate        time.Time
	RevisionNumber int
}

// ============================================
// SESSION / TIMER
// ============================================

type StudySession struct {
	ID              int64      `db:"id"`
	SubjectCode     *string    `db:"subject_code"`
	ChapterID       *int64     `db:"chapter_id"`
	Title           *string    `db:"title"`
	StartedAt       time.Time  `db:"started_at"`
	StoppedAt       *time.Time `db:"stopped_at"`
	DurationSeconds *int64     `db:"duration_seconds"`
	IsDeepWork      bool       `db:"is_deep_work"`
	PointsEarned    int        `db:"points_earned"`
}

// DeepWorkThresholdSeconds and point-cap constants per spec.md §3/§4.7.
const (
	DeepWorkThresholdSeconds = 5400
	MaxSessionPoints         = 50
	SecondsPerPoint          = 600
	StreakSessionMinSeconds  = 1800
)

// SessionPoints implements points := min(50, duration_seconds / 600).
func SessionPoints(durationSeconds int64) int {
	p := int(durationSeconds / SecondsPerPoint)
	if p > MaxSessionPoints {
		return MaxSessionPoints
	}
	return p
}

type ActiveTimer struct {
	SessionID   int64     `db:"session_id"`
	SubjectCode *string   `db:"subject_code"`
	ChapterID   *int64    `db:"chapter_id"`
	Title       *string   `db:"title"`
	StartedAt   time.Time `db:"started_at"`
}

// ============================================
// EFFECTIVENESS / PATTERNS / STATS
// ============================================

type SessionEffectiveness struct {
	ID              int64          `db:"id"`
	SessionID       int64          `db:"session_id"`
	TimeOfDay       TimeOfDayClass `db:"time_of_day"`
	DayOfWeek       time.Weekday   `db:"day_of_week"`
	FocusScore      float64        `db:"focus_score"`
	EnergyLevel     int            `db:"energy_level"`
	MaterialCovered *string        `db:"material_covered"`
}

type LearningPattern struct {
	SubjectCode        *string        `db:"subject_code"`
	AvgDuration        float64        `db:"avg_duration"`
	BestStudyTime      TimeOfDayClass `db:"best_study_time"`
	EffectivenessScore float64        `db:"effectiveness_score"`
	SamplesCount       int            `db:"samples_count"`
}

const MinSamplesForRecommendation = 5

// SessionCounters aggregates the lifetime counters the achievement
// evaluator reads.
type SessionCounters struct {
	TotalSessions     int   `db:"total_sessions"`
	TotalStudySeconds int64 `db:"total_study_seconds"`
	DeepWorkSessions  int   `db:"deep_work_sessions"`
}

type DailyStudyStats struct {
	Date            time.Time `db:"date"`
	StudySeconds    int64     `db:"study_seconds"`
	DeepWorkSeconds int64     `db:"deep_work_seconds"`
	SessionCount    int       `db:"session_count"`
	PointsEarned    int       `db:"points_earned"`
}

// ============================================
// WELLBEING / BREAKS
// ============================================

type WellbeingMetric struct {
	Date             time.Time `db:"date"`
	StudyHours       float64   `db:"study_hours"`
	BreakCount       int       `db:"break_count"`
	OverdueTasks     int       `db:"overdue_tasks"`
	DeepWorkSessions int       `db:"deep_work_sessions"`
	WellbeingScore   float64   `db:"wellbeing_score"`
	Recommendations  []string  `db:"-"`
}

type BreakSession struct {
	ID                    int64      `db:"id"`
	BreakType             BreakType  `db:"break_type"`
	StartedAt             time.Time  `db:"started_at"`
	EndedAt               *time.Time `db:"ended_at"`
	SuggestedDurationMins int        `db:"suggested_duration_mins"`
	ActualDurationMins    *int       `db:"actual_duration_mins"`
	WasCompleted          bool       `db:"was_completed"`
}

type PomodoroStatus struct {
	CurrentPhase    PomodoroPhase `db:"current_phase"`
	CyclesCompleted int           `db:"cycles_completed"`
	PhaseStartedAt  time.Time     `db:"phase_started_at"`
}

type UserStreak struct {
	CurrentStreak int        `db:"current_streak"`
	LongestStreak int        `db:"longest_streak"`
	TotalPoints   int        `db:"total_points"`
	LastActivity  *time.Time `db:"last_activity"`
}

// ApplyActivity applies the streak rule for one qualifying activity:
//
//	last_activity null or < today-1  -> current := 1
//	last_activity == today-1         -> current += 1, longest := max
//	last_activity < today            -> last_activity := today
//
// and always adds pointsDelta to total_points. longest >= current holds
// afterwards.
func (s *UserStreak) ApplyActivity(activityDate time.Time, pointsDelta int) {
	today := time.Date(activityDate.Year(), activityDate.Month(), activityDate.Day(), 0, 0, 0, 0, activityDate.Location())
	yesterday := today.AddDate(0, 0, -1)

	var last *time.Time
	if s.LastActivity != nil {
		d := time.Date(s.LastActivity.Year(), s.LastActivity.Month(), s.LastActivity.Day(), 0, 0, 0, 0, s.LastActivity.Location())
		last = &d
	}

	switch {
	case last == nil || last.Before(yesterday):
		s.CurrentStreak = 1
		s.LastActivity = &today
	case last.Equal(yesterday):
		s.CurrentStreak++
		s.LastActivity = &today
	case last.Before(today):
		s.LastActivity = &today
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.TotalPoints += pointsDelta
}

// ============================================
// NOTIFICATIONS
// ============================================

type Notification struct {
	ID           int64                `db:"id"`
	Type         NotificationType     `db:"type"`
	Priority     NotificationPriority `db:"priority"`
	Title        string               `db:"title"`
	Message      string               `db:"message"`
	ActionURL    *string              `db:"action_url"`
	ActionLabel  *string              `db:"action_label"`
	Data         *string              `db:"data"`
	CreatedAt    time.Time            `db:"created_at"`
	ScheduledFor time.Time            `db:"scheduled_for"`
	SentAt       *time.Time           `db:"sent_at"`
	ReadAt       *time.Time           `db:"read_at"`
	DismissedAt  *time.Time           `db:"dismissed_at"`
	ExpiresAt    *time.Time           `db:"expires_at"`
}

type NotificationPreference struct {
	Type            NotificationType `db:"type"`
	Enabled         bool             `db:"enabled"`
	QuietHoursStart *string          `db:"quiet_hours_start"`
	QuietHoursEnd   *string          `db:"quiet_hours_end"`
	FrequencyLimit  int              `db:"frequency_limit"`
	Channels        []string         `db:"-"`
}

// ============================================
// ACHIEVEMENTS
// ============================================

type AchievementDefinition struct {
	ID               int64               `db:"id"`
	Code             string              `db:"code"`
	Name             string              `db:"name"`
	Description      string              `db:"description"`
	Category         AchievementCategory `db:"category"`
	ThresholdValue   int                 `db:"threshold_value"`
	Points           int                 `db:"points"`
	Rarity           AchievementRarity   `db:"rarity"`
	PrerequisiteCode *string             `db:"prerequisite_code"`
}

type UserAchievement struct {
	AchievementCode string     `db:"achievement_code"`
	ProgressValue   int        `db:"progress_value"`
	IsComplete      bool       `db:"is_complete"`
	EarnedAt        *time.Time `db:"earned_at"`
	Notified        bool       `db:"notified"`
}

// ============================================
// GOALS (SPEC_FULL §3 supplement)
// ============================================

type GoalCategory struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Color     string `db:"color"`
	Icon      string `db:"icon"`
	SortOrder int    `db:"sort_order"`
}

type StudyGoal struct {
	ID           int64      `db:"id"`
	CategoryID   int64      `db:"category_id"`
	SubjectCode  *string    `db:"subject_code"`
	Title        string     `db:"title"`
	TargetValue  float64    `db:"target_value"`
	CurrentValue float64    `db:"current_value"`
	Unit         string     `db:"unit"`
	Deadline     *time.Time `db:"deadline"`
	Completed    bool       `db:"completed"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// ============================================
// GUIDELINE / MEMORY (policy-caller-only, stored verbatim)
// ============================================

type Guideline struct {
	ID        int64     `db:"id"`
	Rule      string    `db:"rule"`
	Priority  int       `db:"priority"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type MemoryFact struct {
	Category  string    `db:"category"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ============================================
// TIMELINE (ephemeral, never persisted)
// ============================================

type Block struct {
	Start       time.Time
	End         time.Time
	Activity    ActivityType
	EnergyLevel int
	TaskID      *int64
	SubjectCode *string
}

type Timeline struct {
	Date   time.Time
	Blocks []Block
}

type GapClassification string

const (
	GapMicro    GapClassification = "micro"
	GapStandard GapClassification = "standard"
	GapDeepWork GapClassification = "deep_work"
)

type Gap struct {
	Start          time.Time
	End            time.Time
	DurationMins   int
	Classification GapClassification
}

// ============================================
// PLACER INPUT/OUTPUT
// ============================================

type PendingItem struct {
	TaskID       int64
	Title        string
	SubjectCode  *string
	SubjectType  SubjectType
	Credits      int
	DurationMins int
	IsDeepWork   bool
	Deadline     *time.Time
	Reason       TaskPriorityReason
}

type Placement struct {
	TaskID int64
	Start  time.Time
	End    time.Time
}

type Recommendation struct {
	Kind      RecommendationKind
	Rationale string
}
