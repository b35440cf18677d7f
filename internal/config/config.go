// Package config holds the typed configuration surface spec.md §6
// enumerates (DailyRoutineConfig, EnergyCurve, KUTimetable,
// NotificationPreference defaults), read once at startup the way the
// teacher reads Postgres/Telegram env vars in cmd/bot/main.go — no
// global config singleton, values threaded explicitly.
package config

import (
	"time"

	"github.com/yourusername/study-engine/internal/energy"
	"github.com/yourusername/study-engine/internal/models"
)

// DailyRoutineConfig per spec.md §6.
type DailyRoutineConfig struct {
	SleepStart          string // "HH:MM", wall clock
	SleepEnd            string
	WakeRoutineMins     int
	BreakfastTime       string
	BreakfastMins       int
	LunchTime           string
	LunchMins           int
	DinnerTime          string
	DinnerMins          int
	MaxStudyBlockMins   int
	MinBreakAfterStudy  int
	DeepWorkMinDuration int
	Timezone            string
}

// DefaultDailyRoutineConfig resolves the Open Question recorded in
// SPEC_FULL.md §4: the Python backend's 06:00/23:00 day window, not
// the inconsistent C engine's 04:30/22:30.
func DefaultDailyRoutineConfig() DailyRoutineConfig {
	return DailyRoutineConfig{
		SleepStart:          "23:00",
		SleepEnd:            "06:00",
		WakeRoutineMins:     30,
		BreakfastTime:       "07:00",
		BreakfastMins:       20,
		LunchTime:           "13:00",
		LunchMins:           30,
		DinnerTime:          "19:00",
		DinnerMins:          30,
		MaxStudyBlockMins:   90,
		MinBreakAfterStudy:  15,
		DeepWorkMinDuration: 90,
		Timezone:            "UTC",
	}
}

// ClassEntry is one KUTimetable row.
type ClassEntry struct {
	Start       string // "HH:MM"
	End         string
	SubjectCode string
	Type        string // lecture | lab | tutorial
	Room        string
}

// Timetable maps weekday -> ordered classes, per spec.md §6 KUTimetable.
type Timetable map[time.Weekday][]ClassEntry

// Config bundles everything the scheduling engine needs that is not
// Store-resident.
type Config struct {
	Routine   DailyRoutineConfig
	Energy    energy.Curve
	Timetable Timetable
}

func Default() Config {
	return Config{
		Routine:   DefaultDailyRoutineConfig(),
		Energy:    energy.DefaultCurve(),
		Timetable: Timetable{},
	}
}

// DefaultNotificationPreferences seeds one row per NotificationType,
// matching the "v2" unified shape spec.md §9 calls for (it supersedes
// the source's two parallel notification tables).
func DefaultNotificationPreferences() []models.NotificationPreference {
	quietStart, quietEnd := "22:00", "07:00"
	types := []models.NotificationType{
		models.NotifyReminder, models.NotifyAchievement, models.NotifySuggestion,
		models.NotifyWarning, models.NotifyDeadline, models.NotifyBreak, models.NotifyMotivation,
	}
	prefs := make([]models.NotificationPreference, 0, len(types))
	for _, t := range types {
		prefs = append(prefs, models.NotificationPreference{
			Type:            t,
			Enabled:         true,
			QuietHoursStart: &quietStart,
			QuietHoursEnd:   &quietEnd,
			FrequencyLimit:  4,
		})
	}
	return prefs
}
