package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/models"
	"github.com/yourusername/study-engine/pkg/utils"
)

func testDate() time.Time {
	t, _ := time.Parse("2006-01-02", "2026-08-04")
	return t
}

func TestBuild_ContiguousPartition(t *testing.T) {
	cfg := config.Default()

	tl, err := Build(testDate(), cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, tl.Blocks)

	day := utils.StartOfDay(testDate())
	wake, err := utils.AtClock(day, cfg.Routine.SleepEnd)
	require.NoError(t, err)
	sleep, err := utils.AtClock(day, cfg.Routine.SleepStart)
	require.NoError(t, err)

	// Sum of block durations inside [wake, sleep] equals the window.
	var total time.Duration
	cursor := wake
	for _, b := range tl.Blocks {
		if b.End.Before(wake) || b.End.Equal(wake) || b.Start.After(sleep) {
			continue
		}
		start, end := b.Start, b.End
		if start.Before(wake) {
			start = wake
		}
		if end.After(sleep) {
			end = sleep
		}
		require.True(t, start.Equal(cursor), "gap or overlap at %v (expected %v)", start, cursor)
		total += end.Sub(start)
		cursor = end
	}
	require.Equal(t, sleep.Sub(wake), total)
}

func TestBuild_PlacedTaskBecomesBlock(t *testing.T) {
	cfg := config.Default()
	day := utils.StartOfDay(testDate())

	start := day.Add(10 * time.Hour)
	end := start.Add(60 * time.Minute)
	code := "MATH101"
	task := &models.Task{
		ID:             1,
		Title:          "Integrals",
		SubjectCode:    &code,
		DurationMins:   60,
		ScheduledStart: &start,
		ScheduledEnd:   &end,
		TaskType:       models.TaskTypeStudy,
		Status:         models.TaskPending,
	}

	tl, err := Build(day, cfg, []*models.Task{task})
	require.NoError(t, err)

	var found *models.Block
	for i := range tl.Blocks {
		if tl.Blocks[i].TaskID != nil && *tl.Blocks[i].TaskID == 1 {
			found = &tl.Blocks[i]
		}
	}
	require.NotNil(t, found)
	require.Equal(t, models.ActivityStudy, found.Activity)
	require.Equal(t, start, found.Start)
	require.Equal(t, end, found.End)
	require.Positive(t, found.EnergyLevel)
}

func TestBuild_TimetableClassIsUniversity(t *testing.T) {
	cfg := config.Default()
	day := utils.StartOfDay(testDate()) // a Tuesday

	cfg.Timetable = config.Timetable{
		day.Weekday(): {{Start: "09:00", End: "10:30", SubjectCode: "PHYS201", Type: "lecture", Room: "A1"}},
	}

	tl, err := Build(day, cfg, nil)
	require.NoError(t, err)

	var found bool
	for _, b := range tl.Blocks {
		if b.Activity == models.ActivityUniversity {
			found = true
			require.Equal(t, 90, utils.MinutesBetween(b.Start, b.End))
		}
	}
	require.True(t, found)
}

func TestBuild_DeepWorkTaskLabel(t *testing.T) {
	cfg := config.Default()
	day := utils.StartOfDay(testDate())

	start := day.Add(15 * time.Hour)
	end := start.Add(100 * time.Minute)
	task := &models.Task{
		ID: 2, Title: "Thesis draft", DurationMins: 100, IsDeepWork: true,
		ScheduledStart: &start, ScheduledEnd: &end,
		TaskType: models.TaskTypeStudy, Status: models.TaskPending,
	}

	tl, err := Build(day, cfg, []*models.Task{task})
	require.NoError(t, err)

	var activities []models.ActivityType
	for _, b := range tl.Blocks {
		activities = append(activities, b.Activity)
	}
	require.Contains(t, activities, models.ActivityDeepWork)
}
