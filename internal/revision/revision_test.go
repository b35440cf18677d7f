package revision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

type fakeStore struct {
	intervals []int
	completed []int64
	streak    models.UserStreak
}

func (f *fakeStore) CompleteChapterReading(ctx context.Context, chapterID int64, intervals []int, now time.Time) ([]*models.Revision, error) {
	f.intervals = intervals
	revisions := make([]*models.Revision, 0, len(intervals))
	for i, days := range intervals {
		revisions = append(revisions, &models.Revision{
			ChapterID:      chapterID,
			RevisionNumber: i + 1,
			DueDate:        now.AddDate(0, 0, days),
		})
	}
	return revisions, nil
}

func (f *fakeStore) CompleteRevision(ctx context.Context, revisionID int64, now time.Time) (int, error) {
	f.completed = append(f.completed, revisionID)
	return 15, nil
}

func (f *fakeStore) UpdateStreakOnActivity(ctx context.Context, activityDate time.Time, pointsDelta int) (*models.UserStreak, error) {
	f.streak.ApplyActivity(activityDate, pointsDelta)
	return &f.streak, nil
}

func TestCompleteChapterReading_DefaultIntervals(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)

	revisions, err := CompleteChapterReading(context.Background(), store, 1, nil, now)
	require.NoError(t, err)

	// Reading completion uses [+7,+14,+21], never the explicit-tool set.
	require.Equal(t, []int{7, 14, 21}, store.intervals)
	require.Len(t, revisions, 3)
	require.True(t, revisions[0].DueDate.Equal(now.AddDate(0, 0, 7)))
	require.True(t, revisions[2].DueDate.Equal(now.AddDate(0, 0, 21)))
}

func TestScheduleExplicit_DefaultsDifferFromReadingCompletion(t *testing.T) {
	require.Equal(t, []int{1, 3, 7, 14, 30}, ScheduleExplicit(nil))
	require.Equal(t, []int{2, 5}, ScheduleExplicit([]int{2, 5}))
	require.NotEqual(t, DefaultReadingCompletionIntervals, DefaultExplicitToolIntervals)
}

func TestPointsPerRevision(t *testing.T) {
	require.Equal(t, 15, PointsPerRevision(3))
	require.Equal(t, 30, PointsPerRevision(6))
}

func TestCompleteRevision_AwardsPointsAndStreak(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)

	points, streak, err := CompleteRevision(context.Background(), store, 42, now)
	require.NoError(t, err)
	require.Equal(t, 15, points)
	require.Equal(t, 1, streak.CurrentStreak)
	require.Equal(t, 15, streak.TotalPoints)
	require.Equal(t, []int64{42}, store.completed)
}
