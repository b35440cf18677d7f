package placer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/config"
	"github.com/yourusername/study-engine/internal/models"
)

type fakeStore struct {
	placed map[int64][2]time.Time
	nextID int64
}

func newFakeStore() *fakeStore { return &fakeStore{placed: map[int64][2]time.Time{}} }

func (f *fakeStore) PlaceTask(ctx context.Context, id int64, start, end time.Time) error {
	f.placed[id] = [2]time.Time{start, end}
	return nil
}

func (f *fakeStore) CreatePlannedBlock(ctx context.Context, item models.PendingItem, start, end time.Time) (int64, error) {
	f.nextID++
	f.placed[f.nextID] = [2]time.Time{start, end}
	return f.nextID, nil
}

func day(hm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-08-04 "+hm)
	return t
}

func TestSortPending_PriorityThenCreditsThenDeadline(t *testing.T) {
	items := []models.PendingItem{
		{TaskID: 1, Reason: models.ReasonRegularStudy, Credits: 3},
		{TaskID: 2, Reason: models.ReasonOverdue, Credits: 1},
		{TaskID: 3, Reason: models.ReasonOverdue, Credits: 4},
	}
	SortPending(items)
	require.Equal(t, int64(3), items[0].TaskID)
	require.Equal(t, int64(2), items[1].TaskID)
	require.Equal(t, int64(1), items[2].TaskID)
}

func TestPlaceOneDay_Deterministic(t *testing.T) {
	cfg := config.Default()
	gaps := []models.Gap{
		{Start: day("08:00"), End: day("10:00"), DurationMins: 120, Classification: models.GapDeepWork},
	}
	items := []models.PendingItem{
		{TaskID: 1, Reason: models.ReasonRegularStudy, DurationMins: 60},
	}

	s1 := newFakeStore()
	p1, fail1, err := PlaceOneDay(context.Background(), s1, day("00:00"), cfg, items, gaps)
	require.NoError(t, err)
	require.Empty(t, fail1)
	require.Len(t, p1, 1)

	s2 := newFakeStore()
	p2, _, err := PlaceOneDay(context.Background(), s2, day("00:00"), cfg, items, gaps)
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}

func TestPlaceOneDay_RejectsTooSmallGap(t *testing.T) {
	cfg := config.Default()
	gaps := []models.Gap{{Start: day("08:00"), End: day("08:20"), DurationMins: 20}}
	items := []models.PendingItem{{TaskID: 1, DurationMins: 60}}
	_, fail, err := PlaceOneDay(context.Background(), newFakeStore(), day("00:00"), cfg, items, gaps)
	require.NoError(t, err)
	require.Len(t, fail, 1)
}

func TestBackwardPlan_RampAndPlacements(t *testing.T) {
	cfg := config.Default()
	now := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)        // Monday
	deadline := time.Date(2026, 8, 7, 23, 59, 0, 0, time.UTC) // Friday
	item := models.PendingItem{TaskID: 42, Title: "exam prep", DurationMins: 60}

	gapsByDay := func(d time.Time) ([]models.Gap, error) {
		return []models.Gap{{Start: d.Add(9 * time.Hour), End: d.Add(21 * time.Hour), DurationMins: 12 * 60}}, nil
	}

	store := newFakeStore()
	plan, err := BackwardPlan(context.Background(), store, item, now, deadline, 10, cfg, gapsByDay)
	require.NoError(t, err)
	require.Nil(t, plan.Unschedulable)

	// Days span [now, deadline): Mon-Thu only, the Friday deadline day
	// is excluded.
	require.Len(t, plan.DayAllocations, 4)
	require.NotContains(t, plan.DayAllocations, deadline.Format("2006-01-02"))

	first := plan.DayAllocations[now.Format("2006-01-02")]
	last := plan.DayAllocations["2026-08-06"]
	require.Greater(t, last, first)

	// All 10 hours land as placements, every block within the 90-min
	// cap, each persisted as its own row.
	total := 0
	for _, p := range plan.Placements {
		mins := int(p.End.Sub(p.Start).Minutes())
		require.LessOrEqual(t, mins, cfg.Routine.MaxStudyBlockMins)
		require.Positive(t, mins)
		total += mins
	}
	require.Equal(t, 10*60, total)
	require.Len(t, store.placed, len(plan.Placements))
}

func TestBackwardPlan_ReportsShortfall(t *testing.T) {
	cfg := config.Default()
	now := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 8, 5, 23, 59, 0, 0, time.UTC)
	item := models.PendingItem{TaskID: 7, Title: "exam prep", DurationMins: 60}

	// One 30-minute gap per day cannot absorb 10 hours.
	gapsByDay := func(d time.Time) ([]models.Gap, error) {
		return []models.Gap{{Start: d.Add(9 * time.Hour), End: d.Add(9*time.Hour + 30*time.Minute), DurationMins: 30}}, nil
	}

	plan, err := BackwardPlan(context.Background(), newFakeStore(), item, now, deadline, 10, cfg, gapsByDay)
	require.NoError(t, err)
	require.NotNil(t, plan.Unschedulable)
	require.Equal(t, int64(7), plan.Unschedulable.TaskID)
}
