package timer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

var errConflict = errors.New("conflict")

type fakeStore struct {
	active   *models.ActiveTimer
	sessions map[int64]*models.StudySession
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[int64]*models.StudySession{}}
}

func (f *fakeStore) GetActiveTimer(ctx context.Context) (*models.ActiveTimer, error) {
	return f.active, nil
}

func (f *fakeStore) StartTimer(ctx context.Context, subjectCode *string, chapterID *int64, title *string, now time.Time) (*models.StudySession, error) {
	if f.active != nil {
		return nil, fmt.Errorf("timer already running: %w", errConflict)
	}
	f.nextID++
	s := &models.StudySession{ID: f.nextID, SubjectCode: subjectCode, ChapterID: chapterID, Title: title, StartedAt: now}
	f.sessions[s.ID] = s
	f.active = &models.ActiveTimer{SessionID: s.ID, SubjectCode: subjectCode, StartedAt: now}
	return s, nil
}

func (f *fakeStore) StopActiveTimer(ctx context.Context, now time.Time) (*models.StudySession, error) {
	if f.active == nil {
		return nil, errors.New("no active timer")
	}
	s := f.sessions[f.active.SessionID]
	duration := int64(now.Sub(s.StartedAt).Seconds())
	s.StoppedAt = &now
	s.DurationSeconds = &duration
	s.IsDeepWork = duration >= models.DeepWorkThresholdSeconds
	s.PointsEarned = models.SessionPoints(duration)
	f.active = nil
	return s, nil
}

func TestStart_SecondStartConflicts(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	tm := NewWithClock(store, func() time.Time { return now })

	code := "MATH101"
	_, err := tm.Start(context.Background(), &code, nil, nil)
	require.NoError(t, err)

	_, err = tm.Start(context.Background(), &code, nil, nil)
	require.ErrorIs(t, err, errConflict)
	require.Len(t, store.sessions, 1)
}

func TestStop_DeepWorkExactThreshold(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	clock := start
	tm := NewWithClock(store, func() time.Time { return clock })

	code := "MATH101"
	_, err := tm.Start(context.Background(), &code, nil, nil)
	require.NoError(t, err)

	clock = start.Add(5400 * time.Second)
	session, err := tm.Stop(context.Background())
	require.NoError(t, err)

	require.True(t, session.IsDeepWork)
	require.Equal(t, 9, session.PointsEarned)
	require.EqualValues(t, 5400, *session.DurationSeconds)
}

func TestStop_PointsCappedAtFifty(t *testing.T) {
	require.Equal(t, 50, models.SessionPoints(600*60))
	require.Equal(t, 0, models.SessionPoints(599))
	require.Equal(t, 1, models.SessionPoints(600))
}

func TestStatus_ElapsedDerivedFromClock(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	clock := start
	tm := NewWithClock(store, func() time.Time { return clock })

	status, err := tm.Status(context.Background())
	require.NoError(t, err)
	require.False(t, status.Active)

	_, err = tm.Start(context.Background(), nil, nil, nil)
	require.NoError(t, err)

	clock = start.Add(90 * time.Second)
	status, err = tm.Status(context.Background())
	require.NoError(t, err)
	require.True(t, status.Active)
	require.EqualValues(t, 90, status.ElapsedSeconds)
}
