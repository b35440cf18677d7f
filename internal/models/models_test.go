package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestApplyActivity_FirstActivityStartsStreak(t *testing.T) {
	s := &UserStreak{}
	s.ApplyActivity(day("2026-08-04"), 10)

	require.Equal(t, 1, s.CurrentStreak)
	require.Equal(t, 1, s.LongestStreak)
	require.Equal(t, 10, s.TotalPoints)
	require.True(t, s.LastActivity.Equal(day("2026-08-04")))
}

func TestApplyActivity_ConsecutiveDayExtends(t *testing.T) {
	last := day("2026-08-03")
	s := &UserStreak{CurrentStreak: 4, LongestStreak: 6, LastActivity: &last}
	s.ApplyActivity(day("2026-08-04"), 5)

	require.Equal(t, 5, s.CurrentStreak)
	require.Equal(t, 6, s.LongestStreak)
}

func TestApplyActivity_GapResetsToOne(t *testing.T) {
	last := day("2026-08-01")
	s := &UserStreak{CurrentStreak: 9, LongestStreak: 9, LastActivity: &last}
	s.ApplyActivity(day("2026-08-04"), 0)

	require.Equal(t, 1, s.CurrentStreak)
	require.Equal(t, 9, s.LongestStreak)
}

func TestApplyActivity_SameDayIsIdempotentOnStreak(t *testing.T) {
	last := day("2026-08-04")
	s := &UserStreak{CurrentStreak: 3, LongestStreak: 3, LastActivity: &last}
	s.ApplyActivity(day("2026-08-04").Add(5*time.Hour), 7)

	require.Equal(t, 3, s.CurrentStreak)
	require.Equal(t, 7, s.TotalPoints)
}

func TestApplyActivity_LongestNeverBelowCurrent(t *testing.T) {
	s := &UserStreak{}
	d := day("2026-08-01")
	for i := 0; i < 10; i++ {
		s.ApplyActivity(d.AddDate(0, 0, i), 1)
		require.GreaterOrEqual(t, s.LongestStreak, s.CurrentStreak)
	}
	require.Equal(t, 10, s.CurrentStreak)
	require.Equal(t, 10, s.LongestStreak)
}

func TestSessionPoints(t *testing.T) {
	require.Equal(t, 9, SessionPoints(5400))
	require.Equal(t, 50, SessionPoints(600*600))
	require.Equal(t, 0, SessionPoints(599))
}

func TestLabReportUrgency(t *testing.T) {
	now := day("2026-08-04")
	tests := []struct {
		deadline time.Time
		want     LabUrgency
	}{
		{now.Add(12 * time.Hour), LabUrgent},
		{now.AddDate(0, 0, 2), LabSoon},
		{now.AddDate(0, 0, 7), LabNormal},
	}
	for _, tt := range tests {
		l := LabReport{Deadline: tt.deadline}
		require.Equal(t, tt.want, l.Urgency(now))
	}
}
