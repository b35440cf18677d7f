package wellbeing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Indicators
		want float64
	}{
		{"balanced day", Indicators{StudyHours: 6, BreakCount: 2}, 0.8},
		{"no study", Indicators{}, 0.5},
		{"light study", Indicators{StudyHours: 2}, 0.6},
		{"overwork", Indicators{StudyHours: 12}, 0.1},
		{"breaks capped", Indicators{StudyHours: 5, BreakCount: 10}, 0.9},
		{"overdue drag", Indicators{StudyHours: 5, OverdueTasks: 4}, 0.5},
		{"floor at zero", Indicators{StudyHours: 20, OverdueTasks: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Score(tt.in), 1e-9)
		})
	}
}

func TestRecommendations(t *testing.T) {
	in := Indicators{StudyHours: 11, OverdueTasks: 2, SkippedBreaks: 1}
	recs := Recommendations(0.3, in)

	require.Contains(t, recs, "take a 30-minute break")
	require.Contains(t, recs, "consider stopping for today")
	require.Contains(t, recs, "focus on overdue tasks first")
	require.Contains(t, recs, "don't skip your next break")
}

func TestRecommendations_HealthyDayIsQuiet(t *testing.T) {
	recs := Recommendations(0.85, Indicators{StudyHours: 6, BreakCount: 3})
	require.Empty(t, recs)
}
