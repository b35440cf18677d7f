package gap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

func day(hm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-08-04 "+hm)
	return t
}

func TestAnalyze_BracketsAndClassifies(t *testing.T) {
	wake := day("06:00")
	sleep := day("23:00")

	blocks := []ImmutableBlock{
		{Start: day("09:00"), End: day("10:00")}, // university
		{Start: day("12:00"), End: day("12:30")}, // lunch
	}

	gaps, err := Analyze(wake, sleep, blocks)
	require.NoError(t, err)
	require.Len(t, gaps, 3)

	require.Equal(t, wake, gaps[0].Start)
	require.Equal(t, day("09:00"), gaps[0].End)
	require.Equal(t, 180, gaps[0].DurationMins)
	require.Equal(t, models.GapDeepWork, gaps[0].Classification)

	require.Equal(t, day("10:00"), gaps[1].Start)
	require.Equal(t, day("12:00"), gaps[1].End)

	require.Equal(t, day("12:30"), gaps[2].Start)
	require.Equal(t, sleep, gaps[2].End)
}

func TestAnalyze_RejectsOverlap(t *testing.T) {
	wake, sleep := day("06:00"), day("23:00")
	blocks := []ImmutableBlock{
		{Start: day("09:00"), End: day("10:00")},
		{Start: day("09:30"), End: day("11:00")},
	}
	_, err := Analyze(wake, sleep, blocks)
	require.Error(t, err)
}

func TestAnalyze_NoGapsWhenFullyPacked(t *testing.T) {
	wake, sleep := day("06:00"), day("08:00")
	blocks := []ImmutableBlock{{Start: wake, End: sleep}}
	gaps, err := Analyze(wake, sleep, blocks)
	require.NoError(t, err)
	require.Empty(t, gaps)
}

func TestClassify_Boundaries(t *testing.T) {
	require.Equal(t, models.GapMicro, classify(30))
	require.Equal(t, models.GapStandard, classify(31))
	require.Equal(t, models.GapStandard, classify(89))
	require.Equal(t, models.GapDeepWork, classify(90))
}
