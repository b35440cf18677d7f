package energy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

func TestCurve_NearestPrecedingEntry(t *testing.T) {
	c := Curve{8: 9, 15: 8}
	require.Equal(t, 9, c.Level(8))
	require.Equal(t, 9, c.Level(9))
	require.Equal(t, 9, c.Level(14))
	require.Equal(t, 8, c.Level(15))
	require.Equal(t, 8, c.Level(23))
}

func TestCurve_BeforeFirstEntryInheritsPreviousDayTail(t *testing.T) {
	c := Curve{8: 9, 15: 8}
	require.Equal(t, 8, c.Level(0))
}

func TestClassifyHour(t *testing.T) {
	require.Equal(t, models.LateNight, ClassifyHour(3))
	require.Equal(t, models.Morning, ClassifyHour(9))
	require.Equal(t, models.Afternoon, ClassifyHour(14))
	require.Equal(t, models.Evening, ClassifyHour(19))
	require.Equal(t, models.Night, ClassifyHour(22))
}

func TestMatchesPeak(t *testing.T) {
	require.True(t, MatchesPeak(models.SubjectConceptHeavy, models.Morning))
	require.False(t, MatchesPeak(models.SubjectConceptHeavy, models.Evening))
	require.True(t, MatchesPeak(models.SubjectPracticeHeavy, models.Evening))
}
