package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

type fakeStore struct {
	samples  []*models.SessionEffectiveness
	patterns map[string]*models.LearningPattern
	sessions map[int64]*models.StudySession
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patterns: map[string]*models.LearningPattern{},
		sessions: map[int64]*models.StudySession{},
	}
}

func key(subjectCode *string) string {
	if subjectCode == nil {
		return ""
	}
	return *subjectCode
}

func (f *fakeStore) EffectivenessBySubject(ctx context.Context, subjectCode *string) ([]*models.SessionEffectiveness, error) {
	return f.samples, nil
}

func (f *fakeStore) GetLearningPattern(ctx context.Context, subjectCode *string) (*models.LearningPattern, error) {
	if p, ok := f.patterns[key(subjectCode)]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) UpsertLearningPattern(ctx context.Context, p *models.LearningPattern) error {
	copied := *p
	f.patterns[key(p.SubjectCode)] = &copied
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, id int64) (*models.StudySession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

func addSession(f *fakeStore, id int64, durationMins int, tod models.TimeOfDayClass, focus float64) *models.SessionEffectiveness {
	seconds := int64(durationMins * 60)
	f.sessions[id] = &models.StudySession{ID: id, DurationSeconds: &seconds, StartedAt: time.Now()}
	e := &models.SessionEffectiveness{SessionID: id, TimeOfDay: tod, FocusScore: focus}
	f.samples = append(f.samples, e)
	return e
}

func TestIngest_RunningAverages(t *testing.T) {
	store := newFakeStore()
	a := NewAnalyzer(store)
	code := "MATH101"

	e1 := addSession(store, 1, 60, models.Morning, 0.8)
	require.NoError(t, a.Ingest(context.Background(), &code, e1))

	e2 := addSession(store, 2, 30, models.Morning, 0.4)
	require.NoError(t, a.Ingest(context.Background(), &code, e2))

	p := store.patterns[code]
	require.Equal(t, 2, p.SamplesCount)
	require.InDelta(t, 45.0, p.AvgDuration, 1e-9)
	require.InDelta(t, 0.6, p.EffectivenessScore, 1e-9)
}

func TestIngest_BestStudyTimeIsArgmax(t *testing.T) {
	store := newFakeStore()
	a := NewAnalyzer(store)
	code := "MATH101"

	for i, s := range []struct {
		tod   models.TimeOfDayClass
		focus float64
	}{
		{models.Morning, 0.9},
		{models.Morning, 0.8},
		{models.Evening, 0.5},
		{models.Evening, 0.4},
	} {
		e := addSession(store, int64(i+1), 60, s.tod, s.focus)
		require.NoError(t, a.Ingest(context.Background(), &code, e))
	}

	require.Equal(t, models.Morning, store.patterns[code].BestStudyTime)
}

func TestRecommend_InsufficientData(t *testing.T) {
	store := newFakeStore()
	a := NewAnalyzer(store)
	code := "MATH101"

	for i := 0; i < models.MinSamplesForRecommendation-1; i++ {
		e := addSession(store, int64(i+1), 50, models.Morning, 0.7)
		require.NoError(t, a.Ingest(context.Background(), &code, e))
	}

	recs, err := a.Recommend(context.Background(), &code)
	require.NoError(t, err)
	require.Nil(t, recs)

	tod, err := a.OptimalTime(context.Background(), &code)
	require.NoError(t, err)
	require.Empty(t, tod)
}

func TestRecommend_WithEnoughSamples(t *testing.T) {
	store := newFakeStore()
	a := NewAnalyzer(store)
	code := "MATH101"

	for i := 0; i < models.MinSamplesForRecommendation; i++ {
		e := addSession(store, int64(i+1), 70, models.Morning, 0.75)
		require.NoError(t, a.Ingest(context.Background(), &code, e))
	}

	recs, err := a.Recommend(context.Background(), &code)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	kinds := map[models.RecommendationKind]bool{}
	for _, r := range recs {
		kinds[r.Kind] = true
	}
	require.True(t, kinds[models.RecTiming])
	require.True(t, kinds[models.RecDuration])
}

func TestClampDuration(t *testing.T) {
	require.Equal(t, 25, ClampDuration(10))
	require.Equal(t, 60, ClampDuration(60.7))
	require.Equal(t, 120, ClampDuration(300))
}

func TestSuggestedDuration_Clamped(t *testing.T) {
	store := newFakeStore()
	a := NewAnalyzer(store)
	code := "MATH101"

	for i := 0; i < models.MinSamplesForRecommendation; i++ {
		e := addSession(store, int64(i+1), 200, models.Morning, 0.7)
		require.NoError(t, a.Ingest(context.Background(), &code, e))
	}

	mins, err := a.SuggestedDuration(context.Background(), &code)
	require.NoError(t, err)
	require.Equal(t, MaxSuggestedDurationMins, mins)
}
