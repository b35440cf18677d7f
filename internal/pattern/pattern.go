// Package pattern aggregates session effectiveness into per-subject
// learning patterns (C8) and turns them into study recommendations.
// The running-average update is incremental; the best-study-time
// computation re-derives the argmax over time-of-day classes from the
// full sample set using gonum's stat helpers.
package pattern

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/study-engine/internal/models"
	"gonum.org/v1/gonum/stat"
)

const (
	MinSuggestedDurationMins = 25
	MaxSuggestedDurationMins = 120
)

// Store is the narrow repository surface the analyzer needs.
type Store interface {
	EffectivenessBySubject(ctx context.Context, subjectCode *string) ([]*models.SessionEffectiveness, error)
	GetLearningPattern(ctx context.Context, subjectCode *string) (*models.LearningPattern, error)
	UpsertLearningPattern(ctx context.Context, p *models.LearningPattern) error
	GetSession(ctx context.Context, id int64) (*models.StudySession, error)
}

type Analyzer struct {
	store Store
}

func NewAnalyzer(store Store) *Analyzer {
	return &Analyzer{store: store}
}

// Ingest folds one new effectiveness row into the subject's pattern:
//
//	avg_duration := (avg_duration*n + new.duration) / (n+1)
//	effectiveness := (effectiveness*n + new.focus) / (n+1)
//	samples_count := n + 1
//
// and recomputes best_study_time as the argmax over time-of-day of the
// mean focus score.
func (a *Analyzer) Ingest(ctx context.Context, subjectCode *string, e *models.SessionEffectiveness) error {
	p, err := a.store.GetLearningPattern(ctx, subjectCode)
	if err != nil {
		return fmt.Errorf("ingest effectiveness: %w", err)
	}
	if p == nil {
		p = &models.LearningPattern{SubjectCode: subjectCode}
	}

	durationMins := 0.0
	if session, err := a.store.GetSession(ctx, e.SessionID); err == nil && session.DurationSeconds != nil {
		durationMins = float64(*session.DurationSeconds) / 60.0
	}

	n := float64(p.SamplesCount)
	p.AvgDuration = (p.AvgDuration*n + durationMins) / (n + 1)
	p.EffectivenessScore = (p.EffectivenessScore*n + e.FocusScore) / (n + 1)
	p.SamplesCount++

	best, err := a.bestStudyTime(ctx, subjectCode)
	if err != nil {
		return err
	}
	p.BestStudyTime = best

	if err := a.store.UpsertLearningPattern(ctx, p); err != nil {
		return fmt.Errorf("ingest effectiveness: %w", err)
	}
	return nil
}

func (a *Analyzer) bestStudyTime(ctx context.Context, subjectCode *string) (models.TimeOfDayClass, error) {
	samples, err := a.store.EffectivenessBySubject(ctx, subjectCode)
	if err != nil {
		return "", fmt.Errorf("load effectiveness samples: %w", err)
	}

	byClass := map[models.TimeOfDayClass][]float64{}
	for _, s := range samples {
		byClass[s.TimeOfDay] = append(byClass[s.TimeOfDay], s.FocusScore)
	}

	// Deterministic iteration: sort the classes before scanning.
	classes := make([]models.TimeOfDayClass, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	best := models.Morning
	bestMean := -1.0
	for _, c := range classes {
		if m := stat.Mean(byClass[c], nil); m > bestMean {
			bestMean = m
			best = c
		}
	}
	return best, nil
}

// OptimalTime returns the subject's best time-of-day, or "" when fewer
// than five samples exist.
func (a *Analyzer) OptimalTime(ctx context.Context, subjectCode *string) (models.TimeOfDayClass, error) {
	p, err := a.store.GetLearningPattern(ctx, subjectCode)
	if err != nil {
		return "", fmt.Errorf("optimal time: %w", err)
	}
	if p == nil || p.SamplesCount < models.MinSamplesForRecommendation {
		return "", nil
	}
	return p.BestStudyTime, nil
}

// SuggestedDuration clamps the subject's running average to [25, 120]
// minutes.
func (a *Analyzer) SuggestedDuration(ctx context.Context, subjectCode *string) (int, error) {
	p, err := a.store.GetLearningPattern(ctx, subjectCode)
	if err != nil {
		return 0, fmt.Errorf("suggested duration: %w", err)
	}
	if p == nil || p.SamplesCount < models.MinSamplesForRecommendation {
		return 0, nil
	}
	return ClampDuration(p.AvgDuration), nil
}

func ClampDuration(avgMins float64) int {
	mins := int(avgMins)
	if mins < MinSuggestedDurationMins {
		return MinSuggestedDurationMins
	}
	if mins > MaxSuggestedDurationMins {
		return MaxSuggestedDurationMins
	}
	return mins
}

// Recommend produces timing/duration/break recommendations for a
// subject. Fewer than five samples means insufficient data and a nil
// slice.
func (a *Analyzer) Recommend(ctx context.Context, subjectCode *string) ([]models.Recommendation, error) {
	p, err := a.store.GetLearningPattern(ctx, subjectCode)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	if p == nil || p.SamplesCount < models.MinSamplesForRecommendation {
		return nil, nil
	}

	samples, err := a.store.EffectivenessBySubject(ctx, subjectCode)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	focus := make([]float64, 0, len(samples))
	for _, s := range samples {
		focus = append(focus, s.FocusScore)
	}

	var recs []models.Recommendation

	recs = append(recs, models.Recommendation{
		Kind:      models.RecTiming,
		Rationale: fmt.Sprintf("focus has been highest in the %s; schedule demanding work there", p.BestStudyTime),
	})

	suggested := ClampDuration(p.AvgDuration)
	recs = append(recs, models.Recommendation{
		Kind:      models.RecDuration,
		Rationale: fmt.Sprintf("sessions around %d minutes have worked best (running average %.0f min)", suggested, p.AvgDuration),
	})

	// High variance in focus suggests fatigue; recommend more breaks.
	if len(focus) >= 2 && stat.StdDev(focus, nil) > 0.2 {
		recs = append(recs, models.Recommendation{
			Kind:      models.RecBreak,
			Rationale: "focus varies a lot between sessions; take a short break before each one to even it out",
		})
	}

	return recs, nil
}

// RefreshAll recomputes the global pattern row's effectiveness score,
// sample count and best study time from all stored samples; the running
// avg_duration is kept. Run calls this on every tick, so drift from
// incremental updates is bounded to one interval.
func (a *Analyzer) RefreshAll(ctx context.Context) error {
	samples, err := a.store.EffectivenessBySubject(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh patterns: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	focus := make([]float64, 0, len(samples))
	for _, s := range samples {
		focus = append(focus, s.FocusScore)
	}

	best, err := a.bestStudyTime(ctx, nil)
	if err != nil {
		return err
	}

	p, err := a.store.GetLearningPattern(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh patterns: %w", err)
	}
	if p == nil {
		p = &models.LearningPattern{}
	}
	p.EffectivenessScore = stat.Mean(focus, nil)
	p.SamplesCount = len(samples)
	p.BestStudyTime = best

	if err := a.store.UpsertLearningPattern(ctx, p); err != nil {
		return fmt.Errorf("refresh patterns: %w", err)
	}
	return nil
}

// Run is the background refresh loop; cancellation-aware, log-and-
// continue is the caller's concern (the loop returns only on ctx done).
func (a *Analyzer) Run(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.RefreshAll(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
