// Package revision implements the spaced-repetition scheduler (C6),
// grounded on the teacher's internal/service/srs/algorithm.go interval
// table approach, generalized from a fixed vocabulary-review schedule
// to spec.md's two independently-tracked default interval sets (§9:
// "do not unify silently").
package revision

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// DefaultReadingCompletionIntervals is applied when a ChapterProgress
// transitions reading -> completed, per spec.md §3/§4.6.
var DefaultReadingCompletionIntervals = []int{7, 14, 21}

// DefaultExplicitToolIntervals is applied when the caller invokes
// revisions.schedule(chapter_id, intervals) without its own sequence.
var DefaultExplicitToolIntervals = []int{1, 3, 7, 14, 30}

// PointsPerRevision implements the §9-fixed formula: 5 x credits,
// floored (credits is already an int, so this is exact).
func PointsPerRevision(credits int) int {
	return 5 * credits
}

// Store is the narrow repository surface the revision scheduler needs.
type Store interface {
	CompleteChapterReading(ctx context.Context, chapterID int64, intervals []int, now time.Time) ([]*models.Revision, error)
	CompleteRevision(ctx context.Context, revisionID int64, now time.Time) (int, error)
	UpdateStreakOnActivity(ctx context.Context, activityDate time.Time, pointsDelta int) (*models.UserStreak, error)
}

// CompleteChapterReading creates the three (or caller-supplied) default
// Revision rows atomically and flips assignment_status per §4.1's
// "complete chapter reading" Store operation. No duration/streak guard
// here — that only applies to session stop (§9).
func CompleteChapterReading(ctx context.Context, store Store, chapterID int64, intervals []int, now time.Time) ([]*models.Revision, error) {
	if intervals == nil {
		intervals = DefaultReadingCompletionIntervals
	}
	revisions, err := store.CompleteChapterReading(ctx, chapterID, intervals, now)
	if err != nil {
		return nil, fmt.Errorf("complete chapter reading (chapter_id: %d): %w", chapterID, err)
	}
	return revisions, nil
}

// ScheduleExplicit implements revisions.schedule(chapter_id, intervals)
// — the explicit-tool path with its own default set when the caller
// passes none.
func ScheduleExplicit(intervals []int) []int {
	if len(intervals) == 0 {
		return DefaultExplicitToolIntervals
	}
	return intervals
}

// CompleteRevision implements §4.6: award 5 x credits points, then
// apply the streak rule (§4.11) — no duration guard, unlike session
// stop.
func CompleteRevision(ctx context.Context, store Store, revisionID int64, now time.Time) (points int, streak *models.UserStreak, err error) {
	points, err = store.CompleteRevision(ctx, revisionID, now)
	if err != nil {
		return 0, nil, fmt.Errorf("complete revision (id: %d): %w", revisionID, err)
	}
	streak, err = store.UpdateStreakOnActivity(ctx, now, points)
	if err != nil {
		return points, nil, fmt.Errorf("update streak after revision (id: %d): %w", revisionID, err)
	}
	return points, streak, nil
}
