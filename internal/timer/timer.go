// Package timer implements the singleton study-session timer (C7). The
// active timer is a single register cell in the Store; this package
// serializes start/stop within the process with a mutex, and the
// Store's own check rejects a double start.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

// Store is the narrow repository surface the timer needs.
type Store interface {
	GetActiveTimer(ctx context.Context) (*models.ActiveTimer, error)
	StartTimer(ctx context.Context, subjectCode *string, chapterID *int64, title *string, now time.Time) (*models.StudySession, error)
	StopActiveTimer(ctx context.Context, now time.Time) (*models.StudySession, error)
}

type Timer struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

func New(store Store) *Timer {
	return &Timer{store: store, now: time.Now}
}

// NewWithClock injects a clock for tests.
func NewWithClock(store Store, now func() time.Time) *Timer {
	return &Timer{store: store, now: now}
}

func (t *Timer) Start(ctx context.Context, subjectCode *string, chapterID *int64, title *string) (*models.StudySession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.store.StartTimer(ctx, subjectCode, chapterID, title, t.now())
	if err != nil {
		return nil, fmt.Errorf("start timer: %w", err)
	}
	return session, nil
}

// Stop finalizes the active session via the Store's atomic stop
// operation (session row, daily stats, streak, effectiveness — all or
// nothing).
func (t *Timer) Stop(ctx context.Context) (*models.StudySession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.store.StopActiveTimer(ctx, t.now())
	if err != nil {
		return nil, fmt.Errorf("stop timer: %w", err)
	}
	return session, nil
}

// Status reports the elapsed seconds of the active session, derived
// from the clock rather than stored.
func (t *Timer) Status(ctx context.Context) (*models.TimerStatus, error) {
	active, err := t.store.GetActiveTimer(ctx)
	if err != nil {
		return nil, fmt.Errorf("timer status: %w", err)
	}
	if active == nil {
		return &models.TimerStatus{Active: false}, nil
	}

	elapsed := int64(t.now().Sub(active.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	return &models.TimerStatus{
		Active:         true,
		SessionID:      active.SessionID,
		SubjectCode:    active.SubjectCode,
		ElapsedSeconds: elapsed,
	}, nil
}
