package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/study-engine/internal/models"
)

type fakeStore struct {
	prefs         map[models.NotificationType]*models.NotificationPreference
	notifications []*models.Notification
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{prefs: map[models.NotificationType]*models.NotificationPreference{}}
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	f.nextID++
	n.ID = f.nextID
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) MarkNotificationSent(ctx context.Context, id int64, sentAt time.Time) error {
	for _, n := range f.notifications {
		if n.ID == id {
			n.SentAt = &sentAt
		}
	}
	return nil
}

func (f *fakeStore) CountNotificationsSince(ctx context.Context, typ models.NotificationType, since time.Time) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.Type == typ && n.SentAt != nil && !n.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetNotificationPreference(ctx context.Context, typ models.NotificationType) (*models.NotificationPreference, error) {
	if p, ok := f.prefs[typ]; ok {
		return p, nil
	}
	return &models.NotificationPreference{Type: typ, Enabled: true}, nil
}

func (f *fakeStore) DueScheduledNotifications(ctx context.Context, now time.Time) ([]*models.Notification, error) {
	var due []*models.Notification
	for _, n := range f.notifications {
		if n.SentAt == nil && !n.ScheduledFor.After(now) {
			due = append(due, n)
		}
	}
	return due, nil
}

func (f *fakeStore) TasksByDateRange(ctx context.Context, from, to time.Time, statuses []models.TaskStatus) ([]*models.Task, error) {
	return nil, nil
}
func (f *fakeStore) GetActiveTimer(ctx context.Context) (*models.ActiveTimer, error) { return nil, nil }
func (f *fakeStore) RevisionsDueToday(ctx context.Context, today time.Time) ([]*models.RevisionQueueItem, error) {
	return nil, nil
}
func (f *fakeStore) LabReportsDueWithin(ctx context.Context, now time.Time, days int) ([]*models.LabReport, error) {
	return nil, nil
}
func (f *fakeStore) DailyStats(ctx context.Context, date time.Time) (*models.DailyStudyStats, error) {
	return &models.DailyStudyStats{}, nil
}
func (f *fakeStore) UnnotifiedAchievements(ctx context.Context) ([]*models.UserAchievement, error) {
	return nil, nil
}
func (f *fakeStore) MarkAchievementNotified(ctx context.Context, code string) error { return nil }

func strPtr(s string) *string { return &s }

func TestDeliver_QuietHoursDefersToNextMorning(t *testing.T) {
	store := newFakeStore()
	store.prefs[models.NotifyReminder] = &models.NotificationPreference{
		Type: models.NotifyReminder, Enabled: true,
		QuietHoursStart: strPtr("22:00"), QuietHoursEnd: strPtr("07:00"),
		FrequencyLimit: 10,
	}

	now := time.Date(2026, 8, 4, 22, 30, 0, 0, time.UTC)
	engine := NewEngineWithClock(store, nil, func() time.Time { return now })

	n := &models.Notification{Type: models.NotifyReminder, Priority: models.PriorityNormal, Title: "t", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), n))

	require.Nil(t, n.SentAt)
	expected := time.Date(2026, 8, 5, 7, 0, 0, 0, time.UTC)
	require.Equal(t, expected, n.ScheduledFor)
	require.Len(t, store.notifications, 1)
}

func TestDeliver_QuietHoursEarlyMorningDefersSameDay(t *testing.T) {
	store := newFakeStore()
	store.prefs[models.NotifyReminder] = &models.NotificationPreference{
		Type: models.NotifyReminder, Enabled: true,
		QuietHoursStart: strPtr("22:00"), QuietHoursEnd: strPtr("07:00"),
	}

	now := time.Date(2026, 8, 4, 5, 15, 0, 0, time.UTC)
	engine := NewEngineWithClock(store, nil, func() time.Time { return now })

	n := &models.Notification{Type: models.NotifyReminder, Title: "t", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), n))

	require.Nil(t, n.SentAt)
	require.Equal(t, time.Date(2026, 8, 4, 7, 0, 0, 0, time.UTC), n.ScheduledFor)
}

func TestDeliver_DisabledTypeIsDropped(t *testing.T) {
	store := newFakeStore()
	store.prefs[models.NotifyMotivation] = &models.NotificationPreference{
		Type: models.NotifyMotivation, Enabled: false,
	}

	engine := NewEngine(store, nil)
	n := &models.Notification{Type: models.NotifyMotivation, Title: "t", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), n))
	require.Empty(t, store.notifications)
}

func TestDeliver_FrequencyLimitDrops(t *testing.T) {
	store := newFakeStore()
	store.prefs[models.NotifySuggestion] = &models.NotificationPreference{
		Type: models.NotifySuggestion, Enabled: true, FrequencyLimit: 2,
	}

	now := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)
	engine := NewEngineWithClock(store, nil, func() time.Time { return now })

	for i := 0; i < 5; i++ {
		n := &models.Notification{Type: models.NotifySuggestion, Title: "t", Message: "m"}
		require.NoError(t, engine.Deliver(context.Background(), n))
	}

	sent := 0
	for _, n := range store.notifications {
		if n.SentAt != nil {
			sent++
		}
	}
	require.Equal(t, 2, sent)
}

func TestSubscribe_OnlySeesLaterNotifications(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)
	engine := NewEngineWithClock(store, nil, func() time.Time { return now })

	early := &models.Notification{Type: models.NotifyReminder, Title: "early", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), early))

	sub := engine.Subscribe()
	defer engine.Unsubscribe(sub.ID)

	late := &models.Notification{Type: models.NotifyReminder, Title: "late", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), late))

	received := <-sub.C
	require.Equal(t, "late", received.Title)
	require.Empty(t, sub.C)
}

func TestScan_FlushesDeferredWhenQuietHoursEnd(t *testing.T) {
	store := newFakeStore()
	store.prefs[models.NotifyReminder] = &models.NotificationPreference{
		Type: models.NotifyReminder, Enabled: true,
		QuietHoursStart: strPtr("22:00"), QuietHoursEnd: strPtr("07:00"),
	}

	clock := time.Date(2026, 8, 4, 22, 30, 0, 0, time.UTC)
	engine := NewEngineWithClock(store, nil, func() time.Time { return clock })

	n := &models.Notification{Type: models.NotifyReminder, Title: "deferred", Message: "m"}
	require.NoError(t, engine.Deliver(context.Background(), n))
	require.Nil(t, n.SentAt)

	sub := engine.Subscribe()
	defer engine.Unsubscribe(sub.ID)

	// Still inside quiet hours: nothing flushes.
	clock = time.Date(2026, 8, 5, 6, 0, 0, 0, time.UTC)
	require.NoError(t, engine.Scan(context.Background()))
	require.Empty(t, sub.C)

	clock = time.Date(2026, 8, 5, 7, 1, 0, 0, time.UTC)
	require.NoError(t, engine.Scan(context.Background()))

	received := <-sub.C
	require.Equal(t, "deferred", received.Title)
	require.NotNil(t, received.SentAt)
	require.Equal(t, 7, received.SentAt.Hour())
}
