package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/study-engine/internal/models"
)

const notificationColumns = `id, type, priority, title, message, action_url, action_label, data,
       created_at, scheduled_for, sent_at, read_at, dismissed_at, expires_at`

func (r *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := r.psql.Insert("notifications").
		Columns("type", "priority", "title", "message", "action_url", "action_label", "data",
			"created_at", "scheduled_for", "sent_at", "expires_at").
		Values(n.Type, n.Priority, n.Title, n.Message, n.ActionURL, n.ActionLabel, n.Data,
			n.CreatedAt, n.ScheduledFor, n.SentAt, n.ExpiresAt).
		Suffix("RETURNING id")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (type: %s): %w", n.Type, err)
	}

	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&n.ID); err != nil {
		return fmt.Errorf("create notification (type: %s, title: %s): %w", n.Type, n.Title, err)
	}
	return nil
}

func (r *Postgres) MarkNotificationSent(ctx context.Context, id int64, sentAt time.Time) error {
	query := r.psql.Update("notifications").
		Set("sent_at", sentAt).
		Where("id = ? AND sent_at IS NULL", id)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", id, err)
	}

	if _, err = r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("mark notification sent (id: %d): %w", id, err)
	}
	return nil
}

// MarkNotificationRead is idempotent: a second call leaves the original
// read_at untouched.
func (r *Postgres) MarkNotificationRead(ctx context.Context, id int64, readAt time.Time) error {
	var exists bool
	if err := r.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check notification exists (id: %d): %w", id, err)
	}
	if !exists {
		return fmt.Errorf("notification (id: %d): %w", id, ErrNotFound)
	}

	query := r.psql.Update("notifications").
		Set("read_at", readAt).
		Where("id = ? AND read_at IS NULL", id)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (id: %d): %w", id, err)
	}

	if _, err = r.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("mark notification read (id: %d): %w", id, err)
	}
	return nil
}

func (r *Postgres) UnreadNotifications(ctx context.Context, typ *models.NotificationType) ([]*models.Notification, error) {
	query := r.psql.Select(notificationColumns).
		From("notifications").
		Where("read_at IS NULL AND dismissed_at IS NULL").
		OrderBy("created_at DESC")
	if typ != nil {
		query = query.Where("type = ?", *typ)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	var notifications []*models.Notification
	if err = r.SelectContext(ctx, &notifications, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("unread notifications: %w", err)
	}

	return notifications, nil
}

// CountNotificationsSince counts delivered notifications of a type in
// the rolling window, the frequency-limit input.
func (r *Postgres) CountNotificationsSince(ctx context.Context, typ models.NotificationType, since time.Time) (int, error) {
	query := r.psql.Select("COUNT(*)").
		From("notifications").
		Where("type = ? AND sent_at IS NOT NULL AND sent_at >= ?", typ, since)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build SQL query (type: %s): %w", typ, err)
	}

	var count int
	if err = r.QueryRowxContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications since (type: %s): %w", typ, err)
	}
	return count, nil
}

// DueScheduledNotifications returns persisted-but-unsent notifications
// whose scheduled_for has arrived (quiet-hours deferrals waiting to go
// out).
func (r *Postgres) DueScheduledNotifications(ctx context.Context, now time.Time) ([]*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE sent_at IS NULL AND scheduled_for <= $1
		  AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY scheduled_for ASC, id ASC
	`, notificationColumns)

	var notifications []*models.Notification
	if err := r.SelectContext(ctx, &notifications, query, now); err != nil {
		return nil, fmt.Errorf("due scheduled notifications: %w", err)
	}

	return notifications, nil
}

func (r *Postgres) GetNotificationPreference(ctx context.Context, typ models.NotificationType) (*models.NotificationPreference, error) {
	query := `
		SELECT type, enabled, quiet_hours_start, quiet_hours_end, frequency_limit, channels
		FROM notification_preferences WHERE type = $1
	`

	var p models.NotificationPreference
	var channels string
	err := r.QueryRowxContext(ctx, query, typ).Scan(
		&p.Type, &p.Enabled, &p.QuietHoursStart, &p.QuietHoursEnd, &p.FrequencyLimit, &channels)
	if errors.Is(err, sql.ErrNoRows) {
		// Absent preference means no gating.
		return &models.NotificationPreference{Type: typ, Enabled: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification preference (type: %s): %w", typ, err)
	}
	if channels != "" {
		p.Channels = strings.Split(channels, ",")
	}

	return &p, nil
}

func (r *Postgres) UpsertNotificationPreference(ctx context.Context, p *models.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (type, enabled, quiet_hours_start, quiet_hours_end, frequency_limit, channels)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (type) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			frequency_limit = EXCLUDED.frequency_limit,
			channels = EXCLUDED.channels
	`

	channels := strings.Join(p.Channels, ",")
	if _, err := r.ExecContext(ctx, query, p.Type, p.Enabled, p.QuietHoursStart, p.QuietHoursEnd, p.FrequencyLimit, channels); err != nil {
		return fmt.Errorf("upsert notification preference (type: %s): %w", p.Type, err)
	}
	return nil
}
