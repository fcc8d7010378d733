package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertNotification records a daemon-emitted event. Duplicate stable ids are
// ignored so re-deriving the same event on a later tick stays silent. The
// returned bool reports whether the row was actually new.
func (s *Store) InsertNotification(ctx context.Context, n NotificationRecord) (bool, error) {
	const query = `
		INSERT INTO notifications (id, pr_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	res, err := s.db.Writer.ExecContext(ctx, query,
		n.ID, n.PRID, n.Kind, n.Message, formatTime(n.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return affected > 0, nil
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, limit int) ([]NotificationRecord, error) {
	const query = `
		SELECT id, pr_id, kind, message, created_at
		FROM notifications ORDER BY created_at DESC LIMIT ?
	`
	rows, err := s.db.Reader.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var n NotificationRecord
		var createdAt string
		if err := rows.Scan(&n.ID, &n.PRID, &n.Kind, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		records = append(records, n)
	}
	return records, rows.Err()
}

// SaveDailyContext stores the fetched markdown summary for a calendar day.
// Refetching the same day overwrites.
func (s *Store) SaveDailyContext(ctx context.Context, dc DailyContext) error {
	const query = `
		INSERT INTO daily_contexts (day, content, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			content = excluded.content,
			fetched_at = excluded.fetched_at
	`
	_, err := s.db.Writer.ExecContext(ctx, query, dc.Day, dc.Content, formatTime(dc.FetchedAt))
	if err != nil {
		return fmt.Errorf("save daily context %s: %w", dc.Day, err)
	}
	return nil
}

// LatestDailyContext returns the most recent stored daily context, or nil
// when none exists.
func (s *Store) LatestDailyContext(ctx context.Context) (*DailyContext, error) {
	const query = `
		SELECT day, content, fetched_at
		FROM daily_contexts ORDER BY day DESC LIMIT 1
	`
	var dc DailyContext
	var fetchedAt string
	err := s.db.Reader.QueryRowContext(ctx, query).Scan(&dc.Day, &dc.Content, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest daily context: %w", err)
	}
	dc.FetchedAt = parseTime(fetchedAt)
	return &dc, nil
}
