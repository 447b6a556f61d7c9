package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"github.com/alexindevs/roomey-api/internal/domain"
)

const notificationColumns = `id, job_id, user_id, title, description, channels, purpose, metadata, is_read, created_at, updated_at`

func scanNotification(s rowScanner) (*domain.Notification, error) {
	var (
		n        domain.Notification
		channels pq.StringArray
		purpose  string
		metadata []byte
	)
	if err := s.Scan(&n.ID, &n.JobID, &n.UserID, &n.Title, &n.Description, &channels, &purpose, &metadata, &n.IsRead, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Purpose = domain.ActionTag(purpose)
	n.Channels = make([]domain.Channel, len(channels))
	for i, c := range channels {
		n.Channels[i] = domain.Channel(c)
	}
	if len(metadata) > 0 {
		n.Metadata = json.RawMessage(metadata)
	}
	return &n, nil
}

// CreateNotification inserts the record or, when the job was already
// processed once, returns the existing record for that job.
func (r *Repository) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	channels := make(pq.StringArray, len(n.Channels))
	for i, c := range n.Channels {
		channels[i] = string(c)
	}

	var metadata interface{}
	if len(n.Metadata) > 0 {
		metadata = []byte(n.Metadata)
	}

	// DO UPDATE with a no-op assignment so RETURNING yields the existing row
	return scanNotification(r.DB.QueryRowContext(ctx, `
		INSERT INTO notifications (id, job_id, user_id, title, description, channels, purpose, metadata, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $9)
		ON CONFLICT (job_id) DO UPDATE SET job_id = EXCLUDED.job_id
		RETURNING `+notificationColumns,
		n.ID, n.JobID, n.UserID, n.Title, n.Description, channels, string(n.Purpose), metadata, n.CreatedAt,
	))
}

func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id
	`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	n, err := scanNotification(r.DB.QueryRowContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	return n, err
}

// MarkNotificationsRead only touches records owned by userID; ids belonging
// to other users are silently ignored.
func (r *Repository) MarkNotificationsRead(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, updated_at = now()
		WHERE id = ANY($1) AND user_id = $2
	`, pq.Array(ids), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
