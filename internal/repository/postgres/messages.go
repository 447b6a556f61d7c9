package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
)

func (r *Repository) InsertMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_read, sent_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, m.ID, m.ConversationID, m.SenderID, m.Content, m.SentAt)
	return err
}

// ListMessages returns messages newest first, optionally strictly before a
// timestamp for backwards pagination.
func (r *Repository) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*domain.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before != nil {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, conversation_id, sender_id, content, is_read, sent_at
			FROM messages
			WHERE conversation_id = $1 AND sent_at < $2
			ORDER BY sent_at DESC, id DESC
			LIMIT $3
		`, conversationID, *before, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, conversation_id, sender_id, content, is_read, sent_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY sent_at DESC, id DESC
			LIMIT $2
		`, conversationID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]*domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsRead, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkMessagesRead flips unread messages not sent by the reader. The
// is_read predicate makes repeated calls affect zero rows.
func (r *Repository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user_a = $1 OR c.user_b = $1)
		  AND m.sender_id <> $1
		  AND m.is_read = FALSE
	`, userID).Scan(&n)
	return n, err
}
