package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
)

const conversationColumns = `id, user_a, user_b, listing_type, room_listing_id, roommate_listing_id, created_at, updated_at`

func scanConversation(s rowScanner) (*domain.Conversation, error) {
	var (
		c           domain.Conversation
		room, mate  sql.NullString
		listingType string
	)
	if err := s.Scan(&c.ID, &c.UserIDs[0], &c.UserIDs[1], &listingType, &room, &mate, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ListingType = domain.ListingType(listingType)
	if room.Valid {
		c.RoomListingID = &room.String
	}
	if mate.Valid {
		c.RoommateListingID = &mate.String
	}
	return &c, nil
}

func (r *Repository) InsertConversation(ctx context.Context, tx *sql.Tx, c *domain.Conversation) (bool, error) {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		INSERT INTO conversations (id, user_a, user_b, lookup_key, listing_type, room_listing_id, roommate_listing_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (lookup_key) DO NOTHING
	`, c.ID, c.UserIDs[0], c.UserIDs[1], c.LookupKey(), string(c.ListingType),
		c.RoomListingID, c.RoommateListingID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repository) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	q := r.getter(tx)
	c, err := scanConversation(q.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	return c, err
}

func (r *Repository) GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error) {
	q := r.getter(tx)
	c, err := scanConversation(q.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE lookup_key = $1
	`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	return c, err
}

func (r *Repository) ListConversationsByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_a = $1 OR user_b = $1
		ORDER BY updated_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]*domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *Repository) TouchConversation(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = GREATEST(updated_at, $2)
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}
