package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alexindevs/roomey-api/internal/domain"
)

func (r *Repository) GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error) {
	var (
		rec   = domain.Recipient{UserID: userID}
		token sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT email, push_token
		FROM users
		WHERE id = $1
	`, userID).Scan(&rec.Email, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.PushToken = token.String
	return &rec, nil
}
