package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*limit far from overflow.
	MaxPage = 100000
)

// GetMessages returns messages newest first, optionally only those sent
// before a cursor.
func (s *Service) GetMessages(ctx context.Context, conversationID, userID string, before *time.Time, limit int) ([]*domain.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID, before, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// GetUserConversations pages through a user's conversations, most recently
// active first. page is 1-based.
func (s *Service) GetUserConversations(ctx context.Context, userID string, page, limit int) ([]*domain.Conversation, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit = clampLimit(limit)

	convs, err := s.repo.ListConversationsByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
