package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

// MarkMessagesAsRead flips every unread message userID received in the
// conversation. Repeating the call changes nothing.
func (s *Service) MarkMessagesAsRead(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	n, err := s.repo.MarkMessagesRead(ctx, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	observability.GetLogger(ctx).Debug("messages marked read",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
		zap.Int64("count", n),
	)
	return n, nil
}

// GetUnreadMessageCount counts unread messages addressed to userID across
// all conversations. It always reads the store.
func (s *Service) GetUnreadMessageCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrInvalidInput
	}
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}
