package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/repository"
)

// Service is the read side of stored notifications.
type Service struct {
	repo repository.NotificationRepository
}

func New(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// GetUserNotifications lists a user's notifications newest first. With
// unreadOnly it returns the pending ones.
func (s *Service) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	ns, err := s.repo.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if ns == nil {
		ns = []*domain.Notification{}
	}
	return ns, nil
}

// MarkAsRead flips one notification owned by userID. A notification of
// another user is reported as not found.
func (s *Service) MarkAsRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.MarkNotificationRead(ctx, id, userID)
}

// MarkMultipleAsRead flips the listed notifications owned by userID; ids of
// other users are ignored. Repeating the call is harmless.
func (s *Service) MarkMultipleAsRead(ctx context.Context, ids []string, userID string) (int64, error) {
	if userID == "" || len(ids) == 0 {
		return 0, domain.ErrInvalidInput
	}
	for _, id := range ids {
		if id == "" {
			return 0, domain.ErrInvalidInput
		}
	}

	n, err := s.repo.MarkNotificationsRead(ctx, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	observability.GetLogger(ctx).Debug("notifications marked read",
		zap.String("user_id", userID),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", n),
	)
	return n, nil
}
