package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
)

type ConversationRepository interface {
	// InsertConversation reports false when a conversation for the same
	// participant pair already exists.
	InsertConversation(ctx context.Context, tx *sql.Tx, c *domain.Conversation) (bool, error)
	GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error)
	GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error)
	TouchConversation(ctx context.Context, tx *sql.Tx, id string, at time.Time) error
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*domain.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// Repository is the storage port of the messaging service.
type Repository interface {
	ConversationRepository
	MessageRepository
}

type NotificationRepository interface {
	// CreateNotification is idempotent on the job id: a redelivered job
	// returns the record created by the first delivery.
	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []string, userID string) (int64, error)
}

type UserRepository interface {
	GetRecipient(ctx context.Context, userID string) (*domain.Recipient, error)
}
