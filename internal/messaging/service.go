package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/repository"
	"github.com/alexindevs/roomey-api/internal/tx"
)

// Enqueuer hands notification jobs to the queue.
type Enqueuer interface {
	AddNotificationJob(
		ctx context.Context,
		userID, title, description string,
		channels []domain.Channel,
		purpose domain.ActionTag,
		metadata json.RawMessage,
	) (*domain.NotificationJob, error)
}

// ConversationCache is the read-through cache in front of conversation
// lookups.
type ConversationCache interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	SetConversation(ctx context.Context, conv *domain.Conversation) error
}

type Service struct {
	repo  repository.Repository
	tx    tx.Transactor
	cache ConversationCache
	jobs  Enqueuer
	now   func() time.Time
}

// New wires the service. cache may be nil.
func New(repo repository.Repository, transactor tx.Transactor, cache ConversationCache, jobs Enqueuer) *Service {
	return &Service{
		repo:  repo,
		tx:    transactor,
		cache: cache,
		jobs:  jobs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}
