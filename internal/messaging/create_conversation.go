package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

type CreateConversationCommand struct {
	ParticipantIDs []string
	ListingType    domain.ListingType
	ListingID      string
}

// CreateConversation returns the conversation of the participant pair,
// creating it on first use. created is false when the pair already had one.
func (s *Service) CreateConversation(
	ctx context.Context,
	cmd CreateConversationCommand,
) (conv *domain.Conversation, created bool, err error) {

	candidate, err := domain.NewConversation(uuid.NewString(), cmd.ParticipantIDs, cmd.ListingType, cmd.ListingID, s.now())
	if err != nil {
		return nil, false, err
	}
	lookupKey := candidate.LookupKey()

	// best-effort read outside the transaction
	if existing, err := s.repo.GetConversationByLookupKey(ctx, nil, lookupKey); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, false, fmt.Errorf("failed to look up conversation: %w", err)
	}

	txErr := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		inserted, err := s.repo.InsertConversation(ctx, tx, candidate)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		if inserted {
			conv, created = candidate, true
			return nil
		}

		// lost the race against a concurrent create for the same pair
		existing, err := s.repo.GetConversationByLookupKey(ctx, tx, lookupKey)
		if err != nil {
			return fmt.Errorf("failed to re-read conversation: %w", err)
		}
		conv, created = existing, false
		return nil
	})
	if txErr != nil {
		return nil, false, txErr
	}

	if created {
		observability.GetLogger(ctx).Info("conversation created",
			zap.String("conversation_id", conv.ID),
			zap.String("listing_type", string(conv.ListingType)),
		)
	}
	return conv, created, nil
}

// GetConversation loads a conversation visible to userID.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) loadConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return nil, domain.ErrInvalidInput
	}

	log := observability.GetLogger(ctx)
	if s.cache != nil {
		cached, err := s.cache.GetConversation(ctx, conversationID)
		if err != nil {
			log.Warn("conversation cache read failed", zap.String("conversation_id", conversationID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	conv, err := s.repo.GetConversation(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetConversation(ctx, conv); err != nil {
			log.Warn("conversation cache write failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
	return conv, nil
}
