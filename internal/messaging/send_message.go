package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

type SendMessageCommand struct {
	ConversationID string
	SenderID       string
	Content        string
}

// SendMessage stores a message and queues a notification for the other
// participant. The returned conversation is the one the message was added to.
func (s *Service) SendMessage(
	ctx context.Context,
	cmd SendMessageCommand,
) (*domain.Message, *domain.Conversation, error) {

	log := observability.GetLogger(ctx)

	conv, err := s.GetConversation(ctx, cmd.ConversationID, cmd.SenderID)
	if err != nil {
		return nil, nil, err
	}

	msg, err := domain.NewMessage(uuid.NewString(), conv.ID, cmd.SenderID, cmd.Content, s.now())
	if err != nil {
		return nil, nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.InsertMessage(ctx, tx, msg); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		if err := s.repo.TouchConversation(ctx, tx, conv.ID, msg.SentAt); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info("message sent",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", msg.ID),
		zap.String("sender_id", msg.SenderID),
	)

	s.notifyRecipient(ctx, conv, msg)
	return msg, conv, nil
}

// notifyRecipient queues the "New Message" job. The message is already
// stored, so a queue failure only costs the notification.
func (s *Service) notifyRecipient(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	if s.jobs == nil {
		return
	}
	recipient := conv.OtherParticipant(msg.SenderID)
	if recipient == "" {
		return
	}

	metadata, _ := json.Marshal(map[string]string{
		"conversationId": conv.ID,
		"messageId":      msg.ID,
		"senderId":       msg.SenderID,
	})

	if _, err := s.jobs.AddNotificationJob(ctx,
		recipient,
		"New message",
		domain.Preview(msg.Content, domain.PreviewLength),
		domain.AllChannels,
		domain.ActionNewMessage,
		metadata,
	); err != nil {
		observability.GetLogger(ctx).Error("failed to enqueue message notification",
			zap.String("conversation_id", conv.ID),
			zap.String("recipient_id", recipient),
			zap.Error(err),
		)
	}
}
