package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/messaging"
)

type MessagingService interface {
	CreateConversation(ctx context.Context, cmd messaging.CreateConversationCommand) (*domain.Conversation, bool, error)
	SendMessage(ctx context.Context, cmd messaging.SendMessageCommand) (*domain.Message, *domain.Conversation, error)
	GetMessages(ctx context.Context, conversationID, userID string, before *time.Time, limit int) ([]*domain.Message, error)
	MarkMessagesAsRead(ctx context.Context, conversationID, userID string) (int64, error)
	GetUnreadMessageCount(ctx context.Context, userID string) (int64, error)
	GetUserConversations(ctx context.Context, userID string, page, limit int) ([]*domain.Conversation, error)
}

// Emitter reaches every connection of a user, on any instance.
type Emitter interface {
	EmitToUser(ctx context.Context, userID string, ns domain.Namespace, event string, data interface{}) (int, error)
}

// MessagingEvents serves the messaging namespace.
type MessagingEvents struct {
	svc     MessagingService
	emitter Emitter
}

func NewMessagingEvents(svc MessagingService, emitter Emitter) *MessagingEvents {
	return &MessagingEvents{svc: svc, emitter: emitter}
}

type createConversationRequest struct {
	ParticipantIDs []string           `json:"participantIds"`
	UserIDs        []string           `json:"userIds"`
	ListingType    domain.ListingType `json:"listingType"`
	ListingID      string             `json:"listingId"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type getMessagesRequest struct {
	ConversationID string     `json:"conversationId"`
	Before         *time.Time `json:"before,omitempty"`
	Limit          int        `json:"limit,omitempty"`
}

type markMessagesAsReadRequest struct {
	ConversationID string `json:"conversationId"`
}

type getUserConversationsRequest struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// OnConnect sends the unread total so a fresh client can render its badge.
func (m *MessagingEvents) OnConnect(ctx context.Context, s *Session) {
	m.emitUnreadToSession(ctx, s)
}

func (m *MessagingEvents) HandleEvent(ctx context.Context, s *Session, f Frame) {
	var err error
	switch f.Event {
	case EventCreateConversation:
		err = m.createConversation(ctx, s, f.Data)
	case EventSendMessage:
		err = m.sendMessage(ctx, s, f.Data)
	case EventGetMessages:
		err = m.getMessages(ctx, s, f.Data)
	case EventMarkMessagesAsRead:
		err = m.markMessagesAsRead(ctx, s, f.Data)
	case EventGetUserConversations:
		err = m.getUserConversations(ctx, s, f.Data)
	default:
		s.Emit(EventError, ErrorPayload{Event: f.Event, Message: "unknown event"})
		return
	}

	if err != nil {
		if !domain.IsNotFound(err) && !errors.Is(err, domain.ErrInvalidInput) {
			logger().Warn("messaging event failed",
				zap.String("event", f.Event),
				zap.String("user_id", s.UserID),
				zap.Error(err),
			)
		}
		s.Emit(EventError, ErrorPayload{Event: f.Event, Message: ErrorMessage(err)})
	}
}

func (m *MessagingEvents) createConversation(ctx context.Context, s *Session, data json.RawMessage) error {
	var req createConversationRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	participants := req.ParticipantIDs
	if len(participants) == 0 {
		participants = req.UserIDs
	}
	if !contains(participants, s.UserID) {
		return domain.ErrNotParticipant
	}

	conv, _, err := m.svc.CreateConversation(ctx, messaging.CreateConversationCommand{
		ParticipantIDs: participants,
		ListingType:    req.ListingType,
		ListingID:      req.ListingID,
	})
	if err != nil {
		return err
	}

	for _, userID := range conv.UserIDs {
		m.emit(ctx, userID, EventNewConversation, conv)
	}
	s.Emit(Response(EventCreateConversation), conv)
	return nil
}

func (m *MessagingEvents) sendMessage(ctx context.Context, s *Session, data json.RawMessage) error {
	var req sendMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	msg, conv, err := m.svc.SendMessage(ctx, messaging.SendMessageCommand{
		ConversationID: req.ConversationID,
		SenderID:       s.UserID,
		Content:        req.Content,
	})
	if err != nil {
		return err
	}

	if recipient := conv.OtherParticipant(s.UserID); recipient != "" {
		m.emit(ctx, recipient, EventNewMessage, msg)
		m.emitUnread(ctx, recipient)
	}
	s.Emit(Response(EventSendMessage), msg)
	return nil
}

func (m *MessagingEvents) getMessages(ctx context.Context, s *Session, data json.RawMessage) error {
	var req getMessagesRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	msgs, err := m.svc.GetMessages(ctx, req.ConversationID, s.UserID, req.Before, req.Limit)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	s.Emit(Response(EventGetMessages), msgs)
	return nil
}

func (m *MessagingEvents) markMessagesAsRead(ctx context.Context, s *Session, data json.RawMessage) error {
	var req markMessagesAsReadRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if _, err := m.svc.MarkMessagesAsRead(ctx, req.ConversationID, s.UserID); err != nil {
		return err
	}
	s.Emit(Response(EventMarkMessagesAsRead), map[string]interface{}{
		"success":        true,
		"conversationId": req.ConversationID,
	})
	m.emitUnread(ctx, s.UserID)
	return nil
}

func (m *MessagingEvents) getUserConversations(ctx context.Context, s *Session, data json.RawMessage) error {
	var req getUserConversationsRequest
	if len(data) > 0 {
		if err := decode(data, &req); err != nil {
			return err
		}
	}
	convs, err := m.svc.GetUserConversations(ctx, s.UserID, req.Page, req.Limit)
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	s.Emit(Response(EventGetUserConversations), convs)
	return nil
}

func (m *MessagingEvents) emitUnread(ctx context.Context, userID string) {
	n, err := m.svc.GetUnreadMessageCount(ctx, userID)
	if err != nil {
		logger().Warn("unread count failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	m.emit(ctx, userID, EventUnreadMessageCount, n)
}

func (m *MessagingEvents) emitUnreadToSession(ctx context.Context, s *Session) {
	n, err := m.svc.GetUnreadMessageCount(ctx, s.UserID)
	if err != nil {
		logger().Warn("unread count failed", zap.String("user_id", s.UserID), zap.Error(err))
		return
	}
	s.Emit(EventUnreadMessageCount, n)
}

func (m *MessagingEvents) emit(ctx context.Context, userID, event string, data interface{}) {
	if _, err := m.emitter.EmitToUser(ctx, userID, domain.NamespaceMessaging, event, data); err != nil {
		logger().Warn("live emit failed", zap.String("user_id", userID), zap.String("event", event), zap.Error(err))
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return domain.ErrInvalidInput
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
