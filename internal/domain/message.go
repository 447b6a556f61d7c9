package domain

import (
	"strings"
	"time"
)

const (
	MaxMessageSize = 5000

	// PreviewLength bounds the notification body derived from a message.
	PreviewLength = 150
)

// Message content is immutable; only IsRead changes, false to true, and only
// through a non-sender marking the conversation as read.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"isRead"`
	SentAt         time.Time `json:"sentAt"`
}

func NewMessage(id, conversationID, senderID, content string, now time.Time) (*Message, error) {
	if id == "" || conversationID == "" || senderID == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(content) == "" || len(content) > MaxMessageSize {
		return nil, ErrInvalidInput
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         now,
	}, nil
}

// Preview shortens content for a notification body. Content of at most
// limit characters is returned unchanged. Longer content is cut at the last
// whitespace before the limit, or hard at the limit when that leaves nothing,
// and suffixed with "...". The result never exceeds limit+3 characters.
func Preview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}

	cut := limit
	for i := limit; i > 0; i-- {
		if isSpace(runes[i]) {
			cut = i
			break
		}
	}

	prefix := strings.TrimRightFunc(string(runes[:cut]), isSpace)
	if prefix == "" {
		// only leading whitespace before the limit
		prefix = string(runes[:limit])
	}
	return prefix + "..."
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
