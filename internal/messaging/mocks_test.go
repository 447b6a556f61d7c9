package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alexindevs/roomey-api/internal/domain"
)

type mockTransactor struct{}

func (m *mockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}

type memRepo struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	byKey    map[string]string
	messages []*domain.Message

	insertErr  error
	lastOffset int
}

func newMemRepo() *memRepo {
	return &memRepo{
		convs: make(map[string]*domain.Conversation),
		byKey: make(map[string]string),
	}
}

func (m *memRepo) InsertConversation(ctx context.Context, tx *sql.Tx, c *domain.Conversation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[c.LookupKey()]; ok {
		return false, nil
	}
	cp := *c
	m.convs[c.ID] = &cp
	m.byKey[c.LookupKey()] = c.ID
	return true, nil
}

func (m *memRepo) GetConversation(ctx context.Context, tx *sql.Tx, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) GetConversationByLookupKey(ctx context.Context, tx *sql.Tx, key string) (*domain.Conversation, error) {
	m.mu.Lock()
	id, ok := m.byKey[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return m.GetConversation(ctx, tx, id)
}

func (m *memRepo) ListConversationsByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOffset = offset
	var out []*domain.Conversation
	for _, c := range m.convs {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) TouchConversation(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	c.UpdatedAt = at
	return nil
}

func (m *memRepo) InsertMessage(ctx context.Context, tx *sql.Tx, msg *domain.Message) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memRepo) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Message
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.ConversationID != conversationID {
			continue
		}
		if before != nil && !msg.SentAt.Before(*before) {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && !msg.IsRead {
			msg.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		c := m.convs[msg.ConversationID]
		if c != nil && c.HasParticipant(userID) && msg.SenderID != userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

type recordedJob struct {
	UserID      string
	Title       string
	Description string
	Channels    []domain.Channel
	Purpose     domain.ActionTag
}

type mockEnqueuer struct {
	mu   sync.Mutex
	jobs []recordedJob
	err  error
}

func (m *mockEnqueuer) AddNotificationJob(ctx context.Context, userID, title, description string, channels []domain.Channel, purpose domain.ActionTag, metadata json.RawMessage) (*domain.NotificationJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, recordedJob{userID, title, description, channels, purpose})
	return &domain.NotificationJob{UserID: userID, Title: title, Description: description, Channels: channels, Purpose: purpose, Metadata: metadata}, nil
}

type mockCache struct {
	mu    sync.Mutex
	items map[string]*domain.Conversation
	gets  int
}

func (m *mockCache) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	return m.items[id], nil
}

func (m *mockCache) SetConversation(ctx context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]*domain.Conversation)
	}
	m.items[conv.ID] = conv
	return nil
}

var errBroker = errors.New("broker down")
