package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexindevs/roomey-api/internal/domain"
)

// Cache holds conversation participant lookups. Unread counts are never
// cached; they are always computed from the store.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{Client: client, TTL: ttl}
}

func key(id string) string {
	return "conv:" + id
}

// GetConversation returns (nil, nil) on a miss.
func (c *Cache) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	val, err := c.Client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var conv domain.Conversation
	if err := json.Unmarshal(val, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Cache) SetConversation(ctx context.Context, conv *domain.Conversation) error {
	val, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(conv.ID), val, c.TTL).Err()
}

func (c *Cache) DeleteConversation(ctx context.Context, id string) error {
	return c.Client.Del(ctx, key(id)).Err()
}
