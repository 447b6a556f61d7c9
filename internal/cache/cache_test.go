package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexindevs/roomey-api/internal/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	c := New(client, time.Minute)
	ctx := context.Background()

	miss, err := c.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	conv, err := domain.NewConversation("c1", []string{"a", "b"}, domain.ListingRoom, "l1", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, c.SetConversation(ctx, conv))

	got, err := c.GetConversation(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.UserIDs, got.UserIDs)
	assert.Equal(t, "l1", *got.RoomListingID)

	mr.FastForward(2 * time.Minute)

	expired, err := c.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestCache_Delete(t *testing.T) {
	_, client := setupRedis(t)
	c := New(client, 0)
	ctx := context.Background()

	conv, _ := domain.NewConversation("c2", []string{"a", "b"}, domain.ListingRoommate, "", time.Now().UTC())
	require.NoError(t, c.SetConversation(ctx, conv))
	require.NoError(t, c.DeleteConversation(ctx, "c2"))

	got, err := c.GetConversation(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
