package router

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_PublishReachesTargetInstance(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receiver := New(client, "inst-b")
	got := make(chan Delivery, 1)
	require.NoError(t, receiver.Subscribe(ctx, func(d Delivery) { got <- d }))

	sender := New(client, "inst-a")
	want := Delivery{
		ConnectionID: "conn-1",
		Namespace:    "notifications",
		Frame:        json.RawMessage(`{"event":"notification","data":{}}`),
	}
	require.NoError(t, sender.Publish(ctx, "inst-b", want))

	select {
	case d := <-got:
		assert.Equal(t, want.ConnectionID, d.ConnectionID)
		assert.Equal(t, want.Namespace, d.Namespace)
		assert.JSONEq(t, string(want.Frame), string(d.Frame))
	case <-time.After(2 * time.Second):
		t.Fatal("delivery not received")
	}
}
