package router

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/observability"
)

// Delivery is a frame addressed to one connection held by another gateway
// instance.
type Delivery struct {
	ConnectionID string          `json:"connectionId"`
	Namespace    string          `json:"namespace"`
	Frame        json.RawMessage `json:"frame"`
}

// Router moves deliveries between gateway instances over Redis pub/sub.
// Each instance subscribes to its own channel.
type Router struct {
	client     *redis.Client
	instanceID string
}

func New(client *redis.Client, instanceID string) *Router {
	return &Router{client: client, instanceID: instanceID}
}

func (r *Router) InstanceID() string {
	return r.instanceID
}

func (r *Router) channel(id string) string {
	return "delivery:" + id
}

func (r *Router) Publish(ctx context.Context, target string, d Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}

	observability.GetLogger(ctx).Debug("publishing to instance",
		zap.String("target", target),
		zap.String("connection_id", d.ConnectionID),
	)
	return r.client.Publish(ctx, r.channel(target), payload).Err()
}

// Subscribe delivers every frame addressed to this instance to handler until
// ctx is cancelled. The subscription is confirmed before Subscribe returns.
func (r *Router) Subscribe(ctx context.Context, handler func(Delivery)) error {
	channelName := r.channel(r.instanceID)
	pubsub := r.client.Subscribe(ctx, channelName)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	go func() {
		log := observability.GetLogger(ctx)
		log.Info("router: subscribed to channel", zap.String("channel", channelName))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("router: subscription loop stopping: context canceled")
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("router: pubsub channel closed")
					return
				}
				var d Delivery
				if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
					log.Error("router: malformed delivery", zap.Error(err))
					continue
				}
				handler(d)
			}
		}
	}()
	return nil
}
