package presence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/router"
	"github.com/alexindevs/roomey-api/internal/websocket"
)

// NotificationEventType tags every live notification frame.
const NotificationEventType = "NEW_NOTIFICATION"

type ConnectionLookup interface {
	GetActiveConnections(ctx context.Context, userID string, ns domain.Namespace) ([]*domain.Connection, error)
}

// LocalDeliverer writes frames to connections held by this process.
type LocalDeliverer interface {
	Deliver(connectionID, namespace string, frame []byte) bool
}

// Publisher forwards frames to the instance that holds a connection.
type Publisher interface {
	Publish(ctx context.Context, target string, d router.Delivery) error
}

// Gateway pushes live events to every active connection of a user,
// wherever that connection is held.
type Gateway struct {
	connections ConnectionLookup
	local       LocalDeliverer
	remote      Publisher
	instanceID  string
}

// New wires the gateway. remote may be nil for a process that only holds
// local connections, or for the worker which holds none (local nil).
func New(connections ConnectionLookup, local LocalDeliverer, remote Publisher, instanceID string) *Gateway {
	return &Gateway{
		connections: connections,
		local:       local,
		remote:      remote,
		instanceID:  instanceID,
	}
}

type notificationEvent struct {
	Type    string                     `json:"type"`
	Payload domain.NotificationPayload `json:"payload"`
}

// SendNotificationToUser pushes a NEW_NOTIFICATION event to every
// notifications connection of the user. A user with no connection is a
// silent no-op. It returns the number of connections the event was handed
// to; an error means the registry could not be read and the user is treated
// as offline.
func (g *Gateway) SendNotificationToUser(ctx context.Context, userID string, n *domain.Notification) (int, error) {
	return g.EmitToUser(ctx, userID, domain.NamespaceNotifications, websocket.EventNotification, notificationEvent{
		Type:    NotificationEventType,
		Payload: n.Payload(),
	})
}

// SendBulkNotifications fans out per user. A failure for one user is logged
// and never stops the others; the joined error lists them.
func (g *Gateway) SendBulkNotifications(ctx context.Context, userIDs []string, notifications map[string]*domain.Notification) error {
	var errs []error
	for _, userID := range userIDs {
		n, ok := notifications[userID]
		if !ok || n == nil {
			continue
		}
		if _, err := g.SendNotificationToUser(ctx, userID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitToUser sends one event to every active connection of the user in a
// namespace. Per-connection failures are fire-and-forget.
func (g *Gateway) EmitToUser(ctx context.Context, userID string, ns domain.Namespace, event string, data interface{}) (int, error) {
	log := observability.GetLogger(ctx)

	conns, err := g.connections.GetActiveConnections(ctx, userID, ns)
	if err != nil {
		log.Warn("presence lookup failed, treating user as offline",
			zap.String("user_id", userID),
			zap.String("namespace", string(ns)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: presence lookup: %v", domain.ErrDeliveryChannel, err)
	}
	if len(conns) == 0 {
		log.Debug("no active connections", zap.String("user_id", userID), zap.String("namespace", string(ns)))
		return 0, nil
	}

	frame, err := websocket.Encode(event, data)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", event, err)
	}

	sent := 0
	for _, c := range conns {
		if g.deliver(ctx, c, frame) {
			sent++
		}
	}

	log.Debug("event emitted",
		zap.String("user_id", userID),
		zap.String("event", event),
		zap.Int("connections", len(conns)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

func (g *Gateway) deliver(ctx context.Context, c *domain.Connection, frame []byte) bool {
	ns := string(c.Namespace)

	if c.InstanceID == g.instanceID && g.local != nil {
		ok := g.local.Deliver(c.ConnectionID, ns, frame)
		observability.LiveEventsTotal.WithLabelValues(ns, "local", status(ok)).Inc()
		return ok
	}

	if g.remote == nil || c.InstanceID == "" {
		observability.LiveEventsTotal.WithLabelValues(ns, "remote", "unroutable").Inc()
		return false
	}

	err := g.remote.Publish(ctx, c.InstanceID, router.Delivery{
		ConnectionID: c.ConnectionID,
		Namespace:    ns,
		Frame:        frame,
	})
	if err != nil {
		observability.GetLogger(ctx).Warn("failed to route event to instance",
			zap.String("instance_id", c.InstanceID),
			zap.String("connection_id", c.ConnectionID),
			zap.Error(err),
		)
	}
	observability.LiveEventsTotal.WithLabelValues(ns, "remote", status(err == nil)).Inc()
	return err == nil
}

// HandleDelivery is the router subscription callback: it writes a frame
// routed from another instance to the local connection.
func (g *Gateway) HandleDelivery(d router.Delivery) {
	if g.local == nil {
		return
	}
	ok := g.local.Deliver(d.ConnectionID, d.Namespace, d.Frame)
	observability.LiveEventsTotal.WithLabelValues(d.Namespace, "routed", status(ok)).Inc()
	if !ok {
		observability.GetLogger(context.Background()).Debug("routed delivery for unknown connection",
			zap.String("connection_id", d.ConnectionID))
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "dropped"
}
