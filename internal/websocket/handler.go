package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

// ConnectionStore is the durable connection registry as seen by the socket
// layer.
type ConnectionStore interface {
	AddConnection(ctx context.Context, userID, connectionID string, ns domain.Namespace) (*domain.Connection, error)
	RemoveConnection(ctx context.Context, connectionID string, ns domain.Namespace) (*domain.Connection, error)
}

// EventHandler serves the client events of one namespace.
type EventHandler interface {
	OnConnect(ctx context.Context, s *Session)
	HandleEvent(ctx context.Context, s *Session, f Frame)
}

type Handler struct {
	registry    *Registry
	store       ConnectionStore
	verifier    auth.Verifier
	handlers    map[domain.Namespace]EventHandler
	authTimeout time.Duration
}

func NewHandler(registry *Registry, store ConnectionStore, verifier auth.Verifier, authTimeout time.Duration) *Handler {
	if authTimeout <= 0 {
		authTimeout = 5 * time.Second
	}
	return &Handler{
		registry:    registry,
		store:       store,
		verifier:    verifier,
		handlers:    make(map[domain.Namespace]EventHandler),
		authTimeout: authTimeout,
	}
}

// Handle attaches the event handler for a namespace. Namespaces without a
// handler accept connections but ignore client events.
func (h *Handler) Handle(ns domain.Namespace, eh EventHandler) {
	h.handlers[ns] = eh
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ns := domain.Namespace(chi.URLParam(r, "namespace"))
	if !ns.Valid() {
		http.Error(w, "unknown namespace", http.StatusNotFound)
		return
	}

	log := observability.GetLogger(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	token := tokenFromRequest(r)
	if token == "" {
		token = h.awaitAuthFrame(conn)
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		observability.WebSocketAuthFailuresTotal.WithLabelValues(string(ns)).Inc()
		log.Warn("websocket authentication failed", zap.String("namespace", string(ns)), zap.Error(err))
		reject(conn, CloseAuthFailed, "Authentication failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.authTimeout)
	defer cancel()

	connectionID := uuid.NewString()
	if _, err := h.store.AddConnection(ctx, identity.UserID, connectionID, ns); err != nil {
		log.Error("failed to register connection", zap.String("user_id", identity.UserID), zap.Error(err))
		reject(conn, CloseRegistryFailure, "Connection could not be registered")
		return
	}

	session := NewSession(connectionID, identity.UserID, ns, token, conn)
	h.registry.Add(session)
	session.Start()

	observability.WebSocketConnectionsActive.WithLabelValues(string(ns)).Inc()
	log.Info("connected",
		zap.String("user_id", session.UserID),
		zap.String("connection_id", session.ID),
		zap.String("namespace", string(ns)),
	)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	eh := h.handlers[ns]
	if eh != nil {
		eh.OnConnect(context.Background(), session)
	}

	go h.readLoop(session, eh)
}

// awaitAuthFrame reads the first frame when the token was not part of the
// upgrade request. The read is bounded by the auth timeout.
func (h *Handler) awaitAuthFrame(conn *websocket.Conn) string {
	conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil || f.Event != EventAuth {
		return ""
	}
	var req authRequest
	if err := json.Unmarshal(f.Data, &req); err != nil {
		return ""
	}
	return req.Token
}

func (h *Handler) readLoop(s *Session, eh EventHandler) {
	defer func() {
		h.registry.Remove(s)
		s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log := observability.GetLogger(ctx)
		if _, err := h.store.RemoveConnection(ctx, s.ID, s.Namespace); err != nil {
			log.Error("failed to deactivate connection", zap.String("connection_id", s.ID), zap.Error(err))
		}
		log.Info("disconnected", zap.String("user_id", s.UserID), zap.String("connection_id", s.ID))
		observability.WebSocketConnectionsActive.WithLabelValues(string(s.Namespace)).Dec()
	}()

	for {
		_, msg, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger().Warn("read loop error", zap.String("user_id", s.UserID), zap.String("connection_id", s.ID), zap.Error(err))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil || f.Event == "" {
			s.Emit(EventError, ErrorPayload{Message: "malformed frame"})
			continue
		}

		if f.Event == EventAuth {
			h.refreshToken(s, f)
			continue
		}

		// tokens are re-checked per operation so an expired credential
		// cannot keep a long-lived socket authorised
		if _, err := h.verifier.Verify(s.Token()); err != nil {
			s.Emit(EventError, ErrorPayload{Event: f.Event, Message: "Invalid token"})
			s.CloseAfterFlush(CloseAuthFailed, "token no longer valid")
			select {
			case <-s.Done():
			case <-time.After(writeWait):
			}
			return
		}

		if eh != nil {
			eh.HandleEvent(context.Background(), s, f)
		}
	}
}

// refreshToken swaps the session credential for a newer token of the same
// user.
func (h *Handler) refreshToken(s *Session, f Frame) {
	var req authRequest
	if err := json.Unmarshal(f.Data, &req); err != nil {
		s.Emit(EventError, ErrorPayload{Event: EventAuth, Message: "malformed auth payload"})
		return
	}
	id, err := h.verifier.Verify(req.Token)
	if err != nil || id.UserID != s.UserID {
		s.Emit(EventError, ErrorPayload{Event: EventAuth, Message: "Invalid token"})
		return
	}
	s.SetToken(req.Token)
	s.Emit(Response(EventAuth), map[string]bool{"success": true})
}

func reject(conn *websocket.Conn, code int, message string) {
	if frame, err := Encode(EventError, ErrorPayload{Message: message}); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, message), time.Now().Add(time.Second))
	conn.Close()
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ErrorMessage is the client-facing text for a failed operation.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		return "Invalid token"
	case errors.Is(err, domain.ErrNotParticipant):
		return "You are not a participant in this conversation"
	case domain.IsNotFound(err):
		return err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return "Invalid request"
	}
	return "Internal server error"
}
