package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

const (
	SendQueueSize = 128
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10

	CloseAuthFailed      = 4001
	CloseRegistryFailure = 4002
)

// Session is one authenticated socket. ID doubles as the connection id
// recorded in the connection registry.
type Session struct {
	ID        string
	UserID    string
	Namespace domain.Namespace

	Conn      *websocket.Conn
	SendQueue chan []byte
	done      chan struct{}
	closed    atomic.Int32
	closeReq  chan closeRequest

	tokenMu sync.RWMutex
	token   string
}

func NewSession(id, userID string, ns domain.Namespace, token string, conn *websocket.Conn) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Namespace: ns,
		Conn:      conn,
		SendQueue: make(chan []byte, SendQueueSize),
		done:      make(chan struct{}),
		closeReq:  make(chan closeRequest, 1),
		token:     token,
	}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Token() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()
}

// TrySend queues a frame without blocking. A full queue means the client is
// not keeping up; the session is closed rather than stalling the sender.
func (s *Session) TrySend(msg []byte) bool {
	if s.closed.Load() == 1 {
		return false
	}
	select {
	case s.SendQueue <- msg:
		return true
	default:
		logger().Warn("session: backpressure overflow, dropping connection",
			zap.String("user_id", s.UserID), zap.String("connection_id", s.ID))
		s.CloseWithReason(websocket.CloseInternalServerErr, "backpressure overflow")
		return false
	}
}

// Emit encodes and queues an event for this session.
func (s *Session) Emit(event string, data interface{}) bool {
	frame, err := Encode(event, data)
	if err != nil {
		logger().Error("session: failed to encode event", zap.String("event", event), zap.Error(err))
		return false
	}
	return s.TrySend(frame)
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}

	logger().Debug("session: closing",
		zap.String("user_id", s.UserID),
		zap.String("connection_id", s.ID),
		zap.Int("code", code),
		zap.String("reason", reason),
	)
	close(s.done)

	if s.Conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.Conn.Close()
	}
}

type closeRequest struct {
	code   int
	reason string
}

// CloseAfterFlush closes the session once the frames already queued have
// been written.
func (s *Session) CloseAfterFlush(code int, reason string) {
	select {
	case s.closeReq <- closeRequest{code: code, reason: reason}:
	default:
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg := <-s.SendQueue:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger().Debug("session: write error", zap.String("connection_id", s.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger().Debug("session: ping error", zap.String("connection_id", s.ID), zap.Error(err))
				return
			}
		case req := <-s.closeReq:
			s.flush()
			s.CloseWithReason(req.code, req.reason)
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) flush() {
	for {
		select {
		case msg := <-s.SendQueue:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func logger() *zap.Logger {
	return observability.GetLogger(context.Background())
}
