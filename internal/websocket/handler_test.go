package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/domain"
)

type fakeVerifier struct {
	revoked atomic.Bool
}

func (v *fakeVerifier) Verify(token string) (auth.Identity, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	if v.revoked.Load() {
		return auth.Identity{}, domain.ErrAuthentication
	}
	switch token {
	case "good", "good-2":
		return auth.Identity{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	case "other":
		return auth.Identity{UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	return auth.Identity{}, domain.ErrAuthentication
}

type fakeStore struct {
	mu      sync.Mutex
	active  map[string]string // connection id -> user id
	adds    int
	removes int
}

func (f *fakeStore) AddConnection(ctx context.Context, userID, connectionID string, ns domain.Namespace) (*domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		f.active = make(map[string]string)
	}
	f.active[connectionID] = userID
	f.adds++
	return &domain.Connection{UserID: userID, ConnectionID: connectionID, Namespace: ns, Active: true}, nil
}

func (f *fakeStore) RemoveConnection(ctx context.Context, connectionID string, ns domain.Namespace) (*domain.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, connectionID)
	f.removes++
	return nil, nil
}

func (f *fakeStore) counts() (adds, removes, active int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds, f.removes, len(f.active)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEvents) OnConnect(ctx context.Context, s *Session) {
	s.Emit(EventUnreadMessageCount, 3)
}

func (r *recordingEvents) HandleEvent(ctx context.Context, s *Session, f Frame) {
	r.mu.Lock()
	r.events = append(r.events, f.Event)
	r.mu.Unlock()
	s.Emit(Response(f.Event), map[string]bool{"ok": true})
}

type testServer struct {
	srv      *httptest.Server
	store    *fakeStore
	verifier *fakeVerifier
	registry *Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{store: &fakeStore{}, verifier: &fakeVerifier{}, registry: NewRegistry()}

	h := NewHandler(ts.registry, ts.store, ts.verifier, 500*time.Millisecond)
	h.Handle(domain.NamespaceMessaging, &recordingEvents{})

	r := chi.NewRouter()
	r.Get("/ws/{namespace}", h.ServeHTTP)
	ts.srv = httptest.NewServer(r)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) Frame {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

func expectClose(t *testing.T, c *websocket.Conn, code int) {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, code), "expected close %d, got %v", code, err)
}

func TestHandler_QueryTokenConnects(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, "/ws/messaging?token=good")

	f := readFrame(t, c)
	assert.Equal(t, EventUnreadMessageCount, f.Event)
	assert.Equal(t, "3", string(f.Data))

	adds, _, active := ts.store.counts()
	assert.Equal(t, 1, adds)
	assert.Equal(t, 1, active)
	assert.Len(t, ts.registry.GetUserSessions("u1"), 1)

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	assert.Eventually(t, func() bool {
		_, removes, active := ts.store.counts()
		return removes == 1 && active == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return ts.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, "/ws/notifications?token=bad")

	f := readFrame(t, c)
	assert.Equal(t, EventError, f.Event)
	assert.Contains(t, string(f.Data), "Authentication failed")
	expectClose(t, c, CloseAuthFailed)

	adds, _, _ := ts.store.counts()
	assert.Zero(t, adds, "rejected sockets must not touch the registry")
}

func TestHandler_AuthFrame(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, "/ws/notifications")

	require.NoError(t, c.WriteJSON(map[string]interface{}{
		"event": EventAuth,
		"data":  map[string]string{"token": "good"},
	}))

	assert.Eventually(t, func() bool {
		adds, _, _ := ts.store.counts()
		return adds == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_AuthTimeout(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, "/ws/notifications")

	// say nothing; the handshake deadline expires
	f := readFrame(t, c)
	assert.Equal(t, EventError, f.Event)
	expectClose(t, c, CloseAuthFailed)
}

func TestHandler_EventsAndTokenRevalidation(t *testing.T) {
	ts := newTestServer(t)
	c := ts.dial(t, "/ws/messaging?token=good")
	readFrame(t, c) // unread count on connect

	require.NoError(t, c.WriteJSON(map[string]interface{}{"event": EventGetUserConversations, "data": map[string]int{}}))
	f := readFrame(t, c)
	assert.Equal(t, Response(EventGetUserConversations), f.Event)

	// refresh with a token for another user is refused
	require.NoError(t, c.WriteJSON(map[string]interface{}{"event": EventAuth, "data": map[string]string{"token": "other"}}))
	f = readFrame(t, c)
	assert.Equal(t, EventError, f.Event)

	require.NoError(t, c.WriteJSON(map[string]interface{}{"event": EventAuth, "data": map[string]string{"token": "good-2"}}))
	f = readFrame(t, c)
	assert.Equal(t, Response(EventAuth), f.Event)

	ts.verifier.revoked.Store(true)
	require.NoError(t, c.WriteJSON(map[string]interface{}{"event": EventSendMessage, "data": map[string]string{}}))
	f = readFrame(t, c)
	assert.Equal(t, EventError, f.Event)
	expectClose(t, c, CloseAuthFailed)
}

func TestHandler_UnknownNamespace(t *testing.T) {
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/chat?token=good"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
