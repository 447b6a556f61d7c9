package websocket

import (
	"testing"

	"github.com/alexindevs/roomey-api/internal/domain"
)

func TestRegistry_MultipleDevices(t *testing.T) {
	r := NewRegistry()

	s1 := NewSession("s1", "user1", domain.NamespaceMessaging, "tok", nil)
	s2 := NewSession("s2", "user1", domain.NamespaceMessaging, "tok", nil)
	r.Add(s1)
	r.Add(s2)

	// both stay open and registered
	select {
	case <-s1.Done():
		t.Fatal("s1 should not be closed by a second device")
	default:
	}
	if got := len(r.GetUserSessions("user1")); got != 2 {
		t.Fatalf("Expected 2 sessions, got %d", got)
	}
	if r.Count() != 2 {
		t.Errorf("Expected count 2, got %d", r.Count())
	}

	r.Remove(s1)
	sessions := r.GetUserSessions("user1")
	if len(sessions) != 1 || sessions[0].ID != "s2" {
		t.Errorf("Expected only s2, got %v", sessions)
	}

	r.Remove(s2)
	if len(r.GetUserSessions("user1")) != 0 {
		t.Error("Expected no sessions for user1")
	}
}

func TestRegistry_LateRemoveKeepsNewerSession(t *testing.T) {
	r := NewRegistry()

	old := NewSession("same-id", "user1", domain.NamespaceNotifications, "tok", nil)
	r.Add(old)
	replacement := NewSession("same-id", "user1", domain.NamespaceNotifications, "tok", nil)
	r.Add(replacement)

	r.Remove(old)

	got, ok := r.Get("same-id")
	if !ok || got != replacement {
		t.Errorf("Late Remove of the old session evicted its replacement")
	}
}

func TestRegistry_Deliver(t *testing.T) {
	r := NewRegistry()
	s := NewSession("c1", "user1", domain.NamespaceNotifications, "tok", nil)
	r.Add(s)

	if !r.Deliver("c1", "notifications", []byte(`{"event":"x"}`)) {
		t.Fatal("Expected delivery to a known connection")
	}
	if len(s.SendQueue) != 1 {
		t.Errorf("Expected 1 queued frame, got %d", len(s.SendQueue))
	}

	if r.Deliver("c1", "messaging", []byte(`{}`)) {
		t.Error("Delivery must not cross namespaces")
	}
	if r.Deliver("unknown", "notifications", []byte(`{}`)) {
		t.Error("Delivery to an unknown connection must fail")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()
	s1 := NewSession("a", "u1", domain.NamespaceMessaging, "tok", nil)
	s2 := NewSession("b", "u2", domain.NamespaceNotifications, "tok", nil)
	r.Add(s1)
	r.Add(s2)

	r.CloseAll()

	for _, s := range []*Session{s1, s2} {
		select {
		case <-s.Done():
		default:
			t.Errorf("session %s still open", s.ID)
		}
	}
}
