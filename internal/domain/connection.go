package domain

import "time"

type Namespace string

const (
	NamespaceMessaging     Namespace = "messaging"
	NamespaceNotifications Namespace = "notifications"
)

func (n Namespace) Valid() bool {
	return n == NamespaceMessaging || n == NamespaceNotifications
}

// Connection is one live transport session of a user in a namespace.
// Records are deactivated on disconnect and never deleted.
type Connection struct {
	ID             int64      `json:"-"`
	UserID         string     `json:"userId"`
	ConnectionID   string     `json:"connectionId"`
	Namespace      Namespace  `json:"namespace"`
	InstanceID     string     `json:"instanceId"`
	Active         bool       `json:"isActive"`
	ConnectedAt    time.Time  `json:"connectedAt"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
}
