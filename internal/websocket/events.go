package websocket

import (
	"encoding/json"
)

// Frame is the JSON envelope of every message on the socket, in both
// directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	EventAuth  = "auth"
	EventError = "error"

	EventCreateConversation   = "createConversation"
	EventSendMessage          = "sendMessage"
	EventGetMessages          = "getMessages"
	EventMarkMessagesAsRead   = "markMessagesAsRead"
	EventGetUserConversations = "getUserConversations"

	EventNewConversation    = "newConversation"
	EventNewMessage         = "newMessage"
	EventUnreadMessageCount = "unreadMessageCount"

	EventNotification = "notification"
)

// Response returns the acknowledgement event name for a client request.
func Response(event string) string {
	return event + "Response"
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

type authRequest struct {
	Token string `json:"token"`
}

// Encode builds a frame ready to be written to a connection.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
