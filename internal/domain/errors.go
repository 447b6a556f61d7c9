package domain

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotParticipant = errors.New("user not participant")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrInvalidJob          = errors.New("invalid notification job")
	ErrRecipientUnresolved = errors.New("recipient unresolved")
	ErrDeliveryChannel     = errors.New("delivery channel failure")
	ErrQueueUnavailable    = errors.New("queue unavailable")

	ErrConnectionConflict = errors.New("connection id owned by another user")
)

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
