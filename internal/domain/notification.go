package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "Email"
	ChannelPush  Channel = "Push"
	ChannelInApp Channel = "In_App"
)

var AllChannels = []Channel{ChannelEmail, ChannelPush, ChannelInApp}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// ActionTag is the business event that triggered a notification.
type ActionTag string

const (
	ActionNewListing             ActionTag = "New Roommate or Room Listing Created"
	ActionPasswordUpdate         ActionTag = "Password Reset"
	ActionListingInquiry         ActionTag = "Listing Inquiry"
	ActionListingUpdate          ActionTag = "Listing Update"
	ActionProfileVerified        ActionTag = "Profile Verified"
	ActionAccountDeactivated     ActionTag = "Account Deactivated"
	ActionNewMessage             ActionTag = "New Message"
	ActionRoommateMatch          ActionTag = "Roommate Match Found"
	ActionReviewReceived         ActionTag = "Review Received"
	ActionApplicationStatus      ActionTag = "Roommate Application Status"
	ActionFavoriteListingUpdate  ActionTag = "Favorite Listings Update"
	ActionListingExpiration      ActionTag = "Listing Expiration"
	ActionAppointmentReminder    ActionTag = "Appointment Reminder"
	ActionRoommateRecommendation ActionTag = "Roommate Recommendation"
	ActionSecurityAlert          ActionTag = "Security Alert"
	ActionPaymentConfirmation    ActionTag = "Payment Confirmation"
	ActionFeatureUpdate          ActionTag = "Feature Update"
)

var AllActionTags = []ActionTag{
	ActionNewListing,
	ActionPasswordUpdate,
	ActionListingInquiry,
	ActionListingUpdate,
	ActionProfileVerified,
	ActionAccountDeactivated,
	ActionNewMessage,
	ActionRoommateMatch,
	ActionReviewReceived,
	ActionApplicationStatus,
	ActionFavoriteListingUpdate,
	ActionListingExpiration,
	ActionAppointmentReminder,
	ActionRoommateRecommendation,
	ActionSecurityAlert,
	ActionPaymentConfirmation,
	ActionFeatureUpdate,
}

func (a ActionTag) Valid() bool {
	for _, t := range AllActionTags {
		if t == a {
			return true
		}
	}
	return false
}

// NotificationJob is the unit of work carried by the notification queue.
type NotificationJob struct {
	JobID       string          `json:"jobId"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Channels    []Channel       `json:"type"`
	Purpose     ActionTag       `json:"purpose"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
}

// Validate enforces the job contract: a recipient, a title, a known purpose
// and a non-empty list of known, distinct channels.
func (j *NotificationJob) Validate() error {
	if strings.TrimSpace(j.UserID) == "" || strings.TrimSpace(j.Title) == "" {
		return ErrInvalidJob
	}
	if !j.Purpose.Valid() {
		return ErrInvalidJob
	}
	if len(j.Channels) == 0 {
		return ErrInvalidJob
	}

	seen := make(map[Channel]bool, len(j.Channels))
	for _, c := range j.Channels {
		if !c.Valid() || seen[c] {
			return ErrInvalidJob
		}
		seen[c] = true
	}

	if len(j.Metadata) > 0 && !json.Valid(j.Metadata) {
		return ErrInvalidJob
	}
	return nil
}

func (j *NotificationJob) Wants(c Channel) bool {
	for _, ch := range j.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// Notification is the persisted record a user can list and mark as read.
type Notification struct {
	ID          string          `json:"id"`
	JobID       string          `json:"-"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Channels    []Channel       `json:"type"`
	Purpose     ActionTag       `json:"purpose"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IsRead      bool            `json:"isRead"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NotificationPayload is the body of a live NEW_NOTIFICATION event.
type NotificationPayload struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (n *Notification) Payload() NotificationPayload {
	return NotificationPayload{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
		Metadata:    n.Metadata,
	}
}

// Recipient is the contact profile the dispatcher resolves for a job.
type Recipient struct {
	UserID    string
	Email     string
	PushToken string
}
