package domain

import (
	"fmt"
	"time"
)

type ListingType string

const (
	ListingRoom     ListingType = "Room"
	ListingRoommate ListingType = "Roommate"
)

func (t ListingType) Valid() bool {
	return t == ListingRoom || t == ListingRoommate
}

type Conversation struct {
	ID                string      `json:"id"`
	UserIDs           [2]string   `json:"userIds"`
	ListingType       ListingType `json:"listingType"`
	RoomListingID     *string     `json:"roomListingId,omitempty"`
	RoommateListingID *string     `json:"roommateListingId,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// NewConversation validates the participant pair and attaches the listing
// reference to the column that matches the listing type.
func NewConversation(id string, participants []string, listingType ListingType, listingID string, now time.Time) (*Conversation, error) {
	if id == "" || len(participants) != 2 {
		return nil, ErrInvalidInput
	}
	a, b := participants[0], participants[1]
	if a == "" || b == "" || a == b {
		return nil, ErrInvalidInput
	}
	if !listingType.Valid() {
		return nil, ErrInvalidInput
	}

	c := &Conversation{
		ID:          id,
		UserIDs:     [2]string{a, b},
		ListingType: listingType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if listingID != "" {
		ref := listingID
		if listingType == ListingRoom {
			c.RoomListingID = &ref
		} else {
			c.RoommateListingID = &ref
		}
	}
	return c, nil
}

// LookupKey identifies the unordered participant pair.
func LookupKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("direct:%s:%s", a, b)
}

func (c *Conversation) LookupKey() string {
	return LookupKey(c.UserIDs[0], c.UserIDs[1])
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserIDs[0] == userID || c.UserIDs[1] == userID
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.UserIDs[0]:
		return c.UserIDs[1]
	case c.UserIDs[1]:
		return c.UserIDs[0]
	}
	return ""
}
