package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// MessageSummary is the denormalized copy of the latest message kept on the
// conversation for list views. It is never authoritative.
type MessageSummary struct {
	MessageID string    `json:"message_id" firestore:"messageId" bson:"messageId"`
	Content   string    `json:"content" firestore:"content" bson:"content"`
	Type      string    `json:"type" firestore:"type" bson:"type"`
	SenderID  string    `json:"sender_id" firestore:"senderId" bson:"senderId"`
	SentAt    time.Time `json:"sent_at" firestore:"sentAt" bson:"sentAt"`
}

type Conversation struct {
	ID               string          `json:"id" firestore:"id" bson:"_id"`
	ParticipantIDs   []string        `json:"participant_ids" firestore:"participantIds" bson:"participantIds"`
	ListingReference string          `json:"listing_reference,omitempty" firestore:"listingReference" bson:"listingReference"`
	LastMessage      *MessageSummary `json:"last_message,omitempty" firestore:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	UnreadCounts     map[string]int  `json:"unread_counts" firestore:"unreadCounts" bson:"unreadCounts"`
	IsActive         bool            `json:"is_active" firestore:"isActive" bson:"isActive"`
	CreatedAt        time.Time       `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time       `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// HasParticipant is a membership test; participant order carries no meaning.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.ParticipantIDs {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except userID.
func (c *Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.ParticipantIDs))
	for _, p := range c.ParticipantIDs {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

// Matches reports whether the conversation links exactly a and b about the
// given listing. An empty listing only matches an empty listing.
func (c *Conversation) Matches(a, b, listingReference string) bool {
	if len(c.ParticipantIDs) != 2 {
		return false
	}
	return c.HasParticipant(a) && c.HasParticipant(b) && c.ListingReference == listingReference
}

func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	out.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		out.UnreadCounts[k] = v
	}
	if c.LastMessage != nil {
		summary := *c.LastMessage
		out.LastMessage = &summary
	}
	return &out
}

// ConversationKey derives the identity of the conversation between a and b
// (in either order) about listingReference. Using it as the document id turns
// find-or-create into a single conditional put.
func ConversationKey(a, b, listingReference string) string {
	pair := []string{a, b}
	sort.Strings(pair)

	h := sha256.New()
	h.Write([]byte(pair[0]))
	h.Write([]byte{0})
	h.Write([]byte(pair[1]))
	h.Write([]byte{0})
	h.Write([]byte(listingReference))
	return "conv_" + hex.EncodeToString(h.Sum(nil))[:32]
}

// NewConversation builds an active conversation with zeroed unread counters.
func NewConversation(id, a, b, listingReference string, now time.Time) *Conversation {
	return &Conversation{
		ID:               id,
		ParticipantIDs:   []string{a, b},
		ListingReference: listingReference,
		UnreadCounts:     map[string]int{a: 0, b: 0},
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
