package entity

import "time"

const (
	EventMessageSent = "message.sent"
	EventMessageRead = "message.read"
)

// MessageEvent is published to the event bus after a ledger change so that
// downstream consumers (notification mailers, analytics) can react.
type MessageEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	RecipientIDs   []string  `json:"recipient_ids,omitempty"`
	ReaderID       string    `json:"reader_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
