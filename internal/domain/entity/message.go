package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// Message is append-only: only IsRead and ReadAt change after creation, and
// ReadAt is set once.
type Message struct {
	ID             string     `json:"id" firestore:"id" bson:"_id"`
	ConversationID string     `json:"conversation_id" firestore:"conversationId" bson:"conversationId"`
	SenderID       string     `json:"sender_id" firestore:"senderId" bson:"senderId"`
	SenderRole     string     `json:"sender_role" firestore:"senderRole" bson:"senderRole"`
	Content        string     `json:"content" firestore:"content" bson:"content"`
	Type           string     `json:"type" firestore:"type" bson:"type"`
	AttachmentURL  string     `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty" bson:"attachmentUrl,omitempty"`
	SentAt         time.Time  `json:"sent_at" firestore:"sentAt" bson:"sentAt"`
	IsRead         bool       `json:"is_read" firestore:"isRead" bson:"isRead"`
	ReadAt         *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty" bson:"readAt,omitempty"`
}

func IsValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}

func (m *Message) Summary() *MessageSummary {
	return &MessageSummary{
		MessageID: m.ID,
		Content:   m.Content,
		Type:      m.Type,
		SenderID:  m.SenderID,
		SentAt:    m.SentAt,
	}
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if m.ReadAt != nil {
		readAt := *m.ReadAt
		out.ReadAt = &readAt
	}
	return &out
}

// Before orders messages by SentAt, breaking ties with the time-ordered id.
func (m *Message) Before(other *Message) bool {
	if !m.SentAt.Equal(other.SentAt) {
		return m.SentAt.Before(other.SentAt)
	}
	return m.ID < other.ID
}
