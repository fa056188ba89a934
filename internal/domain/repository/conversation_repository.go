package repository

import (
	"context"
	"time"

	"homelink/internal/domain/entity"
)

// ConversationRepository owns conversation records in the document store.
// Counter updates are keyed-path writes so concurrent senders never clobber
// each other's unread counters.
type ConversationRepository interface {
	// Create stores conversation under its id and fails with a CONFLICT
	// AppError when a record with that id already exists.
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListActiveByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)

	// RecordMessage sets the last message summary and updatedAt, resets the
	// sender's unread counter and increments every recipient's counter by one.
	RecordMessage(ctx context.Context, conversationID string, summary *entity.MessageSummary, senderID string, recipientIDs []string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	SetActive(ctx context.Context, conversationID string, active bool, at time.Time) error
}
