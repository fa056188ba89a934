package repository

import (
	"context"
	"time"

	"homelink/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)

	// ListByConversation returns messages ordered by sentAt then id, together
	// with the total number of messages in the conversation.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)

	// MarkRead flips isRead and sets readAt only if the message is still
	// unread. changed is false when it was already read.
	MarkRead(ctx context.Context, id string, at time.Time) (message *entity.Message, changed bool, err error)

	// MarkConversationRead marks every unread message in the conversation not
	// sent by readerID as read and returns how many changed.
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error)

	// CountBySender counts messages from senderID with from <= sentAt < to.
	CountBySender(ctx context.Context, senderID string, from, to time.Time) (int, error)
}
