package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

// maxContentLength is measured in characters, not bytes.
const maxContentLength = 5000

// Mirror is the part of the delivery layer the ledger writes through.
type Mirror interface {
	Mirror(ctx context.Context, conversation *entity.Conversation, message *entity.Message) error
	MirrorRead(ctx context.Context, conversationID, messageID string, readAt time.Time) error
	Touch(ctx context.Context, conversationID string, userIDs ...string) error
}

type AppendInput struct {
	ConversationID string
	SenderID       string
	SenderRole     string
	Content        string
	Type           string
	AttachmentURL  string
}

func (in *AppendInput) normalize() error {
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	in.SenderID = strings.TrimSpace(in.SenderID)
	in.AttachmentURL = strings.TrimSpace(in.AttachmentURL)
	if in.Type == "" {
		in.Type = entity.MessageTypeText
	}

	switch {
	case in.ConversationID == "":
		return errors.InvalidInput("conversation id is required", nil)
	case in.SenderID == "":
		return errors.InvalidInput("sender id is required", nil)
	case !entity.IsValidMessageType(in.Type):
		return errors.InvalidInput("type must be one of: text image file", nil)
	case utf8.RuneCountInString(in.Content) > maxContentLength:
		return errors.InvalidInput("content is too long", nil)
	}

	if in.Type == entity.MessageTypeText {
		if strings.TrimSpace(in.Content) == "" {
			return errors.InvalidInput("content is required", nil)
		}
		if in.AttachmentURL != "" {
			return errors.InvalidInput("text messages cannot carry an attachment", nil)
		}
		return nil
	}

	if in.AttachmentURL == "" {
		return errors.InvalidInput("attachment url is required for "+in.Type+" messages", nil)
	}
	return nil
}

// MessageLedger is the append-only record of messages. It trusts its caller
// on sender identity but always checks that the conversation exists.
type MessageLedger struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	mirror           Mirror
	events           service.EventPublisher
	now              func() time.Time
}

func NewMessageLedger(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	mirror Mirror,
	events service.EventPublisher,
) *MessageLedger {
	return &MessageLedger{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		mirror:           mirror,
		events:           events,
		now:              time.Now,
	}
}

// Append stores a new message. Once the message record is written the call
// succeeds; failures of the follow-up steps are logged as partial failures.
func (l *MessageLedger) Append(ctx context.Context, input AppendInput) (*entity.Message, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	conversation, err := l.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load conversation")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal("Failed to generate message id", err)
	}

	message := &entity.Message{
		ID:             id.String(),
		ConversationID: conversation.ID,
		SenderID:       input.SenderID,
		SenderRole:     input.SenderRole,
		Content:        input.Content,
		Type:           input.Type,
		AttachmentURL:  input.AttachmentURL,
		SentAt:         l.now(),
		IsRead:         false,
	}
	if err := l.messageRepo.Create(ctx, message); err != nil {
		return nil, errors.Wrap(err, "Failed to store message")
	}

	recipients := conversation.OtherParticipants(message.SenderID)
	if err := l.conversationRepo.RecordMessage(ctx, conversation.ID, message.Summary(), message.SenderID, recipients); err != nil {
		logger.PartialFailure("conversation.record_message", conversation.ID, err)
	} else {
		conversation.LastMessage = message.Summary()
		conversation.UpdatedAt = message.SentAt
	}

	if err := l.mirror.Mirror(ctx, conversation, message); err != nil {
		logger.PartialFailure("delivery.mirror", message.ID, err)
	}

	l.publish(ctx, entity.MessageEvent{
		Type:           entity.EventMessageSent,
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		SenderID:       message.SenderID,
		RecipientIDs:   recipients,
		OccurredAt:     message.SentAt,
	})

	return message, nil
}

// MarkRead marks a message read once. Later calls return the message
// unchanged with changed=false.
func (l *MessageLedger) MarkRead(ctx context.Context, messageID, readerID string) (*entity.Message, bool, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, false, errors.InvalidInput("message id is required", nil)
	}

	message, changed, err := l.messageRepo.MarkRead(ctx, messageID, l.now())
	if err != nil {
		return nil, false, errors.Wrap(err, "Failed to mark message as read")
	}
	if !changed {
		return message, false, nil
	}

	if err := l.mirror.MirrorRead(ctx, message.ConversationID, message.ID, *message.ReadAt); err != nil {
		logger.PartialFailure("delivery.mirror_read", message.ID, err)
	}
	l.publish(ctx, entity.MessageEvent{
		Type:           entity.EventMessageRead,
		ConversationID: message.ConversationID,
		MessageID:      message.ID,
		SenderID:       message.SenderID,
		ReaderID:       readerID,
		OccurredAt:     *message.ReadAt,
	})
	return message, true, nil
}

// MarkConversationRead clears readerID's unread counter and marks every
// message the other side sent as read. It returns how many messages changed.
func (l *MessageLedger) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int, error) {
	if conversationID == "" || readerID == "" {
		return 0, errors.InvalidInput("conversation id and reader id are required", nil)
	}

	if _, err := l.conversationRepo.GetByID(ctx, conversationID); err != nil {
		return 0, errors.Wrap(err, "Failed to load conversation")
	}
	if err := l.conversationRepo.ResetUnread(ctx, conversationID, readerID); err != nil {
		return 0, errors.Wrap(err, "Failed to reset unread counter")
	}

	changed, err := l.messageRepo.MarkConversationRead(ctx, conversationID, readerID, l.now())
	if err != nil {
		return 0, errors.Wrap(err, "Failed to mark messages as read")
	}

	if err := l.mirror.Touch(ctx, conversationID, readerID); err != nil {
		logger.PartialFailure("delivery.touch", conversationID, err)
	}
	return changed, nil
}

// List returns a page of the conversation's messages, oldest first.
func (l *MessageLedger) List(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	messages, total, err := l.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Failed to list messages")
	}
	return messages, total, nil
}

func (l *MessageLedger) publish(ctx context.Context, event entity.MessageEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(ctx, event); err != nil {
		logger.PartialFailure("events.publish", event.MessageID, err)
	}
}
