package usecase

import (
	"context"
	stderrors "errors"
	"time"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/realtime"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

// Delivery mirrors ledger changes into the realtime store and turns realtime
// notifications into fresh reads of the document store. Nothing read from
// the realtime store is ever rendered.
type Delivery struct {
	store            service.RealtimeStore
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	enricher         *Enricher
	now              func() time.Time
}

func NewDelivery(
	store service.RealtimeStore,
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	enricher *Enricher,
) *Delivery {
	return &Delivery{
		store:            store,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		enricher:         enricher,
		now:              time.Now,
	}
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Mirror copies message and the conversation summary, then pings every
// participant's inbox. The writes are independent; every failure is joined
// into the returned error.
func (d *Delivery) Mirror(ctx context.Context, conversation *entity.Conversation, message *entity.Message) error {
	var errs []error

	payload := map[string]interface{}{
		"id":         message.ID,
		"senderId":   message.SenderID,
		"senderRole": message.SenderRole,
		"content":    message.Content,
		"type":       message.Type,
		"sentAt":     millis(message.SentAt),
		"isRead":     message.IsRead,
	}
	if message.AttachmentURL != "" {
		payload["attachmentUrl"] = message.AttachmentURL
	}
	if err := d.store.Set(ctx, realtime.MessagePath(conversation.ID, message.ID), payload); err != nil {
		errs = append(errs, err)
	}

	if err := d.store.Update(ctx, realtime.SummaryPath(conversation.ID), map[string]interface{}{
		"lastMessage":   message.Content,
		"lastMessageAt": millis(message.SentAt),
		"updatedAt":     millis(d.now()),
	}); err != nil {
		errs = append(errs, err)
	}

	if err := d.pingInboxes(ctx, conversation.ID, conversation.ParticipantIDs, message.SentAt); err != nil {
		errs = append(errs, err)
	}

	return stderrors.Join(errs...)
}

// MirrorRead records a read receipt under the conversation.
func (d *Delivery) MirrorRead(ctx context.Context, conversationID, messageID string, readAt time.Time) error {
	return d.store.Set(ctx, realtime.ReadReceiptPath(conversationID, messageID), map[string]interface{}{
		"readAt": millis(readAt),
	})
}

// Touch pings the given users' inboxes so their conversation lists refresh.
func (d *Delivery) Touch(ctx context.Context, conversationID string, userIDs ...string) error {
	return d.pingInboxes(ctx, conversationID, userIDs, d.now())
}

func (d *Delivery) pingInboxes(ctx context.Context, conversationID string, userIDs []string, at time.Time) error {
	var errs []error
	for _, userID := range userIDs {
		if err := d.store.Set(ctx, realtime.InboxEntryPath(userID, conversationID), map[string]interface{}{
			"updatedAt": millis(at),
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Subscribe exposes the raw change feed of a realtime path.
func (d *Delivery) Subscribe(ctx context.Context, path string, onChange func(service.Snapshot)) (service.Unsubscribe, error) {
	unsubscribe, err := d.store.Subscribe(ctx, path, onChange)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to subscribe")
	}
	return unsubscribe, nil
}

// WatchConversation renders the full message history of a conversation now
// and after every change to it.
func (d *Delivery) WatchConversation(ctx context.Context, conversationID string, render func([]*MessageView)) (service.Unsubscribe, error) {
	return d.Subscribe(ctx, realtime.ConversationPath(conversationID), func(service.Snapshot) {
		messages, _, err := d.messageRepo.ListByConversation(ctx, conversationID, 0, 0)
		if err != nil {
			logger.Warn("delivery: failed to refresh conversation %s: %v", conversationID, err)
			return
		}
		render(d.enricher.Messages(ctx, messages))
	})
}

// WatchInbox renders userID's active conversations now and whenever one of
// them changes.
func (d *Delivery) WatchInbox(ctx context.Context, userID string, render func([]*ConversationView)) (service.Unsubscribe, error) {
	return d.Subscribe(ctx, realtime.InboxPath(userID), func(service.Snapshot) {
		conversations, err := d.conversationRepo.ListActiveByParticipant(ctx, userID)
		if err != nil {
			logger.Warn("delivery: failed to refresh inbox of %s: %v", userID, err)
			return
		}
		render(d.enricher.Conversations(ctx, userID, conversations))
	})
}
