package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/ratelimit"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

// SendPolicy caps how many messages an unverified sender may send per week.
// A WeeklyCap of zero disables the cap.
type SendPolicy struct {
	WeeklyCap int
}

type MessagingUseCase struct {
	directory        *ConversationDirectory
	ledger           *MessageLedger
	delivery         *Delivery
	counter          *WeeklyCounter
	enricher         *Enricher
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	rateLimiter      *ratelimit.RateLimiter
	policy           SendPolicy
	now              func() time.Time
}

func NewMessagingUseCase(
	directory *ConversationDirectory,
	ledger *MessageLedger,
	delivery *Delivery,
	counter *WeeklyCounter,
	enricher *Enricher,
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	rateLimiter *ratelimit.RateLimiter,
	policy SendPolicy,
) *MessagingUseCase {
	return &MessagingUseCase{
		directory:        directory,
		ledger:           ledger,
		delivery:         delivery,
		counter:          counter,
		enricher:         enricher,
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		rateLimiter:      rateLimiter,
		policy:           policy,
		now:              time.Now,
	}
}

type StartConversationInput struct {
	RecipientID      string
	ListingReference string
	InitialMessage   string
	Type             string
	AttachmentURL    string
}

type StartConversationResult struct {
	Conversation *ConversationView `json:"conversation"`
	IsNew        bool              `json:"is_new"`
	Message      *entity.Message   `json:"message,omitempty"`
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	Type           string
	AttachmentURL  string
}

type WeeklyQuota struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Unlimited bool      `json:"unlimited"`
	Remaining int       `json:"remaining"`
	WeekStart time.Time `json:"week_start"`
	ResetsAt  time.Time `json:"resets_at"`
}

func requireActor(actor Actor) error {
	if actor.UserID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	return nil
}

func (uc *MessagingUseCase) allow(actor Actor, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	if allowed, wait := uc.rateLimiter.Allow(actor.UserID, action); !allowed {
		logger.Warn("rate limited: user %s action %s must wait %v", actor.UserID, action, wait)
		return errors.TooManyRequests(fmt.Sprintf("Too many requests, retry in %s", wait.Round(time.Second)), nil)
	}
	return nil
}

// conversationFor loads a conversation the actor takes part in. Admins may
// read any conversation when allowAdmin is set.
func (uc *MessagingUseCase) conversationFor(ctx context.Context, actor Actor, conversationID string, allowAdmin bool) (*entity.Conversation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.InvalidInput("conversation id is required", nil)
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load conversation")
	}
	if conversation.HasParticipant(actor.UserID) || (allowAdmin && actor.IsAdmin()) {
		return conversation, nil
	}
	return nil, errors.Forbidden("You are not a participant of this conversation", nil)
}

func (uc *MessagingUseCase) StartConversation(ctx context.Context, actor Actor, input StartConversationInput) (*StartConversationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := uc.allow(actor, ratelimit.ActionStartConversation); err != nil {
		return nil, err
	}

	// Profiles are synced from the listings service and may lag behind
	// identities, so the recipient is not looked up here. Enrichment shows
	// an unsynced recipient as an unknown user.
	recipientID := strings.TrimSpace(input.RecipientID)
	conversation, isNew, err := uc.directory.FindOrCreate(ctx, actor.UserID, recipientID, input.ListingReference)
	if err != nil {
		return nil, err
	}

	result := &StartConversationResult{IsNew: isNew}
	if input.InitialMessage != "" || input.AttachmentURL != "" {
		message, err := uc.send(ctx, actor, conversation, SendMessageInput{
			ConversationID: conversation.ID,
			Content:        input.InitialMessage,
			Type:           input.Type,
			AttachmentURL:  input.AttachmentURL,
		})
		if err != nil {
			// the conversation stays; a later start finds it again
			return nil, err
		}
		result.Message = message

		if refreshed, err := uc.conversationRepo.GetByID(ctx, conversation.ID); err == nil {
			conversation = refreshed
		}
	}

	result.Conversation = uc.enricher.Conversation(ctx, actor.UserID, conversation)
	return result, nil
}

func (uc *MessagingUseCase) SendMessage(ctx context.Context, actor Actor, input SendMessageInput) (*entity.Message, error) {
	conversation, err := uc.conversationFor(ctx, actor, input.ConversationID, false)
	if err != nil {
		return nil, err
	}
	if !conversation.IsActive {
		return nil, errors.Conflict("Conversation is no longer active", nil)
	}
	return uc.send(ctx, actor, conversation, input)
}

func (uc *MessagingUseCase) send(ctx context.Context, actor Actor, conversation *entity.Conversation, input SendMessageInput) (*entity.Message, error) {
	if err := uc.allow(actor, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}
	if err := uc.checkWeeklyCap(ctx, actor); err != nil {
		return nil, err
	}

	return uc.ledger.Append(ctx, AppendInput{
		ConversationID: conversation.ID,
		SenderID:       actor.UserID,
		SenderRole:     actor.Role,
		Content:        input.Content,
		Type:           input.Type,
		AttachmentURL:  input.AttachmentURL,
	})
}

// verified reports whether the sender's profile is verified. A missing
// profile counts as unverified.
func (uc *MessagingUseCase) verified(ctx context.Context, userID string) (bool, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "Failed to load sender profile")
	}
	return user.IsVerified(), nil
}

func (uc *MessagingUseCase) checkWeeklyCap(ctx context.Context, actor Actor) error {
	if uc.policy.WeeklyCap <= 0 || actor.IsAdmin() {
		return nil
	}

	verified, err := uc.verified(ctx, actor.UserID)
	if err != nil || verified {
		return err
	}

	sent, err := uc.counter.CountThisWeek(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if sent >= uc.policy.WeeklyCap {
		return errors.TooManyRequests(fmt.Sprintf("Unverified accounts can send %d messages per week. Verify your account to remove the limit", uc.policy.WeeklyCap), nil)
	}
	return nil
}

func (uc *MessagingUseCase) WeeklyQuota(ctx context.Context, actor Actor) (*WeeklyQuota, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	sent, err := uc.counter.CountThisWeek(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	start := WeekStart(uc.counter.now())
	quota := &WeeklyQuota{
		Used:      sent,
		Limit:     uc.policy.WeeklyCap,
		WeekStart: start,
		ResetsAt:  WeekEnd(start),
	}

	verified, err := uc.verified(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if verified || actor.IsAdmin() || uc.policy.WeeklyCap <= 0 {
		quota.Unlimited = true
		quota.Limit = 0
		return quota, nil
	}

	if quota.Remaining = quota.Limit - sent; quota.Remaining < 0 {
		quota.Remaining = 0
	}
	return quota, nil
}

func (uc *MessagingUseCase) GetConversation(ctx context.Context, actor Actor, conversationID string) (*ConversationView, error) {
	conversation, err := uc.conversationFor(ctx, actor, conversationID, true)
	if err != nil {
		return nil, err
	}
	return uc.enricher.Conversation(ctx, actor.UserID, conversation), nil
}

func (uc *MessagingUseCase) ListConversations(ctx context.Context, actor Actor) ([]*ConversationView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	conversations, err := uc.conversationRepo.ListActiveByParticipant(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to list conversations")
	}
	return uc.enricher.Conversations(ctx, actor.UserID, conversations), nil
}

func (uc *MessagingUseCase) GetMessages(ctx context.Context, actor Actor, conversationID string, limit, offset int) ([]*MessageView, int64, error) {
	if _, err := uc.conversationFor(ctx, actor, conversationID, true); err != nil {
		return nil, 0, err
	}

	messages, total, err := uc.ledger.List(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return uc.enricher.Messages(ctx, messages), total, nil
}

// MarkMessageRead marks a message read on behalf of a recipient. Senders
// reading their own message get it back unchanged.
func (uc *MessagingUseCase) MarkMessageRead(ctx context.Context, actor Actor, conversationID, messageID string) (*entity.Message, error) {
	if _, err := uc.conversationFor(ctx, actor, conversationID, false); err != nil {
		return nil, err
	}

	message, err := uc.ledger.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load message")
	}
	if message.ConversationID != conversationID {
		return nil, errors.NotFound("Message", nil)
	}
	if message.SenderID == actor.UserID {
		return message, nil
	}

	message, _, err = uc.ledger.MarkRead(ctx, messageID, actor.UserID)
	return message, err
}

func (uc *MessagingUseCase) MarkConversationRead(ctx context.Context, actor Actor, conversationID string) (int, error) {
	if _, err := uc.conversationFor(ctx, actor, conversationID, false); err != nil {
		return 0, err
	}
	return uc.ledger.MarkConversationRead(ctx, conversationID, actor.UserID)
}

// DeactivateConversation closes a conversation. It is never deleted and a
// later StartConversation between the same users reopens it.
func (uc *MessagingUseCase) DeactivateConversation(ctx context.Context, actor Actor, conversationID string) error {
	conversation, err := uc.conversationFor(ctx, actor, conversationID, true)
	if err != nil {
		return err
	}
	if !conversation.IsActive {
		return nil
	}

	if err := uc.conversationRepo.SetActive(ctx, conversationID, false, uc.now()); err != nil {
		return errors.Wrap(err, "Failed to deactivate conversation")
	}
	if err := uc.delivery.Touch(ctx, conversationID, conversation.ParticipantIDs...); err != nil {
		logger.PartialFailure("delivery.touch", conversationID, err)
	}
	logger.Info("conversation %s deactivated by %s", conversationID, actor.UserID)
	return nil
}

// WatchConversation pushes the conversation's messages to render now and
// after every change until ctx ends or the subscription is cancelled.
func (uc *MessagingUseCase) WatchConversation(ctx context.Context, actor Actor, conversationID string, render func([]*MessageView)) (service.Unsubscribe, error) {
	if _, err := uc.conversationFor(ctx, actor, conversationID, true); err != nil {
		return nil, err
	}
	return uc.delivery.WatchConversation(ctx, conversationID, render)
}

func (uc *MessagingUseCase) WatchInbox(ctx context.Context, actor Actor, render func([]*ConversationView)) (service.Unsubscribe, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return uc.delivery.WatchInbox(ctx, actor.UserID, render)
}
