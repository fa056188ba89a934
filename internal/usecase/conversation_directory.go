package usecase

import (
	"context"
	"strings"
	"time"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

// ConversationDirectory resolves the single conversation between two users
// about an optional listing, creating it on first contact.
type ConversationDirectory struct {
	conversationRepo repository.ConversationRepository
	now              func() time.Time
}

func NewConversationDirectory(conversationRepo repository.ConversationRepository) *ConversationDirectory {
	return &ConversationDirectory{
		conversationRepo: conversationRepo,
		now:              time.Now,
	}
}

// FindOrCreate returns the conversation for the unordered pair {a, b} and
// listingReference. isNew is true only when this call created it.
//
// The conversation id is derived from its participants, so a create that
// races another creator fails with CONFLICT and resolves to the winner's
// record. Conversations created before ids were derived are still found by
// scanning a's active conversations.
func (d *ConversationDirectory) FindOrCreate(ctx context.Context, a, b, listingReference string) (*entity.Conversation, bool, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	listingReference = strings.TrimSpace(listingReference)
	if a == "" || b == "" {
		return nil, false, errors.InvalidInput("Both participant ids are required", nil)
	}
	if a == b {
		return nil, false, errors.InvalidInput("A conversation needs two distinct participants", nil)
	}

	id := entity.ConversationKey(a, b, listingReference)

	conversation, err := d.resolve(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if conversation != nil {
		return conversation, false, nil
	}

	legacy, err := d.conversationRepo.ListActiveByParticipant(ctx, a)
	if err != nil {
		return nil, false, errors.Wrap(err, "Failed to look up conversations")
	}
	for _, c := range legacy {
		if c.Matches(a, b, listingReference) {
			return c, false, nil
		}
	}

	conversation = entity.NewConversation(id, a, b, listingReference, d.now())
	if err := d.conversationRepo.Create(ctx, conversation); err != nil {
		if !errors.Is(err, errors.CodeConflict) {
			return nil, false, errors.Wrap(err, "Failed to create conversation")
		}

		logger.Debug("conversation %s created concurrently, using existing record", id)
		existing, err := d.resolve(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errors.StoreUnavailable("Conversation vanished after conflicting create", nil)
		}
		return existing, false, nil
	}

	logger.Info("conversation %s created for %s and %s", id, a, b)
	return conversation, true, nil
}

// resolve loads id, reactivating it if it was deactivated. It returns nil
// without error when no record exists.
func (d *ConversationDirectory) resolve(ctx context.Context, id string) (*entity.Conversation, error) {
	conversation, err := d.conversationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Failed to look up conversation")
	}
	if conversation.IsActive {
		return conversation, nil
	}

	at := d.now()
	if err := d.conversationRepo.SetActive(ctx, id, true, at); err != nil {
		return nil, errors.Wrap(err, "Failed to reactivate conversation")
	}
	conversation.IsActive = true
	conversation.UpdatedAt = at
	logger.Info("conversation %s reactivated", id)
	return conversation, nil
}
