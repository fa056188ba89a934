package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

type memoryConversationRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.Conversation
}

// NewMemoryConversationRepository keeps conversations in process memory. Used
// by the memory document backend and by tests.
func NewMemoryConversationRepository() repository.ConversationRepository {
	return &memoryConversationRepository{
		items: make(map[string]*entity.Conversation),
	}
}

func (r *memoryConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[conversation.ID]; exists {
		return errors.Conflict("Conversation already exists", nil)
	}
	r.items[conversation.ID] = conversation.Clone()
	return nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversation, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation.Clone(), nil
}

func (r *memoryConversationRepository) ListActiveByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Conversation
	for _, conversation := range r.items {
		if conversation.IsActive && conversation.HasParticipant(userID) {
			out = append(out, conversation.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *memoryConversationRepository) RecordMessage(ctx context.Context, conversationID string, summary *entity.MessageSummary, senderID string, recipientIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.items[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}

	copied := *summary
	conversation.LastMessage = &copied
	conversation.UpdatedAt = summary.SentAt
	if conversation.UnreadCounts == nil {
		conversation.UnreadCounts = make(map[string]int)
	}
	conversation.UnreadCounts[senderID] = 0
	for _, id := range recipientIDs {
		conversation.UnreadCounts[id]++
	}
	return nil
}

func (r *memoryConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.items[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if conversation.UnreadCounts == nil {
		conversation.UnreadCounts = make(map[string]int)
	}
	conversation.UnreadCounts[userID] = 0
	return nil
}

func (r *memoryConversationRepository) SetActive(ctx context.Context, conversationID string, active bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.items[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.IsActive = active
	conversation.UpdatedAt = at
	return nil
}
