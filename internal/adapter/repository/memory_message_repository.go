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

type memoryMessageRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.Message
}

func NewMemoryMessageRepository() repository.MessageRepository {
	return &memoryMessageRepository{
		items: make(map[string]*entity.Message),
	}
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[message.ID]; exists {
		return errors.Conflict("Message already exists", nil)
	}
	r.items[message.ID] = message.Clone()
	return nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return message.Clone(), nil
}

func (r *memoryMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.RLock()
	var all []*entity.Message
	for _, message := range r.items {
		if message.ConversationID == conversationID {
			all = append(all, message.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Before(all[j])
	})

	return page(all, limit, offset), int64(len(all)), nil
}

// page slices items by offset and limit. A limit of zero means no limit.
func page[T any](items []T, limit, offset int) []T {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

func (r *memoryMessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (*entity.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message, ok := r.items[id]
	if !ok {
		return nil, false, errors.NotFound("Message", nil)
	}
	if message.IsRead {
		return message.Clone(), false, nil
	}

	readAt := at
	message.IsRead = true
	message.ReadAt = &readAt
	return message.Clone(), true, nil
}

func (r *memoryMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for _, message := range r.items {
		if message.ConversationID != conversationID || message.SenderID == readerID || message.IsRead {
			continue
		}
		readAt := at
		message.IsRead = true
		message.ReadAt = &readAt
		changed++
	}
	return changed, nil
}

func (r *memoryMessageRepository) CountBySender(ctx context.Context, senderID string, from, to time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, message := range r.items {
		if message.SenderID != senderID {
			continue
		}
		if message.SentAt.Before(from) || !message.SentAt.Before(to) {
			continue
		}
		count++
	}
	return count, nil
}
