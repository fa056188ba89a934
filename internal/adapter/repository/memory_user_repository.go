package repository

import (
	"context"
	"sync"

	"homelink/internal/domain/entity"
	"homelink/pkg/errors"
)

// MemoryUserRepository is a profile store for development and tests. Save is
// exposed because nothing else in this service writes profiles.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.User
}

func NewMemoryUserRepository(users ...*entity.User) *MemoryUserRepository {
	r := &MemoryUserRepository{items: make(map[string]*entity.User)}
	for _, u := range users {
		r.Save(u)
	}
	return r
}

func (r *MemoryUserRepository) Save(user *entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.items[user.ID] = &copied
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}
