package repository

import (
	"context"
	"sort"
	"sync"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

type memoryFileMetadataRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.FileMetadata
}

func NewMemoryFileMetadataRepository() repository.FileMetadataRepository {
	return &memoryFileMetadataRepository{items: make(map[string]*entity.FileMetadata)}
}

func (r *memoryFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[metadata.ID]; exists {
		return errors.Conflict("Attachment already recorded", nil)
	}
	copied := *metadata
	r.items[metadata.ID] = &copied
	return nil
}

func (r *memoryFileMetadataRepository) GetByID(ctx context.Context, id string) (*entity.FileMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("Attachment", nil)
	}
	copied := *metadata
	return &copied, nil
}

func (r *memoryFileMetadataRepository) ListByUploader(ctx context.Context, userID string, limit, offset int) ([]*entity.FileMetadata, int64, error) {
	r.mu.RLock()
	var matched []*entity.FileMetadata
	for _, metadata := range r.items {
		if metadata.UploadedBy == userID {
			copied := *metadata
			matched = append(matched, &copied)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (r *memoryFileMetadataRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}
