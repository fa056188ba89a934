package repository

import (
	"context"

	"homelink/internal/domain/entity"
)

type FileMetadataRepository interface {
	Create(ctx context.Context, metadata *entity.FileMetadata) error
	GetByID(ctx context.Context, id string) (*entity.FileMetadata, error)
	// ListByUploader returns newest first with the total count.
	ListByUploader(ctx context.Context, userID string, limit, offset int) ([]*entity.FileMetadata, int64, error)
	Delete(ctx context.Context, id string) error
}
