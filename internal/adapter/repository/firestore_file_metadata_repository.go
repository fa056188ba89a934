package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

const attachmentsCollection = "attachments"

type firestoreFileMetadataRepository struct {
	client *firestore.Client
}

func NewFirestoreFileMetadataRepository(client *firestore.Client) repository.FileMetadataRepository {
	return &firestoreFileMetadataRepository{
		client: client,
	}
}

func (r *firestoreFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	_, err := r.client.Collection(attachmentsCollection).Doc(metadata.ID).Create(ctx, metadata)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Attachment already recorded", err)
		}
		return errors.StoreUnavailable("Failed to record attachment", err)
	}
	return nil
}

func (r *firestoreFileMetadataRepository) GetByID(ctx context.Context, id string) (*entity.FileMetadata, error) {
	doc, err := r.client.Collection(attachmentsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Attachment", err)
		}
		return nil, errors.StoreUnavailable("Failed to get attachment", err)
	}

	var metadata entity.FileMetadata
	if err := doc.DataTo(&metadata); err != nil {
		return nil, errors.Internal("Failed to parse attachment", err)
	}
	return &metadata, nil
}

func (r *firestoreFileMetadataRepository) ListByUploader(ctx context.Context, userID string, limit, offset int) ([]*entity.FileMetadata, int64, error) {
	base := r.client.Collection(attachmentsCollection).Where("uploadedBy", "==", userID)

	total, err := count(ctx, base)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count attachments", err)
	}

	query := base.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []*entity.FileMetadata
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.StoreUnavailable("Failed to list attachments", err)
		}

		var metadata entity.FileMetadata
		if err := doc.DataTo(&metadata); err != nil {
			logger.Error("Failed to parse attachment %s: %v", doc.Ref.ID, err)
			continue
		}
		items = append(items, &metadata)
	}
	return items, total, nil
}

func (r *firestoreFileMetadataRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection(attachmentsCollection).Doc(id).Delete(ctx); err != nil {
		return errors.StoreUnavailable("Failed to delete attachment record", err)
	}
	return nil
}
