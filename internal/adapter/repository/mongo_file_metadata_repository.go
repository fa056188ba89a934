package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

type mongoFileMetadataRepository struct {
	collection *mongo.Collection
}

func NewMongoFileMetadataRepository(db *mongo.Database) repository.FileMetadataRepository {
	return &mongoFileMetadataRepository{collection: db.Collection(attachmentsCollection)}
}

func (r *mongoFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	if _, err := r.collection.InsertOne(ctx, metadata); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("Attachment already recorded", err)
		}
		return errors.StoreUnavailable("Failed to record attachment", err)
	}
	return nil
}

func (r *mongoFileMetadataRepository) GetByID(ctx context.Context, id string) (*entity.FileMetadata, error) {
	var metadata entity.FileMetadata
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&metadata); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Attachment", err)
		}
		return nil, errors.StoreUnavailable("Failed to get attachment", err)
	}
	return &metadata, nil
}

func (r *mongoFileMetadataRepository) ListByUploader(ctx context.Context, userID string, limit, offset int) ([]*entity.FileMetadata, int64, error) {
	filter := bson.M{"uploadedBy": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count attachments", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to list attachments", err)
	}
	var items []*entity.FileMetadata
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to decode attachments", err)
	}
	return items, total, nil
}

func (r *mongoFileMetadataRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.StoreUnavailable("Failed to delete attachment record", err)
	}
	return nil
}
