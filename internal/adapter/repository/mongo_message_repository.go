package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

type mongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) repository.MessageRepository {
	return &mongoMessageRepository{
		collection: db.Collection(messagesCollection),
	}
}

// EnsureMessageIndexes creates the indexes the message queries rely on.
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "sentAt", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "sentAt", Value: 1}}},
	})
	return err
}

func (r *mongoMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("Message already exists", err)
		}
		return errors.StoreUnavailable("Failed to create message", err)
	}
	return nil
}

func (r *mongoMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	var message entity.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.StoreUnavailable("Failed to get message", err)
	}
	return &message, nil
}

func (r *mongoMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	filter := bson.M{"conversationId": conversationID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count messages", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to list messages", err)
	}

	var messages []*entity.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to decode messages", err)
	}
	return messages, total, nil
}

// MarkRead filters on isRead=false so the write is a no-op for messages that
// were already read and readAt keeps its first value.
func (r *mongoMessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (*entity.Message, bool, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var message entity.Message
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
		opts,
	).Decode(&message)
	if err == nil {
		return &message, true, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, errors.StoreUnavailable("Failed to mark message as read", err)
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *mongoMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"conversationId": conversationID, "isRead": false, "senderId": bson.M{"$ne": readerID}},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to mark conversation as read", err)
	}
	return int(result.ModifiedCount), nil
}

func (r *mongoMessageRepository) CountBySender(ctx context.Context, senderID string, from, to time.Time) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"senderId": senderID,
		"sentAt":   bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to count messages", err)
	}
	return int(count), nil
}
