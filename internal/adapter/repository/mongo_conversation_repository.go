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

type mongoConversationRepository struct {
	collection *mongo.Collection
}

// NewMongoConversationRepository stores conversations keyed by their derived
// id in _id, so the unique primary key doubles as the pair constraint.
func NewMongoConversationRepository(db *mongo.Database) repository.ConversationRepository {
	return &mongoConversationRepository{
		collection: db.Collection(conversationsCollection),
	}
}

func (r *mongoConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	if _, err := r.collection.InsertOne(ctx, conversation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("Conversation already exists", err)
		}
		return errors.StoreUnavailable("Failed to create conversation", err)
	}
	return nil
}

func (r *mongoConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.StoreUnavailable("Failed to get conversation", err)
	}
	return &conversation, nil
}

func (r *mongoConversationRepository) ListActiveByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participantIds": userID, "isActive": true}, opts)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to list conversations", err)
	}

	var conversations []*entity.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, errors.StoreUnavailable("Failed to decode conversations", err)
	}
	return conversations, nil
}

func (r *mongoConversationRepository) RecordMessage(ctx context.Context, conversationID string, summary *entity.MessageSummary, senderID string, recipientIDs []string) error {
	set := bson.M{
		"lastMessage":              summary,
		"updatedAt":                summary.SentAt,
		"unreadCounts." + senderID: 0,
	}
	inc := bson.M{}
	for _, id := range recipientIDs {
		inc["unreadCounts."+id] = 1
	}

	update := bson.M{"$set": set}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	return r.updateOne(ctx, conversationID, update, "Failed to record message on conversation")
}

func (r *mongoConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	return r.updateOne(ctx, conversationID, bson.M{
		"$set": bson.M{"unreadCounts." + userID: 0},
	}, "Failed to reset unread counter")
}

func (r *mongoConversationRepository) SetActive(ctx context.Context, conversationID string, active bool, at time.Time) error {
	return r.updateOne(ctx, conversationID, bson.M{
		"$set": bson.M{"isActive": active, "updatedAt": at},
	}, "Failed to update conversation lifecycle")
}

func (r *mongoConversationRepository) updateOne(ctx context.Context, id string, update bson.M, message string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errors.StoreUnavailable(message, err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound("Conversation", nil)
	}
	return nil
}
