package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
)

const conversationsCollection = "conversations"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

// Create uses DocumentRef.Create, which fails with AlreadyExists instead of
// overwriting, so two racing creators of the same pair cannot both win.
func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	_, err := r.doc(conversation.ID).Create(ctx, conversation)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists", err)
		}
		return errors.StoreUnavailable("Failed to create conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.StoreUnavailable("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conversation.ID = doc.Ref.ID

	return &conversation, nil
}

// ListActiveByParticipant cannot ask Firestore for "contains both X and Y",
// so it returns every active conversation of userID and leaves pair matching
// to the caller.
func (r *firestoreConversationRepository) ListActiveByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.client.Collection(conversationsCollection).
		Where("participantIds", "array-contains", userID).
		Where("isActive", "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to list conversations", err)
	}

	conversations := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversation.ID = doc.Ref.ID
		conversations = append(conversations, &conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

func (r *firestoreConversationRepository) RecordMessage(ctx context.Context, conversationID string, summary *entity.MessageSummary, senderID string, recipientIDs []string) error {
	updates := []firestore.Update{
		{Path: "lastMessage", Value: summary},
		{Path: "updatedAt", Value: summary.SentAt},
		{FieldPath: firestore.FieldPath{"unreadCounts", senderID}, Value: 0},
	}
	for _, id := range recipientIDs {
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath{"unreadCounts", id},
			Value:     firestore.Increment(1),
		})
	}

	return r.update(ctx, conversationID, updates, "Failed to record message on conversation")
}

func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	return r.update(ctx, conversationID, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCounts", userID}, Value: 0},
	}, "Failed to reset unread counter")
}

func (r *firestoreConversationRepository) SetActive(ctx context.Context, conversationID string, active bool, at time.Time) error {
	return r.update(ctx, conversationID, []firestore.Update{
		{Path: "isActive", Value: active},
		{Path: "updatedAt", Value: at},
	}, "Failed to update conversation lifecycle")
}

func (r *firestoreConversationRepository) update(ctx context.Context, id string, updates []firestore.Update, message string) error {
	if _, err := r.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.StoreUnavailable(message, err)
	}
	return nil
}
