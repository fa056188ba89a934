package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

// NewFirestoreMessageRepository stores messages in a top-level collection so
// that per-sender weekly counts do not need a collection-group index.
func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	_, err := r.client.Collection(messagesCollection).Doc(message.ID).Create(ctx, message)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Message already exists", err)
		}
		return errors.StoreUnavailable("Failed to create message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.StoreUnavailable("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	base := r.client.Collection(messagesCollection).Where("conversationId", "==", conversationID)

	total, err := count(ctx, base)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count messages", err)
	}

	query := base.OrderBy("sentAt", firestore.Asc).OrderBy("id", firestore.Asc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.StoreUnavailable("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

// readUpdates returns the writes that mark message read for readerID, or
// nil when it is already read or readerID sent it. An empty readerID skips
// the sender check.
func readUpdates(message *entity.Message, readerID string, at time.Time) []firestore.Update {
	if message.IsRead || (readerID != "" && message.SenderID == readerID) {
		return nil
	}
	return []firestore.Update{
		{Path: "isRead", Value: true},
		{Path: "readAt", Value: at},
	}
}

// markOnce re-reads the message inside a transaction so readAt is written at
// most once, whichever of MarkRead and MarkConversationRead gets there first.
func (r *firestoreMessageRepository) markOnce(ctx context.Context, ref *firestore.DocumentRef, readerID string, at time.Time) (*entity.Message, bool, error) {
	var (
		result  entity.Message
		changed bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result, changed = entity.Message{}, false
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&result); err != nil {
			return err
		}

		updates := readUpdates(&result, readerID, at)
		if updates == nil {
			return nil
		}
		readAt := at
		result.IsRead = true
		result.ReadAt = &readAt
		changed = true
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, changed, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (*entity.Message, bool, error) {
	message, changed, err := r.markOnce(ctx, r.client.Collection(messagesCollection).Doc(id), "", at)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, errors.NotFound("Message", err)
		}
		return nil, false, errors.StoreUnavailable("Failed to mark message as read", err)
	}
	return message, changed, nil
}

// MarkConversationRead uses the unread query only to find candidates. Each
// flip is its own transaction so a receipt that lands in between is kept.
func (r *firestoreMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error) {
	iter := r.client.Collection(messagesCollection).
		Where("conversationId", "==", conversationID).
		Where("isRead", "==", false).
		Documents(ctx)
	defer iter.Stop()

	changed := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return changed, errors.StoreUnavailable("Failed to load unread messages", err)
		}

		_, flipped, err := r.markOnce(ctx, doc.Ref, readerID, at)
		if err != nil {
			return changed, errors.StoreUnavailable("Failed to mark message as read", err)
		}
		if flipped {
			changed++
		}
	}

	return changed, nil
}

func (r *firestoreMessageRepository) CountBySender(ctx context.Context, senderID string, from, to time.Time) (int, error) {
	total, err := count(ctx, r.client.Collection(messagesCollection).
		Where("senderId", "==", senderID).
		Where("sentAt", ">=", from).
		Where("sentAt", "<", to))
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to count messages", err)
	}
	return int(total), nil
}

// count runs a server-side COUNT aggregation instead of fetching documents.
func count(ctx context.Context, query firestore.Query) (int64, error) {
	result, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	value, ok := result["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result %T", result["total"])
	}
	return value.GetIntegerValue(), nil
}
