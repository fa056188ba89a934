package usecase

import (
	"context"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/pkg/logger"
)

const unknownUserName = "Unknown user"

type ParticipantView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Role        string `json:"role,omitempty"`
	Verified    bool   `json:"verified"`
}

type ConversationView struct {
	*entity.Conversation
	OtherUser   *ParticipantView `json:"other_user,omitempty"`
	UnreadCount int              `json:"unread_count"`
}

type MessageView struct {
	*entity.Message
	SenderName string `json:"sender_name"`
}

// Enricher attaches profile data to conversations and messages. A profile
// that cannot be loaded degrades to a placeholder instead of failing the read.
type Enricher struct {
	userRepo repository.UserRepository
}

func NewEnricher(userRepo repository.UserRepository) *Enricher {
	return &Enricher{userRepo: userRepo}
}

func (e *Enricher) participant(ctx context.Context, cache map[string]*ParticipantView, userID string) *ParticipantView {
	if view, ok := cache[userID]; ok {
		return view
	}

	view := &ParticipantView{ID: userID, DisplayName: unknownUserName}
	user, err := e.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Debug("enrichment: profile %s unavailable: %v", userID, err)
	} else {
		view.DisplayName = user.DisplayName
		view.PhotoURL = user.PhotoURL
		view.Role = user.Role
		view.Verified = user.IsVerified()
		if view.DisplayName == "" {
			view.DisplayName = unknownUserName
		}
	}

	cache[userID] = view
	return view
}

func (e *Enricher) Conversation(ctx context.Context, viewerID string, conversation *entity.Conversation) *ConversationView {
	return e.Conversations(ctx, viewerID, []*entity.Conversation{conversation})[0]
}

func (e *Enricher) Conversations(ctx context.Context, viewerID string, conversations []*entity.Conversation) []*ConversationView {
	cache := make(map[string]*ParticipantView)
	views := make([]*ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		view := &ConversationView{
			Conversation: conversation,
			UnreadCount:  conversation.UnreadFor(viewerID),
		}
		if others := conversation.OtherParticipants(viewerID); len(others) > 0 {
			view.OtherUser = e.participant(ctx, cache, others[0])
		}
		views = append(views, view)
	}
	return views
}

func (e *Enricher) Messages(ctx context.Context, messages []*entity.Message) []*MessageView {
	cache := make(map[string]*ParticipantView)
	views := make([]*MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, &MessageView{
			Message:    message,
			SenderName: e.participant(ctx, cache, message.SenderID).DisplayName,
		})
	}
	return views
}
