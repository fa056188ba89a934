package usecase

import (
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/ratelimit"
)

// Stores groups the backends the messaging core runs on.
type Stores struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Users         repository.UserRepository
	Realtime      service.RealtimeStore
	Events        service.EventPublisher
}

// NewMessaging assembles the directory, ledger, delivery and counter over
// stores. rateLimiter may be nil.
func NewMessaging(stores Stores, rateLimiter *ratelimit.RateLimiter, policy SendPolicy) *MessagingUseCase {
	enricher := NewEnricher(stores.Users)
	delivery := NewDelivery(stores.Realtime, stores.Conversations, stores.Messages, enricher)
	ledger := NewMessageLedger(stores.Conversations, stores.Messages, delivery, stores.Events)

	return NewMessagingUseCase(
		NewConversationDirectory(stores.Conversations),
		ledger,
		delivery,
		NewWeeklyCounter(stores.Messages),
		enricher,
		stores.Conversations,
		stores.Users,
		rateLimiter,
		policy,
	)
}
