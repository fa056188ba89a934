package events

import (
	"context"

	"go.uber.org/zap"

	"homelink/internal/domain/entity"
	"homelink/pkg/logger"
)

// LogPublisher writes events to the process log. Used when no broker is
// configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (LogPublisher) Publish(ctx context.Context, event entity.MessageEvent) error {
	logger.L().Info("message event",
		zap.String("type", event.Type),
		zap.String("conversation_id", event.ConversationID),
		zap.String("message_id", event.MessageID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
