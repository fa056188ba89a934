package service

import (
	"context"

	"homelink/internal/domain/entity"
)

type EventPublisher interface {
	Publish(ctx context.Context, event entity.MessageEvent) error
	Close() error
}
