package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"learnhub/internal/model"
)

// publishEvent hands a usage event to the async pipeline. Telemetry never
// fails the request it describes; errors are only logged.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, userID uint, kind model.EventKind, refID uint) {
	if publisher == nil {
		return
	}
	event := model.UsageEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		RefID:     refID,
		CreatedAt: time.Now(),
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish usage event failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
