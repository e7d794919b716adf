package activitymap

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-identity"
)

// Sink returns an identity.ActivitySink that normalizes each event and
// hands it to forward.
func Sink(forward func(ctx context.Context, record Normalized) error, opts ...Option) identity.ActivitySink {
	return identity.ActivitySinkFunc(func(ctx context.Context, event identity.ActivityEvent) error {
		if forward == nil {
			return nil
		}
		return forward(ctx, Normalize(event, opts...))
	})
}

// LogSink writes normalized events to logger at info level.
func LogSink(logger *zap.Logger, opts ...Option) identity.ActivitySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Sink(func(_ context.Context, record Normalized) error {
		logger.Info("activity",
			zap.String("actor_id", record.ActorID),
			zap.String("verb", record.Verb),
			zap.String("object_type", record.ObjectType),
			zap.String("object_id", record.ObjectID),
			zap.String("channel", record.Channel),
			zap.Any("metadata", record.Metadata),
			zap.Time("occurred_at", record.OccurredAt),
		)
		return nil
	}, opts...)
}
