package data

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/media-index-backend/internal/ingest/biz"
	"github.com/lk2023060901/media-index-backend/internal/pkg/redis"
)

// LogSink writes run notices to the service log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, text string) {
	s.logger.Info("ingestion notice", zap.String("text", text))
}

// RedisSink publishes run notices to a pub/sub channel so external
// consumers (the bot layer, dashboards) can relay them. Publish failures
// are logged and swallowed; notices are best effort.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisSink(client *redis.Client, channel string, logger *zap.Logger) *RedisSink {
	return &RedisSink{client: client, channel: channel, logger: logger}
}

func (s *RedisSink) Notify(ctx context.Context, text string) {
	if err := s.client.Publish(ctx, s.channel, text); err != nil {
		s.logger.Warn("notice publish failed",
			zap.String("channel", s.channel),
			zap.Error(err),
		)
	}
}

// MultiSink fans one notice out to several sinks.
type MultiSink []biz.NotificationSink

func (m MultiSink) Notify(ctx context.Context, text string) {
	for _, s := range m {
		s.Notify(ctx, text)
	}
}
