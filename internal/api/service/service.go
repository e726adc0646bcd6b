package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/freelance-marketplace/internal/api/events"
	"github.com/cuongbtq/freelance-marketplace/internal/api/metrics"
	"github.com/cuongbtq/freelance-marketplace/internal/api/storage"
)

// publishTimeout bounds how long a request waits on the broker
const publishTimeout = 2 * time.Second

// Config holds the collaborators shared by the services
type Config struct {
	Store     storage.Store
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Now returns the server time used for postedAt and acceptedAt
	Now func() time.Time
}

type base struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func newBase(cfg *Config) base {
	b := base{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if b.publisher == nil {
		b.publisher = events.NopPublisher{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	return b
}

// publish sends the event detached from request cancellation and only logs failures
func (b *base) publish(ctx context.Context, eventType string, data map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := b.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		b.metrics.EventPublishFailed(eventType)
		b.logger.Warn("Failed to publish event",
			slog.String("type", eventType),
			slog.Any("error", err),
		)
	}
}
