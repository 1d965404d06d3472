package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/yinan077/PassGate/internal/app/model"
	apprepository "github.com/yinan077/PassGate/internal/app/repository"
	"go.uber.org/zap"
)

// VisitConsumer drains visit events from NATS JetStream into Postgres.
type VisitConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.VisitEventRepository
}

// NewVisitConsumer creates a new visit event consumer.
func NewVisitConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.VisitEventRepository) *VisitConsumer {
	return &VisitConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist, then begins consuming.
func (c *VisitConsumer) Start() error {
	_, err := c.js.StreamInfo(model.VisitStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.VisitStreamName,
			Subjects: []string{model.VisitStreamSubject},
			MaxBytes: model.VisitStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.VisitStreamName, model.VisitConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.VisitStreamName, &nats.ConsumerConfig{
			Durable:   model.VisitConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.VisitStreamSubject, model.VisitConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *VisitConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.VisitEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal visit event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store visit event",
					zap.String("id", event.ID),
					zap.String("visitor_uuid", event.VisitorUUID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("visit event stored",
				zap.String("id", event.ID),
				zap.String("visitor_uuid", event.VisitorUUID),
				zap.String("ip", event.IP),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}
