package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/yinan077/PassGate/internal/app/model"
)

// VisitPublisher publishes gate visit events to NATS JetStream.
type VisitPublisher struct {
	js nats.JetStreamContext
}

// NewVisitPublisher creates a new visit event publisher.
func NewVisitPublisher(js nats.JetStreamContext) *VisitPublisher {
	return &VisitPublisher{js: js}
}

// Publish emits a visit event for the given pass onto the stream.
func (p *VisitPublisher) Publish(visitorUUID, ip, userAgent string) error {
	event := model.VisitEvent{
		ID:          uuid.New().String(),
		VisitorUUID: visitorUUID,
		IP:          ip,
		UserAgent:   userAgent,
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.VisitStreamSubject, data)
	return err
}
