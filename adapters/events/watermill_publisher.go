package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/qrlink/ports"
)

// ConfirmedEvent represents a pairing confirmation event
type ConfirmedEvent struct {
	Identity    string    `json:"identity"`
	SessionID   string    `json:"session_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "qrlink.pairing.confirmed",
	}
}

// PublishConfirmed publishes a pairing confirmation event
func (p *WatermillPublisher) PublishConfirmed(ctx context.Context, identity string, sessionID string) error {
	event := ConfirmedEvent{
		Identity:    identity,
		SessionID:   sessionID,
		ConfirmedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(sessionID, payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
