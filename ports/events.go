package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, identity string, sessionID string) error
}
