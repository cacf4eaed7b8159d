package ports

import (
	"context"

	"github.com/layer-3/qrlink/core"
)

// Sessions mints and validates authenticated sessions
type Sessions interface {
	// Create establishes a durable session for an identity
	Create(ctx context.Context, identity string) (*core.Session, error)

	// Resolve looks up an existing session by its ID
	Resolve(ctx context.Context, sessionID string) (*core.Session, error)

	// AccessToken issues a bearer token for a session
	AccessToken(session *core.Session) (string, error)

	// ValidateAccessToken verifies a bearer token and returns its session
	ValidateAccessToken(ctx context.Context, token string) (*core.Session, error)
}
