package core

import "time"

// Session represents an authenticated user session
type Session struct {
	ID        string    // Unique session identifier
	Identity  string    // Authenticated principal the session belongs to
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}
