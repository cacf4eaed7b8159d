package sessions

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/qrlink/core"
	"github.com/layer-3/qrlink/ports"
)

const AudienceAccess = "qrlink:access"

const sessionKeyPrefix = "session:"

// DefaultSessionTTL is the default lifetime of a minted session
const DefaultSessionTTL = 24 * time.Hour

// sessionRecord is the serialized form persisted through the store
type sessionRecord struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTSessions implements the Sessions interface with ES256 signed tokens.
// Session records are persisted through the store so that a session can be
// resolved (and revoked) independently of the tokens issued for it.
type JWTSessions struct {
	signKey    *ecdsa.PrivateKey
	store      ports.Store
	sessionTTL time.Duration
}

// NewJWTSessions creates a new JWT-backed sessions adapter
func NewJWTSessions(signKey *ecdsa.PrivateKey, store ports.Store) ports.Sessions {
	return &JWTSessions{
		signKey:    signKey,
		store:      store,
		sessionTTL: DefaultSessionTTL,
	}
}

// Create establishes a durable session record for an identity
func (s *JWTSessions) Create(ctx context.Context, identity string) (*core.Session, error) {
	now := time.Now()
	record := sessionRecord{
		ID:        uuid.New().String(),
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.store.Set(ctx, sessionKeyPrefix+record.ID, string(data), s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &core.Session{
		ID:        record.ID,
		Identity:  record.Identity,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Resolve looks up an existing session record by its ID
func (s *JWTSessions) Resolve(ctx context.Context, sessionID string) (*core.Session, error) {
	raw, err := s.store.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &core.Session{
		ID:        record.ID,
		Identity:  record.Identity,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// AccessToken issues an ES256 signed bearer token for a session
func (s *JWTSessions) AccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Identity,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// ValidateAccessToken verifies a bearer token and returns the session it
// belongs to. The session record must still exist in the store; a missing
// record means the session was revoked or has expired.
func (s *JWTSessions) ValidateAccessToken(ctx context.Context, tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAccess))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return s.Resolve(ctx, claims.ID)
}
