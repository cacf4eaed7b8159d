package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/qrlink/core"
	"github.com/layer-3/qrlink/ports"
)

const (
	pairingKeyPrefix   = "pairing:"
	loginCodeKeyPrefix = "logincode:"

	// tokenBytes is the raw entropy of pairing tokens and login codes
	tokenBytes = 32

	// maxTokenLength bounds tokens accepted from clients; anything longer
	// cannot have been issued by this service
	maxTokenLength = 128
)

// PairingService implements the QR login handoff between a browser and an
// already authenticated phone
type PairingService struct {
	store    ports.Store
	sessions ports.Sessions
	eventPub ports.EventPublisher
	qr       ports.QRRenderer

	baseURL      string
	pairingTTL   time.Duration
	loginCodeTTL time.Duration
}

// NewPairingService creates a new pairing service
func NewPairingService(
	store ports.Store,
	sessions ports.Sessions,
	eventPub ports.EventPublisher,
	qr ports.QRRenderer,
	baseURL string,
) *PairingService {
	return &PairingService{
		store:        store,
		sessions:     sessions,
		eventPub:     eventPub,
		qr:           qr,
		baseURL:      baseURL,
		pairingTTL:   2 * time.Minute,
		loginCodeTTL: 2 * time.Minute,
	}
}

// InitiateResult is returned to the browser starting a handoff
type InitiateResult struct {
	Token   string
	QRImage string
}

// PollResult reports the state of a pairing token to the browser
type PollResult struct {
	Status    string
	LoginCode string
}

// RedeemResult carries the credentials handed to the browser after it
// exchanges a login code
type RedeemResult struct {
	AccessToken string
	Identity    string
}

// Initiate generates a fresh pairing token, stores it as pending and
// renders the QR image the phone will scan
func (s *PairingService) Initiate(ctx context.Context) (*InitiateResult, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing token: %w", err)
	}

	entry, err := json.Marshal(core.PairingEntry{Status: core.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to encode pairing entry: %w", err)
	}

	if err := s.store.Set(ctx, pairingKeyPrefix+token, string(entry), s.pairingTTL); err != nil {
		return nil, fmt.Errorf("failed to store pairing token: %w", err)
	}

	payload, err := json.Marshal(core.PairingPayload{Token: token, URL: s.baseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode pairing payload: %w", err)
	}

	image, err := s.qr.RenderDataURI(string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to render qr image: %w", err)
	}

	return &InitiateResult{Token: token, QRImage: image}, nil
}

// Poll reports the status of a pairing token. A confirmed entry is removed
// atomically as part of the read, so the login code is delivered to at most
// one caller; afterwards the token reads as expired.
func (s *PairingService) Poll(ctx context.Context, token string) (*PollResult, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}

	raw, err := s.store.Get(ctx, pairingKeyPrefix+token)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return &PollResult{Status: core.StatusExpired}, nil
		}
		return nil, fmt.Errorf("failed to read pairing token: %w", err)
	}

	var entry core.PairingEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode pairing entry: %w", err)
	}

	if entry.Status != core.StatusConfirmed {
		return &PollResult{Status: core.StatusPending}, nil
	}

	// One-time take. Only issued after a confirmed read, so a pending
	// entry is never deleted; status never moves back to pending, so the
	// value taken here is the one observed above.
	raw, err = s.store.GetDel(ctx, pairingKeyPrefix+token)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			// A concurrent poll took the entry first
			return &PollResult{Status: core.StatusExpired}, nil
		}
		return nil, fmt.Errorf("failed to take pairing token: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode pairing entry: %w", err)
	}

	return &PollResult{Status: core.StatusConfirmed, LoginCode: entry.LoginCode}, nil
}

// Confirm binds a pending pairing token to the given authenticated identity.
// The session and login code are created before the pairing entry is
// rewritten, so a failure at any earlier step leaves the token pending.
func (s *PairingService) Confirm(ctx context.Context, token string, identity string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	if identity == "" {
		return core.ErrInvalidToken
	}

	raw, err := s.store.Get(ctx, pairingKeyPrefix+token)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return core.ErrPairingExpired
		}
		return fmt.Errorf("failed to read pairing token: %w", err)
	}

	var entry core.PairingEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return fmt.Errorf("failed to decode pairing entry: %w", err)
	}

	if entry.Status != core.StatusPending {
		return core.ErrAlreadyUsed
	}

	session, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	code, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate login code: %w", err)
	}

	codeEntry, err := json.Marshal(core.LoginCodeEntry{SessionID: session.ID, Identity: identity})
	if err != nil {
		return fmt.Errorf("failed to encode login code entry: %w", err)
	}

	if err := s.store.Set(ctx, loginCodeKeyPrefix+code, string(codeEntry), s.loginCodeTTL); err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}

	confirmed, err := json.Marshal(core.PairingEntry{
		Status:    core.StatusConfirmed,
		LoginCode: code,
		Identity:  identity,
	})
	if err != nil {
		return fmt.Errorf("failed to encode pairing entry: %w", err)
	}

	// The rewrite restarts the expiry clock so the browser has a full
	// window to poll for the login code
	if err := s.store.Set(ctx, pairingKeyPrefix+token, string(confirmed), s.pairingTTL); err != nil {
		return fmt.Errorf("failed to confirm pairing token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishConfirmed(ctx, identity, session.ID); err != nil {
			// The pairing is already confirmed in the store, which is the
			// critical part; a missed notification is not fatal
			fmt.Printf("Warning: Failed to publish confirmation event: %v\n", err)
		}
	}

	return nil
}

// Redeem exchanges a login code for the session's access token. Codes are
// single use; the atomic take removes the entry as part of the read.
func (s *PairingService) Redeem(ctx context.Context, code string) (*RedeemResult, error) {
	if err := validateToken(code); err != nil {
		return nil, err
	}

	raw, err := s.store.GetDel(ctx, loginCodeKeyPrefix+code)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return nil, core.ErrLoginCodeExpired
		}
		return nil, fmt.Errorf("failed to take login code: %w", err)
	}

	var entry core.LoginCodeEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode login code entry: %w", err)
	}

	session, err := s.sessions.Resolve(ctx, entry.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	accessToken, err := s.sessions.AccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &RedeemResult{AccessToken: accessToken, Identity: session.Identity}, nil
}

// validateToken rejects token values that could not have been issued by
// this service before any store access
func validateToken(token string) error {
	if token == "" || len(token) > maxTokenLength {
		return core.ErrInvalidToken
	}
	return nil
}

// generateToken returns a secure random opaque token
func generateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
