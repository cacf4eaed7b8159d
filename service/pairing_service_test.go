package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/qrlink/adapters/store"
	"github.com/layer-3/qrlink/core"
)

// stubSessions is an in-memory Sessions implementation for service tests
type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	failNext bool
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: make(map[string]*core.Session)}
}

func (s *stubSessions) Create(_ context.Context, identity string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, errors.New("session backend down")
	}
	now := time.Now()
	session := &core.Session{
		ID:        fmt.Sprintf("sess-%d", len(s.sessions)+1),
		Identity:  identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *stubSessions) Resolve(_ context.Context, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubSessions) AccessToken(session *core.Session) (string, error) {
	return "access-" + session.ID, nil
}

func (s *stubSessions) ValidateAccessToken(context.Context, string) (*core.Session, error) {
	return nil, errors.New("not implemented")
}

// stubRenderer records the payload it was asked to render
type stubRenderer struct {
	lastContent string
}

func (r *stubRenderer) RenderDataURI(content string) (string, error) {
	r.lastContent = content
	return "data:image/png;base64,stub", nil
}

// failingStore reports unavailability on every operation
type failingStore struct{}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}

func (failingStore) GetDel(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}

func (failingStore) Delete(context.Context, string) error {
	return fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
}

// recordingPublisher captures confirmation events
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishConfirmed(_ context.Context, identity string, sessionID string) error {
	p.mu.Lock()
	p.events = append(p.events, identity+"/"+sessionID)
	p.mu.Unlock()
	return nil
}

func newTestService() (*PairingService, *stubSessions, *stubRenderer, *recordingPublisher) {
	sessions := newStubSessions()
	renderer := &stubRenderer{}
	publisher := &recordingPublisher{}
	svc := NewPairingService(store.NewMemoryStore(), sessions, publisher, renderer, "https://example.test")
	return svc, sessions, renderer, publisher
}

func TestInitiateReturnsTokenAndQRImage(t *testing.T) {
	ctx := context.Background()
	svc, _, renderer, _ := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "data:image/png;base64,stub", result.QRImage)

	// The QR payload carries the token and the site URL
	require.Contains(t, renderer.lastContent, result.Token)
	require.Contains(t, renderer.lastContent, "https://example.test")
}

func TestPollPendingIsRepeatable(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		poll, err := svc.Poll(ctx, result.Token)
		require.NoError(t, err)
		require.Equal(t, core.StatusPending, poll.Status)
		require.Empty(t, poll.LoginCode)
	}
}

func TestPollUnknownTokenReportsExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	poll, err := svc.Poll(ctx, "never-issued")
	require.NoError(t, err)
	require.Equal(t, core.StatusExpired, poll.Status)
}

func TestPollRejectsMalformedToken(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	_, err := svc.Poll(ctx, "")
	require.ErrorIs(t, err, core.ErrInvalidToken)

	long := make([]byte, maxTokenLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Poll(ctx, string(long))
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestConfirmUnknownTokenReportsExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	err := svc.Confirm(ctx, "never-issued", "alice")
	require.ErrorIs(t, err, core.ErrPairingExpired)
}

func TestFullHandoff(t *testing.T) {
	ctx := context.Background()
	svc, _, _, publisher := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)

	poll, err := svc.Poll(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, core.StatusPending, poll.Status)

	require.NoError(t, svc.Confirm(ctx, result.Token, "alice"))
	require.Len(t, publisher.events, 1)

	poll, err = svc.Poll(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, core.StatusConfirmed, poll.Status)
	require.NotEmpty(t, poll.LoginCode)

	// The confirmed entry was taken by the previous poll
	poll2, err := svc.Poll(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, core.StatusExpired, poll2.Status)

	redeemed, err := svc.Redeem(ctx, poll.LoginCode)
	require.NoError(t, err)
	require.Equal(t, "alice", redeemed.Identity)
	require.NotEmpty(t, redeemed.AccessToken)

	// Login codes are single use
	_, err = svc.Redeem(ctx, poll.LoginCode)
	require.ErrorIs(t, err, core.ErrLoginCodeExpired)
}

func TestConfirmTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(ctx, result.Token, "alice"))

	err = svc.Confirm(ctx, result.Token, "bob")
	require.ErrorIs(t, err, core.ErrAlreadyUsed)

	// The first confirmation's identity is unchanged
	poll, err := svc.Poll(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, core.StatusConfirmed, poll.Status)

	redeemed, err := svc.Redeem(ctx, poll.LoginCode)
	require.NoError(t, err)
	require.Equal(t, "alice", redeemed.Identity)
}

func TestConfirmRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)

	err = svc.Confirm(ctx, result.Token, "")
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestConfirmSessionFailureLeavesTokenPending(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _, publisher := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)

	sessions.failNext = true
	err = svc.Confirm(ctx, result.Token, "alice")
	require.Error(t, err)
	require.Empty(t, publisher.events)

	// No partial state: the token is still pending and confirmable
	poll, err := svc.Poll(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, core.StatusPending, poll.Status)

	require.NoError(t, svc.Confirm(ctx, result.Token, "alice"))
}

func TestConcurrentPollsDeliverLoginCodeOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	result, err := svc.Initiate(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, result.Token, "alice"))

	const pollers = 32
	var confirmed int32
	codes := make([]string, pollers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			poll, err := svc.Poll(ctx, result.Token)
			if err == nil && poll.Status == core.StatusConfirmed {
				codes[i] = poll.LoginCode
				atomic.AddInt32(&confirmed, 1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	require.EqualValues(t, 1, confirmed)

	delivered := 0
	for _, code := range codes {
		if code != "" {
			delivered++
		}
	}
	require.Equal(t, 1, delivered)
}

func TestStoreFailureSurfacesAsInfrastructureError(t *testing.T) {
	ctx := context.Background()
	svc := NewPairingService(failingStore{}, newStubSessions(), nil, &stubRenderer{}, "https://example.test")

	_, err := svc.Initiate(ctx)
	require.ErrorIs(t, err, core.ErrStoreUnavailable)

	_, err = svc.Poll(ctx, "sometoken")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)

	err = svc.Confirm(ctx, "sometoken", "alice")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)

	_, err = svc.Redeem(ctx, "somecode")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestGeneratedTokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := generateToken()
		require.NoError(t, err)
		require.Len(t, token, 43) // 32 bytes, base64 url encoded without padding

		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated: %s", token)
		seen[token] = struct{}{}
	}
}

func TestLoginCodesUniqueAcrossConfirmations(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		result, err := svc.Initiate(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.Confirm(ctx, result.Token, "alice"))

		poll, err := svc.Poll(ctx, result.Token)
		require.NoError(t, err)
		require.Equal(t, core.StatusConfirmed, poll.Status)

		_, dup := seen[poll.LoginCode]
		require.False(t, dup, "duplicate login code: %s", poll.LoginCode)
		seen[poll.LoginCode] = struct{}{}
	}
}
